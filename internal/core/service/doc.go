// Package service provides domain services for snapcoord.
//
// The Coordinator is the snapshot state machine. It defines interfaces for
// its collaborators so that storage, the host channel and metrics can be
// swapped in tests:
//
//   - SessionRepository: the scope-keyed session table
//   - UnitRegistry: which logical units are attached
//   - Reporter: the non-blocking host report queue
//   - Metrics: counters and gauges for transitions
//
// Host events never wait on the agent. Agent calls wait only until the
// session they act on turns terminal or its phase deadline elapses.
package service
