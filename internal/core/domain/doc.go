// Package domain defines the core domain models for snapcoord.
//
// It contains:
//
//   - LogicalUnit and Scope: the addressing of a snapshot and its conflict rule
//   - Session: one snapshot negotiation and its phase machine
//   - Errors: the structured error taxonomy shared by every layer
//
// Nothing in this package performs IO.
package domain
