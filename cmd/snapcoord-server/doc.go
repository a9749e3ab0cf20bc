// Package main provides the entry point for snapcoord-server.
//
// The server coordinates application-consistent disk snapshots between the
// host and the guest agent. It serves:
//
//   - the agent control socket (GOOOGVSS buffers)
//   - the host event socket (lifecycle events from the host)
//   - an HTTP status endpoint (health, readiness, sessions, metrics)
//
// and delivers snapshot-ready reports to the host report socket.
//
// Usage:
//
//	snapcoord-server [flags]
//	snapcoord-server --config /etc/snapcoord/server.yaml
//	snapcoord-server check-config --config /etc/snapcoord/server.yaml
//
// Log level, phase timeouts, the agent wait cap and the unit list are
// reloaded when the configuration file changes.
package main
