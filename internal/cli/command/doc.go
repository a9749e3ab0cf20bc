// Package command provides CLI command definitions for snapcoord-cli.
//
// Command groups:
//
//   - agent: act as the guest snapshot agent over the agent socket
//   - host: act as the host, sending lifecycle events and receiving reports
//   - status: read health and live sessions from the HTTP endpoint
//
// The agent and host groups speak the same fixed binary frames as the real
// peers, so the CLI doubles as a test harness for snapcoord-server.
package command
