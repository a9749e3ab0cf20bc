// Package connection provides the transports used by snapcoord-cli.
//
//   - http.go: status client for the server's HTTP endpoints
//   - socket.go: fixed-frame Unix socket client for the agent and host sockets
package connection
