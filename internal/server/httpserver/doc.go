// Package httpserver provides the HTTP observability surface of snapcoord-server.
//
// The server exposes health, readiness, the live session table and
// Prometheus metrics. Snapshot traffic never flows over HTTP; agents and the
// host use the unix sockets served by localserver.
//
// Middleware chain: Recover, RequestID, RateLimit, Audit.
package httpserver
