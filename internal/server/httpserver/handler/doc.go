// Package handler provides the HTTP endpoints of snapcoord-server.
//
// Endpoints:
//   - GET /health: liveness, always 200 while the process serves HTTP
//   - GET /ready: 200 while the coordinator accepts events, 503 after teardown
//   - GET /v1/sessions: live snapshot sessions, optionally filtered by phase
//   - GET /metrics: Prometheus exposition, when a metrics handler is configured
//
// Every JSON response uses the Response envelope.
package handler
