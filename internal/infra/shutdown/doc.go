// Package shutdown provides graceful shutdown for snapcoord.
//
// This package handles process termination:
//
//   - Signal handling (SIGINT, SIGTERM) and programmatic Trigger
//   - Timeout-bounded hook execution in reverse registration order
//   - Shutdown coordination through Done
//
// Usage:
//
//	h := shutdown.NewHandler(30*time.Second, logger)
//	h.OnShutdown("http", srv.Shutdown)
//	if err := h.Wait(); err != nil { ... }
package shutdown
