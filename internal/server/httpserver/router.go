package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/snapcoord/internal/server/httpserver/handler"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Sessions lists the live snapshot sessions.
	Sessions handler.SessionLister

	// Ready reports readiness for GET /ready. Nil means always ready.
	Ready handler.ReadyFunc

	// Metrics serves GET /metrics. Nil leaves the route unregistered.
	Metrics http.Handler

	// Logger for request logging.
	Logger *slog.Logger

	// RateLimit is the per-IP rate limit in requests/second. Zero disables it.
	RateLimit float64

	// RateBurst is the per-IP burst. Zero derives it from RateLimit.
	RateBurst int

	// EnableAudit enables request logging.
	EnableAudit bool
}

// DefaultRouterConfig returns default router configuration.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		Logger:      slog.Default(),
		RateLimit:   100,
		EnableAudit: true,
	}
}

// NewRouter creates the HTTP handler with all routes and middleware.
//
// Order: Recover -> RequestID -> RateLimit -> Audit -> Handler
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	opts := []handler.Option{handler.WithLogger(log)}
	if cfg.Ready != nil {
		opts = append(opts, handler.WithReady(cfg.Ready))
	}
	if cfg.Metrics != nil {
		opts = append(opts, handler.WithMetrics(cfg.Metrics))
	}
	h := handler.New(cfg.Sessions, opts...)

	middlewares := []Middleware{Recover(log), RequestID()}
	if cfg.RateLimit > 0 {
		middlewares = append(middlewares, RateLimit(cfg.RateLimit, cfg.RateBurst))
	}
	if cfg.EnableAudit {
		middlewares = append(middlewares, Audit(log))
	}
	return Chain(h, middlewares...)
}
