package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yndnr/snapcoord/internal/core/domain"
)

const namespace = "snapcoord"

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	// Session metrics
	sessionsLive     prometheus.Gauge
	sessionsStarted  *prometheus.CounterVec
	sessionsResolved *prometheus.CounterVec
	sessionDuration  *prometheus.HistogramVec
	startsRejected   *prometheus.CounterVec

	// Channel metrics
	hostEvents   *prometheus.CounterVec
	hostReports  *prometheus.CounterVec
	agentCalls   *prometheus.CounterVec
	agentLatency *prometheus.HistogramVec
}

// NewRegistry creates a registry with every snapcoord metric plus the Go
// runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{reg: prometheus.NewRegistry()}

	r.sessionsLive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "sessions",
		Name:      "live",
		Help:      "Snapshot sessions currently in the table.",
	})
	r.sessionsStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sessions",
		Name:      "started_total",
		Help:      "Snapshot sessions opened by host start events.",
	}, []string{"scope"})
	r.sessionsResolved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sessions",
		Name:      "resolved_total",
		Help:      "Snapshot sessions that reached a terminal phase.",
	}, []string{"scope", "outcome"})
	r.sessionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "sessions",
		Name:      "duration_seconds",
		Help:      "Time from host start to terminal phase.",
		Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"outcome"})
	r.startsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sessions",
		Name:      "start_rejected_total",
		Help:      "Host start events that created no session.",
	}, []string{"reason"})

	r.hostEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "host",
		Name:      "events_total",
		Help:      "Lifecycle events received from the host.",
	}, []string{"event", "result"})
	r.hostReports = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "host",
		Name:      "reports_total",
		Help:      "Reports sent to the host.",
	}, []string{"report", "result"})
	r.agentCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "agent",
		Name:      "calls_total",
		Help:      "Agent control calls by returned status.",
	}, []string{"call", "status"})
	r.agentLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "agent",
		Name:      "call_duration_seconds",
		Help:      "Agent control call latency, including waits.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"call"})

	r.reg.MustRegister(
		r.sessionsLive,
		r.sessionsStarted,
		r.sessionsResolved,
		r.sessionDuration,
		r.startsRejected,
		r.hostEvents,
		r.hostReports,
		r.agentCalls,
		r.agentLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Prometheus returns the underlying registry.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.reg
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// ============================================================================
// Coordinator metrics
// ============================================================================

func scopeLabel(s domain.Scope) string {
	if s.IsAll() {
		return "all-units"
	}
	return "unit"
}

// SessionStarted records a session opened by a start event.
func (r *Registry) SessionStarted(scope domain.Scope) {
	r.sessionsStarted.WithLabelValues(scopeLabel(scope)).Inc()
}

// SessionResolved records a session reaching a terminal phase.
func (r *Registry) SessionResolved(scope domain.Scope, outcome string, age time.Duration) {
	r.sessionsResolved.WithLabelValues(scopeLabel(scope), outcome).Inc()
	r.sessionDuration.WithLabelValues(outcome).Observe(age.Seconds())
}

// StartRejected records a start event that created no session.
func (r *Registry) StartRejected(reason string) {
	r.startsRejected.WithLabelValues(reason).Inc()
}

// LiveSessions sets the live session gauge.
func (r *Registry) LiveSessions(n int) {
	r.sessionsLive.Set(float64(n))
}

// ============================================================================
// Channel metrics
// ============================================================================

// HostEvent records a host lifecycle event and whether it was accepted.
func (r *Registry) HostEvent(event, result string) {
	r.hostEvents.WithLabelValues(event, result).Inc()
}

// HostReport records a report delivery attempt.
func (r *Registry) HostReport(report, result string) {
	r.hostReports.WithLabelValues(report, result).Inc()
}

// AgentCall records a completed agent call.
func (r *Registry) AgentCall(call, status string, d time.Duration) {
	r.agentCalls.WithLabelValues(call, status).Inc()
	r.agentLatency.WithLabelValues(call).Observe(d.Seconds())
}
