package hostchannel

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yndnr/snapcoord/internal/core/domain"
	"github.com/yndnr/snapcoord/internal/protocol/wire"
)

// Sender delivers one control request to the host and returns its reply.
type Sender interface {
	Send(ctx context.Context, req wire.ControlRequest) (wire.ControlResponse, error)
	Close() error
}

// Metrics receives host channel events.
type Metrics interface {
	HostEvent(event, result string)
	HostReport(report, result string)
}

// Config holds the dispatcher configuration.
type Config struct {
	// Features is the feature bitmap negotiated with the host.
	Features wire.Features
	// DriverVersion is announced at start-up when ReportDriverVersion is set
	// and the host negotiated the feature.
	DriverVersion       uint64
	ReportDriverVersion bool
	// ReportTimeout bounds a single report delivery (default: 5s).
	ReportTimeout time.Duration
	// QueueSize bounds the report queue (default: 64).
	QueueSize int
}

// Dispatcher queues host reports and delivers them in order.
type Dispatcher struct {
	cfg     Config
	sender  Sender
	metrics Metrics
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan wire.ControlRequest
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// NewDispatcher creates a Dispatcher delivering through sender.
func NewDispatcher(cfg Config, sender Sender, opts ...Option) *Dispatcher {
	if cfg.ReportTimeout <= 0 {
		cfg.ReportTimeout = 5 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	d := &Dispatcher{
		cfg:     cfg,
		sender:  sender,
		metrics: nopMetrics{},
		logger:  slog.Default(),
		queue:   make(chan wire.ControlRequest, cfg.QueueSize),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Report queues a snapshot-ready report for scope. It never blocks: when
// the queue is full or closed the report is dropped and logged.
func (d *Dispatcher) Report(scope domain.Scope, status wire.ReportStatus) {
	d.enqueue(wire.SnapshotReadyReport(scope, status))
}

func (d *Dispatcher) enqueue(req wire.ControlRequest) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(req, "closed")
		return
	}
	select {
	case d.queue <- req:
	default:
		d.drop(req, "queue_full")
	}
}

func (d *Dispatcher) drop(req wire.ControlRequest, reason string) {
	d.metrics.HostReport(reportName(req), "dropped")
	d.logger.Error("host report dropped",
		"reason", reason,
		"report", reportName(req),
		"status", wire.ReportStatus(req.Data).String())
}

// Pending returns the number of queued reports.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Run delivers the driver-version report, if negotiated, then queued
// reports until Close is called and the queue is drained. Deliveries use
// ctx; once ctx ends the remaining reports fail fast.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer d.sender.Close()

	if d.cfg.ReportDriverVersion && d.cfg.Features.Has(wire.FeatureReportDriverVersion) {
		d.deliver(ctx, wire.DriverVersionReport(d.cfg.DriverVersion))
	}

	for req := range d.queue {
		d.deliver(ctx, req)
	}
	return nil
}

// Close stops accepting reports. Run returns once the queue is drained.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.queue)
}

func (d *Dispatcher) deliver(ctx context.Context, req wire.ControlRequest) {
	name := reportName(req)
	attrs := []any{"report", name}
	if req.Subtype == wire.SubtypeReportSnapshotReady {
		scope, _ := req.ReportScope()
		attrs = append(attrs,
			"scope", scope.String(),
			"status", wire.ReportStatus(req.Data).String())
	} else {
		attrs = append(attrs, "version", req.Data)
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.ReportTimeout)
	defer cancel()

	resp, err := d.sender.Send(ctx, req)
	switch {
	case err != nil:
		d.metrics.HostReport(name, "failed")
		d.logger.Error("host report failed", append(attrs, "error", err)...)
	case resp.Response != wire.ResponseOK:
		d.metrics.HostReport(name, "rejected")
		d.logger.Warn("host rejected report", append(attrs, "response", resp.Response)...)
	default:
		d.metrics.HostReport(name, "sent")
		d.logger.Debug("host report sent", attrs...)
	}
}

func reportName(req wire.ControlRequest) string {
	if req.Subtype == wire.SubtypeReportDriverVersion {
		return "driver-version"
	}
	return "snapshot-ready"
}

type nopMetrics struct{}

func (nopMetrics) HostEvent(string, string)  {}
func (nopMetrics) HostReport(string, string) {}
