package agentbridge

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/snapcoord/internal/core/domain"
	"github.com/yndnr/snapcoord/internal/core/service"
	"github.com/yndnr/snapcoord/internal/core/status"
	"github.com/yndnr/snapcoord/internal/protocol/wire"
)

// Coordinator is the subset of the snapshot coordinator the agent drives.
type Coordinator interface {
	Pickup(ctx context.Context, req *service.PickupRequest) (*service.PickupResponse, error)
	Vote(ctx context.Context, req *service.VoteRequest) error
	Discard(ctx context.Context, req *service.DiscardRequest) error
}

// Metrics receives agent call events.
type Metrics interface {
	AgentCall(call, status string, d time.Duration)
}

// Config holds the bridge configuration.
type Config struct {
	// RateLimit caps agent calls per second. Zero disables limiting.
	RateLimit float64
	// Burst is the limiter bucket size (default: 1 when limiting).
	Burst int
	// MaxWait caps how long a pickup may wait for a start event. The agent
	// asks for a wait through the header timeout; zero makes every pickup
	// fail fast.
	MaxWait time.Duration
}

// Bridge adapts agent buffers onto the coordinator. It implements
// localserver.Handler.
type Bridge struct {
	coord   Coordinator
	limiter *rate.Limiter
	maxWait atomic.Int64
	metrics Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures the Bridge.
type Option func(*Bridge)

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(b *Bridge) {
		b.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = l
	}
}

// New creates a Bridge.
func New(coord Coordinator, cfg Config, opts ...Option) *Bridge {
	b := &Bridge{
		coord:   coord,
		metrics: nopMetrics{},
		logger:  slog.Default(),
		now:     time.Now,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		b.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	b.SetMaxWait(cfg.MaxWait)

	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetMaxWait replaces the pickup wait cap.
func (b *Bridge) SetMaxWait(d time.Duration) {
	b.maxWait.Store(int64(d))
}

// FrameSize implements localserver.Handler.
func (b *Bridge) FrameSize() int {
	return wire.AgentBufferSize
}

// ServeFrame implements localserver.Handler. It never returns an error:
// every frame is answered with a status.
func (b *Bridge) ServeFrame(ctx context.Context, frame []byte) ([]byte, error) {
	buf := b.Call(ctx, frame)
	return buf.MarshalBinary()
}

// Call handles one agent buffer and returns the reply buffer.
func (b *Bridge) Call(ctx context.Context, frame []byte) wire.AgentBuffer {
	start := b.now()

	var buf wire.AgentBuffer
	if err := buf.UnmarshalBinary(frame); err != nil {
		// Nothing in a short frame is trusted; reply with a bare status.
		buf = wire.AgentBuffer{}
		b.finish(&buf, "invalid", err, start)
		return buf
	}

	// 1. Validate before trusting any field
	kind, err := validate(buf)
	if err != nil {
		b.finish(&buf, "invalid", err, start)
		return buf
	}

	// 2. Rate limit
	if b.limiter != nil && !b.limiter.Allow() {
		b.finish(&buf, kind.String(), domain.ErrRateLimited, start)
		return buf
	}

	// 3. Dispatch
	switch kind {
	case wire.CallPickup, wire.CallPickupAll:
		err = b.pickup(ctx, &buf, kind == wire.CallPickupAll)
	case wire.CallVote:
		err = b.coord.Vote(ctx, &service.VoteRequest{
			Unit:    buf.Unit(),
			Proceed: wire.AgentStatus(buf.Status) == wire.StatusSucceeded,
		})
	case wire.CallDiscard:
		err = b.coord.Discard(ctx, &service.DiscardRequest{Unit: buf.Unit()})
	}

	b.finish(&buf, kind.String(), err, start)
	return buf
}

func (b *Bridge) pickup(ctx context.Context, buf *wire.AgentBuffer, all bool) error {
	wait := time.Duration(buf.Header.Timeout) * time.Second
	if limit := time.Duration(b.maxWait.Load()); wait > limit {
		wait = limit
	}

	resp, err := b.coord.Pickup(ctx, &service.PickupRequest{All: all, Wait: wait})
	if err != nil {
		return err
	}
	if resp.Scope.IsAll() {
		buf.Target, buf.Lun = 0, 0
		return nil
	}
	buf.Target = resp.Scope.Unit.Target
	buf.Lun = uint8(resp.Scope.Unit.Lun)
	return nil
}

// validate checks signature, then sizes, then the control code.
func validate(buf wire.AgentBuffer) (wire.CallKind, error) {
	h := buf.Header
	if !h.SignatureOK() {
		return 0, domain.ErrBadSignature.WithDetailsf("signature %q", h.Signature[:])
	}
	if h.HeaderLength != wire.IoControlHeaderSize {
		return 0, domain.ErrMalformedMessage.WithDetailsf("header length %d, want %d", h.HeaderLength, wire.IoControlHeaderSize)
	}
	if h.Length < wire.AgentPayloadSize {
		return 0, domain.ErrMalformedMessage.WithDetailsf("payload length %d, want %d", h.Length, wire.AgentPayloadSize)
	}
	kind, ok := wire.CallKindOf(h.ControlCode)
	if !ok {
		return 0, domain.ErrInvalidRequest.WithDetailsf("control code %#x", h.ControlCode)
	}
	return kind, nil
}

func (b *Bridge) finish(buf *wire.AgentBuffer, call string, err error, start time.Time) {
	st := status.Agent(err)
	buf.SetStatus(st)

	elapsed := b.now().Sub(start)
	b.metrics.AgentCall(call, st.String(), elapsed)

	attrs := []any{
		"call", call,
		"unit", buf.Unit().String(),
		"status", st.String(),
		"duration", elapsed,
	}
	if err != nil {
		attrs = append(attrs, "error", err)
		b.logger.Info("agent call failed", attrs...)
		return
	}
	b.logger.Info("agent call succeeded", attrs...)
}

type nopMetrics struct{}

func (nopMetrics) AgentCall(string, string, time.Duration) {}
