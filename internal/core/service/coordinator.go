package service

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/snapcoord/internal/core/domain"
	"github.com/yndnr/snapcoord/internal/core/status"
	"github.com/yndnr/snapcoord/internal/protocol/wire"
)

// SessionRepository defines the session table used by the coordinator.
type SessionRepository interface {
	// Insert stores a new session or returns ErrScopeConflict.
	Insert(s *domain.Session) error

	// Get returns the session stored for exactly scope.
	Get(scope domain.Scope) (*domain.Session, bool)

	// Governing returns the aggregate session if live, else the unit's session.
	Governing(u domain.LogicalUnit) (*domain.Session, bool)

	// Remove deletes s if it is still stored.
	Remove(s *domain.Session) bool

	// UnitSessions returns the live per-unit sessions, oldest first.
	UnitSessions() []*domain.Session

	// List returns every live session.
	List() []*domain.Session

	// Len returns the number of live sessions.
	Len() int

	// Drain removes and returns every session.
	Drain() []*domain.Session
}

// UnitRegistry reports which logical units are attached.
type UnitRegistry interface {
	Known(u domain.LogicalUnit) bool
}

// Reporter delivers snapshot-ready reports to the host. Report must not block.
type Reporter interface {
	Report(scope domain.Scope, status wire.ReportStatus)
}

// Metrics receives coordinator events.
type Metrics interface {
	SessionStarted(scope domain.Scope)
	SessionResolved(scope domain.Scope, outcome string, age time.Duration)
	StartRejected(reason string)
	LiveSessions(n int)
}

// Timeouts bounds how long a session may stay in each live phase.
type Timeouts struct {
	Pickup   time.Duration // Pending
	Vote     time.Duration // Dispatched
	Complete time.Duration // Prepared
}

func (t Timeouts) forPhase(p domain.Phase) time.Duration {
	switch p {
	case domain.PhasePending:
		return t.Pickup
	case domain.PhaseDispatched:
		return t.Vote
	case domain.PhasePrepared:
		return t.Complete
	default:
		return 0
	}
}

// DefaultTimeouts returns the phase deadlines used when none are configured.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Pickup:   30 * time.Second,
		Vote:     60 * time.Second,
		Complete: 10 * time.Minute,
	}
}

// Coordinator drives snapshot sessions through their lifecycle.
type Coordinator struct {
	repo     SessionRepository
	units    UnitRegistry
	reporter Reporter
	metrics  Metrics
	logger   *slog.Logger
	now      func() time.Time
	timeouts atomic.Pointer[Timeouts]

	// mu guards the fields below. It is never held while taking a session lock.
	mu     sync.Mutex
	timers map[string]*time.Timer
	wake   chan struct{}
	closed bool
}

// Option configures the Coordinator.
type Option func(*Coordinator)

// WithUnits sets the unit registry. Without one every unit is accepted.
func WithUnits(r UnitRegistry) Option {
	return func(c *Coordinator) {
		c.units = r
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// WithTimeouts sets the phase deadlines.
func WithTimeouts(t Timeouts) Option {
	return func(c *Coordinator) {
		c.timeouts.Store(&t)
	}
}

// WithClock overrides the time source used for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(repo SessionRepository, reporter Reporter, opts ...Option) *Coordinator {
	c := &Coordinator{
		repo:     repo,
		units:    anyUnit{},
		reporter: reporter,
		metrics:  nopMetrics{},
		logger:   slog.Default(),
		now:      time.Now,
		timers:   make(map[string]*time.Timer),
		wake:     make(chan struct{}),
	}
	def := DefaultTimeouts()
	c.timeouts.Store(&def)

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetTimeouts replaces the phase deadlines. Sessions pick up the new values
// on their next transition.
func (c *Coordinator) SetTimeouts(t Timeouts) {
	c.timeouts.Store(&t)
}

// Timeouts returns the current phase deadlines.
func (c *Coordinator) Timeouts() Timeouts {
	return *c.timeouts.Load()
}

// Sessions returns a view of every live session.
func (c *Coordinator) Sessions() []domain.SessionView {
	live := c.repo.List()
	out := make([]domain.SessionView, 0, len(live))
	for _, s := range live {
		out = append(out, s.View())
	}
	return out
}

// Closed reports whether Teardown has run.
func (c *Coordinator) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// ============================================================================
// Transition helpers
// ============================================================================

// advanceLocked moves s to a live phase and re-arms its deadline. The caller
// holds s's lock.
func (c *Coordinator) advanceLocked(s *domain.Session, next domain.Phase) error {
	if err := s.Transition(next, nil, c.now()); err != nil {
		return err
	}
	c.armLocked(s)
	if st, ok := status.HostReport(next); ok {
		c.reporter.Report(s.Scope, st)
	}
	c.logger.Info("snapshot session advanced",
		"session_id", s.ID,
		"scope", s.Scope.String(),
		"phase", next.String())
	return nil
}

// resolveLocked moves s to a terminal phase and enqueues its host report.
// Waiters are released by the transition itself. The caller holds s's lock
// and must call release afterwards.
func (c *Coordinator) resolveLocked(s *domain.Session, next domain.Phase, result error) error {
	if err := s.Transition(next, result, c.now()); err != nil {
		return err
	}
	c.disarm(s)
	if st, ok := status.HostReport(next); ok {
		c.reporter.Report(s.Scope, st)
	}

	attrs := []any{
		"session_id", s.ID,
		"scope", s.Scope.String(),
		"phase", next.String(),
	}
	if result != nil {
		attrs = append(attrs, "error", result)
	}
	c.logger.Info("snapshot session resolved", attrs...)
	c.metrics.SessionResolved(s.Scope, status.Outcome(next, result), s.UpdatedAt.Sub(s.CreatedAt))
	return nil
}

// release drops a terminal session from the table.
func (c *Coordinator) release(s *domain.Session) {
	c.repo.Remove(s)
	c.metrics.LiveSessions(c.repo.Len())
}

func (c *Coordinator) armLocked(s *domain.Session) {
	d := c.Timeouts().forPhase(s.Phase)
	if d <= 0 {
		s.Deadline = time.Time{}
		c.disarm(s)
		return
	}
	armed := s.Phase
	s.Deadline = c.now().Add(d)
	t := time.AfterFunc(d, func() { c.expire(s, armed) })

	c.mu.Lock()
	if old, ok := c.timers[s.ID]; ok {
		old.Stop()
	}
	c.timers[s.ID] = t
	c.mu.Unlock()
}

func (c *Coordinator) disarm(s *domain.Session) {
	c.mu.Lock()
	if t, ok := c.timers[s.ID]; ok {
		t.Stop()
		delete(c.timers, s.ID)
	}
	c.mu.Unlock()
}

// expire resolves s if it is still in the phase the deadline was armed for.
func (c *Coordinator) expire(s *domain.Session, armed domain.Phase) {
	s.Lock()
	if s.Phase != armed {
		s.Unlock()
		return
	}

	var err error
	if armed == domain.PhasePrepared {
		err = c.resolveLocked(s, domain.PhaseError,
			domain.ErrBackendFailure.WithDetails("no completion from host").WithCause(domain.ErrTimeout))
	} else {
		err = c.resolveLocked(s, domain.PhaseCancelled,
			domain.ErrCancelled.WithDetailsf("deadline elapsed in %s", armed).WithCause(domain.ErrTimeout))
	}
	s.Unlock()

	if err != nil {
		c.logger.Error("deadline transition failed", "session_id", s.ID, "error", err)
		return
	}
	c.logger.Warn("snapshot session deadline elapsed",
		"session_id", s.ID,
		"scope", s.Scope.String(),
		"phase", armed.String())
	c.release(s)
}

// broadcast wakes every pickup waiting for a new Pending session.
func (c *Coordinator) broadcast() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	close(c.wake)
	c.wake = make(chan struct{})
}

// ============================================================================
// Teardown
// ============================================================================

// Teardown cancels every live session, releases all waiters and empties the
// table. Later host events and agent calls fail with ErrShuttingDown.
func (c *Coordinator) Teardown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.wake)
	c.mu.Unlock()

	cancelled := 0
	for _, s := range c.repo.Drain() {
		s.Lock()
		if !s.Phase.IsTerminal() {
			if err := c.resolveLocked(s, domain.PhaseCancelled,
				domain.ErrCancelled.WithDetails("coordinator teardown").WithCause(domain.ErrShuttingDown)); err == nil {
				cancelled++
			}
		}
		s.Unlock()
		c.disarm(s)
	}
	c.metrics.LiveSessions(0)
	c.logger.Info("coordinator torn down", "cancelled", cancelled)
}

type anyUnit struct{}

func (anyUnit) Known(domain.LogicalUnit) bool { return true }

type nopMetrics struct{}

func (nopMetrics) SessionStarted(domain.Scope)                         {}
func (nopMetrics) SessionResolved(domain.Scope, string, time.Duration) {}
func (nopMetrics) StartRejected(string)                                {}
func (nopMetrics) LiveSessions(int)                                    {}
