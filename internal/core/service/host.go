package service

import (
	"github.com/yndnr/snapcoord/internal/core/domain"
	"github.com/yndnr/snapcoord/internal/core/status"
	"github.com/yndnr/snapcoord/internal/protocol/wire"
)

// ============================================================================
// Host Events
// ============================================================================

// HandleEvent applies a decoded host lifecycle event. It never blocks on
// the agent: every host-bound report is queued on the Reporter.
func (c *Coordinator) HandleEvent(ev wire.HostEvent) error {
	switch ev.Kind {
	case wire.EventStart:
		return c.HandleStart(ev.Scope, ev.Correlation)
	case wire.EventComplete:
		return c.HandleComplete(ev.Scope, ev.Correlation, ev.Failed())
	default:
		return domain.ErrInvalidRequest.WithDetailsf("event kind %d", ev.Kind)
	}
}

// HandleStart opens a Pending session for scope.
//
// A start that cannot open a session (unknown unit, conflicting scope,
// teardown) is answered with a prepare-error report and creates nothing.
func (c *Coordinator) HandleStart(scope domain.Scope, correlation uint64) error {
	// 1. Refuse once torn down
	if c.Closed() {
		return c.rejectStart(scope, "shutting_down", domain.ErrShuttingDown)
	}

	// 2. Validate the unit
	if !scope.IsAll() {
		if err := c.checkUnit(scope.Unit); err != nil {
			return c.rejectStart(scope, "invalid_device", err)
		}
	}

	// 3. Create and insert, which enforces scope exclusion
	s, err := domain.NewSession(scope, correlation, c.now())
	if err != nil {
		return c.rejectStart(scope, "internal", err)
	}
	if err := c.repo.Insert(s); err != nil {
		return c.rejectStart(scope, "scope_conflict", err)
	}

	// 4. Arm the Pending deadline
	s.Lock()
	c.armLocked(s)
	s.Unlock()

	c.logger.Info("snapshot requested by host",
		"session_id", s.ID,
		"scope", scope.String(),
		"correlation", correlation)
	c.metrics.SessionStarted(scope)
	c.metrics.LiveSessions(c.repo.Len())

	// 5. A teardown that raced the insert would have missed this session
	if c.Closed() {
		s.Lock()
		_ = c.resolveLocked(s, domain.PhaseCancelled,
			domain.ErrCancelled.WithDetails("coordinator teardown").WithCause(domain.ErrShuttingDown))
		s.Unlock()
		c.release(s)
		return domain.ErrShuttingDown
	}

	c.broadcast()
	return nil
}

// checkUnit validates a unit named by a host event.
func (c *Coordinator) checkUnit(u domain.LogicalUnit) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if !u.AgentAddressable() {
		return domain.ErrInvalidDevice.WithDetailsf("unit %s is not addressable by the agent", u)
	}
	if !c.units.Known(u) {
		return domain.ErrInvalidDevice.WithDetailsf("unit %s is not attached", u)
	}
	return nil
}

func (c *Coordinator) rejectStart(scope domain.Scope, reason string, err error) error {
	c.reporter.Report(scope, status.RejectedStart())
	c.metrics.StartRejected(reason)
	c.logger.Warn("snapshot start rejected",
		"scope", scope.String(),
		"reason", reason,
		"error", err)
	return err
}

// HandleComplete applies the host's verdict to a Prepared session.
//
// A completion naming a unit that is not attached fails with
// ErrInvalidDevice. Completions for attached scopes with no session, or
// whose correlation does not match the live session, are late events for a
// session that no longer exists and are ignored. A single-unit completion
// for a unit covered only by an aggregate session is likewise ignored.
func (c *Coordinator) HandleComplete(scope domain.Scope, correlation uint64, failed bool) error {
	if !scope.IsAll() {
		if err := c.checkUnit(scope.Unit); err != nil {
			c.logger.Warn("completion for unknown unit",
				"scope", scope.String(),
				"correlation", correlation,
				"error", err)
			return err
		}
	}

	s, ok := c.repo.Get(scope)
	if !ok {
		c.logger.Debug("ignoring completion without session",
			"scope", scope.String(),
			"correlation", correlation)
		return nil
	}
	if s.Correlation != correlation {
		c.logger.Warn("ignoring completion for stale correlation",
			"session_id", s.ID,
			"scope", scope.String(),
			"correlation", correlation,
			"want_correlation", s.Correlation)
		return nil
	}

	s.Lock()
	if s.Phase != domain.PhasePrepared {
		phase := s.Phase
		s.Unlock()
		return domain.ErrInvalidRequest.WithDetailsf("%s: completion in phase %s", scope, phase)
	}

	var err error
	if failed {
		err = c.resolveLocked(s, domain.PhaseError, domain.ErrBackendFailure.WithDetails("host reported failure"))
	} else {
		err = c.resolveLocked(s, domain.PhaseDone, nil)
	}
	s.Unlock()

	if err != nil {
		return err
	}
	c.release(s)
	return nil
}
