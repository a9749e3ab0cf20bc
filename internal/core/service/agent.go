package service

import (
	"context"
	"time"

	"github.com/yndnr/snapcoord/internal/core/domain"
)

// ============================================================================
// Agent Pickup
// ============================================================================

// PickupRequest contains parameters for a snapshot pickup.
type PickupRequest struct {
	All  bool          // pick up the aggregate session instead of a unit session
	Wait time.Duration // how long to wait for a start event; zero fails fast
}

// PickupResponse identifies the session handed to the agent.
type PickupResponse struct {
	SessionID string
	Scope     domain.Scope
}

// Pickup hands a Pending session to the agent and moves it to Dispatched.
//
// Unit pickups take the oldest Pending unit session. With nothing Pending
// the call fails with ErrInvalidRequest and changes nothing.
func (c *Coordinator) Pickup(ctx context.Context, req *PickupRequest) (*PickupResponse, error) {
	var expired <-chan time.Time
	if req.Wait > 0 {
		t := time.NewTimer(req.Wait)
		defer t.Stop()
		expired = t.C
	}

	for {
		// 1. Snapshot the wake channel before looking, so a start that lands
		// after the look still wakes us
		c.mu.Lock()
		wake, closed := c.wake, c.closed
		c.mu.Unlock()
		if closed {
			return nil, domain.ErrShuttingDown
		}

		// 2. Try to dispatch
		if resp, ok := c.dispatch(req.All); ok {
			return resp, nil
		}

		// 3. Nothing Pending
		if expired == nil {
			return nil, domain.ErrInvalidRequest.WithDetails("no pending snapshot")
		}
		select {
		case <-wake:
		case <-expired:
			return nil, domain.ErrInvalidRequest.WithDetails("no pending snapshot before timeout")
		case <-ctx.Done():
			return nil, domain.ErrCancelled.WithCause(ctx.Err())
		}
	}
}

func (c *Coordinator) dispatch(all bool) (*PickupResponse, bool) {
	var candidates []*domain.Session
	if all {
		if s, ok := c.repo.Get(domain.AllUnits()); ok {
			candidates = append(candidates, s)
		}
	} else {
		candidates = c.repo.UnitSessions()
	}

	for _, s := range candidates {
		s.Lock()
		if s.Phase != domain.PhasePending {
			s.Unlock()
			continue
		}
		err := c.advanceLocked(s, domain.PhaseDispatched)
		s.Unlock()
		if err != nil {
			continue
		}
		return &PickupResponse{SessionID: s.ID, Scope: s.Scope}, true
	}
	return nil, false
}

// ============================================================================
// Agent Vote and Discard
// ============================================================================

// VoteRequest contains the agent's proceed vote.
type VoteRequest struct {
	Unit    domain.LogicalUnit
	Proceed bool
}

// Vote records the agent's decision for the session governing req.Unit.
//
// A proceed vote moves the session to Prepared and blocks until the host
// completes it, its deadline elapses or ctx ends. The returned error is the
// session's final status; nil means the snapshot is done. An abort vote
// cancels the session and returns ErrCancelled.
func (c *Coordinator) Vote(ctx context.Context, req *VoteRequest) error {
	// 1. Resolve the session
	s, err := c.governing(req.Unit)
	if err != nil {
		return err
	}

	// 2. Apply the vote
	s.Lock()
	if s.Phase != domain.PhaseDispatched {
		phase := s.Phase
		s.Unlock()
		return domain.ErrInvalidRequest.WithDetailsf("%s: vote in phase %s", s.Scope, phase)
	}
	if !req.Proceed {
		err := c.resolveLocked(s, domain.PhaseCancelled, domain.ErrCancelled.WithDetails("agent voted to abort"))
		s.Unlock()
		if err != nil {
			return err
		}
		c.release(s)
		return domain.ErrCancelled
	}
	err = c.advanceLocked(s, domain.PhasePrepared)
	s.Unlock()
	if err != nil {
		return err
	}

	// 3. Wait for the host verdict
	select {
	case <-s.Done():
		s.Lock()
		defer s.Unlock()
		return s.Result
	case <-ctx.Done():
		return domain.ErrCancelled.WithDetails("agent stopped waiting").WithCause(ctx.Err())
	}
}

// DiscardRequest names the unit whose pending snapshot the agent abandons.
type DiscardRequest struct {
	Unit domain.LogicalUnit
}

// Discard cancels a Pending or Dispatched session. It returns ErrCancelled,
// the status the agent reports for an abandoned snapshot.
func (c *Coordinator) Discard(_ context.Context, req *DiscardRequest) error {
	s, err := c.governing(req.Unit)
	if err != nil {
		return err
	}

	s.Lock()
	if s.Phase != domain.PhasePending && s.Phase != domain.PhaseDispatched {
		phase := s.Phase
		s.Unlock()
		return domain.ErrInvalidRequest.WithDetailsf("%s: discard in phase %s", s.Scope, phase)
	}
	err = c.resolveLocked(s, domain.PhaseCancelled, domain.ErrCancelled.WithDetails("discarded by agent"))
	s.Unlock()
	if err != nil {
		return err
	}
	c.release(s)
	return domain.ErrCancelled
}

func (c *Coordinator) governing(u domain.LogicalUnit) (*domain.Session, error) {
	if c.Closed() {
		return nil, domain.ErrShuttingDown
	}
	s, ok := c.repo.Governing(u)
	if ok && s.Scope.IsAll() {
		return s, nil
	}
	if !c.units.Known(u) {
		return nil, domain.ErrInvalidDevice.WithDetailsf("unit %s is not attached", u)
	}
	if !ok {
		return nil, domain.ErrInvalidDevice.WithDetailsf("no snapshot session for unit %s", u)
	}
	return s, nil
}
