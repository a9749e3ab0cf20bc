// Package domain defines the core domain models for snapcoord.
//
// Domain models carry no IO dependencies. A Session is the one entity with
// internal synchronization because host events and agent calls touch it from
// different goroutines.
package domain

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// SessionIDPrefix is the prefix for snapshot session IDs.
const SessionIDPrefix = "snap-"

// Phase is a snapshot session lifecycle phase.
type Phase uint8

// Session phases. Idle is the implicit phase of a scope with no session and
// is never stored.
const (
	PhaseIdle Phase = iota
	PhasePending
	PhaseDispatched
	PhasePrepared
	PhaseDone
	PhaseError
	PhaseCancelled
)

var phaseNames = [...]string{
	PhaseIdle:       "idle",
	PhasePending:    "pending",
	PhaseDispatched: "dispatched",
	PhasePrepared:   "prepared",
	PhaseDone:       "done",
	PhaseError:      "error",
	PhaseCancelled:  "cancelled",
}

// String returns the lowercase phase name.
func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// IsTerminal reports whether p has no outgoing transitions.
func (p Phase) IsTerminal() bool {
	return p == PhaseDone || p == PhaseError || p == PhaseCancelled
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// transitions lists the legal forward edges. Cancellation is reachable from
// every live phase so that teardown can always resolve a session.
var transitions = map[Phase][]Phase{
	PhasePending:    {PhaseDispatched, PhaseCancelled},
	PhaseDispatched: {PhasePrepared, PhaseCancelled},
	PhasePrepared:   {PhaseDone, PhaseError, PhaseCancelled},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// Session is one in-flight snapshot negotiation for a scope.
//
// ID, Scope, Correlation and CreatedAt are immutable. The remaining fields
// are guarded by the embedded mutex.
type Session struct {
	// ID is a unique identifier used in logs and the status API.
	// Format: snap-{ulid_lowercase}.
	ID string

	// Scope is the set of units this snapshot covers.
	Scope Scope

	// Correlation is the opaque value carried by the host start event.
	Correlation uint64

	// CreatedAt is when the host start event was accepted.
	CreatedAt time.Time

	sync.Mutex

	// Phase is the current lifecycle phase.
	Phase Phase

	// Deadline is when the current phase times out. Zero once terminal.
	Deadline time.Time

	// UpdatedAt is the time of the last transition.
	UpdatedAt time.Time

	// Result is the final status: nil for Done, a DomainError otherwise.
	// Set exactly once, on entry to a terminal phase.
	Result error

	done chan struct{}
}

// NewSession creates a Pending session for scope.
func NewSession(scope Scope, correlation uint64, now time.Time) (*Session, error) {
	id, err := GenerateSessionID()
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:          id,
		Scope:       scope,
		Correlation: correlation,
		CreatedAt:   now,
		Phase:       PhasePending,
		UpdatedAt:   now,
		done:        make(chan struct{}),
	}, nil
}

// GenerateSessionID generates a new session ID using ULID.
func GenerateSessionID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", ErrInternal.WithCause(err)
	}
	return SessionIDPrefix + strings.ToLower(id.String()), nil
}

// Transition moves the session to next. The caller must hold the lock.
//
// Entering a terminal phase records result, clears the deadline and closes
// the Done channel. Illegal edges return ErrInvalidRequest and leave the
// session untouched.
func (s *Session) Transition(next Phase, result error, now time.Time) error {
	if !CanTransition(s.Phase, next) {
		return ErrInvalidRequest.WithDetailsf("%s: %s -> %s not allowed", s.Scope, s.Phase, next)
	}
	s.Phase = next
	s.UpdatedAt = now
	if next.IsTerminal() {
		s.Result = result
		s.Deadline = time.Time{}
		close(s.done)
	}
	return nil
}

// Done returns a channel closed when the session reaches a terminal phase.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// SessionView is a point-in-time copy of a session for reporting.
type SessionView struct {
	ID          string    `json:"id"`
	Scope       string    `json:"scope"`
	Phase       Phase     `json:"phase"`
	Correlation uint64    `json:"correlation"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Deadline    time.Time `json:"deadline,omitempty"`
	Result      string    `json:"result,omitempty"`
}

// View copies the session under its lock.
func (s *Session) View() SessionView {
	s.Lock()
	defer s.Unlock()
	v := SessionView{
		ID:          s.ID,
		Scope:       s.Scope.String(),
		Phase:       s.Phase,
		Correlation: s.Correlation,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		Deadline:    s.Deadline,
	}
	if s.Result != nil {
		v.Result = s.Result.Error()
	}
	return v
}
