package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession(PerUnit(LogicalUnit{Target: 1, Lun: 2}), 0xfeed, time.Now())
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	return s
}

func TestNewSession(t *testing.T) {
	s := newTestSession(t)

	if !strings.HasPrefix(s.ID, SessionIDPrefix) {
		t.Errorf("ID = %q, want prefix %q", s.ID, SessionIDPrefix)
	}
	if s.Phase != PhasePending {
		t.Errorf("Phase = %v, want pending", s.Phase)
	}
	if s.Correlation != 0xfeed {
		t.Errorf("Correlation = %#x", s.Correlation)
	}
	select {
	case <-s.Done():
		t.Fatal("Done() closed on a new session")
	default:
	}
}

func TestSession_Transition(t *testing.T) {
	tests := []struct {
		name    string
		path    []Phase
		wantErr bool
	}{
		{"happy path", []Phase{PhaseDispatched, PhasePrepared, PhaseDone}, false},
		{"backend error", []Phase{PhaseDispatched, PhasePrepared, PhaseError}, false},
		{"discard pending", []Phase{PhaseCancelled}, false},
		{"discard dispatched", []Phase{PhaseDispatched, PhaseCancelled}, false},
		{"teardown prepared", []Phase{PhaseDispatched, PhasePrepared, PhaseCancelled}, false},
		{"skip dispatch", []Phase{PhasePrepared}, true},
		{"done from pending", []Phase{PhaseDone}, true},
		{"backwards", []Phase{PhaseDispatched, PhasePending}, true},
		{"leave terminal", []Phase{PhaseCancelled, PhaseDispatched}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t)
			s.Lock()
			defer s.Unlock()

			var err error
			for _, p := range tt.path {
				if err = s.Transition(p, nil, time.Now()); err != nil {
					break
				}
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("Transition error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("error = %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestSession_TerminalResultIsImmutable(t *testing.T) {
	s := newTestSession(t)
	s.Lock()
	defer s.Unlock()

	s.Deadline = time.Now().Add(time.Second)
	if err := s.Transition(PhaseCancelled, ErrCancelled, time.Now()); err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
	if !s.Deadline.IsZero() {
		t.Error("deadline should be cleared on terminal entry")
	}

	select {
	case <-s.Done():
	default:
		t.Fatal("Done() should be closed after terminal transition")
	}

	if err := s.Transition(PhaseError, ErrBackendFailure, time.Now()); err == nil {
		t.Fatal("second terminal transition should fail")
	}
	if !errors.Is(s.Result, ErrCancelled) {
		t.Errorf("Result = %v, want ErrCancelled", s.Result)
	}
}

func TestSession_View(t *testing.T) {
	s := newTestSession(t)
	s.Lock()
	_ = s.Transition(PhaseCancelled, ErrCancelled.WithCause(ErrTimeout), time.Now())
	s.Unlock()

	v := s.View()
	if v.Phase != PhaseCancelled || v.Scope != "unit 1:2" {
		t.Errorf("View() = %+v", v)
	}
	if v.Result == "" {
		t.Error("View().Result should describe the final status")
	}
}

func TestPhase_String(t *testing.T) {
	if PhasePrepared.String() != "prepared" {
		t.Errorf("String() = %q", PhasePrepared.String())
	}
	if Phase(42).String() != "unknown" {
		t.Errorf("String() = %q", Phase(42).String())
	}
	if !PhaseError.IsTerminal() || PhasePrepared.IsTerminal() {
		t.Error("IsTerminal() mismatch")
	}
}
