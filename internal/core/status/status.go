// Package status maps session outcomes onto the host and agent vocabularies.
//
// Both mappings are pure functions of a phase or an error.
package status

import (
	"errors"

	"github.com/yndnr/snapcoord/internal/core/domain"
	"github.com/yndnr/snapcoord/internal/protocol/wire"
)

// HostReport returns the snapshot-ready status announced when a session
// enters phase. Phases that are not announced return false.
func HostReport(phase domain.Phase) (wire.ReportStatus, bool) {
	switch phase {
	case domain.PhasePrepared:
		return wire.ReportPrepareComplete, true
	case domain.PhaseCancelled:
		return wire.ReportPrepareUnavailable, true
	case domain.PhaseDone:
		return wire.ReportComplete, true
	case domain.PhaseError:
		return wire.ReportError, true
	default:
		return 0, false
	}
}

// RejectedStart is the status reported for a start event that created no session.
func RejectedStart() wire.ReportStatus {
	return wire.ReportPrepareError
}

// Agent maps a call result to the status returned to the agent. A nil error
// is success; a terminal session's Result maps through the same table.
func Agent(err error) wire.AgentStatus {
	switch {
	case err == nil:
		return wire.StatusSucceeded
	case errors.Is(err, domain.ErrCancelled), errors.Is(err, domain.ErrShuttingDown):
		return wire.StatusCancelled
	case errors.Is(err, domain.ErrBackendFailure), errors.Is(err, domain.ErrScopeConflict):
		return wire.StatusBackendFailed
	case errors.Is(err, domain.ErrInvalidDevice):
		return wire.StatusInvalidDevice
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrMalformedMessage),
		errors.Is(err, domain.ErrBadSignature),
		errors.Is(err, domain.ErrUnsupportedFeature),
		errors.Is(err, domain.ErrRateLimited):
		return wire.StatusInvalidRequest
	default:
		return wire.StatusBackendFailed
	}
}

// Outcome names a terminal phase for logs and metrics labels.
func Outcome(phase domain.Phase, result error) string {
	if phase == domain.PhaseDone {
		return "done"
	}
	if errors.Is(result, domain.ErrTimeout) {
		return phase.String() + "-timeout"
	}
	return phase.String()
}
