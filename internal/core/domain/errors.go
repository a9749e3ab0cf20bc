// Package domain defines the core domain models for snapcoord.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
//
// Codes follow the format SC-<AREA>-<NNNN>; the trailing number loosely
// mirrors an HTTP status so the status API can map it without a table.
type DomainError struct {
	Code    string // Error code (e.g., "SC-SNAP-4090")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	c := *e
	c.Details = details
	return &c
}

// WithDetailsf is WithDetails with fmt.Sprintf formatting.
func (e *DomainError) WithDetailsf(format string, args ...any) *DomainError {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	c := *e
	c.Cause = cause
	return &c
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Protocol Errors (PROTO)
// ============================================================================

var (
	// ErrMalformedMessage indicates a wire buffer is shorter than its fixed
	// layout or carries fields that cannot be decoded.
	ErrMalformedMessage = NewDomainError("SC-PROTO-4000", "malformed message")

	// ErrBadSignature indicates an agent buffer whose signature is not GOOOGVSS.
	ErrBadSignature = NewDomainError("SC-PROTO-4001", "bad control signature")

	// ErrUnsupportedFeature indicates an event family the host did not negotiate.
	ErrUnsupportedFeature = NewDomainError("SC-PROTO-4002", "feature not negotiated")
)

// ============================================================================
// Snapshot Errors (SNAP)
// ============================================================================

var (
	// ErrInvalidRequest indicates a call that is not legal in the session's
	// current phase, or a buffer that failed validation.
	ErrInvalidRequest = NewDomainError("SC-SNAP-4001", "invalid request")

	// ErrInvalidDevice indicates an unknown logical unit or a scope with no session.
	ErrInvalidDevice = NewDomainError("SC-SNAP-4040", "invalid device")

	// ErrScopeConflict indicates a start event for a scope that overlaps a live session.
	ErrScopeConflict = NewDomainError("SC-SNAP-4090", "snapshot scope conflict")

	// ErrTimeout indicates a session deadline elapsed. It is always carried as
	// the cause of ErrCancelled or ErrBackendFailure.
	ErrTimeout = NewDomainError("SC-SNAP-4080", "snapshot deadline elapsed")

	// ErrCancelled indicates the session was cancelled by the agent, a deadline or teardown.
	ErrCancelled = NewDomainError("SC-SNAP-4990", "snapshot cancelled")

	// ErrBackendFailure indicates the host reported a failed snapshot.
	ErrBackendFailure = NewDomainError("SC-SNAP-5020", "snapshot backend failure")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternal indicates an unexpected internal error.
	ErrInternal = NewDomainError("SC-SYS-5000", "internal error")

	// ErrTransport indicates the host channel could not deliver a message.
	ErrTransport = NewDomainError("SC-SYS-5001", "transport error")

	// ErrShuttingDown indicates the coordinator has been torn down.
	ErrShuttingDown = NewDomainError("SC-SYS-5030", "coordinator shutting down")

	// ErrRateLimited indicates too many agent calls.
	ErrRateLimited = NewDomainError("SC-SYS-4290", "too many requests")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("SC-ARG-1001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("SC-ARG-1002", "missing required argument")
)
