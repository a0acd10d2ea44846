/*
errors.go - Centralized error taxonomy

PURPOSE:
  Every failure surfaced by the engine maps to one of five categories:
  validation, insufficient balance, invalid state transition, not found,
  and permission denied. Callers branch with errors.Is on the sentinels;
  the structured types carry the details for error messages.

PROPAGATION POLICY:
  All of these are returned to the caller as-is with a human-readable
  message. Nothing is silently recovered. Bulk operations isolate
  per-item failures and report them in the result list instead of
  aborting the batch.

SEE ALSO:
  - api/handlers.go: maps these to HTTP status codes
*/
package core

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the base of all malformed-input failures.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientBalance is returned when a reservation exceeds the
	// remaining entitlement.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidStateTransition is returned when an action is attempted
	// outside its allowed source state.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrNotFound is returned for unknown request/employee/leave-type ids.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied is returned when a role gate fails.
	ErrPermissionDenied = errors.New("permission denied")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InsufficientBalanceError reports a balance shortage.
type InsufficientBalanceError struct {
	EmployeeID  string
	LeaveTypeID string
	Available   Days
	Requested   Days
	Shortfall   Days
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %s, requested %s, short by %s",
		e.Available, e.Requested, e.Shortfall)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// InvalidStateTransitionError reports an action attempted from the wrong state.
type InvalidStateTransitionError struct {
	Action string
	From   string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a request in status %q", e.Action, e.From)
}

func (e *InvalidStateTransitionError) Unwrap() error { return ErrInvalidStateTransition }

type NotFoundError struct {
	Kind string // "request", "employee", "entitlement", ...
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

type PermissionDeniedError struct {
	ActorID string
	Action  string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("actor %q is not allowed to %s", e.ActorID, e.Action)
}

func (e *PermissionDeniedError) Unwrap() error { return ErrPermissionDenied }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// rather than a server-side failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidStateTransition) ||
		errors.Is(err, ErrPermissionDenied)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
