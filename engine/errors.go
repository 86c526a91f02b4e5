/*
errors.go - Centralized error types for the payroll engine

PURPOSE:
  All error kinds in one place. The taxonomy mirrors the three ways a
  boundary operation can fail:

  1. ValidationError  - malformed input, rejected before any write;
                        fully recoverable by caller resubmission
  2. ConflictError    - the write lost to the entry's current state
                        (resubmission against APPROVED, CAS race loser);
                        no partial state change
  3. DependencyError  - an external collaborator or store was unreachable

  A payroll query matching zero entries is a valid zero result, never an
  error. None of these types are used for ordinary control flow.

USAGE:
  Callers branch with errors.Is / errors.As:

    if errors.Is(err, engine.ErrEntryApproved) { ... }

    var verr *engine.ValidationError
    if errors.As(err, &verr) { ... }
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEntryNotFound is returned when a referenced entry does not exist.
	ErrEntryNotFound = errors.New("timesheet entry not found")

	// ErrEntryApproved is returned when a write targets an entry that has
	// already been approved. Cost propagation has fired for it; the stored
	// entry must not silently diverge. An explicit reopen is required first.
	ErrEntryApproved = errors.New("entry already approved")

	// ErrNotPending is returned when an approval or rejection targets an
	// entry that is not in the pending state. The loser of a double-approval
	// race observes this.
	ErrNotPending = errors.New("entry is not pending")

	// ErrNotApproved is returned when a reopen targets an entry that is not
	// approved.
	ErrNotApproved = errors.New("entry is not approved")

	// ErrAccrualPending is returned when the approval status flip is durable
	// but the project cost accrual could not be delivered. The transition is
	// recorded and will be replayed.
	ErrAccrualPending = errors.New("cost accrual pending replay")

	// ErrInvalidPeriod is returned when a payroll period is malformed.
	ErrInvalidPeriod = errors.New("invalid period: end before start")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports a malformed work interval or request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError reports a write rejected by the entry's current state.
type ConflictError struct {
	EntryID EntryID
	Status  string // the status that blocked the write
	Cause   error  // ErrEntryApproved or ErrNotPending
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on entry %s (status %s): %v", e.EntryID, e.Status, e.Cause)
}

func (e *ConflictError) Unwrap() error { return e.Cause }

// DependencyError reports an unreachable collaborator or store.
type DependencyError struct {
	Dependency string // e.g. "employee directory", "project store"
	Cause      error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Dependency, e.Cause)
}

func (e *DependencyError) Unwrap() error { return e.Cause }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true when the error is due to invalid client input.
func IsClientError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr) || errors.Is(err, ErrInvalidPeriod)
}

// IsConflict returns true when the error is a state conflict the caller can
// resolve (reopen, refresh, or accept the race outcome).
func IsConflict(err error) bool {
	var cerr *ConflictError
	return errors.As(err, &cerr) ||
		errors.Is(err, ErrEntryApproved) ||
		errors.Is(err, ErrNotPending) ||
		errors.Is(err, ErrNotApproved)
}

// IsNotFound returns true when the error indicates a missing entry.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntryNotFound)
}
