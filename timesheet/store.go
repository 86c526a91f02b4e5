/*
store.go - Persistence interfaces for the timesheet ledger

PURPOSE:
  Defines the contract between the domain logic and the database. Two
  implementations ship: store/memory (tests, dev) and store/sqlite
  (production). Both must provide the same two guarantees:

  1. UNIQUENESS: at most one entry per (employee, date). Upsert is the
     only way an entry row is created or rewritten, and concurrent
     writers for the same key serialize inside the store.

  2. COMPARE-AND-SWAP: TransitionStatus flips status only when the
     current status matches the expected one, atomically. Exactly one
     of two concurrent approvals observes PENDING and wins; the cost
     side effect keys off that observation, never off entry existence.

  3. ATOMIC APPROVAL OUTBOX: Approve writes the cost transition record
     in the same transaction (same lock hold) as the PENDING->APPROVED
     flip. A durable approval without its transition record cannot
     exist, so a crash or write failure between the two can never
     strand an accrual beyond the reach of the replayer.

SEE ALSO:
  - store/memory/memory.go: mutex-guarded maps
  - store/sqlite/sqlite.go: unique index + guarded UPDATE
*/
package timesheet

import (
	"context"
	"time"

	"github.com/warp/timesheet-engine/engine"
)

// EntryStore persists timesheet entries.
type EntryStore interface {
	// Upsert writes the entry keyed on (EmployeeID, Date). When a row for
	// the key exists its hour fields are replaced and its ID kept; when the
	// existing row is APPROVED the write is rejected with
	// engine.ErrEntryApproved and the row is left unchanged.
	Upsert(ctx context.Context, entry *Entry) (*Entry, error)

	// GetByID returns the entry or engine.ErrEntryNotFound.
	GetByID(ctx context.Context, id engine.EntryID) (*Entry, error)

	// GetByEmployeeDate returns the entry for the key, or
	// engine.ErrEntryNotFound when none exists.
	GetByEmployeeDate(ctx context.Context, employeeID engine.EmployeeID, date time.Time) (*Entry, error)

	// TransitionStatus atomically flips status from -> to. The boolean
	// reports whether the swap happened; false means the entry's current
	// status did not match from (the caller lost a race or targeted the
	// wrong state). The returned entry reflects the post-call row.
	TransitionStatus(ctx context.Context, id engine.EntryID, from, to Status) (*Entry, bool, error)

	// Approve flips PENDING -> APPROVED and, when the entry carries a
	// project assignment, records the cost transition under transitionID
	// in the same atomic unit as the flip. The transition is nil when the
	// entry has no assignment or the swap did not happen; the boolean is
	// TransitionStatus's.
	Approve(ctx context.Context, id engine.EntryID, transitionID string) (*Entry, *CostTransition, bool, error)

	// ListByEmployee returns the employee's entries with dates inside the
	// period, any status, ordered by date.
	ListByEmployee(ctx context.Context, employeeID engine.EmployeeID, period engine.Period) ([]*Entry, error)

	// ListApprovedInRange returns only APPROVED entries in the period,
	// ordered by date. An empty result is a valid zero result.
	ListApprovedInRange(ctx context.Context, employeeID engine.EmployeeID, period engine.Period) ([]*Entry, error)
}

// TransitionLog persists cost transition records. Append-and-flag only:
// records are never deleted, and Applied flips true exactly once.
type TransitionLog interface {
	Record(ctx context.Context, tr CostTransition) error
	ListUnapplied(ctx context.Context) ([]CostTransition, error)
	MarkApplied(ctx context.Context, id string, at time.Time) error
}

// Store bundles the two persistence concerns most callers need together.
type Store interface {
	EntryStore
	TransitionLog
}
