/*
ledger.go - The timesheet ledger service

PURPOSE:
  Implements the core's boundary operations on top of the pure engine
  and the stores:

    Submit  - classify + aggregate a work interval, upsert the entry
    Approve - PENDING -> APPROVED compare-and-swap + cost propagation
    Reject  - PENDING -> REJECTED, no side effect
    Reopen  - APPROVED -> PENDING, enabling a corrected resubmission

SUBMISSION SEMANTICS:
  Upsert is keyed on (employee, date). Resubmitting while PENDING
  overwrites the hour fields and stays PENDING; the derived fields are
  deterministic, so resubmitting identical input is a no-op in effect.
  Resubmitting after REJECTED resets the entry to PENDING. Resubmitting
  against an APPROVED entry fails with a ConflictError: cost propagation
  has already fired for it and the stored entry must not silently
  diverge. Reopen first, then resubmit.

APPROVAL SEMANTICS:
  The status flip is a compare-and-swap in the store, and the store
  writes the cost transition record in the same atomic unit as the flip.
  Exactly one of two concurrent approvals observes PENDING; only that
  winner's transition exists and gets delivered. If the project store is
  unreachable after the flip is durable, the transition stays recorded
  as unapplied and Approve reports the condition (ErrAccrualPending)
  instead of silently losing the cost update; the replayer re-attempts
  it. There is no window in which an approved entry with an assignment
  lacks its transition record.
*/
package timesheet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/warp/timesheet-engine/engine"
)

// Ledger wires the boundary operations together. Construct with NewLedger.
type Ledger struct {
	store      Store
	employees  EmployeeDirectory
	propagator *CostPropagator
	schedule   engine.RateSchedule
}

func NewLedger(store Store, employees EmployeeDirectory, projects ProjectDirectory, schedule engine.RateSchedule) *Ledger {
	return &Ledger{
		store:      store,
		employees:  employees,
		propagator: NewCostPropagator(store, projects),
		schedule:   schedule,
	}
}

// Propagator exposes the cost propagator for the background replayer.
func (l *Ledger) Propagator() *CostPropagator { return l.propagator }

// =============================================================================
// SUBMIT
// =============================================================================

// SubmitInput is the raw submission payload.
type SubmitInput struct {
	EmployeeID   engine.EmployeeID
	Date         time.Time
	ClockIn      time.Time
	ClockOut     *time.Time
	BreakMinutes int
	AssignmentID *engine.AssignmentID
}

// Submit classifies and aggregates the interval, then upserts the ledger
// entry. The entry lands in PENDING unless the existing row is APPROVED,
// in which case a ConflictError is returned and nothing changes.
func (l *Ledger) Submit(ctx context.Context, in SubmitInput) (*Entry, error) {
	iv := engine.WorkInterval{
		EmployeeID:   in.EmployeeID,
		Date:         engine.DateOnly(in.Date),
		ClockIn:      in.ClockIn,
		ClockOut:     in.ClockOut,
		BreakMinutes: in.BreakMinutes,
	}

	rate, err := l.employees.HourlyRate(ctx, in.EmployeeID)
	if err != nil {
		return nil, err
	}
	companyID, err := l.employees.CompanyID(ctx, in.EmployeeID)
	if err != nil {
		return nil, err
	}

	comp, err := engine.ComputeDay(iv, rate, l.schedule)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry := &Entry{
		ID:           engine.EntryID(uuid.NewString()),
		EmployeeID:   in.EmployeeID,
		CompanyID:    companyID,
		Date:         iv.Date,
		ClockIn:      in.ClockIn,
		ClockOut:     *in.ClockOut,
		BreakMinutes: in.BreakMinutes,
		NormalHours:  comp.Hours.Normal,
		EveningHours: comp.Hours.Evening,
		NightHours:   comp.Hours.Night,
		TotalHours:   comp.TotalHours,
		HourlyRate:   rate,
		BasePay:      comp.BasePay,
		OvertimePay:  comp.OvertimePay,
		AssignmentID: in.AssignmentID,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	stored, err := l.store.Upsert(ctx, entry)
	if errors.Is(err, engine.ErrEntryApproved) {
		existing, getErr := l.store.GetByEmployeeDate(ctx, in.EmployeeID, iv.Date)
		if getErr != nil {
			existing = &Entry{}
		}
		return nil, &engine.ConflictError{
			EntryID: existing.ID,
			Status:  string(StatusApproved),
			Cause:   engine.ErrEntryApproved,
		}
	}
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// =============================================================================
// APPROVE / REJECT / REOPEN
// =============================================================================

// Approve flips PENDING -> APPROVED and propagates the entry's labor cost
// to its project. On a lost race or a non-pending entry the caller gets a
// ConflictError and no state changes. The store writes the cost
// transition record atomically with the flip, so when delivery fails the
// approved entry is returned together with a DependencyError wrapping
// engine.ErrAccrualPending and the replayer finishes the job.
func (l *Ledger) Approve(ctx context.Context, id engine.EntryID) (*Entry, error) {
	entry, tr, swapped, err := l.store.Approve(ctx, id, uuid.NewString())
	if err != nil {
		return nil, err
	}
	if !swapped {
		return nil, &engine.ConflictError{EntryID: id, Status: string(entry.Status), Cause: engine.ErrNotPending}
	}

	if tr == nil {
		return entry, nil
	}
	if err := l.propagator.Deliver(ctx, *tr); err != nil {
		return entry, err
	}
	return entry, nil
}

// Reject flips PENDING -> REJECTED. No side effect; a fresh resubmission
// returns the entry to PENDING.
func (l *Ledger) Reject(ctx context.Context, id engine.EntryID) (*Entry, error) {
	entry, swapped, err := l.store.TransitionStatus(ctx, id, StatusPending, StatusRejected)
	if err != nil {
		return nil, err
	}
	if !swapped {
		return nil, &engine.ConflictError{EntryID: id, Status: string(entry.Status), Cause: engine.ErrNotPending}
	}
	return entry, nil
}

// Reopen flips APPROVED -> PENDING so a corrected interval can be
// resubmitted. Project cost already accrued for the entry is NOT
// decremented here; accruals are additive-only at this layer and any
// reversal path is external.
func (l *Ledger) Reopen(ctx context.Context, id engine.EntryID) (*Entry, error) {
	entry, swapped, err := l.store.TransitionStatus(ctx, id, StatusApproved, StatusPending)
	if err != nil {
		return nil, err
	}
	if !swapped {
		return nil, &engine.ConflictError{EntryID: id, Status: string(entry.Status), Cause: engine.ErrNotApproved}
	}
	return entry, nil
}

// =============================================================================
// READS
// =============================================================================

// Get returns a single entry by ID.
func (l *Ledger) Get(ctx context.Context, id engine.EntryID) (*Entry, error) {
	return l.store.GetByID(ctx, id)
}

// List returns an employee's entries inside a period, any status.
func (l *Ledger) List(ctx context.Context, employeeID engine.EmployeeID, period engine.Period) ([]*Entry, error) {
	return l.store.ListByEmployee(ctx, employeeID, period)
}
