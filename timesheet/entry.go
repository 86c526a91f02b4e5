/*
Package timesheet implements the timesheet ledger and its approval workflow.

PURPOSE:
  This is the domain layer between the pure computation engine and the
  stores. It owns the TimesheetEntry record, its status state machine,
  the boundary operations (submit, approve, reject, reopen, payroll
  summary) and the propagation of approved labor cost into project cost
  tracking.

KEY CONCEPTS IN THIS FILE (entry.go):
  - Entry: the persisted per-employee-per-day record after classification
  - Status: the pending/approved/rejected state machine
  - CostTransition: the durable record of one PENDING->APPROVED flip,
    used as the idempotency anchor for cost accrual

OWNERSHIP:
  The Ledger component exclusively owns Entry rows. Cost propagation
  only reads entries and issues additive updates to the external project
  store; it never owns project state.

SEE ALSO:
  - ledger.go: the boundary operations
  - payroll.go: period aggregation over approved entries
  - cost.go: cost propagation and replay
*/
package timesheet

import (
	"time"

	"github.com/warp/timesheet-engine/engine"
)

// =============================================================================
// STATUS STATE MACHINE
// =============================================================================

// Status is the approval state of an entry.
//
// Transitions:
//   (new)    -> PENDING    on create or resubmission
//   PENDING  -> APPROVED   external approval; fires cost propagation once
//   PENDING  -> REJECTED   no side effect
//   REJECTED -> PENDING    via a fresh resubmission
//   APPROVED -> PENDING    explicit reopen only; resubmission against an
//                          approved entry is a conflict
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// CanTransition reports whether from -> to is a legal status flip.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusApproved || to == StatusRejected
	case StatusApproved:
		return to == StatusPending // reopen
	case StatusRejected:
		return to == StatusPending // resubmission
	}
	return false
}

// =============================================================================
// TIMESHEET ENTRY
// =============================================================================

// Entry is one row per (EmployeeID, Date). At most one entry exists per
// key; stores enforce this at write time.
type Entry struct {
	ID         engine.EntryID
	EmployeeID engine.EmployeeID
	CompanyID  string
	Date       time.Time // calendar date (anchor day)

	ClockIn      time.Time
	ClockOut     time.Time
	BreakMinutes int

	NormalHours  engine.Hours
	EveningHours engine.Hours
	NightHours   engine.Hours
	TotalHours   engine.Hours

	// HourlyRate is snapshotted at submission so later rate changes never
	// silently reprice an already-classified day.
	HourlyRate  engine.Money
	BasePay     engine.Money
	OvertimePay engine.Money

	AssignmentID *engine.AssignmentID
	Status       Status

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Pay returns the full payable amount for this entry:
// normal hours at the base rate plus overtime pay.
func (e *Entry) Pay() engine.Money {
	return e.BasePay.Add(e.OvertimePay)
}

// CostDelta is the amount added to the owning project's actual cost when
// this entry transitions PENDING -> APPROVED.
func (e *Entry) CostDelta() engine.Money {
	return e.Pay()
}

// =============================================================================
// COST TRANSITION - Durable record of one approval flip
// =============================================================================

// CostTransition records a single observed PENDING->APPROVED transition
// of an entry with a project assignment. The record, not the entry's
// existence, is the trigger for cost accrual: Applied flips to true only
// after the external project store accepted the delta, so a transition
// accrues at most once and failed deliveries can be replayed.
type CostTransition struct {
	ID           string
	EntryID      engine.EntryID
	AssignmentID engine.AssignmentID
	ProjectID    engine.ProjectID // resolved at apply time
	Delta        engine.Money
	Applied      bool
	CreatedAt    time.Time
	AppliedAt    *time.Time
}
