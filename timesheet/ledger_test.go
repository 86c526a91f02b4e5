package timesheet_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/timesheet-engine/engine"
	"github.com/warp/timesheet-engine/store/memory"
	"github.com/warp/timesheet-engine/timesheet"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixture struct {
	ledger   *timesheet.Ledger
	store    *memory.Store
	projects *countingProjects
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := timesheet.NewStaticDirectory()
	dir.SetEmployee("emp-1", "acme", engine.NewMoney(10))
	dir.SetEmployee("emp-2", "acme", engine.NewMoney(20))

	projects := newCountingProjects()
	projects.SetAssignment("asg-1", "proj-1")

	store := memory.New()
	return &fixture{
		ledger:   timesheet.NewLedger(store, dir, projects, engine.DefaultSchedule()),
		store:    store,
		projects: projects,
	}
}

// countingProjects wraps StaticProjects and counts/fails AddActualCost calls.
type countingProjects struct {
	*timesheet.StaticProjects
	mu    sync.Mutex
	calls int
	fail  bool
}

func newCountingProjects() *countingProjects {
	return &countingProjects{StaticProjects: timesheet.NewStaticProjects()}
}

func (p *countingProjects) AddActualCost(ctx context.Context, proj engine.ProjectID, amount engine.Money) error {
	p.mu.Lock()
	if p.fail {
		p.mu.Unlock()
		return errors.New("project store unreachable")
	}
	p.calls++
	p.mu.Unlock()
	return p.StaticProjects.AddActualCost(ctx, proj, amount)
}

func (p *countingProjects) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *countingProjects) SetFailing(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail = fail
}

func march(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

func clock(d time.Time, hour, min int) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), hour, min, 0, 0, time.UTC)
}

func submission(emp string, d time.Time, inH, outH, breakMin int, assignment string) timesheet.SubmitInput {
	out := clock(d, outH, 0)
	in := timesheet.SubmitInput{
		EmployeeID:   engine.EmployeeID(emp),
		Date:         d,
		ClockIn:      clock(d, inH, 0),
		ClockOut:     &out,
		BreakMinutes: breakMin,
	}
	if assignment != "" {
		a := engine.AssignmentID(assignment)
		in.AssignmentID = &a
	}
	return in
}

// =============================================================================
// SUBMISSION TESTS
// =============================================================================

func TestSubmit_CreatesPendingEntry(t *testing.T) {
	// GIVEN: a fresh 09:00 -> 19:00 submission with a 60 minute break
	// THEN: the entry lands PENDING with 7h normal / 2h evening and
	//       overtime pay 2 x 10 x 1.5 = 30

	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.ledger.Submit(ctx, submission("emp-1", march(10), 9, 19, 60, ""))
	require.NoError(t, err)

	assert.Equal(t, timesheet.StatusPending, entry.Status)
	assert.Equal(t, "acme", entry.CompanyID)
	assert.True(t, engine.NewHours(7).Equal(entry.NormalHours))
	assert.True(t, engine.NewHours(2).Equal(entry.EveningHours))
	assert.True(t, engine.NewHours(9).Equal(entry.TotalHours))
	assert.True(t, engine.NewMoney(30).Equal(entry.OvertimePay))
	assert.NotEmpty(t, entry.ID)
}

func TestSubmit_InvalidIntervalRejectedBeforeWrite(t *testing.T) {
	// GIVEN: clock-out before clock-in
	// THEN: ValidationError, and no entry was persisted

	f := newFixture(t)
	ctx := context.Background()

	in := submission("emp-1", march(10), 17, 9, 0, "")
	_, err := f.ledger.Submit(ctx, in)

	var verr *engine.ValidationError
	require.ErrorAs(t, err, &verr)

	_, getErr := f.store.GetByEmployeeDate(ctx, "emp-1", march(10))
	assert.ErrorIs(t, getErr, engine.ErrEntryNotFound)
}

func TestSubmit_ResubmissionWhilePendingIsIdempotent(t *testing.T) {
	// GIVEN: the same interval submitted twice while PENDING
	// THEN: both results carry identical derived fields and the same row ID

	f := newFixture(t)
	ctx := context.Background()

	first, err := f.ledger.Submit(ctx, submission("emp-1", march(10), 9, 19, 60, ""))
	require.NoError(t, err)
	second, err := f.ledger.Submit(ctx, submission("emp-1", march(10), 9, 19, 60, ""))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "resubmission keeps the row identity")
	assert.Equal(t, timesheet.StatusPending, second.Status)
	assert.True(t, first.NormalHours.Equal(second.NormalHours))
	assert.True(t, first.EveningHours.Equal(second.EveningHours))
	assert.True(t, first.NightHours.Equal(second.NightHours))
	assert.True(t, first.TotalHours.Equal(second.TotalHours))
	assert.True(t, first.OvertimePay.Equal(second.OvertimePay))
}

func TestSubmit_ResubmissionOverwritesHours(t *testing.T) {
	// GIVEN: a corrected interval resubmitted while PENDING
	// THEN: the hour fields reflect the correction

	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.Submit(ctx, submission("emp-1", march(10), 9, 17, 0, ""))
	require.NoError(t, err)
	corrected, err := f.ledger.Submit(ctx, submission("emp-1", march(10), 9, 19, 0, ""))
	require.NoError(t, err)

	assert.True(t, engine.NewHours(2).Equal(corrected.EveningHours))
}

func TestSubmit_AgainstApprovedEntryConflicts(t *testing.T) {
	// GIVEN: an APPROVED entry for the day
	// WHEN: resubmitting the same day
	// THEN: ConflictError, and the stored entry is unchanged

	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.ledger.Submit(ctx, submission("emp-1", march(10), 9, 17, 0, ""))
	require.NoError(t, err)
	_, err = f.ledger.Approve(ctx, entry.ID)
	require.NoError(t, err)

	_, err = f.ledger.Submit(ctx, submission("emp-1", march(10), 9, 19, 0, ""))

	var cerr *engine.ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, engine.ErrEntryApproved)

	stored, err := f.store.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, timesheet.StatusApproved, stored.Status)
	assert.True(t, entry.TotalHours.Equal(stored.TotalHours), "approved hours must not change")
}

func TestSubmit_AfterRejectionResetsToPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.ledger.Submit(ctx, submission("emp-1", march(10), 9, 17, 0, ""))
	require.NoError(t, err)
	_, err = f.ledger.Reject(ctx, entry.ID)
	require.NoError(t, err)

	resubmitted, err := f.ledger.Submit(ctx, submission("emp-1", march(10), 9, 18, 0, ""))
	require.NoError(t, err)
	assert.Equal(t, timesheet.StatusPending, resubmitted.Status)
	assert.Equal(t, entry.ID, resubmitted.ID)
}

func TestSubmit_SeparateDaysSeparateEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.ledger.Submit(ctx, submission("emp-1", march(10), 9, 17, 0, ""))
	require.NoError(t, err)
	b, err := f.ledger.Submit(ctx, submission("emp-1", march(11), 9, 17, 0, ""))
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}

// =============================================================================
// APPROVAL STATE MACHINE TESTS
// =============================================================================

func TestApprove_FiresCostPropagationOnce(t *testing.T) {
	// GIVEN: a pending entry linked to assignment asg-1 -> proj-1
	// WHEN: approved
	// THEN: the project accrues normal*rate + overtimePay exactly once

	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.ledger.Submit(ctx, submission("emp-1", march(10), 9, 19, 60, "asg-1"))
	require.NoError(t, err)

	approved, err := f.ledger.Approve(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, timesheet.StatusApproved, approved.Status)

	// 7h normal x 10 + 30 overtime = 100
	assert.Equal(t, 1, f.projects.Calls())
	assert.True(t, engine.NewMoney(100).Equal(f.projects.ActualCost("proj-1")),
		"accrued %v", f.projects.ActualCost("proj-1"))
}

func TestApprove_WithoutAssignmentSkipsPropagation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.ledger.Submit(ctx, submission("emp-1", march(10), 9, 17, 0, ""))
	require.NoError(t, err)

	_, err = f.ledger.Approve(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, f.projects.Calls())
}

func TestApprove_SecondApprovalConflicts(t *testing.T) {
	// Retried approval loses the compare-and-swap and must not double-accrue.

	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.ledger.Submit(ctx, submission("emp-1", march(10), 9, 19, 0, "asg-1"))
	require.NoError(t, err)

	_, err = f.ledger.Approve(ctx, entry.ID)
	require.NoError(t, err)
	_, err = f.ledger.Approve(ctx, entry.ID)

	var cerr *engine.ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, engine.ErrNotPending)
	assert.Equal(t, 1, f.projects.Calls())
}

func TestApprove_ConcurrentApprovalsAccrueExactlyOnce(t *testing.T) {
	// PROPERTY: N concurrent approvals of one entry -> exactly one winner,
	// exactly one cost accrual.

	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.ledger.Submit(ctx, submission("emp-1", march(10), 9, 19, 0, "asg-1"))
	require.NoError(t, err)

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.ledger.Approve(ctx, entry.ID)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.True(t, engine.IsConflict(err), "loser must see a conflict, got %v", err)
		}
	}
	assert.Equal(t, 1, winners, "exactly one approval wins the swap")
	assert.Equal(t, 1, f.projects.Calls(), "exactly one accrual reaches the project store")
}

func TestReject_NoSideEffect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.ledger.Submit(ctx, submission("emp-1", march(10), 9, 19, 0, "asg-1"))
	require.NoError(t, err)

	rejected, err := f.ledger.Reject(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, timesheet.StatusRejected, rejected.Status)
	assert.Equal(t, 0, f.projects.Calls())
}

func TestReject_ApprovedEntryConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.ledger.Submit(ctx, submission("emp-1", march(10), 9, 17, 0, ""))
	require.NoError(t, err)
	_, err = f.ledger.Approve(ctx, entry.ID)
	require.NoError(t, err)

	_, err = f.ledger.Reject(ctx, entry.ID)
	assert.ErrorIs(t, err, engine.ErrNotPending)
}

func TestReopen_AllowsCorrectedResubmission(t *testing.T) {
	// GIVEN: an approved entry
	// WHEN: reopened and resubmitted
	// THEN: the corrected interval lands PENDING on the same row

	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.ledger.Submit(ctx, submission("emp-1", march(10), 9, 17, 0, ""))
	require.NoError(t, err)
	_, err = f.ledger.Approve(ctx, entry.ID)
	require.NoError(t, err)

	reopened, err := f.ledger.Reopen(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, timesheet.StatusPending, reopened.Status)

	corrected, err := f.ledger.Submit(ctx, submission("emp-1", march(10), 9, 19, 0, ""))
	require.NoError(t, err)
	assert.Equal(t, entry.ID, corrected.ID)
}

func TestReopen_PendingEntryConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.ledger.Submit(ctx, submission("emp-1", march(10), 9, 17, 0, ""))
	require.NoError(t, err)

	_, err = f.ledger.Reopen(ctx, entry.ID)
	assert.ErrorIs(t, err, engine.ErrNotApproved)
}

func TestApprove_UnknownEntryNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.Approve(context.Background(), "nope")
	assert.ErrorIs(t, err, engine.ErrEntryNotFound)
}

// =============================================================================
// STATE MACHINE TABLE
// =============================================================================

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to timesheet.Status
		ok       bool
	}{
		{timesheet.StatusPending, timesheet.StatusApproved, true},
		{timesheet.StatusPending, timesheet.StatusRejected, true},
		{timesheet.StatusRejected, timesheet.StatusPending, true},
		{timesheet.StatusApproved, timesheet.StatusPending, true},
		{timesheet.StatusApproved, timesheet.StatusRejected, false},
		{timesheet.StatusRejected, timesheet.StatusApproved, false},
		{timesheet.StatusPending, timesheet.StatusPending, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, timesheet.CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}
