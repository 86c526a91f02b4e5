/*
replayer_test.go - Background accrual replayer tests

Tests for:
- Manual sweep draining a pending accrual after the project store recovers
- Timer-driven sweeps between Start and Stop
- Disabled replayer staying inert
*/
package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/timesheet-engine/engine"
	"github.com/warp/timesheet-engine/store/memory"
	"github.com/warp/timesheet-engine/timesheet"
)

type replayFixture struct {
	ledger   *timesheet.Ledger
	projects *flakyProjects
}

// newReplayFixture leaves one unapplied transition behind: an approval that
// ran while the project store was down.
func newReplayFixture(t *testing.T) *replayFixture {
	t.Helper()

	dir := timesheet.NewStaticDirectory()
	dir.SetEmployee("emp-1", "acme", engine.NewMoney(10))

	projects := &flakyProjects{StaticProjects: timesheet.NewStaticProjects()}
	projects.SetAssignment("asg-1", "proj-1")

	ledger := timesheet.NewLedger(memory.New(), dir, projects, engine.DefaultSchedule())
	ctx := context.Background()

	day := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	out := day.Add(17 * time.Hour)
	asg := engine.AssignmentID("asg-1")
	entry, err := ledger.Submit(ctx, timesheet.SubmitInput{
		EmployeeID:   "emp-1",
		Date:         day,
		ClockIn:      day.Add(9 * time.Hour),
		ClockOut:     &out,
		AssignmentID: &asg,
	})
	require.NoError(t, err)

	projects.setBroken(true)
	_, err = ledger.Approve(ctx, entry.ID)
	require.ErrorIs(t, err, engine.ErrAccrualPending)

	pending, err := ledger.Propagator().Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	return &replayFixture{ledger: ledger, projects: projects}
}

func TestAccrualReplayer_RunNowDrainsPending(t *testing.T) {
	f := newReplayFixture(t)
	replayer := NewAccrualReplayer(f.ledger.Propagator())

	// Still broken: the sweep must leave the record in place.
	replayer.RunNow()
	pending, err := f.ledger.Propagator().Pending(context.Background())
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	f.projects.setBroken(false)
	replayer.RunNow()

	pending, err = f.ledger.Propagator().Pending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.True(t, engine.NewMoney(80).Equal(f.projects.ActualCost("proj-1")),
		"8 normal hours at rate 10")
}

func TestAccrualReplayer_StartSweepsUntilStopped(t *testing.T) {
	f := newReplayFixture(t)
	f.projects.setBroken(false)

	replayer := NewAccrualReplayer(f.ledger.Propagator())
	replayer.CheckInterval = 10 * time.Millisecond
	replayer.Start()
	defer replayer.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		pending, err := f.ledger.Propagator().Pending(context.Background())
		require.NoError(t, err)
		if len(pending) == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("replayer never drained the pending accrual")
}

func TestAccrualReplayer_DisabledDoesNothing(t *testing.T) {
	f := newReplayFixture(t)
	f.projects.setBroken(false)

	replayer := NewAccrualReplayer(f.ledger.Propagator())
	replayer.Enabled = false
	replayer.CheckInterval = 10 * time.Millisecond
	replayer.Start()
	time.Sleep(50 * time.Millisecond)
	replayer.Stop()

	pending, err := f.ledger.Propagator().Pending(context.Background())
	require.NoError(t, err)
	assert.Len(t, pending, 1, "a disabled replayer must not sweep")
}
