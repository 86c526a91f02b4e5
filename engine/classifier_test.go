package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/timesheet-engine/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func at(day time.Time, hour, min int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, min, 0, 0, time.UTC)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func hoursEqual(t *testing.T, want float64, got engine.Hours, context ...string) {
	t.Helper()
	note := ""
	if len(context) > 0 {
		note = " (" + context[0] + ")"
	}
	assert.True(t, engine.NewHours(want).Equal(got), "want %v hours, got %v%s", want, got, note)
}

// =============================================================================
// CLASSIFIER TESTS
// =============================================================================

func TestClassifyDay_StandardDayShift(t *testing.T) {
	// GIVEN: 09:00 -> 17:00, entirely within the NORMAL window
	// THEN: 8h normal, nothing in evening/night

	d := day(2026, time.March, 10)
	th := engine.ClassifyDay(at(d, 9, 0), at(d, 17, 0), d, engine.DefaultSchedule())

	hoursEqual(t, 8, th.Normal)
	hoursEqual(t, 0, th.Evening)
	hoursEqual(t, 0, th.Night)
}

func TestClassifyDay_SpansNormalAndEvening(t *testing.T) {
	// GIVEN: 09:00 -> 19:00
	// THEN: 8h normal ([09:00,17:00)) and 2h evening ([17:00,19:00))

	d := day(2026, time.March, 10)
	th := engine.ClassifyDay(at(d, 9, 0), at(d, 19, 0), d, engine.DefaultSchedule())

	hoursEqual(t, 8, th.Normal)
	hoursEqual(t, 2, th.Evening)
	hoursEqual(t, 0, th.Night)
}

func TestClassifyDay_EarlyMorningIsNight(t *testing.T) {
	// GIVEN: 05:00 -> 10:00
	// THEN: 3h night ([05:00,08:00)) and 2h normal ([08:00,10:00))

	d := day(2026, time.March, 10)
	th := engine.ClassifyDay(at(d, 5, 0), at(d, 10, 0), d, engine.DefaultSchedule())

	hoursEqual(t, 3, th.Night)
	hoursEqual(t, 2, th.Normal)
	hoursEqual(t, 0, th.Evening)
}

func TestClassifyDay_NormalCappedAtEight(t *testing.T) {
	// GIVEN: an interval covering the entire NORMAL window (9h wide)
	// THEN: the normal bucket is capped at 8h

	d := day(2026, time.March, 10)
	th := engine.ClassifyDay(at(d, 8, 0), at(d, 17, 0), d, engine.DefaultSchedule())

	hoursEqual(t, 8, th.Normal, "9h raw overlap must cap at 8")
}

func TestClassifyDay_UnorderedTimestampsClampToZero(t *testing.T) {
	// GIVEN: clock-out before clock-in
	// THEN: every bucket is zero; the classifier never raises

	d := day(2026, time.March, 10)
	th := engine.ClassifyDay(at(d, 17, 0), at(d, 9, 0), d, engine.DefaultSchedule())

	hoursEqual(t, 0, th.Normal)
	hoursEqual(t, 0, th.Evening)
	hoursEqual(t, 0, th.Night)
}

func TestClassifyDay_CrossMidnightOnlyAnchorDayEvaluated(t *testing.T) {
	// GIVEN: 22:00 -> 06:00 next day, classified against the anchor day only
	// THEN: only the [22:00, 24:00) portion counts, and it falls in the
	//       anchor day's EVENING window (2h); the post-midnight hours
	//       overlap none of the anchor day's windows

	d := day(2026, time.March, 10)
	th := engine.ClassifyDay(at(d, 22, 0), at(d, 22, 0).Add(8*time.Hour), d, engine.DefaultSchedule())

	hoursEqual(t, 0, th.Normal)
	hoursEqual(t, 2, th.Evening, "[22:00,24:00) falls in the evening window")
	hoursEqual(t, 0, th.Night)
}

func TestClassifyDay_PartitionProperty(t *testing.T) {
	// PROPERTY: for any same-day interval, the pre-cap bucket sum equals
	// elapsed time and every bucket is non-negative. Use a schedule with a
	// generous cap so the cap does not interfere with the sum property.

	sched := engine.DefaultSchedule()
	sched.NormalDailyCap = engine.NewHoursFromInt(24)

	d := day(2026, time.March, 10)
	cases := []struct{ inH, inM, outH, outM int }{
		{0, 0, 24, 0},
		{6, 30, 18, 45},
		{8, 0, 8, 1},
		{16, 59, 17, 1},
		{23, 0, 24, 0},
		{0, 0, 0, 30},
	}

	for _, c := range cases {
		in := at(d, c.inH, c.inM)
		out := at(d, c.outH, c.outM)
		if c.outH == 24 {
			out = d.AddDate(0, 0, 1)
		}

		th := engine.ClassifyDay(in, out, d, sched)
		elapsed := engine.HoursFromDuration(out.Sub(in))

		assert.True(t, th.Total().Equal(elapsed),
			"buckets %v must sum to elapsed %v for %v->%v", th.Total(), elapsed, in, out)
		assert.False(t, th.Normal.IsNegative())
		assert.False(t, th.Evening.IsNegative())
		assert.False(t, th.Night.IsNegative())
	}
}

func TestClassifyDay_SecondGranularity(t *testing.T) {
	// GIVEN: 16:59:24 -> 17:00:36, straddling the normal/evening boundary
	//        by 36 seconds on each side
	// THEN: each bucket holds exactly 0.01h; sub-minute portions are never
	//       truncated away

	d := day(2026, time.March, 10)
	in := at(d, 16, 59).Add(24 * time.Second)
	out := at(d, 17, 0).Add(36 * time.Second)

	th := engine.ClassifyDay(in, out, d, engine.DefaultSchedule())

	hoursEqual(t, 0.01, th.Normal, "36s before 17:00")
	hoursEqual(t, 0.01, th.Evening, "36s after 17:00")
	hoursEqual(t, 0, th.Night)
	assert.True(t, th.Total().Equal(engine.HoursFromDuration(out.Sub(in))),
		"buckets must sum to the elapsed 72 seconds")
}

func TestHoursFromDuration_SecondResolution(t *testing.T) {
	hoursEqual(t, 0.01, engine.HoursFromDuration(36*time.Second))
	hoursEqual(t, 0.02, engine.HoursFromDuration(72*time.Second))
	hoursEqual(t, 1.5, engine.HoursFromDuration(90*time.Minute))
	hoursEqual(t, 8.25, engine.HoursFromDuration(8*time.Hour+15*time.Minute))
}

// =============================================================================
// MIDNIGHT SPLIT TESTS
// =============================================================================

func TestSplitAtMidnight_SameDay(t *testing.T) {
	d := day(2026, time.March, 10)
	first, second := engine.SplitAtMidnight(at(d, 9, 0), at(d, 17, 0))

	require.Nil(t, second)
	assert.Equal(t, at(d, 9, 0), first.Start)
	assert.Equal(t, at(d, 17, 0), first.End)
	assert.Equal(t, d, first.AnchorDay)
}

func TestSplitAtMidnight_Crossing(t *testing.T) {
	d := day(2026, time.March, 10)
	out := at(d, 22, 0).Add(8 * time.Hour)
	first, second := engine.SplitAtMidnight(at(d, 22, 0), out)

	require.NotNil(t, second)
	assert.Equal(t, d.AddDate(0, 0, 1), first.End)
	assert.Equal(t, d.AddDate(0, 0, 1), second.Start)
	assert.Equal(t, d.AddDate(0, 0, 1), second.AnchorDay)
	assert.Equal(t, out, second.End)
}

func TestSplitAtMidnight_EndsExactlyAtMidnight(t *testing.T) {
	// An interval ending exactly at 24:00 does not cross into the next day.
	d := day(2026, time.March, 10)
	first, second := engine.SplitAtMidnight(at(d, 23, 0), d.AddDate(0, 0, 1))

	assert.Nil(t, second)
	assert.Equal(t, d.AddDate(0, 0, 1), first.End)
}

// =============================================================================
// SCHEDULE VALIDATION TESTS
// =============================================================================

func TestRateSchedule_DefaultIsValid(t *testing.T) {
	require.NoError(t, engine.DefaultSchedule().Validate())
}

func TestRateSchedule_GapRejected(t *testing.T) {
	sched := engine.DefaultSchedule()
	sched.Windows[engine.TierNormal] = engine.TierWindow{Start: 9 * 60, End: 17 * 60}

	assert.Error(t, sched.Validate(), "a gap between 08:00 and 09:00 breaks the partition")
}

func TestRateSchedule_OverlapRejected(t *testing.T) {
	sched := engine.DefaultSchedule()
	sched.Windows[engine.TierEvening] = engine.TierWindow{Start: 16 * 60, End: 24 * 60}

	assert.Error(t, sched.Validate(), "overlapping windows break the partition")
}

func TestRateSchedule_MissingMultiplierRejected(t *testing.T) {
	sched := engine.DefaultSchedule()
	delete(sched.Multipliers, engine.TierNight)

	assert.Error(t, sched.Validate())
}
