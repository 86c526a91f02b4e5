package factory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/timesheet-engine/engine"
	"github.com/warp/timesheet-engine/factory"
)

func TestParseSchedule_Default(t *testing.T) {
	sched, err := factory.ParseSchedule(factory.DefaultScheduleJSON())
	require.NoError(t, err)

	assert.Equal(t, engine.TierWindow{Start: 0, End: 480}, sched.Windows[engine.TierNight])
	assert.Equal(t, engine.TierWindow{Start: 480, End: 1020}, sched.Windows[engine.TierNormal])
	assert.Equal(t, engine.TierWindow{Start: 1020, End: 1440}, sched.Windows[engine.TierEvening])
	assert.True(t, engine.NewHoursFromInt(8).Equal(sched.NormalDailyCap))
	require.NoError(t, sched.Validate())
}

func TestParseSchedule_AlternateJurisdiction(t *testing.T) {
	// A jurisdiction with a 22:00 night boundary and a 10h cap.
	raw := `{
		"normal_daily_cap_hours": 10,
		"tiers": [
			{"tier": "night",   "start": "00:00", "end": "06:00", "multiplier": 1.75},
			{"tier": "normal",  "start": "06:00", "end": "18:00", "multiplier": 1.0},
			{"tier": "evening", "start": "18:00", "end": "24:00", "multiplier": 1.25}
		]
	}`

	sched, err := factory.ParseSchedule(raw)
	require.NoError(t, err)
	assert.True(t, engine.NewHoursFromInt(10).Equal(sched.NormalDailyCap))

	// The parsed schedule classifies with its own boundaries.
	d := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	th := engine.ClassifyDay(
		time.Date(2026, time.March, 10, 5, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, 10, 7, 0, 0, 0, time.UTC),
		d, sched)
	assert.True(t, engine.NewHoursFromInt(1).Equal(th.Night))
	assert.True(t, engine.NewHoursFromInt(1).Equal(th.Normal))
}

func TestParseSchedule_GapRejected(t *testing.T) {
	raw := `{
		"tiers": [
			{"tier": "night",   "start": "00:00", "end": "07:00", "multiplier": 2.0},
			{"tier": "normal",  "start": "08:00", "end": "17:00", "multiplier": 1.0},
			{"tier": "evening", "start": "17:00", "end": "24:00", "multiplier": 1.5}
		]
	}`
	_, err := factory.ParseSchedule(raw)
	assert.Error(t, err, "07:00-08:00 gap must fail partition validation")
}

func TestParseSchedule_UnknownTierRejected(t *testing.T) {
	raw := `{"tiers": [{"tier": "weekend", "start": "00:00", "end": "24:00", "multiplier": 2.0}]}`
	_, err := factory.ParseSchedule(raw)
	assert.Error(t, err)
}

func TestParseSchedule_DuplicateTierRejected(t *testing.T) {
	raw := `{
		"tiers": [
			{"tier": "night", "start": "00:00", "end": "08:00", "multiplier": 2.0},
			{"tier": "night", "start": "08:00", "end": "17:00", "multiplier": 1.0},
			{"tier": "evening", "start": "17:00", "end": "24:00", "multiplier": 1.5}
		]
	}`
	_, err := factory.ParseSchedule(raw)
	assert.Error(t, err)
}

func TestParseSchedule_MalformedClockRejected(t *testing.T) {
	raw := `{
		"tiers": [
			{"tier": "night",   "start": "0000", "end": "08:00", "multiplier": 2.0},
			{"tier": "normal",  "start": "08:00", "end": "17:00", "multiplier": 1.0},
			{"tier": "evening", "start": "17:00", "end": "24:00", "multiplier": 1.5}
		]
	}`
	_, err := factory.ParseSchedule(raw)
	assert.Error(t, err)
}

func TestParseSchedule_InvalidJSONRejected(t *testing.T) {
	_, err := factory.ParseSchedule(`{not json`)
	assert.Error(t, err)
}
