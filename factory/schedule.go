/*
Package factory provides JSON to Go rate-schedule conversion.

PURPOSE:
  Converts JSON schedule definitions into engine.RateSchedule values.
  This enables jurisdiction configuration without code change - a
  different country's statutory windows and multipliers are a JSON
  document, not a patch.

JSON SCHEMA:
  {
    "normal_daily_cap_hours": 8,
    "tiers": [
      {"tier": "night",   "start": "00:00", "end": "08:00", "multiplier": 2.0},
      {"tier": "normal",  "start": "08:00", "end": "17:00", "multiplier": 1.0},
      {"tier": "evening", "start": "17:00", "end": "24:00", "multiplier": 1.5}
    ]
  }

  Windows are half-open [start, end) clock times; "24:00" is accepted as
  an end. The three windows must partition the day - ParseSchedule
  validates before returning.

USAGE:
  sched, err := factory.ParseSchedule(jsonString)
  // or the statutory default:
  sched, _ := factory.ParseSchedule(factory.DefaultScheduleJSON())
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/timesheet-engine/engine"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ScheduleJSON is the JSON representation of a rate schedule.
type ScheduleJSON struct {
	NormalDailyCapHours float64    `json:"normal_daily_cap_hours"`
	Tiers               []TierJSON `json:"tiers"`
}

type TierJSON struct {
	Tier       string  `json:"tier"`
	Start      string  `json:"start"`
	End        string  `json:"end"`
	Multiplier float64 `json:"multiplier"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseSchedule converts a JSON document into a validated RateSchedule.
func ParseSchedule(raw string) (engine.RateSchedule, error) {
	var doc ScheduleJSON
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return engine.RateSchedule{}, fmt.Errorf("invalid schedule JSON: %w", err)
	}
	return FromJSON(doc)
}

// FromJSON converts an already-unmarshaled document.
func FromJSON(doc ScheduleJSON) (engine.RateSchedule, error) {
	sched := engine.RateSchedule{
		Windows:     make(map[engine.RateTier]engine.TierWindow, len(doc.Tiers)),
		Multipliers: make(map[engine.RateTier]decimal.Decimal, len(doc.Tiers)),
	}

	for _, t := range doc.Tiers {
		tier, err := parseTierName(t.Tier)
		if err != nil {
			return engine.RateSchedule{}, err
		}
		if _, dup := sched.Windows[tier]; dup {
			return engine.RateSchedule{}, fmt.Errorf("tier %q defined twice", t.Tier)
		}

		start, err := parseClock(t.Start)
		if err != nil {
			return engine.RateSchedule{}, fmt.Errorf("tier %q start: %w", t.Tier, err)
		}
		end, err := parseClock(t.End)
		if err != nil {
			return engine.RateSchedule{}, fmt.Errorf("tier %q end: %w", t.Tier, err)
		}

		sched.Windows[tier] = engine.TierWindow{Start: start, End: end}
		sched.Multipliers[tier] = decimal.NewFromFloat(t.Multiplier)
	}

	cap := doc.NormalDailyCapHours
	if cap == 0 {
		cap = 8
	}
	sched.NormalDailyCap = engine.NewHours(cap)

	if err := sched.Validate(); err != nil {
		return engine.RateSchedule{}, err
	}
	return sched, nil
}

// DefaultScheduleJSON returns the statutory baseline as JSON, useful as a
// starting point for jurisdiction-specific documents.
func DefaultScheduleJSON() string {
	return `{
  "normal_daily_cap_hours": 8,
  "tiers": [
    {"tier": "night",   "start": "00:00", "end": "08:00", "multiplier": 2.0},
    {"tier": "normal",  "start": "08:00", "end": "17:00", "multiplier": 1.0},
    {"tier": "evening", "start": "17:00", "end": "24:00", "multiplier": 1.5}
  ]
}`
}

func parseTierName(s string) (engine.RateTier, error) {
	switch engine.RateTier(strings.ToLower(s)) {
	case engine.TierNormal:
		return engine.TierNormal, nil
	case engine.TierEvening:
		return engine.TierEvening, nil
	case engine.TierNight:
		return engine.TierNight, nil
	}
	return "", fmt.Errorf("unknown tier %q", s)
}

// parseClock converts "HH:MM" to minutes since midnight. "24:00" is the
// end-of-day sentinel.
func parseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed clock time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("malformed clock time %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("malformed clock time %q", s)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("clock time %q out of range", s)
	}
	return h*60 + m, nil
}
