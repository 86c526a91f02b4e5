/*
schedule.go - Jurisdiction-specific rate tier configuration

PURPOSE:
  A RateSchedule describes the three statutory tier windows and their pay
  multipliers for one jurisdiction. The schedule is an immutable value
  injected into the classifier and aggregator - there is no package-level
  default that code mutates. Alternate jurisdictions supply a different
  schedule (typically via factory.ParseSchedule) without code change.

INVARIANT:
  The three windows form a closed, non-overlapping partition of the
  24-hour day: every instant of a calendar day belongs to exactly one
  tier. Validate() enforces this before a schedule is ever used.

DEFAULT (statutory baseline):
  NIGHT   [00:00, 08:00)  x2.0
  NORMAL  [08:00, 17:00)  x1.0   capped at 8 hours/day
  EVENING [17:00, 24:00)  x1.5

SEE ALSO:
  - classifier.go: consumes the windows
  - factory/schedule.go: JSON -> RateSchedule conversion
*/
package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TIER WINDOWS
// =============================================================================

// TierWindow is a half-open [Start, End) clock-time range expressed in
// minutes since midnight. End may be 1440 (24:00).
type TierWindow struct {
	Start int
	End   int
}

func (w TierWindow) Minutes() int { return w.End - w.Start }

// anchored converts the window to concrete timestamps on a given calendar day.
func (w TierWindow) anchored(day time.Time) (time.Time, time.Time) {
	midnight := DateOnly(day)
	return midnight.Add(time.Duration(w.Start) * time.Minute),
		midnight.Add(time.Duration(w.End) * time.Minute)
}

// =============================================================================
// RATE SCHEDULE
// =============================================================================

// RateSchedule binds each tier to its daily window and pay multiplier.
// Treat values as immutable once validated.
type RateSchedule struct {
	Windows     map[RateTier]TierWindow
	Multipliers map[RateTier]decimal.Decimal

	// NormalDailyCap limits the NORMAL bucket per entry regardless of raw
	// window overlap. Guards against anomalous duplicate overlaps.
	NormalDailyCap Hours
}

// DefaultSchedule returns the statutory baseline schedule.
func DefaultSchedule() RateSchedule {
	return RateSchedule{
		Windows: map[RateTier]TierWindow{
			TierNight:   {Start: 0, End: 8 * 60},
			TierNormal:  {Start: 8 * 60, End: 17 * 60},
			TierEvening: {Start: 17 * 60, End: 24 * 60},
		},
		Multipliers: map[RateTier]decimal.Decimal{
			TierNormal:  decimal.NewFromInt(1),
			TierEvening: decimal.NewFromFloat(1.5),
			TierNight:   decimal.NewFromInt(2),
		},
		NormalDailyCap: NewHoursFromInt(8),
	}
}

// Multiplier returns the pay multiplier for a tier, defaulting to 1.
func (s RateSchedule) Multiplier(tier RateTier) decimal.Decimal {
	if m, ok := s.Multipliers[tier]; ok {
		return m
	}
	return decimal.NewFromInt(1)
}

// Validate checks that the schedule's windows are a closed partition of the
// day and that every tier carries a multiplier.
func (s RateSchedule) Validate() error {
	if len(s.Windows) != 3 {
		return fmt.Errorf("schedule must define exactly 3 tier windows, got %d", len(s.Windows))
	}

	windows := make([]TierWindow, 0, len(s.Windows))
	for tier, w := range s.Windows {
		if w.Start < 0 || w.End > 24*60 || w.Start >= w.End {
			return fmt.Errorf("tier %s window [%d, %d) is out of range", tier, w.Start, w.End)
		}
		if _, ok := s.Multipliers[tier]; !ok {
			return fmt.Errorf("tier %s has no multiplier", tier)
		}
		windows = append(windows, w)
	}

	sort.Slice(windows, func(i, j int) bool { return windows[i].Start < windows[j].Start })

	if windows[0].Start != 0 {
		return fmt.Errorf("tier windows must start at 00:00, first window starts at minute %d", windows[0].Start)
	}
	for i := 1; i < len(windows); i++ {
		if windows[i].Start != windows[i-1].End {
			return fmt.Errorf("tier windows must be contiguous: gap or overlap at minute %d", windows[i].Start)
		}
	}
	if windows[len(windows)-1].End != 24*60 {
		return fmt.Errorf("tier windows must end at 24:00, last window ends at minute %d", windows[len(windows)-1].End)
	}

	if s.NormalDailyCap.IsNegative() || s.NormalDailyCap.IsZero() {
		return fmt.Errorf("normal daily cap must be positive")
	}
	return nil
}
