/*
Package engine provides the pure timesheet computation core.

PURPOSE:
  This package contains the side-effect-free algorithms that turn raw
  clock-in/clock-out events into classified work-hour buckets and derived
  pay figures. Nothing in here touches a database or a network: every
  function is a deterministic mapping from inputs to outputs, which is
  what makes resubmission idempotent and the whole pipeline auditable.

KEY CONCEPTS IN THIS FILE (types.go):
  - Hours/Money: decimal-backed quantities (never float64 for pay math)
  - RateTier: a statutory pay multiplier bound to a daily clock window
  - TierHours: per-tier hour buckets produced by the classifier
  - WorkInterval: one employee-day of raw clock events

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere money or hours are involved
  2. Determinism: same WorkInterval always yields identical derived fields
  3. Injected configuration: tier windows come from a RateSchedule value,
     never from package-level mutable state

SEE ALSO:
  - schedule.go: RateSchedule configuration and validation
  - classifier.go: interval-to-tier overlap computation
  - aggregator.go: break deduction and pay derivation
*/
package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// HOURS / MONEY - Decimal-backed quantities
// =============================================================================

// Hours is a duration expressed in decimal hours.
type Hours struct {
	Value decimal.Decimal
}

func NewHours(v float64) Hours          { return Hours{Value: decimal.NewFromFloat(v)} }
func NewHoursFromInt(v int) Hours       { return Hours{Value: decimal.NewFromInt(int64(v))} }
func ZeroHours() Hours                  { return Hours{Value: decimal.Zero} }
func HoursFromMinutes(min int) Hours    { return Hours{Value: decimal.NewFromInt(int64(min)).Div(decimal.NewFromInt(60))} }
func HoursFromDuration(d time.Duration) Hours {
	return Hours{Value: decimal.NewFromInt(int64(d / time.Second)).Div(decimal.NewFromInt(3600))}
}

func (h Hours) Add(o Hours) Hours      { return Hours{Value: h.Value.Add(o.Value)} }
func (h Hours) Sub(o Hours) Hours      { return Hours{Value: h.Value.Sub(o.Value)} }
func (h Hours) Min(o Hours) Hours      { if h.LessThan(o) { return h }; return o }
func (h Hours) IsZero() bool           { return h.Value.IsZero() }
func (h Hours) IsNegative() bool       { return h.Value.IsNegative() }
func (h Hours) IsPositive() bool       { return h.Value.IsPositive() }
func (h Hours) LessThan(o Hours) bool  { return h.Value.LessThan(o.Value) }
func (h Hours) GreaterThan(o Hours) bool { return h.Value.GreaterThan(o.Value) }
func (h Hours) Equal(o Hours) bool     { return h.Value.Equal(o.Value) }
func (h Hours) String() string         { return h.Value.String() }

// ClampZero floors negative hour values at zero. The classifier relies on
// this instead of raising on unordered timestamps.
func (h Hours) ClampZero() Hours {
	if h.IsNegative() {
		return ZeroHours()
	}
	return h
}

// Money is an amount of currency. The engine never names a currency; it is
// whatever unit the employee's hourly rate is expressed in.
type Money struct {
	Value decimal.Decimal
}

func NewMoney(v float64) Money        { return Money{Value: decimal.NewFromFloat(v)} }
func ZeroMoney() Money                { return Money{Value: decimal.Zero} }

// ParseMoney parses a decimal money string. Stores use this when scanning
// persisted values; a malformed value is corruption and must surface as an
// error, never as a silent zero amount.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroMoney(), fmt.Errorf("malformed money value %q: %w", s, err)
	}
	return Money{Value: d}, nil
}

func (m Money) Add(o Money) Money       { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money       { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) IsZero() bool            { return m.Value.IsZero() }
func (m Money) Equal(o Money) bool      { return m.Value.Equal(o.Value) }
func (m Money) String() string          { return m.Value.String() }

// MulHours prices a number of hours at this rate, optionally scaled by a
// tier multiplier.
func (m Money) MulHours(h Hours, multiplier decimal.Decimal) Money {
	return Money{Value: m.Value.Mul(h.Value).Mul(multiplier)}
}

// ParseHours parses a decimal hour string, as ParseMoney does for money.
func ParseHours(s string) (Hours, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroHours(), fmt.Errorf("malformed hours value %q: %w", s, err)
	}
	return Hours{Value: d}, nil
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type EntryID string
type AssignmentID string
type ProjectID string

// =============================================================================
// RATE TIERS
// =============================================================================

// RateTier names a statutory pay band. Each tier owns a fixed clock-time
// window of the calendar day (see RateSchedule) and a pay multiplier.
type RateTier string

const (
	TierNormal  RateTier = "normal"
	TierEvening RateTier = "evening"
	TierNight   RateTier = "night"
)

// TierHours holds the per-tier hour buckets for one employee-day.
type TierHours struct {
	Normal  Hours
	Evening Hours
	Night   Hours
}

func (th TierHours) Total() Hours {
	return th.Normal.Add(th.Evening).Add(th.Night)
}

func (th TierHours) Add(o TierHours) TierHours {
	return TierHours{
		Normal:  th.Normal.Add(o.Normal),
		Evening: th.Evening.Add(o.Evening),
		Night:   th.Night.Add(o.Night),
	}
}

// =============================================================================
// WORK INTERVAL - Raw input for one employee-day
// =============================================================================

// WorkInterval is the raw clock data for a single workday. ClockOut is nil
// while the shift is still open; open intervals are not computable.
type WorkInterval struct {
	EmployeeID   EmployeeID
	Date         time.Time // calendar date the entry is keyed on (anchor day)
	ClockIn      time.Time
	ClockOut     *time.Time
	BreakMinutes int
}

// Elapsed returns the raw clocked duration, before break deduction.
// Zero when the interval is open or unordered.
func (iv WorkInterval) Elapsed() time.Duration {
	if iv.ClockOut == nil || !iv.ClockOut.After(iv.ClockIn) {
		return 0
	}
	return iv.ClockOut.Sub(iv.ClockIn)
}

// Validate enforces the interval invariants:
//   - clock-out present and strictly after clock-in
//   - break minutes non-negative and not exceeding elapsed time
//   - span of at most 24 hours (a single workday, possibly crossing midnight)
func (iv WorkInterval) Validate() error {
	if iv.ClockOut == nil {
		return &ValidationError{Field: "clock_out", Reason: "interval is still open"}
	}
	if !iv.ClockOut.After(iv.ClockIn) {
		return &ValidationError{Field: "clock_out", Reason: "clock-out must be after clock-in"}
	}
	if iv.BreakMinutes < 0 {
		return &ValidationError{Field: "break_minutes", Reason: "break minutes cannot be negative"}
	}
	elapsed := iv.Elapsed()
	if time.Duration(iv.BreakMinutes)*time.Minute > elapsed {
		return &ValidationError{Field: "break_minutes", Reason: "break exceeds elapsed time"}
	}
	if elapsed > 24*time.Hour {
		return &ValidationError{Field: "clock_out", Reason: "interval spans more than 24 hours"}
	}
	return nil
}

// DateOnly truncates a timestamp to its calendar date in UTC. Entries are
// keyed on this value.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
