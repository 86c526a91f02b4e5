/*
aggregator.go - Per-day overtime aggregation

PURPOSE:
  Turns a validated WorkInterval plus an hourly rate into the derived
  fields of a ledger entry: per-tier hours after break deduction, total
  hours, base pay and overtime pay. Deterministic - resubmitting the
  same interval always produces byte-identical derived fields.

CROSS-MIDNIGHT POLICY:
  A shift that crosses midnight is split at the first midnight after
  clock-in. Each segment is classified against its OWN day's tier
  windows, then the buckets are summed into the single entry keyed on
  the clock-in date. Example: 22:00 -> 06:00 yields 2h EVENING from the
  anchor day's [17:00, 24:00) plus 6h NIGHT from the next day's
  [00:00, 08:00), all on the anchor date's entry.

BREAK DEDUCTION:
  Break time is assumed to occur within standard hours unless standard
  hours are exhausted: break hours subtract from NORMAL first (clamped
  at zero), the remainder from EVENING, then NIGHT.
*/
package engine

// DayComputation is the derived result for one employee-day.
type DayComputation struct {
	Hours       TierHours // after break deduction
	TotalHours  Hours
	BasePay     Money // normal hours at the base rate
	OvertimePay Money // evening + night hours at their multipliers
}

// ComputeDay validates the interval and derives the entry fields.
// Returns a *ValidationError for malformed intervals; nothing is written
// anywhere on failure.
func ComputeDay(iv WorkInterval, rate Money, sched RateSchedule) (DayComputation, error) {
	if err := iv.Validate(); err != nil {
		return DayComputation{}, err
	}

	first, second := SplitAtMidnight(iv.ClockIn, *iv.ClockOut)
	hours := ClassifyDay(first.Start, first.End, first.AnchorDay, sched)
	if second != nil {
		hours = hours.Add(ClassifyDay(second.Start, second.End, second.AnchorDay, sched))
		// The cap applies to the entry, not to each segment.
		hours.Normal = hours.Normal.Min(sched.NormalDailyCap)
	}

	hours = deductBreak(hours, HoursFromMinutes(iv.BreakMinutes))

	return DayComputation{
		Hours:       hours,
		TotalHours:  hours.Total(),
		BasePay:     rate.MulHours(hours.Normal, sched.Multiplier(TierNormal)),
		OvertimePay: rate.MulHours(hours.Evening, sched.Multiplier(TierEvening)).
			Add(rate.MulHours(hours.Night, sched.Multiplier(TierNight))),
	}, nil
}

// deductBreak removes break time from the buckets in NORMAL, EVENING,
// NIGHT order, clamping each bucket at zero.
func deductBreak(th TierHours, brk Hours) TierHours {
	th.Normal, brk = drain(th.Normal, brk)
	th.Evening, brk = drain(th.Evening, brk)
	th.Night, _ = drain(th.Night, brk)
	return th
}

// drain subtracts as much of remaining as the bucket can absorb and
// returns the reduced bucket plus what is still left to deduct.
func drain(bucket, remaining Hours) (Hours, Hours) {
	take := bucket.Min(remaining)
	return bucket.Sub(take), remaining.Sub(take)
}
