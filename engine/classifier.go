/*
classifier.go - Time window classification

PURPOSE:
  Maps a [clockIn, clockOut) work interval onto the tier windows of a
  single calendar day. This is the innermost piece of the payroll
  pipeline: a pure overlap computation with no side effects, safe to
  re-run any number of times on the same input.

CONTRACT:
  For each tier window anchored to the anchor day:

    overlap = max(0, min(clockOut, tierEnd) - max(clockIn, tierStart))

  - The NORMAL bucket is capped at schedule.NormalDailyCap.
  - Non-positive overlaps contribute zero; unordered timestamps never
    raise, they simply clamp to zero.
  - ONLY the anchor day's window set is evaluated. A shift crossing
    midnight has its post-midnight portion left unclassified by this
    function; the aggregator splits the interval at midnight and calls
    the classifier once per segment (see aggregator.go).
*/
package engine

import "time"

// ClassifyDay computes the per-tier hour overlap of [clockIn, clockOut)
// against the schedule's windows anchored to anchorDay's calendar date.
func ClassifyDay(clockIn, clockOut time.Time, anchorDay time.Time, sched RateSchedule) TierHours {
	var th TierHours
	th.Normal = tierOverlap(clockIn, clockOut, anchorDay, sched.Windows[TierNormal])
	th.Evening = tierOverlap(clockIn, clockOut, anchorDay, sched.Windows[TierEvening])
	th.Night = tierOverlap(clockIn, clockOut, anchorDay, sched.Windows[TierNight])

	th.Normal = th.Normal.Min(sched.NormalDailyCap)
	return th
}

// tierOverlap measures the overlap of [clockIn, clockOut) with one anchored
// window, clamped at zero.
func tierOverlap(clockIn, clockOut time.Time, anchorDay time.Time, window TierWindow) Hours {
	winStart, winEnd := window.anchored(anchorDay)

	start := clockIn
	if winStart.After(start) {
		start = winStart
	}
	end := clockOut
	if winEnd.Before(end) {
		end = winEnd
	}

	if !end.After(start) {
		return ZeroHours()
	}
	return HoursFromDuration(end.Sub(start))
}

// SplitAtMidnight divides [clockIn, clockOut) at the first midnight after
// clockIn. The second return is nil when the interval does not cross a day
// boundary.
type Segment struct {
	Start, End time.Time
	AnchorDay  time.Time
}

func SplitAtMidnight(clockIn, clockOut time.Time) (Segment, *Segment) {
	first := Segment{Start: clockIn, End: clockOut, AnchorDay: DateOnly(clockIn)}

	nextMidnight := DateOnly(clockIn).AddDate(0, 0, 1)
	if !clockOut.After(nextMidnight) {
		return first, nil
	}

	first.End = nextMidnight
	second := &Segment{Start: nextMidnight, End: clockOut, AnchorDay: nextMidnight}
	return first, second
}
