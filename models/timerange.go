package models

import "time"

// TimeRange is a half-open interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

func NewTimeRange(start time.Time, durationMinutes int) TimeRange {
	return TimeRange{
		Start: start,
		End:   start.Add(time.Duration(durationMinutes) * time.Minute),
	}
}

// Overlaps uses the half-open rule: ranges that merely touch
// (one ends exactly when the other starts) do not overlap.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

func (r TimeRange) DurationMinutes() int {
	return int(r.End.Sub(r.Start) / time.Minute)
}
