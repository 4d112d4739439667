package models_test

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/clinic_backend/models"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return parsed
}

func TestTimeRangeOverlaps(t *testing.T) {
	base := mustTime(t, "2026-09-01T10:00:00Z")

	a := models.NewTimeRange(base, 30) // 10:00-10:30

	cases := []struct {
		name    string
		other   models.TimeRange
		overlap bool
	}{
		{"identical", models.NewTimeRange(base, 30), true},
		{"contained", models.NewTimeRange(base.Add(10*time.Minute), 10), true},
		{"partial tail", models.NewTimeRange(base.Add(15*time.Minute), 30), true},
		{"partial head", models.NewTimeRange(base.Add(-15*time.Minute), 30), true},
		{"back to back after", models.NewTimeRange(base.Add(30*time.Minute), 30), false},
		{"back to back before", models.NewTimeRange(base.Add(-30*time.Minute), 30), false},
		{"disjoint", models.NewTimeRange(base.Add(2*time.Hour), 30), false},
	}

	for _, tc := range cases {
		if got := a.Overlaps(tc.other); got != tc.overlap {
			t.Fatalf("%s: Overlaps=%v, want %v", tc.name, got, tc.overlap)
		}
		// symmetry
		if got := tc.other.Overlaps(a); got != tc.overlap {
			t.Fatalf("%s (reversed): Overlaps=%v, want %v", tc.name, got, tc.overlap)
		}
	}
}

func TestNewTimeRangeDuration(t *testing.T) {
	start := mustTime(t, "2026-09-01T09:00:00Z")
	r := models.NewTimeRange(start, 45)
	if r.DurationMinutes() != 45 {
		t.Fatalf("DurationMinutes=%d, want 45", r.DurationMinutes())
	}
	if !r.End.Equal(start.Add(45 * time.Minute)) {
		t.Fatalf("End=%v, want %v", r.End, start.Add(45*time.Minute))
	}
}
