package models_test

import (
	"math/rand"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/clinic_backend/models"
)

func day(t *testing.T) time.Time {
	t.Helper()
	return mustTime(t, "2026-09-01T00:00:00Z")
}

func at(t *testing.T, hour, minute int) time.Time {
	t.Helper()
	d := day(t)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, d.Location())
}

func TestAvailableSlotsEmptyDay(t *testing.T) {
	slots := models.AvailableSlots(day(t), 30, 9, 17, nil)

	// 9:00 through 16:30 on the half-hour grid.
	if len(slots) != 16 {
		t.Fatalf("len(slots)=%d, want 16", len(slots))
	}
	if !slots[0].Equal(at(t, 9, 0)) {
		t.Fatalf("first slot=%v, want 09:00", slots[0])
	}
	if !slots[len(slots)-1].Equal(at(t, 16, 30)) {
		t.Fatalf("last slot=%v, want 16:30", slots[len(slots)-1])
	}
}

func TestAvailableSlotsLongerDurationEndsByClose(t *testing.T) {
	slots := models.AvailableSlots(day(t), 60, 9, 17, nil)

	// A 60-minute booking cannot start at 16:30.
	if len(slots) != 15 {
		t.Fatalf("len(slots)=%d, want 15", len(slots))
	}
	if !slots[len(slots)-1].Equal(at(t, 16, 0)) {
		t.Fatalf("last slot=%v, want 16:00", slots[len(slots)-1])
	}
}

func TestAvailableSlotsSkipsBookedRanges(t *testing.T) {
	existing := []models.TimeRange{
		models.NewTimeRange(at(t, 10, 0), 30),
	}
	slots := models.AvailableSlots(day(t), 30, 9, 17, existing)

	for _, slot := range slots {
		if slot.Equal(at(t, 10, 0)) {
			t.Fatalf("10:00 offered although booked")
		}
	}
	if len(slots) != 15 {
		t.Fatalf("len(slots)=%d, want 15", len(slots))
	}

	// Back-to-back neighbours stay available.
	found930, found1030 := false, false
	for _, slot := range slots {
		if slot.Equal(at(t, 9, 30)) {
			found930 = true
		}
		if slot.Equal(at(t, 10, 30)) {
			found1030 = true
		}
	}
	if !found930 || !found1030 {
		t.Fatalf("adjacent slots missing: 9:30=%v 10:30=%v", found930, found1030)
	}
}

func TestAvailableSlotsDeterministic(t *testing.T) {
	existing := []models.TimeRange{
		models.NewTimeRange(at(t, 11, 0), 60),
		models.NewTimeRange(at(t, 14, 30), 30),
	}
	first := models.AvailableSlots(day(t), 30, 9, 17, existing)
	second := models.AvailableSlots(day(t), 30, 9, 17, existing)

	if len(first) != len(second) {
		t.Fatalf("len mismatch: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Equal(second[i]) {
			t.Fatalf("slot %d differs: %v vs %v", i, first[i], second[i])
		}
	}
}

// Every offered slot must fit before closing and overlap nothing; every grid
// start not offered must violate one of the two. Brute force against random
// schedules.
func TestAvailableSlotsProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		var existing []models.TimeRange
		for i := 0; i < rng.Intn(8); i++ {
			start := at(t, 9+rng.Intn(8), 30*rng.Intn(2))
			existing = append(existing, models.NewTimeRange(start, 15+15*rng.Intn(8)))
		}
		duration := 15 + 15*rng.Intn(8)

		slots := models.AvailableSlots(day(t), duration, 9, 17, existing)

		offered := make(map[time.Time]bool, len(slots))
		for _, slot := range slots {
			offered[slot] = true
		}

		close := at(t, 17, 0)
		for start := at(t, 9, 0); !start.After(close); start = start.Add(30 * time.Minute) {
			candidate := models.NewTimeRange(start, duration)
			fits := !candidate.End.After(close)
			free := true
			for _, booked := range existing {
				if candidate.Overlaps(booked) {
					free = false
					break
				}
			}
			if offered[start] != (fits && free) {
				t.Fatalf("trial %d: slot %v offered=%v, want fits=%v free=%v (duration=%d existing=%v)",
					trial, start, offered[start], fits, free, duration, existing)
			}
		}
	}
}

func TestCheckAvailabilityReportsConflictsInOrder(t *testing.T) {
	existing := []models.BookedSlot{
		{AppointmentId: 7, Range: models.NewTimeRange(at(t, 9, 0), 60)},
		{AppointmentId: 3, Range: models.NewTimeRange(at(t, 9, 30), 60)},
		{AppointmentId: 5, Range: models.NewTimeRange(at(t, 12, 0), 30)},
	}

	proposed := models.NewTimeRange(at(t, 9, 30), 30)
	available, conflicts := models.CheckAvailability(proposed, existing, 0)
	if available {
		t.Fatalf("expected conflict")
	}
	if len(conflicts) != 2 || conflicts[0] != 7 || conflicts[1] != 3 {
		t.Fatalf("conflicts=%v, want [7 3]", conflicts)
	}
}

func TestCheckAvailabilityExcludesSelf(t *testing.T) {
	existing := []models.BookedSlot{
		{AppointmentId: 11, Range: models.NewTimeRange(at(t, 10, 0), 30)},
	}

	proposed := models.NewTimeRange(at(t, 10, 0), 30)
	available, conflicts := models.CheckAvailability(proposed, existing, 11)
	if !available || len(conflicts) != 0 {
		t.Fatalf("reschedule over own slot reported conflict: %v", conflicts)
	}
}

func TestValidateBooking(t *testing.T) {
	models.SetClock(func() time.Time { return at(t, 8, 0) })
	defer models.SetClock(nil)

	existing := []models.BookedSlot{
		{AppointmentId: 2, Range: models.NewTimeRange(at(t, 10, 0), 30)},
	}

	// too short
	err := models.ValidateBooking(models.NewTimeRange(at(t, 9, 0), 10), existing, 0)
	if !models.IsKind(err, models.ErrInvalidWindow) {
		t.Fatalf("short duration: got %v, want invalid window", err)
	}

	// too long
	err = models.ValidateBooking(models.NewTimeRange(at(t, 9, 0), 481), existing, 0)
	if !models.IsKind(err, models.ErrInvalidWindow) {
		t.Fatalf("long duration: got %v, want invalid window", err)
	}

	// start equals now: not strictly in the future
	err = models.ValidateBooking(models.NewTimeRange(at(t, 8, 0), 30), existing, 0)
	if !models.IsKind(err, models.ErrInvalidWindow) {
		t.Fatalf("start==now: got %v, want invalid window", err)
	}

	// overlap carries the blocking ids
	err = models.ValidateBooking(models.NewTimeRange(at(t, 10, 15), 30), existing, 0)
	if !models.IsKind(err, models.ErrConflict) {
		t.Fatalf("overlap: got %v, want conflict", err)
	}
	var typed *models.Error
	if e, ok := err.(*models.Error); ok {
		typed = e
	}
	if typed == nil || len(typed.ConflictIDs) != 1 || typed.ConflictIDs[0] != 2 {
		t.Fatalf("conflict ids=%v, want [2]", typed)
	}

	// back-to-back is legal
	if err := models.ValidateBooking(models.NewTimeRange(at(t, 10, 30), 30), existing, 0); err != nil {
		t.Fatalf("back-to-back rejected: %v", err)
	}
}
