package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/clinic_backend/config"
	"gorm.io/gorm"
)

const (
	MinAppointmentMinutes = 15
	MaxAppointmentMinutes = 480
)

// BookedSlot is an existing appointment's claim on a veterinarian's time.
type BookedSlot struct {
	AppointmentId int
	Range         TimeRange
}

// AvailableSlots returns the start times a booking of durationMinutes can
// take on the given day. Candidate starts sit on the fixed grid from
// openHour to closeHour; a slot is offered iff it ends by closing time and
// overlaps none of the existing bookings. Pure and order-stable: same
// inputs, same output.
func AvailableSlots(day time.Time, durationMinutes int, openHour int, closeHour int, existing []TimeRange) []time.Time {

	open := time.Date(day.Year(), day.Month(), day.Day(), openHour, 0, 0, 0, day.Location())
	close := time.Date(day.Year(), day.Month(), day.Day(), closeHour, 0, 0, 0, day.Location())
	duration := time.Duration(durationMinutes) * time.Minute
	step := time.Duration(config.SlotStepMinutes) * time.Minute

	var slots []time.Time
	for start := open; !start.After(close); start = start.Add(step) {
		end := start.Add(duration)
		if end.After(close) {
			break
		}
		candidate := TimeRange{Start: start, End: end}
		free := true
		for _, booked := range existing {
			if candidate.Overlaps(booked) {
				free = false
				break
			}
		}
		if free {
			slots = append(slots, start)
		}
	}
	return slots
}

// CheckAvailability reports whether the proposed range is free, and the ids
// of the bookings it collides with (in input order). excludeAppointmentId
// skips the booking being rescheduled; pass 0 for new bookings.
func CheckAvailability(proposed TimeRange, existing []BookedSlot, excludeAppointmentId int) (bool, []int) {
	var conflicts []int
	for _, booked := range existing {
		if booked.AppointmentId == excludeAppointmentId {
			continue
		}
		if proposed.Overlaps(booked.Range) {
			conflicts = append(conflicts, booked.AppointmentId)
		}
	}
	return len(conflicts) == 0, conflicts
}

// ValidateBooking rejects windows that are malformed (duration out of range
// or start not strictly in the future) and windows that collide with
// existing bookings.
func ValidateBooking(proposed TimeRange, existing []BookedSlot, excludeAppointmentId int) error {
	minutes := proposed.DurationMinutes()
	if minutes < MinAppointmentMinutes || minutes > MaxAppointmentMinutes {
		return NewError(ErrInvalidWindow,
			"duration must be between %d and %d minutes", MinAppointmentMinutes, MaxAppointmentMinutes)
	}
	if !proposed.Start.After(Now()) {
		return NewError(ErrInvalidWindow, "appointment must start in the future")
	}
	if ok, conflicts := CheckAvailability(proposed, existing, excludeAppointmentId); !ok {
		return NewConflictError(conflicts)
	}
	return nil
}

// fetchBlockingBookings loads the schedule-blocking appointments of one
// veterinarian on one calendar day, ordered by start time.
func fetchBlockingBookings(tx *gorm.DB, veterinarianId int, day time.Time) ([]BookedSlot, error) {

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var rows []Appointment
	err := tx.
		Where("veterinarian_id = ?", veterinarianId).
		Where("status NOT IN ?", []AppointmentStatus{AppointmentStatusCancelled, AppointmentStatusNoShow}).
		Where("appointment_date >= ? AND appointment_date < ?", dayStart, dayEnd).
		Order("appointment_date").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	slots := make([]BookedSlot, 0, len(rows))
	for _, row := range rows {
		slots = append(slots, BookedSlot{
			AppointmentId: row.ID,
			Range:         NewTimeRange(row.AppointmentDate, row.DurationMinutes),
		})
	}
	return slots, nil
}

func slotCacheKey(veterinarianId int, day time.Time, durationMinutes int) string {
	return fmt.Sprintf("slots:%d:%s:%d", veterinarianId, day.Format("2006-01-02"), durationMinutes)
}

// invalidateSlotCache drops every cached slot list for the vet/day.
// Duration is part of the key, so clear the common durations.
func invalidateSlotCache(veterinarianId int, day time.Time) {
	keys := make([]string, 0, MaxAppointmentMinutes/MinAppointmentMinutes)
	for d := MinAppointmentMinutes; d <= MaxAppointmentMinutes; d += MinAppointmentMinutes {
		keys = append(keys, slotCacheKey(veterinarianId, day, d))
	}
	_ = config.RemoveRedisKey(keys...)
}

// GetAvailableSlots answers "when can vet X see us on day Y for Z minutes".
// Results are cached briefly in redis; booking mutations invalidate the
// cache for their vet/day.
func GetAvailableSlots(ctx context.Context, veterinarianId int, day time.Time, durationMinutes int) ([]time.Time, error) {

	if durationMinutes < MinAppointmentMinutes || durationMinutes > MaxAppointmentMinutes {
		return nil, NewError(ErrInvalidWindow,
			"duration must be between %d and %d minutes", MinAppointmentMinutes, MaxAppointmentMinutes)
	}

	cacheKey := slotCacheKey(veterinarianId, day, durationMinutes)
	var cached []time.Time
	if exists, err := config.GetRedisObject(cacheKey, &cached); err == nil && exists {
		return cached, nil
	}

	db := config.GetDB()
	existingSlots, err := fetchBlockingBookings(db.WithContext(ctx), veterinarianId, day)
	if err != nil {
		return nil, WrapStorageError(err)
	}

	existing := make([]TimeRange, 0, len(existingSlots))
	for _, slot := range existingSlots {
		existing = append(existing, slot.Range)
	}

	slots := AvailableSlots(day, durationMinutes, config.ClinicOpenHour(), config.ClinicCloseHour(), existing)

	_ = config.SetRedisObject(cacheKey, slots, 30*time.Second)

	return slots, nil
}

// GetAvailability checks one proposed window against the vet's schedule
// without mutating anything.
func GetAvailability(ctx context.Context, veterinarianId int, start time.Time, durationMinutes int, excludeAppointmentId int) (bool, []int, error) {

	db := config.GetDB()
	existing, err := fetchBlockingBookings(db.WithContext(ctx), veterinarianId, start)
	if err != nil {
		return false, nil, WrapStorageError(err)
	}
	available, conflicts := CheckAvailability(NewTimeRange(start, durationMinutes), existing, excludeAppointmentId)
	return available, conflicts, nil
}
