package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/clinic_backend/config"
	"bitbucket.org/mmdatafocus/clinic_backend/utils"
	"gorm.io/gorm"
)

type Appointment struct {
	ID              int               `gorm:"primary_key" json:"id"`
	PetId           int               `gorm:"index;not null" json:"pet_id" binding:"required"`
	Pet             *Pet              `gorm:"foreignKey:PetId" json:"pet,omitempty"`
	UserId          int               `gorm:"index;not null" json:"user_id" binding:"required"`
	VeterinarianId  int               `gorm:"index;not null" json:"veterinarian_id" binding:"required"`
	Veterinarian    *User             `gorm:"foreignKey:VeterinarianId" json:"veterinarian,omitempty"`
	AppointmentDate time.Time         `gorm:"index;not null" json:"appointment_date" binding:"required"`
	DurationMinutes int               `gorm:"not null;default:30" json:"duration_minutes"`
	Type            AppointmentType   `gorm:"type:enum('checkup','surgery','vaccination','grooming','emergency','other');default:checkup" json:"type"`
	Status          AppointmentStatus `gorm:"type:enum('pending','confirmed','completed','cancelled','no_show');default:pending" json:"status"`
	Reason          string            `gorm:"type:text" json:"reason"`
	Notes           string            `gorm:"type:text" json:"notes"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt    `gorm:"index" json:"-"`
}

type NewAppointment struct {
	PetId           int             `json:"pet_id" binding:"required"`
	UserId          int             `json:"user_id" binding:"required"`
	VeterinarianId  int             `json:"veterinarian_id" binding:"required"`
	AppointmentDate time.Time       `json:"appointment_date" binding:"required"`
	DurationMinutes int             `json:"duration_minutes"`
	Type            AppointmentType `json:"type"`
	Reason          string          `json:"reason"`
	Notes           string          `json:"notes"`
}

func (a *Appointment) Range() TimeRange {
	return NewTimeRange(a.AppointmentDate, a.DurationMinutes)
}

func validateAppointmentRefs(ctx context.Context, petId int, userId int, veterinarianId int) error {
	if err := utils.ValidateResourceId[Pet](ctx, petId); err != nil {
		return NewError(ErrNotFound, "pet %d not found", petId)
	}
	if err := utils.ValidateResourceId[User](ctx, userId); err != nil {
		return NewError(ErrNotFound, "user %d not found", userId)
	}
	count, err := utils.ResourceCountWhere[User](ctx, "id = ? AND role = ?", veterinarianId, UserRoleVeterinarian)
	if err != nil {
		return WrapStorageError(err)
	}
	if count <= 0 {
		return NewError(ErrNotFound, "veterinarian %d not found", veterinarianId)
	}
	return nil
}

// CreateAppointment books a slot. The conflict check and the insert run in
// one transaction, serialized per (veterinarian, day) through a redis lock
// so two racing requests cannot both pass validation.
func CreateAppointment(ctx context.Context, input *NewAppointment) (*Appointment, error) {

	if input.DurationMinutes == 0 {
		input.DurationMinutes = 30
	}
	if input.Type == "" {
		input.Type = AppointmentTypeCheckup
	}
	if !input.Type.Valid() {
		return nil, NewError(ErrInvalidWindow, "invalid appointment type %q", input.Type)
	}

	if err := validateAppointmentRefs(ctx, input.PetId, input.UserId, input.VeterinarianId); err != nil {
		return nil, err
	}

	release, err := utils.ScheduleLock(ctx, input.VeterinarianId, input.AppointmentDate, "appointment", "CreateAppointment")
	if err != nil {
		return nil, err
	}
	defer release()

	appointment := Appointment{
		PetId:           input.PetId,
		UserId:          input.UserId,
		VeterinarianId:  input.VeterinarianId,
		AppointmentDate: input.AppointmentDate,
		DurationMinutes: input.DurationMinutes,
		Type:            input.Type,
		Status:          AppointmentStatusPending,
		Reason:          input.Reason,
		Notes:           input.Notes,
	}

	err = runInTx(ctx, func(tx *gorm.DB) error {
		existing, err := fetchBlockingBookings(tx, input.VeterinarianId, input.AppointmentDate)
		if err != nil {
			return err
		}
		if err := ValidateBooking(appointment.Range(), existing, 0); err != nil {
			return err
		}
		return tx.Create(&appointment).Error
	})
	if err != nil {
		return nil, err
	}

	invalidateSlotCache(input.VeterinarianId, input.AppointmentDate)

	return &appointment, nil
}

// UpdateAppointment reschedules or edits a booking. When the time window or
// veterinarian changes, the new window is re-validated under the schedule
// lock with the appointment itself excluded from the conflict set.
func UpdateAppointment(ctx context.Context, id int, input *NewAppointment) (*Appointment, error) {

	db := config.GetDB()

	var appointment Appointment
	if err := db.WithContext(ctx).First(&appointment, id).Error; err != nil {
		return nil, NewError(ErrNotFound, "appointment %d not found", id)
	}
	if appointment.Status == AppointmentStatusCompleted || appointment.Status == AppointmentStatusCancelled {
		return nil, NewError(ErrInvalidTransition, "cannot edit a %s appointment", appointment.Status)
	}

	if input.DurationMinutes == 0 {
		input.DurationMinutes = appointment.DurationMinutes
	}
	if input.Type == "" {
		input.Type = appointment.Type
	}
	if !input.Type.Valid() {
		return nil, NewError(ErrInvalidWindow, "invalid appointment type %q", input.Type)
	}
	if input.PetId == 0 {
		input.PetId = appointment.PetId
	}
	if input.UserId == 0 {
		input.UserId = appointment.UserId
	}
	if input.VeterinarianId == 0 {
		input.VeterinarianId = appointment.VeterinarianId
	}
	if input.AppointmentDate.IsZero() {
		input.AppointmentDate = appointment.AppointmentDate
	}

	if err := validateAppointmentRefs(ctx, input.PetId, input.UserId, input.VeterinarianId); err != nil {
		return nil, err
	}

	rescheduled := !input.AppointmentDate.Equal(appointment.AppointmentDate) ||
		input.DurationMinutes != appointment.DurationMinutes ||
		input.VeterinarianId != appointment.VeterinarianId

	release, err := utils.ScheduleLock(ctx, input.VeterinarianId, input.AppointmentDate, "appointment", "UpdateAppointment")
	if err != nil {
		return nil, err
	}
	defer release()

	previousVet := appointment.VeterinarianId
	previousDate := appointment.AppointmentDate

	err = runInTx(ctx, func(tx *gorm.DB) error {
		if rescheduled {
			existing, err := fetchBlockingBookings(tx, input.VeterinarianId, input.AppointmentDate)
			if err != nil {
				return err
			}
			proposed := NewTimeRange(input.AppointmentDate, input.DurationMinutes)
			if err := ValidateBooking(proposed, existing, appointment.ID); err != nil {
				return err
			}
		}

		appointment.PetId = input.PetId
		appointment.UserId = input.UserId
		appointment.VeterinarianId = input.VeterinarianId
		appointment.AppointmentDate = input.AppointmentDate
		appointment.DurationMinutes = input.DurationMinutes
		appointment.Type = input.Type
		appointment.Reason = input.Reason
		appointment.Notes = input.Notes

		return tx.Save(&appointment).Error
	})
	if err != nil {
		return nil, err
	}

	invalidateSlotCache(previousVet, previousDate)
	invalidateSlotCache(appointment.VeterinarianId, appointment.AppointmentDate)

	return &appointment, nil
}

/* Lifecycle transitions */

// transitionAppointment flips status with a guarded UPDATE: the WHERE
// clause carries the allowed source statuses, so a lost race surfaces as
// zero affected rows instead of a double transition.
func transitionAppointment(ctx context.Context, id int, from []AppointmentStatus, to AppointmentStatus) (*Appointment, error) {

	db := config.GetDB()

	result := db.WithContext(ctx).Model(&Appointment{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return nil, WrapStorageError(result.Error)
	}

	var appointment Appointment
	if err := db.WithContext(ctx).First(&appointment, id).Error; err != nil {
		return nil, NewError(ErrNotFound, "appointment %d not found", id)
	}

	if result.RowsAffected == 0 {
		return nil, NewError(ErrInvalidTransition,
			"appointment %d cannot move from %s to %s", id, appointment.Status, to)
	}

	if !to.Blocking() {
		invalidateSlotCache(appointment.VeterinarianId, appointment.AppointmentDate)
	}

	return &appointment, nil
}

func ConfirmAppointment(ctx context.Context, id int) (*Appointment, error) {
	return transitionAppointment(ctx, id,
		[]AppointmentStatus{AppointmentStatusPending},
		AppointmentStatusConfirmed)
}

func CompleteAppointment(ctx context.Context, id int) (*Appointment, error) {
	return transitionAppointment(ctx, id,
		[]AppointmentStatus{AppointmentStatusPending, AppointmentStatusConfirmed},
		AppointmentStatusCompleted)
}

func CancelAppointment(ctx context.Context, id int) (*Appointment, error) {
	return transitionAppointment(ctx, id,
		[]AppointmentStatus{AppointmentStatusPending, AppointmentStatusConfirmed, AppointmentStatusNoShow},
		AppointmentStatusCancelled)
}

func MarkNoShowAppointment(ctx context.Context, id int) (*Appointment, error) {
	return transitionAppointment(ctx, id,
		[]AppointmentStatus{AppointmentStatusConfirmed},
		AppointmentStatusNoShow)
}

/* Queries */

func GetAppointment(ctx context.Context, id int) (*Appointment, error) {
	appointment, err := utils.FetchModel[Appointment](ctx, id, "Pet", "Veterinarian")
	if err != nil {
		return nil, NewError(ErrNotFound, "appointment %d not found", id)
	}
	if appointment.Veterinarian != nil {
		appointment.Veterinarian.PrepareGive()
	}
	return appointment, nil
}

func GetAllAppointments(ctx context.Context) ([]*Appointment, error) {

	db := config.GetDB()
	var results []*Appointment

	err := db.WithContext(ctx).
		Preload("Pet").Preload("Veterinarian").
		Order("appointment_date DESC").
		Find(&results).Error
	if err != nil {
		return nil, WrapStorageError(err)
	}
	for _, a := range results {
		if a.Veterinarian != nil {
			a.Veterinarian.PrepareGive()
		}
	}
	return results, nil
}

// GetAppointmentsByVetAndDay lists one veterinarian's bookings on a day.
func GetAppointmentsByVetAndDay(ctx context.Context, veterinarianId int, day time.Time) ([]*Appointment, error) {

	db := config.GetDB()
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var results []*Appointment
	err := db.WithContext(ctx).
		Where("veterinarian_id = ?", veterinarianId).
		Where("appointment_date >= ? AND appointment_date < ?", dayStart, dayEnd).
		Order("appointment_date").
		Find(&results).Error
	if err != nil {
		return nil, WrapStorageError(err)
	}
	return results, nil
}

func DeleteAppointment(ctx context.Context, id int) (*Appointment, error) {

	db := config.GetDB()

	var appointment Appointment
	if err := db.WithContext(ctx).First(&appointment, id).Error; err != nil {
		return nil, NewError(ErrNotFound, "appointment %d not found", id)
	}

	if err := db.WithContext(ctx).Delete(&appointment).Error; err != nil {
		return nil, WrapStorageError(err)
	}

	invalidateSlotCache(appointment.VeterinarianId, appointment.AppointmentDate)

	return &appointment, nil
}
