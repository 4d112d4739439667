package handlers

import (
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/clinic_backend/models"
	"github.com/gin-gonic/gin"
)

func ListAppointmentsHandler(c *gin.Context) {
	vetParam := c.Query("veterinarian_id")
	dateParam := c.Query("date")
	if vetParam != "" && dateParam != "" {
		vetId, err := strconv.Atoi(vetParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid veterinarian_id"})
			return
		}
		day, err := time.Parse("2006-01-02", dateParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be yyyy-mm-dd"})
			return
		}
		appointments, err := models.GetAppointmentsByVetAndDay(c.Request.Context(), vetId, day)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, appointments)
		return
	}

	appointments, err := models.GetAllAppointments(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, appointments)
}

func GetAppointmentHandler(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	appointment, err := models.GetAppointment(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, appointment)
}

func CreateAppointmentHandler(c *gin.Context) {
	var input models.NewAppointment
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithBindingError(c, err)
		return
	}
	appointment, err := models.CreateAppointment(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, appointment)
}

func UpdateAppointmentHandler(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	var input models.NewAppointment
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithBindingError(c, err)
		return
	}
	appointment, err := models.UpdateAppointment(c.Request.Context(), id, &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, appointment)
}

func DeleteAppointmentHandler(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	appointment, err := models.DeleteAppointment(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, appointment)
}

func transitionHandler(transition func(c *gin.Context, id int) (*models.Appointment, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c)
		if !ok {
			return
		}
		appointment, err := transition(c, id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, appointment)
	}
}

func ConfirmAppointmentHandler() gin.HandlerFunc {
	return transitionHandler(func(c *gin.Context, id int) (*models.Appointment, error) {
		return models.ConfirmAppointment(c.Request.Context(), id)
	})
}

func CompleteAppointmentHandler() gin.HandlerFunc {
	return transitionHandler(func(c *gin.Context, id int) (*models.Appointment, error) {
		return models.CompleteAppointment(c.Request.Context(), id)
	})
}

func CancelAppointmentHandler() gin.HandlerFunc {
	return transitionHandler(func(c *gin.Context, id int) (*models.Appointment, error) {
		return models.CancelAppointment(c.Request.Context(), id)
	})
}

func MarkNoShowAppointmentHandler() gin.HandlerFunc {
	return transitionHandler(func(c *gin.Context, id int) (*models.Appointment, error) {
		return models.MarkNoShowAppointment(c.Request.Context(), id)
	})
}

/* Scheduling queries */

func AvailableSlotsHandler(c *gin.Context) {
	vetId, err := strconv.Atoi(c.Query("veterinarian_id"))
	if err != nil || vetId <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "veterinarian_id is required"})
		return
	}
	day, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be yyyy-mm-dd"})
		return
	}
	duration, err := strconv.Atoi(c.DefaultQuery("duration_minutes", "30"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid duration_minutes"})
		return
	}

	slots, err := models.GetAvailableSlots(c.Request.Context(), vetId, day, duration)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

func CheckAvailabilityHandler(c *gin.Context) {
	vetId, err := strconv.Atoi(c.Query("veterinarian_id"))
	if err != nil || vetId <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "veterinarian_id is required"})
		return
	}
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be RFC3339"})
		return
	}
	duration, err := strconv.Atoi(c.DefaultQuery("duration_minutes", "30"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid duration_minutes"})
		return
	}
	excludeId, _ := strconv.Atoi(c.DefaultQuery("exclude_appointment_id", "0"))

	available, conflicts, err := models.GetAvailability(c.Request.Context(), vetId, start, duration, excludeId)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"available":                   available,
		"conflicting_appointment_ids": conflicts,
	})
}
