package handlers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/clinic_backend/models"
	"bitbucket.org/mmdatafocus/clinic_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// statusFromError maps the typed error taxonomy to HTTP status codes.
func statusFromError(err error) int {
	switch models.KindOf(err) {
	case models.ErrNotFound:
		return http.StatusNotFound
	case models.ErrConflict, models.ErrConcurrencyConflict:
		return http.StatusConflict
	case models.ErrInvalidWindow, models.ErrInvalidTransition,
		models.ErrInvalidLineItem, models.ErrInsufficientStock:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	body := gin.H{"error": err.Error()}
	var typed *models.Error
	if e, ok := err.(*models.Error); ok {
		typed = e
	}
	if typed != nil {
		body["kind"] = typed.Kind
		if len(typed.ConflictIDs) > 0 {
			body["conflicting_appointment_ids"] = typed.ConflictIDs
		}
	}
	c.JSON(statusFromError(err), body)
}

func abortWithBindingError(c *gin.Context, err error) {
	if _, ok := err.(validator.ValidationErrors); ok {
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
