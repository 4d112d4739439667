package handlers

import (
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/clinic_backend/models"
	"github.com/gin-gonic/gin"
)

func ListPaymentsHandler(c *gin.Context) {
	invoiceId, err := strconv.Atoi(c.Query("invoice_id"))
	if err != nil || invoiceId <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invoice_id is required"})
		return
	}
	payments, err := models.GetPaymentsByInvoice(c.Request.Context(), invoiceId)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

func GetPaymentHandler(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	payment, err := models.GetPayment(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func CreatePaymentHandler(c *gin.Context) {
	var input models.NewPayment
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithBindingError(c, err)
		return
	}
	payment, err := models.CreatePayment(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

func UpdatePaymentHandler(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	var input models.NewPayment
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithBindingError(c, err)
		return
	}
	payment, err := models.UpdatePayment(c.Request.Context(), id, &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func DeletePaymentHandler(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	payment, err := models.DeletePayment(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}
