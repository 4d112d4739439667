package handlers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/clinic_backend/models"
	"github.com/gin-gonic/gin"
)

func ListInvoicesHandler(c *gin.Context) {
	if c.Query("filter") == "overdue" {
		invoices, err := models.GetOverdueInvoices(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoices)
		return
	}

	invoices, err := models.GetAllInvoices(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoices)
}

func GetInvoiceHandler(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	invoice, err := models.GetInvoice(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func CreateInvoiceHandler(c *gin.Context) {
	var input models.NewInvoice
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithBindingError(c, err)
		return
	}
	invoice, err := models.CreateInvoice(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

func UpdateInvoiceHandler(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	var input models.InvoiceMetadataUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithBindingError(c, err)
		return
	}
	invoice, err := models.UpdateInvoiceMetadata(c.Request.Context(), id, &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func CancelInvoiceHandler(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	invoice, err := models.CancelInvoice(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func MarkOverdueInvoicesHandler(c *gin.Context) {
	count, err := models.MarkOverdueInvoices(c.Request.Context(), models.Now())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked_overdue": count})
}
