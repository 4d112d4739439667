package handlers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/clinic_backend/models"
	"github.com/gin-gonic/gin"
)

func CreateShopOrderHandler(c *gin.Context) {
	var input models.NewShopOrder
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithBindingError(c, err)
		return
	}
	invoice, err := models.CreateShopOrder(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}
