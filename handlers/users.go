package handlers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/clinic_backend/models"
	"github.com/gin-gonic/gin"
)

func ListUsersHandler(c *gin.Context) {
	users, err := models.GetAllUsers(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func ListVeterinariansHandler(c *gin.Context) {
	vets, err := models.GetVeterinarians(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, vets)
}

func GetUserHandler(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	user, err := models.GetUser(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func UpdateUserHandler(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	var input models.User
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithBindingError(c, err)
		return
	}
	user, err := input.UpdateUser(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func DeleteUserHandler(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	user, err := models.DeleteUser(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
