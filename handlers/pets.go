package handlers

import (
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/clinic_backend/models"
	"github.com/gin-gonic/gin"
)

func paramId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func ListPetsHandler(c *gin.Context) {
	if ownerParam := c.Query("owner_id"); ownerParam != "" {
		ownerId, err := strconv.Atoi(ownerParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid owner_id"})
			return
		}
		pets, err := models.GetPetsByOwner(c.Request.Context(), ownerId)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, pets)
		return
	}

	pets, err := models.GetAllPets(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, pets)
}

func GetPetHandler(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	pet, err := models.GetPet(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, pet)
}

func CreatePetHandler(c *gin.Context) {
	var input models.NewPet
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithBindingError(c, err)
		return
	}
	pet, err := models.CreatePet(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, pet)
}

func UpdatePetHandler(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	var input models.Pet
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithBindingError(c, err)
		return
	}
	pet, err := input.UpdatePet(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, pet)
}

func DeletePetHandler(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	pet, err := models.DeletePet(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, pet)
}
