package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/clinic_backend/config"
	"bitbucket.org/mmdatafocus/clinic_backend/utils"
	"gorm.io/gorm"
)

type Pet struct {
	ID        int            `gorm:"primary_key" json:"id"`
	OwnerId   int            `gorm:"index;not null" json:"owner_id" binding:"required"`
	Owner     *User          `gorm:"foreignKey:OwnerId" json:"owner,omitempty"`
	Name      string         `gorm:"size:100;not null" json:"name" binding:"required"`
	Species   string         `gorm:"size:50;not null" json:"species" binding:"required"`
	Breed     string         `gorm:"size:100" json:"breed"`
	BirthDate *time.Time     `json:"birth_date"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type NewPet struct {
	OwnerId   int        `json:"owner_id" binding:"required"`
	Name      string     `json:"name" binding:"required"`
	Species   string     `json:"species" binding:"required"`
	Breed     string     `json:"breed"`
	BirthDate *time.Time `json:"birth_date"`
}

func CreatePet(ctx context.Context, input *NewPet) (*Pet, error) {

	db := config.GetDB()

	if err := utils.ValidateResourceId[User](ctx, input.OwnerId); err != nil {
		return nil, NewError(ErrNotFound, "owner %d not found", input.OwnerId)
	}

	pet := Pet{
		OwnerId:   input.OwnerId,
		Name:      input.Name,
		Species:   input.Species,
		Breed:     input.Breed,
		BirthDate: input.BirthDate,
	}

	if err := db.WithContext(ctx).Create(&pet).Error; err != nil {
		return nil, WrapStorageError(err)
	}
	return &pet, nil
}

func GetPet(ctx context.Context, id int) (*Pet, error) {
	pet, err := utils.FetchModel[Pet](ctx, id, "Owner")
	if err != nil {
		return nil, NewError(ErrNotFound, "pet %d not found", id)
	}
	if pet.Owner != nil {
		pet.Owner.PrepareGive()
	}
	return pet, nil
}

func GetAllPets(ctx context.Context) ([]*Pet, error) {
	return utils.FetchAllModels[Pet](ctx)
}

// GetPetsByOwner lists the pets of one owner.
func GetPetsByOwner(ctx context.Context, ownerId int) ([]*Pet, error) {

	db := config.GetDB()
	var results []*Pet

	err := db.WithContext(ctx).Where("owner_id = ?", ownerId).Order("name").Find(&results).Error
	if err != nil {
		return nil, WrapStorageError(err)
	}
	return results, nil
}

func (input *Pet) UpdatePet(ctx context.Context, id int) (*Pet, error) {

	db := config.GetDB()

	var pet Pet
	if err := db.WithContext(ctx).First(&pet, id).Error; err != nil {
		return nil, NewError(ErrNotFound, "pet %d not found", id)
	}

	if input.OwnerId != 0 && input.OwnerId != pet.OwnerId {
		if err := utils.ValidateResourceId[User](ctx, input.OwnerId); err != nil {
			return nil, NewError(ErrNotFound, "owner %d not found", input.OwnerId)
		}
	}

	err := db.WithContext(ctx).Model(&pet).
		Updates(Pet{OwnerId: input.OwnerId, Name: input.Name, Species: input.Species, Breed: input.Breed, BirthDate: input.BirthDate}).Error
	if err != nil {
		return nil, WrapStorageError(err)
	}
	return &pet, nil
}

func DeletePet(ctx context.Context, id int) (*Pet, error) {

	db := config.GetDB()

	var pet Pet
	if err := db.WithContext(ctx).First(&pet, id).Error; err != nil {
		return nil, NewError(ErrNotFound, "pet %d not found", id)
	}

	if err := db.WithContext(ctx).Delete(&pet).Error; err != nil {
		return nil, WrapStorageError(err)
	}
	return &pet, nil
}
