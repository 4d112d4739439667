package models

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/clinic_backend/config"
	"bitbucket.org/mmdatafocus/clinic_backend/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type User struct {
	ID        int            `gorm:"primary_key" json:"id"`
	Name      string         `gorm:"size:100;not null" json:"name" binding:"required"`
	Email     string         `gorm:"size:100;not null;unique" json:"email" binding:"required"`
	Password  string         `gorm:"size:255;not null" json:"-"`
	Role      UserRole       `gorm:"type:enum('admin','veterinarian','receptionist','owner');default:owner" json:"role"`
	Phone     string         `gorm:"size:20" json:"phone"`
	Address   string         `gorm:"type:text" json:"address"`
	IsActive  *bool          `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type NewUser struct {
	Name     string   `json:"name" binding:"required"`
	Email    string   `json:"email" binding:"required"`
	Password string   `json:"password" binding:"required"`
	Role     UserRole `json:"role"`
	Phone    string   `json:"phone"`
	Address  string   `json:"address"`
	IsActive *bool    `json:"is_active"`
}

type LoginInfo struct {
	Token string   `json:"token"`
	Name  string   `json:"name"`
	Role  UserRole `json:"role"`
}

func (result *User) PrepareGive() {
	result.Password = ""
}

func Login(ctx context.Context, email string, password string) (*LoginInfo, error) {

	db := config.GetDB()
	var result LoginInfo

	user := User{}
	err := db.WithContext(ctx).Model(&User{}).Where("email = ?", strings.ToLower(email)).Take(&user).Error
	if err != nil {
		return &result, errors.New("invalid email or password")
	}

	// check login credentials
	err = utils.ComparePassword(user.Password, password)
	if err != nil && err == bcrypt.ErrMismatchedHashAndPassword {
		return &result, errors.New("invalid email or password")
	}

	if user.IsActive != nil && !*user.IsActive {
		return &result, errors.New("user is disabled")
	}

	token, err := utils.JwtGenerate(user.ID, user.Name, string(user.Role))
	if err != nil {
		return &result, err
	}

	result.Token = token
	result.Name = user.Name
	result.Role = user.Role

	return &result, nil
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {

	db := config.GetDB()
	var count int64

	if !utils.IsValidEmail(input.Email) {
		return nil, errors.New("invalid email address")
	}
	input.Email = strings.ToLower(input.Email)

	if input.Role == "" {
		input.Role = UserRoleOwner
	}
	if !input.Role.Valid() {
		return nil, errors.New("invalid role")
	}

	err := db.WithContext(ctx).Model(&User{}).Where("email = ?", input.Email).Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("duplicate email")
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	isActive := input.IsActive
	if isActive == nil {
		isActive = utils.NewTrue()
	}

	user := User{
		Name:     html.EscapeString(strings.TrimSpace(input.Name)),
		Email:    input.Email,
		Password: string(hashedPassword),
		Role:     input.Role,
		Phone:    input.Phone,
		Address:  input.Address,
		IsActive: isActive,
	}

	err = db.WithContext(ctx).Create(&user).Error
	if err != nil {
		return nil, err
	}
	user.PrepareGive()
	return &user, nil
}

func GetUser(ctx context.Context, id int) (*User, error) {

	db := config.GetDB()
	var result User

	err := db.WithContext(ctx).First(&result, id).Error
	if err != nil {
		return nil, NewError(ErrNotFound, "user %d not found", id)
	}

	result.PrepareGive()

	return &result, nil
}

func GetAllUsers(ctx context.Context) ([]*User, error) {

	db := config.GetDB()
	var results []*User

	if err := db.WithContext(ctx).Find(&results).Error; err != nil {
		return nil, WrapStorageError(err)
	}

	for _, u := range results {
		u.PrepareGive()
	}

	return results, nil
}

// GetVeterinarians lists active users that can hold appointments.
func GetVeterinarians(ctx context.Context) ([]*User, error) {

	db := config.GetDB()
	var results []*User

	err := db.WithContext(ctx).
		Where("role = ? AND is_active = ?", UserRoleVeterinarian, true).
		Order("name").
		Find(&results).Error
	if err != nil {
		return nil, WrapStorageError(err)
	}
	for _, u := range results {
		u.PrepareGive()
	}
	return results, nil
}

func (input *User) UpdateUser(ctx context.Context, id int) (*User, error) {

	db := config.GetDB()
	var count int64

	err := db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, NewError(ErrNotFound, "user %d not found", id)
	}

	if err = db.WithContext(ctx).Model(&User{}).
		Where("email = ?", input.Email).
		Not("id = ?", id).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("duplicate email")
	}

	input.ID = id
	err = db.WithContext(ctx).Model(&input).
		Updates(User{Name: input.Name, Email: input.Email, Phone: input.Phone, Address: input.Address, IsActive: input.IsActive}).Error
	if err != nil {
		return nil, err
	}
	input.PrepareGive()
	return input, nil
}

func DeleteUser(ctx context.Context, id int) (*User, error) {

	db := config.GetDB()
	var user User

	err := db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, NewError(ErrNotFound, "user %d not found", id)
	}

	err = db.WithContext(ctx).Delete(&user).Error
	if err != nil {
		return nil, WrapStorageError(err)
	}
	user.PrepareGive()
	return &user, nil
}

func ChangePassword(ctx context.Context, oldPassword string, newPassword string) (*User, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == 0 {
		return nil, errors.New("user id is required")
	}

	var user User
	db := config.GetDB()
	if err := db.WithContext(ctx).First(&user, userId).Error; err != nil {
		return nil, err
	}
	// check oldPassword
	if err := utils.ComparePassword(user.Password, oldPassword); err != nil {
		return nil, errors.New("old password is wrong")
	}

	hashedPassword, err := utils.HashPassword(newPassword)
	if err != nil {
		return nil, err
	}

	if err := db.WithContext(ctx).Model(&user).UpdateColumn("password", string(hashedPassword)).Error; err != nil {
		return nil, err
	}

	user.PrepareGive()
	return &user, nil
}
