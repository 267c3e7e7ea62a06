package models

import (
	"errors"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type User struct {
	ID        int        `gorm:"primary_key" json:"id"`
	Name      string     `gorm:"size:255;not null" json:"name"`
	Email     string     `gorm:"size:255;not null;unique" json:"email"`
	Password  string     `gorm:"size:255;not null" json:"-"`
	Phone     string     `gorm:"size:20;not null;unique" json:"phone"`
	LastLogin *time.Time `json:"last_login"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type Right struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:255;not null;unique" json:"name"`
	RightCode RightCode `gorm:"not null;unique" json:"right_code"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type UserRight struct {
	ID        int       `gorm:"primary_key" json:"id"`
	UserId    int       `gorm:"not null;uniqueIndex:idx_user_right" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserId;constraint:OnDelete:CASCADE" json:"-"`
	RightId   int       `gorm:"not null;uniqueIndex:idx_user_right" json:"right_id"`
	Right     *Right    `gorm:"foreignKey:RightId;constraint:OnDelete:CASCADE" json:"right,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Name            string `json:"name" validate:"required,min=3"`
	Email           string `json:"email" validate:"required"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
	Phone           string `json:"phone" validate:"required"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Validate checks the registration form, uniqueness of email and phone included.
func (input *NewUser) Validate(tx *gorm.DB) error {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Phone = strings.TrimSpace(input.Phone)

	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if input.Password != input.ConfirmPassword {
		return utils.Validation("passwords do not match")
	}
	if !utils.IsValidEmail(input.Email) {
		return utils.Validation("invalid email address")
	}
	if err := utils.ValidateCustomerPhone(input.Phone); err != nil {
		return err
	}
	if err := ValidateUnique[User](tx, "email", input.Email, 0); err != nil {
		return uniqueConflict(err, "email already registered")
	}
	if err := ValidateUnique[User](tx, "phone", input.Phone, 0); err != nil {
		return uniqueConflict(err, "phone already registered")
	}
	return nil
}

func CreateUser(tx *gorm.DB, user *User) error {
	return translateWriteErr(tx.Create(user).Error, "email or phone")
}

func FetchUser(tx *gorm.DB, id int) (*User, error) {
	return fetchOne[User](tx, "user", id)
}

func FetchUserByEmail(tx *gorm.DB, email string) (*User, error) {
	var user User
	err := tx.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("user not found")
		}
		return nil, err
	}
	return &user, nil
}

func TouchLastLogin(tx *gorm.DB, userId int, at time.Time) error {
	return tx.Model(&User{}).Where("id = ?", userId).Update("last_login", at).Error
}

func FetchRightByCode(tx *gorm.DB, code RightCode) (*Right, error) {
	var right Right
	err := tx.Where("right_code = ?", code).First(&right).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("right %d not found", code)
		}
		return nil, err
	}
	return &right, nil
}

// GrantRight attaches the right to the user; granting twice is a no-op.
func GrantRight(tx *gorm.DB, userId int, code RightCode) error {
	right, err := FetchRightByCode(tx, code)
	if err != nil {
		return err
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&UserRight{UserId: userId, RightId: right.ID}).Error
}

func RevokeRight(tx *gorm.DB, userId int, code RightCode) error {
	right, err := FetchRightByCode(tx, code)
	if err != nil {
		return err
	}
	return tx.Where("user_id = ? AND right_id = ?", userId, right.ID).Delete(&UserRight{}).Error
}

// FetchRightCodes resolves the codes granted to a user, ascending.
func FetchRightCodes(tx *gorm.DB, userId int) ([]RightCode, error) {
	var codes []RightCode
	err := tx.Model(&Right{}).
		Joins("JOIN user_rights ON user_rights.right_id = rights.id").
		Where("user_rights.user_id = ?", userId).
		Order("rights.right_code").
		Pluck("rights.right_code", &codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func FetchUserRights(tx *gorm.DB, userId int) ([]*Right, error) {
	var rights []*Right
	err := tx.Joins("JOIN user_rights ON user_rights.right_id = rights.id").
		Where("user_rights.user_id = ?", userId).
		Order("rights.right_code").
		Find(&rights).Error
	if err != nil {
		return nil, err
	}
	return rights, nil
}
