package models

import (
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Cake struct {
	ID            int             `gorm:"primary_key" json:"id"`
	Name          string          `gorm:"size:255;not null;unique" json:"name"`
	Description   string          `gorm:"type:text" json:"description"`
	Price         decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"price"`
	Photo         string          `gorm:"size:255" json:"photo"`
	PhotoThumb    string          `gorm:"size:255" json:"photo_thumbnail"`
	TotalQuantity int             `gorm:"not null;default:0" json:"total_quantity"`
	GramsPerPiece int             `gorm:"not null" json:"grams_per_piece"`
	Kcal          decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"kcal"`
	PricePerKg    decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"price_per_kg"`
	AdminId       int             `gorm:"index;not null" json:"admin_id"`
	Admin         *User           `gorm:"foreignKey:AdminId;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCake struct {
	Name          string          `json:"name" validate:"required"`
	Description   string          `json:"description" validate:"required"`
	Price         decimal.Decimal `json:"price"`
	Kcal          decimal.Decimal `json:"kcal"`
	GramsPerPiece int             `json:"grams_per_piece"`
	Photo         string          `json:"photo"`
	PhotoThumb    string          `json:"photo_thumbnail"`
}

// Validate checks input for both create and update (id = 0 for create).
func (input *NewCake) Validate(tx *gorm.DB, id int) error {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)

	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if !input.Price.IsPositive() {
		return utils.Validation("price must be greater than 0")
	}
	if input.Kcal.IsNegative() {
		return utils.Validation("kcal must not be negative")
	}
	if input.GramsPerPiece <= 0 {
		return utils.Validation("grams_per_piece must be greater than 0")
	}
	if id == 0 && strings.TrimSpace(input.Photo) == "" {
		return utils.Validation("photo is required")
	}
	if err := ValidateUnique[Cake](tx, "name", input.Name, id); err != nil {
		return uniqueConflict(err, "cake name already exists")
	}
	return nil
}

// Apply copies the editable fields onto cake and recomputes price_per_kg.
// total_quantity is never touched here.
func (input *NewCake) Apply(cake *Cake) {
	cake.Name = input.Name
	cake.Description = input.Description
	cake.Price = input.Price
	cake.Kcal = input.Kcal
	cake.GramsPerPiece = input.GramsPerPiece
	cake.PricePerKg = utils.PricePerKg(input.Price, input.GramsPerPiece)
	if strings.TrimSpace(input.Photo) != "" {
		cake.Photo = input.Photo
		cake.PhotoThumb = input.PhotoThumb
	}
}

func CreateCake(tx *gorm.DB, cake *Cake) error {
	return translateWriteErr(tx.Create(cake).Error, "cake name")
}

func SaveCakeDetails(tx *gorm.DB, cake *Cake) error {
	err := tx.Model(cake).Select(
		"name", "description", "price", "kcal", "grams_per_piece", "price_per_kg", "photo", "photo_thumb",
	).Updates(cake).Error
	return translateWriteErr(err, "cake name")
}

func FetchCake(tx *gorm.DB, id int) (*Cake, error) {
	return fetchOne[Cake](tx, "cake", id)
}

// FetchCakeForUpdate loads the cake row and holds its lock until tx ends.
func FetchCakeForUpdate(tx *gorm.DB, id int) (*Cake, error) {
	return fetchOne[Cake](forUpdate(tx), "cake", id)
}

// SetCakeQuantity writes an already validated availability. Callers must hold the row lock.
func SetCakeQuantity(tx *gorm.DB, cake *Cake, quantity int) error {
	if quantity < 0 {
		return utils.Validation("cake quantity cannot be negative")
	}
	if err := tx.Model(cake).Update("total_quantity", quantity).Error; err != nil {
		return err
	}
	cake.TotalQuantity = quantity
	return nil
}

func DeleteCake(tx *gorm.DB, cake *Cake) error {
	return tx.Delete(cake).Error
}

func ListCakes(tx *gorm.DB) ([]*Cake, error) {
	var cakes []*Cake
	if err := tx.Order("name").Find(&cakes).Error; err != nil {
		return nil, err
	}
	return cakes, nil
}

// ListCakesInStock returns cakes with at least one unit available.
func ListCakesInStock(tx *gorm.DB) ([]*Cake, error) {
	var cakes []*Cake
	if err := tx.Where("total_quantity > 0").Order("name").Find(&cakes).Error; err != nil {
		return nil, err
	}
	return cakes, nil
}
