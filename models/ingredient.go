package models

import (
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Ingredient struct {
	ID            int             `gorm:"primary_key" json:"id"`
	Name          string          `gorm:"size:255;not null;unique" json:"name"`
	StockQuantity decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"stock_quantity"`
	Unit          string          `gorm:"size:50;not null" json:"unit"`
	AdminId       int             `gorm:"index;not null" json:"admin_id"`
	Admin         *User           `gorm:"foreignKey:AdminId;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewIngredient struct {
	Name string `json:"name" validate:"required"`
	Unit string `json:"unit" validate:"required"`
}

// Validate checks input for both create and update (id = 0 for create).
func (input *NewIngredient) Validate(tx *gorm.DB, id int) error {
	input.Name = strings.TrimSpace(input.Name)
	input.Unit = strings.TrimSpace(input.Unit)
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if err := ValidateUnique[Ingredient](tx, "name", input.Name, id); err != nil {
		return uniqueConflict(err, "ingredient name already exists")
	}
	return nil
}

func CreateIngredient(tx *gorm.DB, ingredient *Ingredient) error {
	return translateWriteErr(tx.Create(ingredient).Error, "ingredient name")
}

// SaveIngredientDetails updates name and unit only; stock moves through the ledger.
func SaveIngredientDetails(tx *gorm.DB, ingredient *Ingredient) error {
	err := tx.Model(ingredient).Select("name", "unit").Updates(ingredient).Error
	return translateWriteErr(err, "ingredient name")
}

func FetchIngredient(tx *gorm.DB, id int) (*Ingredient, error) {
	return fetchOne[Ingredient](tx, "ingredient", id)
}

// FetchIngredientForUpdate loads the ingredient row and holds its lock until tx ends.
func FetchIngredientForUpdate(tx *gorm.DB, id int) (*Ingredient, error) {
	return fetchOne[Ingredient](forUpdate(tx), "ingredient", id)
}

// SetIngredientStock writes an already validated stock level. Callers must hold the row lock.
func SetIngredientStock(tx *gorm.DB, ingredient *Ingredient, stock decimal.Decimal) error {
	if stock.IsNegative() {
		return utils.Validation("ingredient stock cannot be negative")
	}
	if err := tx.Model(ingredient).Update("stock_quantity", stock).Error; err != nil {
		return err
	}
	ingredient.StockQuantity = stock
	return nil
}

func DeleteIngredient(tx *gorm.DB, ingredient *Ingredient) error {
	return tx.Delete(ingredient).Error
}

func ListIngredients(tx *gorm.DB) ([]*Ingredient, error) {
	var ingredients []*Ingredient
	if err := tx.Order("name").Find(&ingredients).Error; err != nil {
		return nil, err
	}
	return ingredients, nil
}

// ListIngredientsNotInCake returns ingredients without a recipe line for cakeId.
func ListIngredientsNotInCake(tx *gorm.DB, cakeId int) ([]*Ingredient, error) {
	var ingredients []*Ingredient
	err := tx.Where("id NOT IN (?)", tx.Model(&CakeIngredient{}).Select("ingredient_id").Where("cake_id = ?", cakeId)).
		Order("name").
		Find(&ingredients).Error
	if err != nil {
		return nil, err
	}
	return ingredients, nil
}
