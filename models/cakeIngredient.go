package models

import (
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CakeIngredient is one recipe line: Quantity of the ingredient consumed per cake unit.
type CakeIngredient struct {
	ID           int             `gorm:"primary_key" json:"id"`
	CakeId       int             `gorm:"not null;uniqueIndex:idx_cake_ingredient" json:"cake_id"`
	Cake         *Cake           `gorm:"foreignKey:CakeId;constraint:OnDelete:CASCADE" json:"-"`
	IngredientId int             `gorm:"not null;uniqueIndex:idx_cake_ingredient;index" json:"ingredient_id"`
	Ingredient   *Ingredient     `gorm:"foreignKey:IngredientId;constraint:OnDelete:CASCADE" json:"ingredient,omitempty"`
	Quantity     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	Unit         string          `gorm:"size:50" json:"unit"`
	AdminId      int             `gorm:"index;not null" json:"admin_id"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// FetchRecipeLines returns the lines of a cake ordered by ingredient id.
// Lock acquisition follows this order, so it must stay stable.
func FetchRecipeLines(tx *gorm.DB, cakeId int) ([]*CakeIngredient, error) {
	var lines []*CakeIngredient
	err := tx.Where("cake_id = ?", cakeId).Order("ingredient_id").Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// FetchRecipeLinesWithIngredient is FetchRecipeLines with the ingredient preloaded, for display.
func FetchRecipeLinesWithIngredient(tx *gorm.DB, cakeId int) ([]*CakeIngredient, error) {
	var lines []*CakeIngredient
	err := tx.Preload("Ingredient").Where("cake_id = ?", cakeId).Order("ingredient_id").Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func FetchRecipeLine(tx *gorm.DB, cakeId, ingredientId int) (*CakeIngredient, error) {
	var line CakeIngredient
	err := tx.Where("cake_id = ? AND ingredient_id = ?", cakeId, ingredientId).First(&line).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("recipe line not found")
		}
		return nil, err
	}
	return &line, nil
}

func CreateRecipeLine(tx *gorm.DB, line *CakeIngredient) error {
	return translateWriteErr(tx.Create(line).Error, "recipe line")
}

func SaveRecipeLine(tx *gorm.DB, line *CakeIngredient) error {
	return tx.Model(line).Select("quantity", "unit", "admin_id").Updates(line).Error
}

func DeleteRecipeLine(tx *gorm.DB, line *CakeIngredient) error {
	return tx.Delete(line).Error
}

// ListIngredientsInCake returns the ingredients the cake's recipe uses.
func ListIngredientsInCake(tx *gorm.DB, cakeId int) ([]*Ingredient, error) {
	var ingredients []*Ingredient
	err := tx.Joins("JOIN cake_ingredients ON cake_ingredients.ingredient_id = ingredients.id").
		Where("cake_ingredients.cake_id = ?", cakeId).
		Order("ingredients.name").
		Find(&ingredients).Error
	if err != nil {
		return nil, err
	}
	return ingredients, nil
}
