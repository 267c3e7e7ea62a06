package workflow

import (
	"bitbucket.org/mmdatafocus/bakery_backend/models"
	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Stock ledger: the only code that writes ingredients.stock_quantity.
// Every function runs on the caller's transaction and locks the ingredient row it touches.

func IncreaseStock(tx *gorm.DB, ingredientId int, amount decimal.Decimal) (*models.Ingredient, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	ingredient, err := models.FetchIngredientForUpdate(tx, ingredientId)
	if err != nil {
		return nil, err
	}
	if err := models.SetIngredientStock(tx, ingredient, ingredient.StockQuantity.Add(amount)); err != nil {
		return nil, err
	}
	return ingredient, nil
}

// DecreaseStock fails with InsufficientStock, and writes nothing, when amount exceeds the stock.
func DecreaseStock(tx *gorm.DB, ingredientId int, amount decimal.Decimal) (*models.Ingredient, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	ingredient, err := models.FetchIngredientForUpdate(tx, ingredientId)
	if err != nil {
		return nil, err
	}
	remaining := ingredient.StockQuantity.Sub(amount)
	if remaining.IsNegative() {
		return nil, &utils.InsufficientStockError{Shortages: []utils.Shortage{shortageOf(ingredient, amount)}}
	}
	if err := models.SetIngredientStock(tx, ingredient, remaining); err != nil {
		return nil, err
	}
	return ingredient, nil
}

// CheckSufficiency reports whether the ingredient holds at least amount. It writes nothing.
func CheckSufficiency(tx *gorm.DB, ingredientId int, amount decimal.Decimal) (bool, error) {
	ingredient, err := models.FetchIngredient(tx, ingredientId)
	if err != nil {
		return false, err
	}
	return ingredient.StockQuantity.GreaterThanOrEqual(amount), nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return utils.Validation("amount must be greater than 0")
	}
	if !utils.FitsQuantityScale(amount) {
		return utils.Validation("amount allows at most %d decimal places", utils.QuantityScale)
	}
	return nil
}

func shortageOf(ingredient *models.Ingredient, required decimal.Decimal) utils.Shortage {
	return utils.Shortage{
		IngredientId: ingredient.ID,
		Name:         ingredient.Name,
		Unit:         ingredient.Unit,
		Required:     required,
		Available:    ingredient.StockQuantity,
	}
}
