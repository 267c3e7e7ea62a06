package workflow

import (
	"bitbucket.org/mmdatafocus/bakery_backend/models"
	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RecipeLine is the amount of one ingredient consumed per cake unit.
type RecipeLine struct {
	IngredientId int             `json:"ingredient_id"`
	PerUnit      decimal.Decimal `json:"per_unit"`
	Unit         string          `json:"unit"`
}

// LinesFor returns the recipe of a cake ordered by ingredient id. An empty recipe is valid.
func LinesFor(tx *gorm.DB, cakeId int) ([]RecipeLine, error) {
	rows, err := models.FetchRecipeLines(tx, cakeId)
	if err != nil {
		return nil, err
	}
	lines := make([]RecipeLine, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, RecipeLine{IngredientId: r.IngredientId, PerUnit: r.Quantity, Unit: r.Unit})
	}
	return lines, nil
}

// UpsertLine sets the per-unit quantity for the (cake, ingredient) pair, creating the line if needed.
func UpsertLine(tx *gorm.DB, adminId, cakeId, ingredientId int, quantity decimal.Decimal) (*models.CakeIngredient, error) {
	if !quantity.IsPositive() {
		return nil, utils.Validation("quantity must be greater than 0")
	}
	if !utils.FitsQuantityScale(quantity) {
		return nil, utils.Validation("quantity allows at most %d decimal places", utils.QuantityScale)
	}
	if _, err := models.FetchCake(tx, cakeId); err != nil {
		return nil, err
	}
	ingredient, err := models.FetchIngredient(tx, ingredientId)
	if err != nil {
		return nil, err
	}

	line, err := models.FetchRecipeLine(tx, cakeId, ingredientId)
	if err != nil && utils.ErrorKind(err) != utils.ErrNotFound {
		return nil, err
	}
	if line == nil {
		line = &models.CakeIngredient{
			CakeId:       cakeId,
			IngredientId: ingredientId,
			Quantity:     quantity,
			Unit:         ingredient.Unit,
			AdminId:      adminId,
		}
		if err := models.CreateRecipeLine(tx, line); err != nil {
			return nil, err
		}
		return line, nil
	}

	line.Quantity = quantity
	line.Unit = ingredient.Unit
	line.AdminId = adminId
	if err := models.SaveRecipeLine(tx, line); err != nil {
		return nil, err
	}
	return line, nil
}

func RemoveLine(tx *gorm.DB, cakeId, ingredientId int) error {
	line, err := models.FetchRecipeLine(tx, cakeId, ingredientId)
	if err != nil {
		return err
	}
	return models.DeleteRecipeLine(tx, line)
}
