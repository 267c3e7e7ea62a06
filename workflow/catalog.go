package workflow

import (
	"context"

	"bitbucket.org/mmdatafocus/bakery_backend/config"
	"bitbucket.org/mmdatafocus/bakery_backend/models"
	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const cakePhotoFolder = "cakes"

// Catalog manages cakes, ingredients and recipes.
type Catalog struct {
	db     *gorm.DB
	logger *logrus.Logger
	policy config.Policy
	photos utils.PhotoStore
}

func NewCatalog(db *gorm.DB, logger *logrus.Logger, policy config.Policy, photos utils.PhotoStore) *Catalog {
	return &Catalog{db: db, logger: loggerOrDefault(logger), policy: policy, photos: photos}
}

func requireSignedIn(p *Principal) error {
	if p == nil || len(p.Roles) == 0 {
		return utils.Forbidden("access denied")
	}
	return nil
}

/* cakes */

// CreateCake stores photo (when given) and the cake. The photo is removed again if the cake is rejected.
func (c *Catalog) CreateCake(ctx context.Context, p *Principal, input models.NewCake, photo []byte) (*models.Cake, error) {
	if err := RequireRole(p, RoleAdmin); err != nil {
		return nil, err
	}
	stored, err := c.savePhoto(ctx, photo)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		input.Photo, input.PhotoThumb = stored.URL, stored.ThumbnailURL
	}

	cake, err := InTransaction(ctx, c.db, func(tx *gorm.DB) (*models.Cake, error) {
		if err := input.Validate(tx, 0); err != nil {
			return nil, err
		}
		cake := &models.Cake{AdminId: p.UserId, TotalQuantity: 0}
		input.Apply(cake)
		if err := models.CreateCake(tx, cake); err != nil {
			return nil, err
		}
		return cake, nil
	})
	if err != nil {
		c.discardPhoto(ctx, stored)
		logFailure(c.logger, "Catalog", "CreateCake", logrus.Fields{"name": input.Name}, err)
		return nil, err
	}
	return cake, nil
}

// UpdateCake edits the cake's details; total_quantity is left alone. The old photo is kept unless a new one is given.
func (c *Catalog) UpdateCake(ctx context.Context, p *Principal, id int, input models.NewCake, photo []byte) (*models.Cake, error) {
	if err := RequireRole(p, RoleAdmin); err != nil {
		return nil, err
	}
	stored, err := c.savePhoto(ctx, photo)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		input.Photo, input.PhotoThumb = stored.URL, stored.ThumbnailURL
	}

	cake, err := InTransaction(ctx, c.db, func(tx *gorm.DB) (*models.Cake, error) {
		cake, err := models.FetchCakeForUpdate(tx, id)
		if err != nil {
			return nil, err
		}
		if err := requireOwner(c.policy, p, cake.AdminId, "cake"); err != nil {
			return nil, err
		}
		if err := input.Validate(tx, id); err != nil {
			return nil, err
		}
		input.Apply(cake)
		if err := models.SaveCakeDetails(tx, cake); err != nil {
			return nil, err
		}
		return cake, nil
	})
	if err != nil {
		c.discardPhoto(ctx, stored)
		logFailure(c.logger, "Catalog", "UpdateCake", logrus.Fields{"cake_id": id}, err)
		return nil, err
	}
	return cake, nil
}

// DeleteCake refuses while any reservation, in any status, references the cake.
func (c *Catalog) DeleteCake(ctx context.Context, p *Principal, id int) (*models.Cake, error) {
	if err := RequireRole(p, RoleAdmin); err != nil {
		return nil, err
	}
	cake, err := InTransaction(ctx, c.db, func(tx *gorm.DB) (*models.Cake, error) {
		cake, err := models.FetchCakeForUpdate(tx, id)
		if err != nil {
			return nil, err
		}
		if err := requireOwner(c.policy, p, cake.AdminId, "cake"); err != nil {
			return nil, err
		}
		count, err := models.CountReservationsForCake(tx, id)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, utils.Conflict("cake has reservations")
		}
		if err := models.DeleteCake(tx, cake); err != nil {
			return nil, err
		}
		return cake, nil
	})
	if err != nil {
		logFailure(c.logger, "Catalog", "DeleteCake", logrus.Fields{"cake_id": id}, err)
		return nil, err
	}
	return cake, nil
}

func (c *Catalog) GetCake(ctx context.Context, p *Principal, id int) (*models.Cake, error) {
	if err := requireSignedIn(p); err != nil {
		return nil, err
	}
	return models.FetchCake(c.db.WithContext(ctx), id)
}

func (c *Catalog) ListCakes(ctx context.Context, p *Principal) ([]*models.Cake, error) {
	if err := RequireRole(p, RoleAdmin); err != nil {
		return nil, err
	}
	return models.ListCakes(c.db.WithContext(ctx))
}

// ListAvailableCakes is the customer menu: cakes with units left.
func (c *Catalog) ListAvailableCakes(ctx context.Context, p *Principal) ([]*models.Cake, error) {
	if err := RequireRole(p, RoleCustomer); err != nil {
		return nil, err
	}
	return models.ListCakesInStock(c.db.WithContext(ctx))
}

// ListRemainingCakes is the admin view of cakes with units left.
func (c *Catalog) ListRemainingCakes(ctx context.Context, p *Principal) ([]*models.Cake, error) {
	if err := RequireRole(p, RoleAdmin); err != nil {
		return nil, err
	}
	return models.ListCakesInStock(c.db.WithContext(ctx))
}

// UploadCakePhoto stores a photo without attaching it to a cake.
func (c *Catalog) UploadCakePhoto(ctx context.Context, p *Principal, photo []byte) (*utils.StoredPhoto, error) {
	if err := RequireRole(p, RoleAdmin); err != nil {
		return nil, err
	}
	if len(photo) == 0 {
		return nil, utils.Validation("photo is required")
	}
	return c.savePhoto(ctx, photo)
}

func (c *Catalog) savePhoto(ctx context.Context, photo []byte) (*utils.StoredPhoto, error) {
	if len(photo) == 0 {
		return nil, nil
	}
	if c.photos == nil {
		return nil, utils.Validation("photo uploads are not configured")
	}
	return c.photos.Save(ctx, cakePhotoFolder, photo)
}

func (c *Catalog) discardPhoto(ctx context.Context, stored *utils.StoredPhoto) {
	if stored == nil || c.photos == nil {
		return
	}
	if err := c.photos.Delete(ctx, stored.ObjectKey); err != nil {
		config.LogError(c.logger, "Catalog", "discardPhoto", "removing orphaned photo", stored.ObjectKey, err)
	}
}

/* ingredients */

func (c *Catalog) CreateIngredient(ctx context.Context, p *Principal, input models.NewIngredient) (*models.Ingredient, error) {
	if err := RequireRole(p, RoleAdmin); err != nil {
		return nil, err
	}
	ingredient, err := InTransaction(ctx, c.db, func(tx *gorm.DB) (*models.Ingredient, error) {
		if err := input.Validate(tx, 0); err != nil {
			return nil, err
		}
		ingredient := &models.Ingredient{
			Name:          input.Name,
			Unit:          input.Unit,
			StockQuantity: decimal.Zero,
			AdminId:       p.UserId,
		}
		if err := models.CreateIngredient(tx, ingredient); err != nil {
			return nil, err
		}
		return ingredient, nil
	})
	if err != nil {
		logFailure(c.logger, "Catalog", "CreateIngredient", logrus.Fields{"name": input.Name}, err)
		return nil, err
	}
	return ingredient, nil
}

func (c *Catalog) UpdateIngredient(ctx context.Context, p *Principal, id int, input models.NewIngredient) (*models.Ingredient, error) {
	if err := RequireRole(p, RoleAdmin); err != nil {
		return nil, err
	}
	ingredient, err := InTransaction(ctx, c.db, func(tx *gorm.DB) (*models.Ingredient, error) {
		ingredient, err := models.FetchIngredientForUpdate(tx, id)
		if err != nil {
			return nil, err
		}
		if err := requireOwner(c.policy, p, ingredient.AdminId, "ingredient"); err != nil {
			return nil, err
		}
		if err := input.Validate(tx, id); err != nil {
			return nil, err
		}
		ingredient.Name = input.Name
		ingredient.Unit = input.Unit
		if err := models.SaveIngredientDetails(tx, ingredient); err != nil {
			return nil, err
		}
		return ingredient, nil
	})
	if err != nil {
		logFailure(c.logger, "Catalog", "UpdateIngredient", logrus.Fields{"ingredient_id": id}, err)
		return nil, err
	}
	return ingredient, nil
}

// DeleteIngredient removes the ingredient and, through the foreign key, its recipe lines.
func (c *Catalog) DeleteIngredient(ctx context.Context, p *Principal, id int) (*models.Ingredient, error) {
	if err := RequireRole(p, RoleAdmin); err != nil {
		return nil, err
	}
	ingredient, err := InTransaction(ctx, c.db, func(tx *gorm.DB) (*models.Ingredient, error) {
		ingredient, err := models.FetchIngredientForUpdate(tx, id)
		if err != nil {
			return nil, err
		}
		if err := requireOwner(c.policy, p, ingredient.AdminId, "ingredient"); err != nil {
			return nil, err
		}
		if err := models.DeleteIngredient(tx, ingredient); err != nil {
			return nil, err
		}
		return ingredient, nil
	})
	if err != nil {
		logFailure(c.logger, "Catalog", "DeleteIngredient", logrus.Fields{"ingredient_id": id}, err)
		return nil, err
	}
	return ingredient, nil
}

func (c *Catalog) GetIngredient(ctx context.Context, p *Principal, id int) (*models.Ingredient, error) {
	if err := RequireRole(p, RoleAdmin); err != nil {
		return nil, err
	}
	return models.FetchIngredient(c.db.WithContext(ctx), id)
}

func (c *Catalog) ListIngredients(ctx context.Context, p *Principal) ([]*models.Ingredient, error) {
	if err := RequireRole(p, RoleAdmin); err != nil {
		return nil, err
	}
	return models.ListIngredients(c.db.WithContext(ctx))
}

func (c *Catalog) ListIngredientsInCake(ctx context.Context, p *Principal, cakeId int) ([]*models.Ingredient, error) {
	if err := RequireRole(p, RoleAdmin); err != nil {
		return nil, err
	}
	db := c.db.WithContext(ctx)
	if _, err := models.FetchCake(db, cakeId); err != nil {
		return nil, err
	}
	return models.ListIngredientsInCake(db, cakeId)
}

func (c *Catalog) ListIngredientsNotInCake(ctx context.Context, p *Principal, cakeId int) ([]*models.Ingredient, error) {
	if err := RequireRole(p, RoleAdmin); err != nil {
		return nil, err
	}
	db := c.db.WithContext(ctx)
	if _, err := models.FetchCake(db, cakeId); err != nil {
		return nil, err
	}
	return models.ListIngredientsNotInCake(db, cakeId)
}

type stockAdjustedEvent struct {
	IngredientId int             `json:"ingredient_id"`
	Delta        decimal.Decimal `json:"delta"`
	Stock        decimal.Decimal `json:"stock"`
	AdjustedBy   int             `json:"adjusted_by"`
}

// IncreaseStock records a delivery of amount units.
func (c *Catalog) IncreaseStock(ctx context.Context, p *Principal, ingredientId int, amount decimal.Decimal) (*models.Ingredient, error) {
	return c.adjustStock(ctx, p, ingredientId, amount, IncreaseStock)
}

// DecreaseStock writes off amount units; it never drives the stock below zero.
func (c *Catalog) DecreaseStock(ctx context.Context, p *Principal, ingredientId int, amount decimal.Decimal) (*models.Ingredient, error) {
	return c.adjustStock(ctx, p, ingredientId, amount.Neg(), func(tx *gorm.DB, id int, delta decimal.Decimal) (*models.Ingredient, error) {
		return DecreaseStock(tx, id, delta.Neg())
	})
}

func (c *Catalog) adjustStock(ctx context.Context, p *Principal, ingredientId int, delta decimal.Decimal,
	apply func(tx *gorm.DB, id int, delta decimal.Decimal) (*models.Ingredient, error)) (*models.Ingredient, error) {
	if err := RequireRole(p, RoleAdmin); err != nil {
		return nil, err
	}
	ingredient, err := InTransaction(ctx, c.db, func(tx *gorm.DB) (*models.Ingredient, error) {
		current, err := models.FetchIngredientForUpdate(tx, ingredientId)
		if err != nil {
			return nil, err
		}
		if err := requireOwner(c.policy, p, current.AdminId, "ingredient"); err != nil {
			return nil, err
		}
		ingredient, err := apply(tx, ingredientId, delta)
		if err != nil {
			return nil, err
		}
		event := stockAdjustedEvent{IngredientId: ingredient.ID, Delta: delta, Stock: ingredient.StockQuantity, AdjustedBy: p.UserId}
		if err := models.WriteOutboxEvent(ctx, tx, models.EventTypeIngredientStockAdjusted, "ingredient", ingredient.ID, event); err != nil {
			return nil, err
		}
		return ingredient, nil
	})
	if err != nil {
		logFailure(c.logger, "Catalog", "adjustStock", logrus.Fields{"ingredient_id": ingredientId, "delta": delta.String()}, err)
		return nil, err
	}
	return ingredient, nil
}

/* recipes */

// CakeRecipe is a cake with its recipe lines.
type CakeRecipe struct {
	Cake  *models.Cake             `json:"cake"`
	Lines []*models.CakeIngredient `json:"lines"`
}

func (c *Catalog) UpsertRecipeLine(ctx context.Context, p *Principal, cakeId, ingredientId int, quantity decimal.Decimal) (*models.CakeIngredient, error) {
	if err := RequireRole(p, RoleAdmin); err != nil {
		return nil, err
	}
	line, err := InTransaction(ctx, c.db, func(tx *gorm.DB) (*models.CakeIngredient, error) {
		if err := c.requireCakeOwner(tx, p, cakeId); err != nil {
			return nil, err
		}
		return UpsertLine(tx, p.UserId, cakeId, ingredientId, quantity)
	})
	if err != nil {
		logFailure(c.logger, "Catalog", "UpsertRecipeLine", logrus.Fields{"cake_id": cakeId, "ingredient_id": ingredientId}, err)
		return nil, err
	}
	return line, nil
}

func (c *Catalog) RemoveRecipeLine(ctx context.Context, p *Principal, cakeId, ingredientId int) error {
	if err := RequireRole(p, RoleAdmin); err != nil {
		return err
	}
	err := WithTransaction(ctx, c.db, func(tx *gorm.DB) error {
		if err := c.requireCakeOwner(tx, p, cakeId); err != nil {
			return err
		}
		return RemoveLine(tx, cakeId, ingredientId)
	})
	if err != nil {
		logFailure(c.logger, "Catalog", "RemoveRecipeLine", logrus.Fields{"cake_id": cakeId, "ingredient_id": ingredientId}, err)
	}
	return err
}

func (c *Catalog) requireCakeOwner(tx *gorm.DB, p *Principal, cakeId int) error {
	if !c.policy.OwnerScopedAdmin {
		return nil
	}
	cake, err := models.FetchCake(tx, cakeId)
	if err != nil {
		return err
	}
	return requireOwner(c.policy, p, cake.AdminId, "cake")
}

func (c *Catalog) ListRecipeLines(ctx context.Context, p *Principal, cakeId int) ([]*models.CakeIngredient, error) {
	if err := RequireRole(p, RoleAdmin); err != nil {
		return nil, err
	}
	db := c.db.WithContext(ctx)
	if _, err := models.FetchCake(db, cakeId); err != nil {
		return nil, err
	}
	return models.FetchRecipeLinesWithIngredient(db, cakeId)
}

func (c *Catalog) ListRecipes(ctx context.Context, p *Principal) ([]*CakeRecipe, error) {
	if err := RequireRole(p, RoleAdmin); err != nil {
		return nil, err
	}
	db := c.db.WithContext(ctx)
	cakes, err := models.ListCakes(db)
	if err != nil {
		return nil, err
	}
	recipes := make([]*CakeRecipe, 0, len(cakes))
	for _, cake := range cakes {
		lines, err := models.FetchRecipeLinesWithIngredient(db, cake.ID)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, &CakeRecipe{Cake: cake, Lines: lines})
	}
	return recipes, nil
}
