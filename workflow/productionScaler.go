package workflow

import (
	"context"

	"bitbucket.org/mmdatafocus/bakery_backend/config"
	"bitbucket.org/mmdatafocus/bakery_backend/models"
	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// ProductionScaler bakes batches: it converts ingredient stock into cake availability.
type ProductionScaler struct {
	db     *gorm.DB
	logger *logrus.Logger
	policy config.Policy
	tracer trace.Tracer
}

func NewProductionScaler(db *gorm.DB, logger *logrus.Logger, policy config.Policy) *ProductionScaler {
	return &ProductionScaler{db: db, logger: loggerOrDefault(logger), policy: policy, tracer: newTracer()}
}

type Consumption struct {
	IngredientId int             `json:"ingredient_id"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	Amount       decimal.Decimal `json:"amount"`
	Remaining    decimal.Decimal `json:"remaining"`
}

type ProductionResult struct {
	Cake     *models.Cake  `json:"cake"`
	Consumed []Consumption `json:"consumed"`
}

type cakeProducedEvent struct {
	CakeId        int           `json:"cake_id"`
	BatchSize     int           `json:"batch_size"`
	TotalQuantity int           `json:"total_quantity"`
	ProducedBy    int           `json:"produced_by"`
	Consumed      []Consumption `json:"consumed"`
}

// Produce adds batchSize units to the cake and deducts perUnit*batchSize of every recipe ingredient.
// Either the whole batch is recorded or nothing is: all shortages are reported together and no row changes.
func (s *ProductionScaler) Produce(ctx context.Context, p *Principal, cakeId int, batchSize int) (*ProductionResult, error) {
	ctx, span := s.tracer.Start(ctx, "production.produce")
	defer span.End()
	span.SetAttributes(
		attribute.Int("cake.id", cakeId),
		attribute.Int("production.batch_size", batchSize),
	)

	result, err := s.produce(ctx, p, cakeId, batchSize)
	finishSpan(span, err)
	fields := logrus.Fields{"cake_id": cakeId, "batch_size": batchSize}
	if err != nil {
		logFailure(s.logger, "ProductionScaler", "Produce", fields, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("cake.total_quantity", result.Cake.TotalQuantity))
	s.logger.WithFields(fields).WithField("total_quantity", result.Cake.TotalQuantity).Info("cake batch produced")
	return result, nil
}

func (s *ProductionScaler) produce(ctx context.Context, p *Principal, cakeId int, batchSize int) (*ProductionResult, error) {
	if err := RequireRole(p, RoleAdmin); err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		return nil, utils.Validation("batch size must be greater than 0")
	}

	return InTransaction(ctx, s.db, func(tx *gorm.DB) (*ProductionResult, error) {
		// lock order: cake, then ingredients by ascending id
		cake, err := models.FetchCakeForUpdate(tx, cakeId)
		if err != nil {
			return nil, err
		}
		if err := requireOwner(s.policy, p, cake.AdminId, "cake"); err != nil {
			return nil, err
		}
		lines, err := LinesFor(tx, cakeId)
		if err != nil {
			return nil, err
		}

		// validation pass
		var shortages []utils.Shortage
		for _, line := range lines {
			ingredient, err := models.FetchIngredientForUpdate(tx, line.IngredientId)
			if err != nil {
				return nil, err
			}
			required := utils.RequiredAmount(line.PerUnit, batchSize)
			if ingredient.StockQuantity.LessThan(required) {
				shortages = append(shortages, shortageOf(ingredient, required))
			}
		}
		if len(shortages) > 0 {
			return nil, &utils.InsufficientStockError{Shortages: shortages}
		}

		// mutation pass
		consumed := make([]Consumption, 0, len(lines))
		for _, line := range lines {
			required := utils.RequiredAmount(line.PerUnit, batchSize)
			if !required.IsPositive() {
				continue
			}
			ingredient, err := DecreaseStock(tx, line.IngredientId, required)
			if err != nil {
				return nil, err
			}
			consumed = append(consumed, Consumption{
				IngredientId: ingredient.ID,
				Name:         ingredient.Name,
				Unit:         ingredient.Unit,
				Amount:       required,
				Remaining:    ingredient.StockQuantity,
			})
		}

		if err := models.SetCakeQuantity(tx, cake, cake.TotalQuantity+batchSize); err != nil {
			return nil, err
		}

		event := cakeProducedEvent{
			CakeId:        cake.ID,
			BatchSize:     batchSize,
			TotalQuantity: cake.TotalQuantity,
			ProducedBy:    p.UserId,
			Consumed:      consumed,
		}
		if err := models.WriteOutboxEvent(ctx, tx, models.EventTypeCakeProduced, "cake", cake.ID, event); err != nil {
			return nil, err
		}
		return &ProductionResult{Cake: cake, Consumed: consumed}, nil
	})
}
