package workflow

import (
	"io"
	"strconv"
	"testing"

	"bitbucket.org/mmdatafocus/bakery_backend/config"
	"bitbucket.org/mmdatafocus/bakery_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenSQLite("file::memory:")
	require.NoError(t, err)
	require.NoError(t, models.MigrateTable(db))
	require.NoError(t, models.SeedRights(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

var phoneSeq = 100000

// seedPrincipal creates a user holding the given roles and returns the matching principal.
func seedPrincipal(t *testing.T, db *gorm.DB, name string, roles ...Role) *Principal {
	t.Helper()
	phoneSeq++
	user := &models.User{
		Name:     name,
		Email:    name + "@example.ro",
		Password: "x",
		Phone:    "0722" + strconv.Itoa(phoneSeq),
	}
	require.NoError(t, models.CreateUser(db, user))
	codes := make([]models.RightCode, 0, len(roles))
	for _, r := range roles {
		require.NoError(t, models.GrantRight(db, user.ID, models.RightCode(r)))
		codes = append(codes, models.RightCode(r))
	}
	return NewPrincipal(user, codes)
}

func seedCake(t *testing.T, db *gorm.DB, admin *Principal, name string, qty int) *models.Cake {
	t.Helper()
	cake := &models.Cake{
		Name:          name,
		Description:   "test cake",
		Price:         decimal.NewFromInt(50),
		Photo:         "cakes/" + name + ".png",
		TotalQuantity: qty,
		GramsPerPiece: 500,
		PricePerKg:    decimal.NewFromInt(100),
		AdminId:       admin.UserId,
	}
	require.NoError(t, models.CreateCake(db, cake))
	return cake
}

func seedIngredient(t *testing.T, db *gorm.DB, admin *Principal, name string, stock string) *models.Ingredient {
	t.Helper()
	ing := &models.Ingredient{Name: name, Unit: "g", StockQuantity: decimal.RequireFromString(stock), AdminId: admin.UserId}
	require.NoError(t, models.CreateIngredient(db, ing))
	return ing
}

func seedLine(t *testing.T, db *gorm.DB, admin *Principal, cake *models.Cake, ing *models.Ingredient, perUnit string) {
	t.Helper()
	_, err := UpsertLine(db, admin.UserId, cake.ID, ing.ID, decimal.RequireFromString(perUnit))
	require.NoError(t, err)
}

func stockOf(t *testing.T, db *gorm.DB, id int) decimal.Decimal {
	t.Helper()
	ing, err := models.FetchIngredient(db, id)
	require.NoError(t, err)
	return ing.StockQuantity
}

func quantityOf(t *testing.T, db *gorm.DB, id int) int {
	t.Helper()
	cake, err := models.FetchCake(db, id)
	require.NoError(t, err)
	return cake.TotalQuantity
}

func countRows[T any](t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var model T
	var count int64
	require.NoError(t, db.Model(&model).Count(&count).Error)
	return count
}

func intPtr(v int) *int { return &v }
