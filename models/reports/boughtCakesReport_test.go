package reports

import (
	"bytes"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/bakery_backend/config"
	"bitbucket.org/mmdatafocus/bakery_backend/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

func seedBoughtCakes(t *testing.T) (*gorm.DB, *models.User, *models.User) {
	t.Helper()
	db, err := config.OpenSQLite("file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, models.MigrateTable(db))

	admin := &models.User{Name: "Admin", Email: "admin@example.ro", Password: "x", Phone: "0722000001"}
	ana := &models.User{Name: "Ana", Email: "ana@example.ro", Password: "x", Phone: "0722000002"}
	ion := &models.User{Name: "Ion", Email: "ion@example.ro", Password: "x", Phone: "0722000003"}
	for _, u := range []*models.User{admin, ana, ion} {
		require.NoError(t, models.CreateUser(db, u))
	}
	cake := &models.Cake{Name: "Amandina", Description: "d", Price: decimal.RequireFromString("12.50"), GramsPerPiece: 100, AdminId: admin.ID}
	require.NoError(t, models.CreateCake(db, cake))

	day := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for _, r := range []*models.Reservation{
		{Quantity: 2, Date: &day, Status: models.ReservationStatusPickedUp, CakeId: cake.ID, CustomerId: ana.ID},
		{Quantity: 1, Status: models.ReservationStatusPickedUp, CakeId: cake.ID, CustomerId: ion.ID},
		{Quantity: 4, Status: models.ReservationStatusPlaced, CakeId: cake.ID, CustomerId: ana.ID},
	} {
		require.NoError(t, models.CreateReservation(db, r))
	}
	return db, ana, ion
}

func TestGetBoughtCakes(t *testing.T) {
	db, ana, _ := seedBoughtCakes(t)

	all, err := GetBoughtCakes(db, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := GetBoughtCakes(db, ana.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Amandina", mine[0].CakeName)
	assert.Equal(t, "0722000002", mine[0].CustomerPhone)
	assert.Equal(t, "25.00", mine[0].Total.StringFixed(2))
}

func TestExportBoughtCakes(t *testing.T) {
	db, _, _ := seedBoughtCakes(t)
	data, err := GetBoughtCakes(db, 0)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ExportBoughtCakes(&buf, data))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, boughtCakeHeadings, rows[0])
	assert.Equal(t, "Amandina", rows[1][1])
}
