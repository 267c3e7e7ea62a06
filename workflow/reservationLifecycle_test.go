package workflow

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"bitbucket.org/mmdatafocus/bakery_backend/config"
	"bitbucket.org/mmdatafocus/bakery_backend/models"
	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newOrder(cakeId, quantity int) models.NewReservation {
	return models.NewReservation{CakeId: intPtr(cakeId), Quantity: intPtr(quantity)}
}

func TestReserveThenCancelRestoresQuantity(t *testing.T) {
	db := openTestDB(t)
	admin := seedPrincipal(t, db, "admin", RoleAdmin)
	customer := seedPrincipal(t, db, "ana", RoleCustomer)
	cake := seedCake(t, db, admin, "Savarina", 3)
	lifecycle := NewReservationLifecycle(db, testLogger(), config.Policy{})

	reservation, err := lifecycle.Create(context.Background(), customer, newOrder(cake.ID, 2))
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusPlaced, reservation.Status)
	assert.Equal(t, customer.UserId, reservation.CustomerId)
	assert.Equal(t, 1, quantityOf(t, db, cake.ID))

	cancelled, err := lifecycle.UpdateStatus(context.Background(), admin, reservation.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusCancelled, cancelled.Status)
	assert.Equal(t, 3, quantityOf(t, db, cake.ID))

	events, err := models.ListOutboxRecords(db, "reservation", reservation.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.EventTypeReservationPlaced, events[0].EventType)
	assert.Equal(t, models.EventTypeReservationStatusChanged, events[1].EventType)
}

func TestPickupKeepsQuantityConsumed(t *testing.T) {
	db := openTestDB(t)
	admin := seedPrincipal(t, db, "admin", RoleAdmin)
	customer := seedPrincipal(t, db, "ana", RoleCustomer)
	cake := seedCake(t, db, admin, "Savarina", 3)
	lifecycle := NewReservationLifecycle(db, testLogger(), config.Policy{})

	reservation, err := lifecycle.Create(context.Background(), customer, newOrder(cake.ID, 3))
	require.NoError(t, err)
	assert.Equal(t, 0, quantityOf(t, db, cake.ID))

	_, err = lifecycle.UpdateStatus(context.Background(), admin, reservation.ID, " Picked_Up ")
	require.NoError(t, err)
	assert.Equal(t, 0, quantityOf(t, db, cake.ID))

	stored, err := models.FetchReservation(db, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusPickedUp, stored.Status)
}

func TestReserveOutOfStockCreatesNothing(t *testing.T) {
	db := openTestDB(t)
	admin := seedPrincipal(t, db, "admin", RoleAdmin)
	customer := seedPrincipal(t, db, "ana", RoleCustomer)
	cake := seedCake(t, db, admin, "Savarina", 0)
	lifecycle := NewReservationLifecycle(db, testLogger(), config.Policy{})

	_, err := lifecycle.Create(context.Background(), customer, newOrder(cake.ID, 1))
	assert.ErrorIs(t, err, utils.ErrOutOfStock)
	assert.EqualValues(t, 0, countRows[models.Reservation](t, db))
	assert.Equal(t, 0, quantityOf(t, db, cake.ID))
}

func TestReserveRejections(t *testing.T) {
	db := openTestDB(t)
	admin := seedPrincipal(t, db, "admin", RoleAdmin)
	customer := seedPrincipal(t, db, "ana", RoleCustomer)
	cake := seedCake(t, db, admin, "Savarina", 2)
	lifecycle := NewReservationLifecycle(db, testLogger(), config.Policy{})

	tests := []struct {
		name   string
		caller *Principal
		input  models.NewReservation
		want   error
	}{
		{"missing cake", customer, models.NewReservation{Quantity: intPtr(1)}, utils.ErrValidation},
		{"missing quantity", customer, models.NewReservation{CakeId: intPtr(cake.ID)}, utils.ErrValidation},
		{"missing fields before role", admin, models.NewReservation{}, utils.ErrValidation},
		{"admin cannot reserve", admin, newOrder(cake.ID, 1), utils.ErrForbidden},
		{"anonymous", nil, newOrder(cake.ID, 1), utils.ErrForbidden},
		{"unknown cake", customer, newOrder(999, 1), utils.ErrNotFound},
		{"zero quantity", customer, newOrder(cake.ID, 0), utils.ErrValidation},
		{"negative quantity", customer, newOrder(cake.ID, -2), utils.ErrValidation},
		{"more than available", customer, newOrder(cake.ID, 3), utils.ErrInsufficientStock},
		{"bad date", customer, models.NewReservation{CakeId: intPtr(cake.ID), Quantity: intPtr(1), Date: "18/10/2026"}, utils.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lifecycle.Create(context.Background(), tt.caller, tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.EqualValues(t, 0, countRows[models.Reservation](t, db))
	assert.Equal(t, 2, quantityOf(t, db, cake.ID))
}

func TestReserveStoresDate(t *testing.T) {
	db := openTestDB(t)
	admin := seedPrincipal(t, db, "admin", RoleAdmin)
	customer := seedPrincipal(t, db, "ana", RoleCustomer)
	cake := seedCake(t, db, admin, "Savarina", 2)
	lifecycle := NewReservationLifecycle(db, testLogger(), config.Policy{})

	input := newOrder(cake.ID, 1)
	input.Date = "2026-10-20"
	reservation, err := lifecycle.Create(context.Background(), customer, input)
	require.NoError(t, err)
	require.NotNil(t, reservation.Date)
	assert.Equal(t, "2026-10-20", reservation.Date.Format("2006-01-02"))
}

func TestStatusTransitionsAreOneWay(t *testing.T) {
	db := openTestDB(t)
	admin := seedPrincipal(t, db, "admin", RoleAdmin)
	customer := seedPrincipal(t, db, "ana", RoleCustomer)
	cake := seedCake(t, db, admin, "Savarina", 5)
	lifecycle := NewReservationLifecycle(db, testLogger(), config.Policy{})
	ctx := context.Background()

	reservation, err := lifecycle.Create(ctx, customer, newOrder(cake.ID, 2))
	require.NoError(t, err)

	_, err = lifecycle.UpdateStatus(ctx, admin, reservation.ID, "placed")
	assert.ErrorIs(t, err, utils.ErrValidation)
	_, err = lifecycle.UpdateStatus(ctx, admin, reservation.ID, "baked")
	assert.ErrorIs(t, err, utils.ErrValidation)
	_, err = lifecycle.UpdateStatus(ctx, admin, 999, "cancelled")
	assert.ErrorIs(t, err, utils.ErrNotFound)

	_, err = lifecycle.UpdateStatus(ctx, admin, reservation.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, 5, quantityOf(t, db, cake.ID))

	// a second cancel must not restore the units again
	_, err = lifecycle.UpdateStatus(ctx, admin, reservation.ID, "cancelled")
	assert.ErrorIs(t, err, utils.ErrValidation)
	_, err = lifecycle.UpdateStatus(ctx, admin, reservation.ID, "picked_up")
	assert.ErrorIs(t, err, utils.ErrValidation)
	assert.Equal(t, 5, quantityOf(t, db, cake.ID))
}

func TestCustomerCancelFollowsPolicy(t *testing.T) {
	db := openTestDB(t)
	admin := seedPrincipal(t, db, "admin", RoleAdmin)
	ana := seedPrincipal(t, db, "ana", RoleCustomer)
	ion := seedPrincipal(t, db, "ion", RoleCustomer)
	cake := seedCake(t, db, admin, "Savarina", 5)
	ctx := context.Background()

	strict := NewReservationLifecycle(db, testLogger(), config.Policy{})
	reservation, err := strict.Create(ctx, ana, newOrder(cake.ID, 1))
	require.NoError(t, err)
	_, err = strict.Cancel(ctx, ana, reservation.ID)
	assert.ErrorIs(t, err, utils.ErrForbidden)

	relaxed := NewReservationLifecycle(db, testLogger(), config.Policy{CustomerSelfCancel: true})
	_, err = relaxed.UpdateStatus(ctx, ana, reservation.ID, "picked_up")
	assert.ErrorIs(t, err, utils.ErrForbidden)
	_, err = relaxed.Cancel(ctx, ion, reservation.ID)
	assert.ErrorIs(t, err, utils.ErrForbidden)

	_, err = relaxed.Cancel(ctx, ana, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, quantityOf(t, db, cake.ID))
}

func TestConcurrentReservationsNeverOversell(t *testing.T) {
	db := openTestDB(t)
	admin := seedPrincipal(t, db, "admin", RoleAdmin)
	cake := seedCake(t, db, admin, "Savarina", 5)
	lifecycle := NewReservationLifecycle(db, testLogger(), config.Policy{})

	customers := make([]*Principal, 8)
	for i := range customers {
		customers[i] = seedPrincipal(t, db, "customer"+string(rune('a'+i)), RoleCustomer)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	placed := 0
	for _, c := range customers {
		wg.Add(1)
		go func(c *Principal) {
			defer wg.Done()
			_, err := lifecycle.Create(context.Background(), c, newOrder(cake.ID, 2))
			if err == nil {
				mu.Lock()
				placed++
				mu.Unlock()
				return
			}
			kind := utils.ErrorKind(err)
			assert.True(t, kind == utils.ErrInsufficientStock || kind == utils.ErrOutOfStock, "unexpected error %v", err)
		}(c)
	}
	wg.Wait()

	assert.Equal(t, 2, placed)
	assert.Equal(t, 1, quantityOf(t, db, cake.ID))
	assert.EqualValues(t, 2, countRows[models.Reservation](t, db))
}

func TestReservationListsAndReports(t *testing.T) {
	db := openTestDB(t)
	admin := seedPrincipal(t, db, "admin", RoleAdmin)
	ana := seedPrincipal(t, db, "ana", RoleCustomer)
	ion := seedPrincipal(t, db, "ion", RoleCustomer)
	cake := seedCake(t, db, admin, "Savarina", 10)
	lifecycle := NewReservationLifecycle(db, testLogger(), config.Policy{})
	ctx := context.Background()

	first, err := lifecycle.Create(ctx, ana, newOrder(cake.ID, 2))
	require.NoError(t, err)
	_, err = lifecycle.Create(ctx, ion, newOrder(cake.ID, 1))
	require.NoError(t, err)
	_, err = lifecycle.UpdateStatus(ctx, admin, first.ID, "picked_up")
	require.NoError(t, err)

	open, err := lifecycle.ListForAdmin(ctx, admin)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "ion", open[0].CustomerName)

	mine, err := lifecycle.ListForCustomer(ctx, ana)
	require.NoError(t, err)
	assert.Empty(t, mine)

	_, err = lifecycle.ListForAdmin(ctx, ana)
	assert.ErrorIs(t, err, utils.ErrForbidden)
	_, err = lifecycle.ListForCustomer(ctx, admin)
	assert.ErrorIs(t, err, utils.ErrForbidden)

	bought, err := lifecycle.ListBoughtCakesForCustomer(ctx, ana)
	require.NoError(t, err)
	require.Len(t, bought, 1)
	assert.Equal(t, 2, bought[0].Quantity)

	var buf bytes.Buffer
	require.NoError(t, lifecycle.ExportBoughtCakes(ctx, admin, &buf))
	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	rows, err := book.GetRows("Sheet1")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	assert.ErrorIs(t, lifecycle.ExportBoughtCakes(ctx, ana, &bytes.Buffer{}), utils.ErrForbidden)
}
