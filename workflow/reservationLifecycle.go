package workflow

import (
	"context"
	"io"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/bakery_backend/config"
	"bitbucket.org/mmdatafocus/bakery_backend/models"
	"bitbucket.org/mmdatafocus/bakery_backend/models/reports"
	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const reservationDateLayout = "2006-01-02"

// ReservationLifecycle owns reservations and the cake availability they hold.
//
//	placed -> cancelled   returns the units to the cake
//	placed -> picked_up   no change, the units left at creation
type ReservationLifecycle struct {
	db     *gorm.DB
	logger *logrus.Logger
	policy config.Policy
	tracer trace.Tracer
}

func NewReservationLifecycle(db *gorm.DB, logger *logrus.Logger, policy config.Policy) *ReservationLifecycle {
	return &ReservationLifecycle{db: db, logger: loggerOrDefault(logger), policy: policy, tracer: newTracer()}
}

type reservationEvent struct {
	ReservationId int                      `json:"reservation_id"`
	CakeId        int                      `json:"cake_id"`
	CustomerId    int                      `json:"customer_id"`
	Quantity      int                      `json:"quantity"`
	FromStatus    models.ReservationStatus `json:"from_status,omitempty"`
	Status        models.ReservationStatus `json:"status"`
	ChangedBy     int                      `json:"changed_by"`
	CakeRemaining *int                     `json:"cake_remaining,omitempty"`
}

// Create places a reservation and takes its units from the cake.
// Every check runs before the first write.
func (s *ReservationLifecycle) Create(ctx context.Context, p *Principal, input models.NewReservation) (*models.Reservation, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.create")
	defer span.End()

	reservation, err := s.create(ctx, p, input)
	finishSpan(span, err)
	fields := logrus.Fields{}
	if input.CakeId != nil {
		fields["cake_id"] = *input.CakeId
	}
	if input.Quantity != nil {
		fields["quantity"] = *input.Quantity
	}
	if err != nil {
		logFailure(s.logger, "ReservationLifecycle", "Create", fields, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("reservation.id", reservation.ID))
	s.logger.WithFields(fields).WithField("reservation_id", reservation.ID).Info("reservation placed")
	return reservation, nil
}

func (s *ReservationLifecycle) create(ctx context.Context, p *Principal, input models.NewReservation) (*models.Reservation, error) {
	if input.CakeId == nil || input.Quantity == nil {
		return nil, utils.Validation("cake_id and quantity are required")
	}
	if err := RequireRole(p, RoleCustomer); err != nil {
		return nil, err
	}
	date, err := parseReservationDate(input.Date)
	if err != nil {
		return nil, err
	}
	cakeId, quantity := *input.CakeId, *input.Quantity

	return InTransaction(ctx, s.db, func(tx *gorm.DB) (*models.Reservation, error) {
		cake, err := models.FetchCakeForUpdate(tx, cakeId)
		if err != nil {
			return nil, err
		}
		if cake.TotalQuantity <= 0 {
			return nil, utils.OutOfStock("cake %s is out of stock", cake.Name)
		}
		if quantity <= 0 {
			return nil, utils.Validation("quantity must be greater than 0")
		}
		remaining := cake.TotalQuantity - quantity
		if remaining < 0 {
			return nil, utils.NewError(utils.ErrInsufficientStock,
				"not enough %s available: requested %d, available %d", cake.Name, quantity, cake.TotalQuantity)
		}

		reservation := &models.Reservation{
			Quantity:   quantity,
			Date:       date,
			Status:     models.ReservationStatusPlaced,
			CakeId:     cake.ID,
			CustomerId: p.UserId,
		}
		if err := models.CreateReservation(tx, reservation); err != nil {
			return nil, err
		}
		if err := models.SetCakeQuantity(tx, cake, remaining); err != nil {
			return nil, err
		}

		event := reservationEvent{
			ReservationId: reservation.ID,
			CakeId:        cake.ID,
			CustomerId:    p.UserId,
			Quantity:      quantity,
			Status:        reservation.Status,
			ChangedBy:     p.UserId,
			CakeRemaining: &remaining,
		}
		if err := models.WriteOutboxEvent(ctx, tx, models.EventTypeReservationPlaced, "reservation", reservation.ID, event); err != nil {
			return nil, err
		}
		return reservation, nil
	})
}

func parseReservationDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	date, err := time.Parse(reservationDateLayout, value)
	if err != nil {
		return nil, utils.Validation("date must have the format YYYY-MM-DD")
	}
	return &date, nil
}

// UpdateStatus moves a placed reservation to cancelled or picked_up.
// Anything else, including a same-state transition, is a validation error.
func (s *ReservationLifecycle) UpdateStatus(ctx context.Context, p *Principal, reservationId int, status string) (*models.Reservation, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.update_status")
	defer span.End()
	span.SetAttributes(
		attribute.Int("reservation.id", reservationId),
		attribute.String("reservation.status", status),
	)

	reservation, err := s.updateStatus(ctx, p, reservationId, status)
	finishSpan(span, err)
	fields := logrus.Fields{"reservation_id": reservationId, "status": status}
	if err != nil {
		logFailure(s.logger, "ReservationLifecycle", "UpdateStatus", fields, err)
		return nil, err
	}
	s.logger.WithFields(fields).Info("reservation status changed")
	return reservation, nil
}

// Cancel is UpdateStatus to cancelled.
func (s *ReservationLifecycle) Cancel(ctx context.Context, p *Principal, reservationId int) (*models.Reservation, error) {
	return s.UpdateStatus(ctx, p, reservationId, string(models.ReservationStatusCancelled))
}

func (s *ReservationLifecycle) updateStatus(ctx context.Context, p *Principal, reservationId int, value string) (*models.Reservation, error) {
	selfCancel := s.policy.CustomerSelfCancel && p.Has(RoleCustomer)
	if !p.Has(RoleAdmin) && !selfCancel {
		return nil, RequireRole(p, RoleAdmin)
	}
	status, err := models.ParseReservationStatus(value)
	if err != nil {
		return nil, err
	}
	if !p.Has(RoleAdmin) && status != models.ReservationStatusCancelled {
		return nil, RequireRole(p, RoleAdmin)
	}

	return InTransaction(ctx, s.db, func(tx *gorm.DB) (*models.Reservation, error) {
		// lock order: reservation, then cake
		reservation, err := models.FetchReservationForUpdate(tx, reservationId)
		if err != nil {
			return nil, err
		}
		if !p.Has(RoleAdmin) && reservation.CustomerId != p.UserId {
			return nil, utils.Forbidden("access denied: reservation belongs to another customer")
		}
		from := reservation.Status
		if from.IsTerminal() {
			return nil, utils.Validation("reservation is already %s", from)
		}
		if status == models.ReservationStatusPlaced {
			return nil, utils.Validation("reservation is already placed")
		}

		var remaining *int
		if status == models.ReservationStatusCancelled {
			cake, err := models.FetchCakeForUpdate(tx, reservation.CakeId)
			if err != nil {
				return nil, err
			}
			if err := models.SetCakeQuantity(tx, cake, cake.TotalQuantity+reservation.Quantity); err != nil {
				return nil, err
			}
			remaining = &cake.TotalQuantity
		}
		if err := models.SetReservationStatus(tx, reservation, status); err != nil {
			return nil, err
		}

		event := reservationEvent{
			ReservationId: reservation.ID,
			CakeId:        reservation.CakeId,
			CustomerId:    reservation.CustomerId,
			Quantity:      reservation.Quantity,
			FromStatus:    from,
			Status:        status,
			ChangedBy:     p.UserId,
			CakeRemaining: remaining,
		}
		if err := models.WriteOutboxEvent(ctx, tx, models.EventTypeReservationStatusChanged, "reservation", reservation.ID, event); err != nil {
			return nil, err
		}
		return reservation, nil
	})
}

func (s *ReservationLifecycle) ListForAdmin(ctx context.Context, p *Principal) ([]*models.ReservationView, error) {
	if err := RequireRole(p, RoleAdmin); err != nil {
		return nil, err
	}
	return models.ListOpenReservations(s.db.WithContext(ctx))
}

func (s *ReservationLifecycle) ListForCustomer(ctx context.Context, p *Principal) ([]*models.ReservationView, error) {
	if err := RequireRole(p, RoleCustomer); err != nil {
		return nil, err
	}
	return models.ListOpenReservationsForCustomer(s.db.WithContext(ctx), p.UserId)
}

func (s *ReservationLifecycle) ListBoughtCakes(ctx context.Context, p *Principal) ([]*reports.BoughtCakeResponse, error) {
	if err := RequireRole(p, RoleAdmin); err != nil {
		return nil, err
	}
	return reports.GetBoughtCakes(s.db.WithContext(ctx), 0)
}

func (s *ReservationLifecycle) ListBoughtCakesForCustomer(ctx context.Context, p *Principal) ([]*reports.BoughtCakeResponse, error) {
	if err := RequireRole(p, RoleCustomer); err != nil {
		return nil, err
	}
	return reports.GetBoughtCakes(s.db.WithContext(ctx), p.UserId)
}

// ExportBoughtCakes writes every picked-up reservation to w as an XLSX workbook.
func (s *ReservationLifecycle) ExportBoughtCakes(ctx context.Context, p *Principal, w io.Writer) error {
	records, err := s.ListBoughtCakes(ctx, p)
	if err != nil {
		return err
	}
	return reports.ExportBoughtCakes(w, records)
}
