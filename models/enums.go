package models

import (
	"strings"

	"bitbucket.org/mmdatafocus/bakery_backend/utils"
)

type ReservationStatus string

const (
	ReservationStatusPlaced    ReservationStatus = "placed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusPickedUp  ReservationStatus = "picked_up"
)

func (s ReservationStatus) IsValid() bool {
	switch s {
	case ReservationStatusPlaced, ReservationStatusCancelled, ReservationStatusPickedUp:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed out of s.
func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationStatusCancelled || s == ReservationStatusPickedUp
}

func ParseReservationStatus(value string) (ReservationStatus, error) {
	s := ReservationStatus(strings.ToLower(strings.TrimSpace(value)))
	if !s.IsValid() {
		return "", utils.Validation("invalid status %q, expected placed, cancelled or picked_up", value)
	}
	return s, nil
}

// RightCode is the numeric tag stored in rights.right_code.
type RightCode int

const (
	RightCodeAdmin    RightCode = 1
	RightCodeCustomer RightCode = 2
)

func (c RightCode) Name() string {
	switch c {
	case RightCodeAdmin:
		return "admin"
	case RightCodeCustomer:
		return "customer"
	}
	return "unknown"
}

func (c RightCode) IsValid() bool {
	return c == RightCodeAdmin || c == RightCodeCustomer
}

type EventType string

const (
	EventTypeCakeProduced             EventType = "cake.produced"
	EventTypeReservationPlaced        EventType = "reservation.placed"
	EventTypeReservationStatusChanged EventType = "reservation.status_changed"
	EventTypeIngredientStockAdjusted  EventType = "ingredient.stock_adjusted"
)
