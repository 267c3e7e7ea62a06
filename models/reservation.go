package models

import (
	"time"

	"gorm.io/gorm"
)

type Reservation struct {
	ID         int               `gorm:"primary_key" json:"id"`
	Quantity   int               `gorm:"not null" json:"quantity"`
	Date       *time.Time        `gorm:"type:date" json:"date"`
	Status     ReservationStatus `gorm:"size:20;not null;index;default:'placed'" json:"status"`
	CakeId     int               `gorm:"index;not null" json:"cake_id"`
	Cake       *Cake             `gorm:"foreignKey:CakeId;constraint:OnDelete:CASCADE" json:"-"`
	CustomerId int               `gorm:"index;not null" json:"customer_id"`
	Customer   *User             `gorm:"foreignKey:CustomerId;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt  time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewReservation struct {
	CakeId   *int   `json:"cake_id"`
	Quantity *int   `json:"quantity"`
	Date     string `json:"date"`
}

// ReservationView is a reservation joined with the names a list screen shows.
type ReservationView struct {
	ID           int               `json:"id"`
	Quantity     int               `json:"quantity"`
	Date         *time.Time        `json:"date"`
	Status       ReservationStatus `json:"status"`
	CakeId       int               `json:"cake_id"`
	CakeName     string            `json:"cake_name"`
	CustomerId   int               `json:"customer_id"`
	CustomerName string            `json:"customer_name"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func CreateReservation(tx *gorm.DB, reservation *Reservation) error {
	return tx.Create(reservation).Error
}

func FetchReservation(tx *gorm.DB, id int) (*Reservation, error) {
	return fetchOne[Reservation](tx, "reservation", id)
}

// FetchReservationForUpdate loads the reservation row and holds its lock until tx ends.
func FetchReservationForUpdate(tx *gorm.DB, id int) (*Reservation, error) {
	return fetchOne[Reservation](forUpdate(tx), "reservation", id)
}

func SetReservationStatus(tx *gorm.DB, reservation *Reservation, status ReservationStatus) error {
	if err := tx.Model(reservation).Update("status", status).Error; err != nil {
		return err
	}
	reservation.Status = status
	return nil
}

// CountReservationsForCake counts reservations of any status referencing the cake.
func CountReservationsForCake(tx *gorm.DB, cakeId int) (int64, error) {
	return countWhere[Reservation](tx, "cake_id = ?", cakeId)
}

func reservationViews(tx *gorm.DB) *gorm.DB {
	return tx.Table("reservations").
		Select("reservations.id, reservations.quantity, reservations.date, reservations.status, " +
			"reservations.cake_id, cakes.name AS cake_name, reservations.customer_id, users.name AS customer_name, " +
			"reservations.created_at, reservations.updated_at").
		Joins("JOIN cakes ON cakes.id = reservations.cake_id").
		Joins("JOIN users ON users.id = reservations.customer_id")
}

// ListOpenReservations returns every reservation not yet picked up, most recently updated first.
func ListOpenReservations(tx *gorm.DB) ([]*ReservationView, error) {
	var views []*ReservationView
	err := reservationViews(tx).
		Where("reservations.status <> ?", ReservationStatusPickedUp).
		Order("reservations.updated_at DESC, reservations.id DESC").
		Scan(&views).Error
	if err != nil {
		return nil, err
	}
	return views, nil
}

// ListOpenReservationsForCustomer is ListOpenReservations restricted to one customer.
func ListOpenReservationsForCustomer(tx *gorm.DB, customerId int) ([]*ReservationView, error) {
	var views []*ReservationView
	err := reservationViews(tx).
		Where("reservations.status <> ? AND reservations.customer_id = ?", ReservationStatusPickedUp, customerId).
		Order("reservations.updated_at DESC, reservations.id DESC").
		Scan(&views).Error
	if err != nil {
		return nil, err
	}
	return views, nil
}
