package reports

import (
	"time"

	"bitbucket.org/mmdatafocus/bakery_backend/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BoughtCakeResponse is one picked-up reservation with what the customer paid for it.
type BoughtCakeResponse struct {
	ReservationId int             `json:"reservation_id"`
	CakeId        int             `json:"cake_id"`
	CakeName      string          `json:"cake_name"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	Total         decimal.Decimal `json:"total"`
	Date          *time.Time      `json:"date"`
	CustomerId    int             `json:"customer_id"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	PickedUpAt    time.Time       `json:"picked_up_at"`
}

func (r BoughtCakeResponse) GetCellValues() []interface{} {
	date := ""
	if r.Date != nil {
		date = r.Date.Format("2006-01-02")
	}
	return []interface{}{
		r.ReservationId,
		r.CakeName,
		r.Quantity,
		r.Price.StringFixed(2),
		r.Total.StringFixed(2),
		date,
		r.CustomerName,
		r.CustomerPhone,
		r.PickedUpAt.Format(time.RFC3339),
	}
}

var boughtCakeHeadings = []string{
	"Reservation", "Cake", "Quantity", "Price", "Total", "Date", "Customer", "Phone", "Picked Up At",
}

func boughtCakesQuery(tx *gorm.DB) *gorm.DB {
	return tx.Table("reservations").
		Select("reservations.id AS reservation_id, reservations.cake_id, cakes.name AS cake_name, "+
			"reservations.quantity, cakes.price, reservations.date, reservations.customer_id, "+
			"users.name AS customer_name, users.phone AS customer_phone, reservations.updated_at AS picked_up_at").
		Joins("JOIN cakes ON cakes.id = reservations.cake_id").
		Joins("JOIN users ON users.id = reservations.customer_id").
		Where("reservations.status = ?", models.ReservationStatusPickedUp)
}

// GetBoughtCakes lists picked-up reservations, latest first. customerId 0 means every customer.
func GetBoughtCakes(tx *gorm.DB, customerId int) ([]*BoughtCakeResponse, error) {
	query := boughtCakesQuery(tx)
	if customerId > 0 {
		query = query.Where("reservations.customer_id = ?", customerId)
	}
	var records []*BoughtCakeResponse
	if err := query.Order("reservations.updated_at DESC, reservations.id DESC").Scan(&records).Error; err != nil {
		return nil, err
	}
	for _, r := range records {
		r.Total = r.Price.Mul(decimal.NewFromInt(int64(r.Quantity)))
	}
	return records, nil
}
