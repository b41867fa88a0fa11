package model

import "github.com/erazemk/labtrack/internal/rows"

// Delivery is an intake of received goods. Deliveries are append-only.
type Delivery struct {
	ID         string   `json:"id"`
	Item       string   `json:"item"`
	Quantity   *float64 `json:"qty,omitempty"`
	Unit       string   `json:"unit"`
	From       string   `json:"from"`
	ReceivedBy string   `json:"receivedBy"`
	Date       string   `json:"date"`
	Tracking   string   `json:"tracking"`
	Status     string   `json:"status"`
}

// DeliveryFromRecord builds a delivery from a decoded Deliveries row.
func DeliveryFromRecord(r rows.Record) Delivery {
	return Delivery{
		ID:         r.String("id"),
		Item:       r.String("item"),
		Quantity:   optionalNumber(r, "qty"),
		Unit:       r.String("unit"),
		From:       r.String("from"),
		ReceivedBy: r.String("receivedBy"),
		Date:       r.String("date"),
		Tracking:   r.String("tracking"),
		Status:     r.String("status"),
	}
}

// Activity counts rows dated on one day.
type Activity struct {
	Deliveries int `json:"deliveries"`
	Checkouts  int `json:"checkouts"`
	Orders     int `json:"orders"`
}

// Empty reports whether nothing happened.
func (a Activity) Empty() bool {
	return a.Deliveries == 0 && a.Checkouts == 0 && a.Orders == 0
}
