package model

import (
	"strings"

	"github.com/erazemk/labtrack/internal/rows"
)

// Order is a purchase request.
type Order struct {
	ID          string   `json:"id"`
	Item        string   `json:"item"`
	Quantity    *float64 `json:"qty,omitempty"`
	Unit        string   `json:"unit"`
	RequestedBy string   `json:"requestedBy"`
	Reason      string   `json:"reason"`
	Urgency     string   `json:"urgency"`
	Date        string   `json:"date"`
	Status      string   `json:"status"`
	Price       string   `json:"price"`
	Link        string   `json:"link"`
	Category    string   `json:"cat"`
	Store       string   `json:"store"`
}

// Order urgencies. Free text is allowed and treated as normal.
const (
	UrgencyNormal = "Normal"
	UrgencyHigh   = "High"
	UrgencyUrgent = "Urgent"
)

// Order statuses that count as still open.
const (
	OrderStatusPending  = "Pending"
	OrderStatusApproved = "Approved"
	OrderStatusOrdered  = "Ordered"
	OrderStatusReceived = "Received"
)

// OrderFromRecord builds an order from a decoded Orders row.
func OrderFromRecord(r rows.Record) Order {
	return Order{
		ID:          r.String("id"),
		Item:        r.String("item"),
		Quantity:    optionalNumber(r, "qty"),
		Unit:        r.String("unit"),
		RequestedBy: r.String("requestedBy"),
		Reason:      r.String("reason"),
		Urgency:     r.String("urgency"),
		Date:        r.String("date"),
		Status:      r.String("status"),
		Price:       r.String("price"),
		Link:        r.String("link"),
		Category:    r.String("cat"),
		Store:       r.String("store"),
	}
}

// Open reports whether the order still awaits delivery.
func (o Order) Open() bool {
	switch strings.TrimSpace(o.Status) {
	case OrderStatusPending, OrderStatusApproved, OrderStatusOrdered:
		return true
	}
	return false
}

// Urgent reports whether the order was flagged high or urgent.
func (o Order) Urgent() bool {
	return IsUrgent(o.Urgency)
}

// IsUrgent reports whether an urgency value is high or urgent.
func IsUrgent(urgency string) bool {
	u := strings.TrimSpace(urgency)
	return strings.EqualFold(u, UrgencyUrgent) || strings.EqualFold(u, UrgencyHigh)
}
