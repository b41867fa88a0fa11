package model

import (
	"strings"
	"time"

	"github.com/erazemk/labtrack/internal/rows"
)

// Checkout records one person holding an item.
type Checkout struct {
	ID     string `json:"id"`
	ItemID string `json:"itemId"`
	Item   string `json:"item"`
	User   string `json:"user"`
	Out    string `json:"out"`
	Ret    string `json:"ret"`
	Status string `json:"status"`
}

// Checkout statuses. A checkout moves from active to returned once.
const (
	CheckoutStatusActive   = "Active"
	CheckoutStatusReturned = "Returned"
)

// CheckoutFromRecord builds a checkout from a decoded Checkouts row.
func CheckoutFromRecord(r rows.Record) Checkout {
	return Checkout{
		ID:     r.String("id"),
		ItemID: r.String("itemId"),
		Item:   r.String("item"),
		User:   r.String("user"),
		Out:    r.String("out"),
		Ret:    r.String("ret"),
		Status: r.String("status"),
	}
}

// Overdue reports whether an active checkout was due strictly before day.
// Only the calendar date is compared.
func (c Checkout) Overdue(day time.Time) bool {
	if c.Status != CheckoutStatusActive {
		return false
	}
	due, ok := ParseDate(c.Ret, day.Location())
	if !ok {
		return false
	}
	return due.Before(StartOfDay(day))
}

// ParseDate reads the date part of a cell. Dates are written as
// YYYY-MM-DD but full timestamps are accepted too.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{DateLayout, TimestampLayout, time.RFC3339} {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return StartOfDay(t.In(loc)), true
		}
	}
	if len(s) >= len(DateLayout) {
		if t, err := time.ParseInLocation(DateLayout, s[:len(DateLayout)], loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
