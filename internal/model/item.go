package model

import "github.com/erazemk/labtrack/internal/rows"

// Item is a stocked thing or a piece of shared equipment.
type Item struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"cat"`
	Quantity    *float64 `json:"qty,omitempty"`
	Unit        string   `json:"unit"`
	Location    string   `json:"loc"`
	MinQuantity *float64 `json:"minQty,omitempty"`
	Image       string   `json:"img"`
	Description string   `json:"desc"`
	Status      string   `json:"status"`
	UsedBy      []string `json:"usedBy"`
	Serial      string   `json:"serial"`
}

// Item statuses. Any other value is free text such as "Retired".
const (
	ItemStatusAvailable = "Available"
	ItemStatusInUse     = "In Use"
)

// ItemEditableFields are the fields a partial update may change. usedBy is
// derived from checkouts and never edited directly.
var ItemEditableFields = []string{"name", "cat", "qty", "unit", "loc", "minQty", "img", "desc", "status", "serial"}

// ItemFromRecord builds an item from a decoded Items row.
func ItemFromRecord(r rows.Record) Item {
	return Item{
		ID:          r.String("id"),
		Name:        r.String("name"),
		Category:    r.String("cat"),
		Quantity:    optionalNumber(r, "qty"),
		Unit:        r.String("unit"),
		Location:    r.String("loc"),
		MinQuantity: optionalNumber(r, "minQty"),
		Image:       r.String("img"),
		Description: r.String("desc"),
		Status:      r.String("status"),
		UsedBy:      r.List("usedBy"),
		Serial:      r.String("serial"),
	}
}

// LowStock reports whether the quantity has fallen to the reorder
// threshold. Items missing either number are never low.
func (it Item) LowStock() bool {
	if it.Quantity == nil || it.MinQuantity == nil {
		return false
	}
	return *it.Quantity <= *it.MinQuantity
}

func optionalNumber(r rows.Record, key string) *float64 {
	f, ok := r.Number(key)
	if !ok {
		return nil
	}
	return &f
}
