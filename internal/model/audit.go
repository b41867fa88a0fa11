package model

import (
	"time"

	"github.com/erazemk/labtrack/internal/rows"
)

// DeletionRecord is an append-only audit entry written before an item or
// order row is removed.
type DeletionRecord struct {
	Date      time.Time `json:"date"`
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	Details   string    `json:"details"`
	DeletedBy string    `json:"deletedBy"`
}

// Record converts the entry into a DeleteLog row record.
func (d DeletionRecord) Record() rows.Record {
	return rows.Record{
		"date":      d.Date.Format(TimestampLayout),
		"type":      d.Type,
		"name":      d.Name,
		"details":   d.Details,
		"deletedBy": d.DeletedBy,
	}
}

// PendingNotification is a notification deferred until the next digest.
type PendingNotification struct {
	Date   time.Time `json:"date"`
	Icon   string    `json:"icon"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	Fields []string  `json:"fields"`
}

// Record converts the entry into a PendingNotifications row record.
func (p PendingNotification) Record() rows.Record {
	fields := p.Fields
	if fields == nil {
		fields = []string{}
	}
	return rows.Record{
		"date":   p.Date.Format(TimestampLayout),
		"icon":   p.Icon,
		"title":  p.Title,
		"body":   p.Body,
		"fields": fields,
	}
}

// PendingFromRecord builds a queued notification from a decoded row.
// An unparseable date leaves Date zero.
func PendingFromRecord(r rows.Record, loc *time.Location) PendingNotification {
	date, _ := time.ParseInLocation(TimestampLayout, r.String("date"), loc)
	return PendingNotification{
		Date:   date,
		Icon:   r.String("icon"),
		Title:  r.String("title"),
		Body:   r.String("body"),
		Fields: r.List("fields"),
	}
}
