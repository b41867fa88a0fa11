// Package notify classifies inventory events and routes them to the team
// chat according to the configured delivery mode.
package notify

import (
	"strings"
	"time"
)

// Kind identifies what happened.
type Kind string

// Event kinds.
const (
	KindItemAdded    Kind = "item_added"
	KindItemDeleted  Kind = "item_deleted"
	KindDelivery     Kind = "delivery"
	KindCheckout     Kind = "checkout"
	KindReturn       Kind = "return"
	KindOrderAdded   Kind = "order_added"
	KindOrderStatus  Kind = "order_status"
	KindOrderDeleted Kind = "order_deleted"
	KindOverdue      Kind = "overdue"
)

// Priority decides whether an event may be deferred.
type Priority int

// Priorities.
const (
	Normal Priority = iota
	High
)

func (p Priority) String() string {
	if p == High {
		return "high"
	}
	return "normal"
}

// Event is one notification-worthy outcome of a mutation or sweep.
type Event struct {
	Kind   Kind
	Icon   string
	Title  string
	Body   string
	Fields []string
	// Urgent marks orders requested with high or urgent urgency.
	Urgent bool
}

// Classify returns the event's priority. Deletions, overdue alerts and
// urgent orders are high; everything else is normal.
func Classify(ev Event) Priority {
	switch ev.Kind {
	case KindItemDeleted, KindOrderDeleted, KindOverdue:
		return High
	case KindOrderAdded:
		if ev.Urgent {
			return High
		}
	}
	return Normal
}

// Mode is the delivery policy stored in the slack_mode setting.
type Mode string

// Delivery modes.
const (
	ModeAll       Mode = "all"
	ModeImportant Mode = "important"
	ModeDigest    Mode = "digest"
	ModeOff       Mode = "off"
)

// ParseMode reads a setting value. Missing or unknown values mean all.
func ParseMode(s string) Mode {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeAll, ModeImportant, ModeDigest, ModeOff:
		return m
	}
	return ModeAll
}

// Message is what a transport delivers.
type Message struct {
	Icon   string
	Title  string
	Body   string
	Fields []string
	Time   time.Time
}

func messageFor(ev Event, now time.Time) Message {
	return Message{Icon: ev.Icon, Title: ev.Title, Body: ev.Body, Fields: ev.Fields, Time: now}
}
