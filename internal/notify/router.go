package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/erazemk/labtrack/internal/metrics"
	"github.com/erazemk/labtrack/internal/model"
)

// Backend is what the router reads and writes in the inventory. The
// ledger implements it.
type Backend interface {
	Setting(ctx context.Context, key string) (string, bool, error)
	QueuePending(ctx context.Context, p model.PendingNotification) error
	DigestSource
}

// Router applies the delivery mode to events.
type Router struct {
	backend Backend
	outbox  *Outbox
	sender  Sender
	metrics *metrics.Metrics

	// digestMu serialises digests: each one clears the oldest entries
	// by count, so two in flight would clear entries neither summarised.
	digestMu sync.Mutex

	// Now and Location set the clock used for timestamps and the digest day.
	Now      func() time.Time
	Location *time.Location
}

// NewRouter returns a router posting immediate messages to outbox and
// sending digests synchronously through sender.
func NewRouter(backend Backend, outbox *Outbox, sender Sender, m *metrics.Metrics) *Router {
	return &Router{
		backend:  backend,
		outbox:   outbox,
		sender:   sender,
		metrics:  m,
		Now:      time.Now,
		Location: time.Local,
	}
}

func (r *Router) now() time.Time {
	return r.Now().In(r.Location)
}

// Mode returns the current delivery mode. It is read on every call so a
// saved setting takes effect immediately. A failed read means all.
func (r *Router) Mode(ctx context.Context) Mode {
	value, _, err := r.backend.Setting(ctx, model.SettingSlackMode)
	if err != nil {
		slog.Warn("failed to read notification mode, using all", "error", err)
		return ModeAll
	}
	return ParseMode(value)
}

// Notify routes one event. It never blocks on the transport and never
// fails; problems are logged.
func (r *Router) Notify(ctx context.Context, ev Event) {
	priority := Classify(ev)
	now := r.now()

	switch r.Mode(ctx) {
	case ModeOff:
		r.metrics.Notification(metrics.OutcomeDropped)
	case ModeImportant:
		if priority != High {
			r.metrics.Notification(metrics.OutcomeDropped)
			return
		}
		r.outbox.Post(messageFor(ev, now))
	case ModeDigest:
		pending := model.PendingNotification{
			Date:   now,
			Icon:   ev.Icon,
			Title:  ev.Title,
			Body:   ev.Body,
			Fields: ev.Fields,
		}
		if err := r.backend.QueuePending(ctx, pending); err != nil {
			slog.Error("failed to queue notification", "title", ev.Title, "error", err)
		} else {
			r.metrics.Notification(metrics.OutcomeQueued)
		}
		if priority == High {
			r.outbox.Post(messageFor(ev, now))
		}
	default:
		r.outbox.Post(messageFor(ev, now))
	}
}
