package ledger

import (
	"context"

	"github.com/erazemk/labtrack/internal/apperr"
	"github.com/erazemk/labtrack/internal/model"
	"github.com/erazemk/labtrack/internal/notify"
)

// QueuePending appends a deferred notification for the next digest.
func (l *Ledger) QueuePending(ctx context.Context, p model.PendingNotification) error {
	defer l.lock(model.TablePendingNotifs)()
	t, _, err := l.read(ctx, model.TablePendingNotifs)
	if err != nil {
		return err
	}
	return l.append(ctx, t, model.TablePendingNotifs, p.Record())
}

// PendingNotifications returns the queue oldest first.
func (l *Ledger) PendingNotifications(ctx context.Context) ([]model.PendingNotification, error) {
	recs, err := l.records(ctx, model.TablePendingNotifs)
	if err != nil {
		return nil, err
	}
	pending := make([]model.PendingNotification, 0, len(recs))
	for _, r := range recs {
		pending = append(pending, model.PendingFromRecord(r, l.Location))
	}
	return pending, nil
}

// ClearPendingNotifications removes the n oldest queued notifications.
// Entries queued after those n are kept.
func (l *Ledger) ClearPendingNotifications(ctx context.Context, n int) error {
	defer l.lock(model.TablePendingNotifs)()
	_, recs, err := l.read(ctx, model.TablePendingNotifs)
	if err != nil {
		return err
	}
	n = min(n, len(recs))
	for range n {
		if err := l.store.Delete(ctx, model.TablePendingNotifs, 0); err != nil {
			return apperr.Server("failed to clear pending notifications", err)
		}
	}
	return nil
}

var _ notify.Backend = (*Ledger)(nil)
