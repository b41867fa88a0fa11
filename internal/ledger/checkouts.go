package ledger

import (
	"context"
	"log/slog"
	"maps"

	"github.com/erazemk/labtrack/internal/apperr"
	"github.com/erazemk/labtrack/internal/auth"
	"github.com/erazemk/labtrack/internal/model"
	"github.com/erazemk/labtrack/internal/notify"
	"github.com/erazemk/labtrack/internal/rows"
)

// AddCheckout records that a user took an item and marks the item in use.
// The checkout is always Active; out defaults to today and user to the
// caller. If the item can't be updated the checkout row is removed again.
func (l *Ledger) AddCheckout(ctx context.Context, p *model.Principal, checkout rows.Record) error {
	if err := auth.Authorize(p, model.RoleMember); err != nil {
		return err
	}

	rec := maps.Clone(checkout)
	if rec == nil {
		rec = rows.Record{}
	}
	rec["status"] = model.CheckoutStatusActive
	if rec.String("out") == "" {
		rec["out"] = l.today()
	}
	if rec.String("user") == "" {
		rec["user"] = p.DisplayName()
	}
	c := model.CheckoutFromRecord(rec)

	err := func() error {
		defer l.lock(model.TableItems, model.TableCheckouts)()
		t, recs, err := l.read(ctx, model.TableCheckouts)
		if err != nil {
			return err
		}
		if err := assignID(recs, rec, "checkout"); err != nil {
			return err
		}
		if err := l.append(ctx, t, model.TableCheckouts, rec); err != nil {
			return err
		}
		if err := l.transitionItem(ctx, c.ItemID, c.Item, c.User, holdItem); err != nil {
			// The appended row is last while the lock is held.
			if derr := l.store.Delete(ctx, model.TableCheckouts, len(recs)); derr != nil {
				slog.Error("failed to roll back checkout", "id", rec.String(rows.IDField), "error", derr)
			}
			return err
		}
		return nil
	}()
	if err != nil {
		return err
	}

	l.emit(ctx, notify.Event{
		Kind:  notify.KindCheckout,
		Icon:  "🔑",
		Title: "Item Checked Out: " + c.Item,
		Fields: []string{
			"*Person*\n" + c.User,
			"*Date*\n" + orDash(c.Out),
			"*Return by*\n" + orDash(c.Ret),
		},
	})
	return nil
}

// ReturnItem closes a checkout and releases the item for its user.
// Returning an already returned checkout does nothing. If the item can't
// be updated the checkout is set back to its previous status.
func (l *Ledger) ReturnItem(ctx context.Context, p *model.Principal, checkoutID any) error {
	if err := auth.Authorize(p, model.RoleMember); err != nil {
		return err
	}

	var c model.Checkout
	returned := false
	err := func() error {
		defer l.lock(model.TableItems, model.TableCheckouts)()
		t, recs, err := l.read(ctx, model.TableCheckouts)
		if err != nil {
			return err
		}
		i := findByID(recs, checkoutID)
		if i < 0 {
			return apperr.NotFound("No checkout with id %s", rows.CellString(checkoutID))
		}

		rec := recs[i]
		c = model.CheckoutFromRecord(rec)
		if c.Status == model.CheckoutStatusReturned {
			return nil
		}

		rec["status"] = model.CheckoutStatusReturned
		if err := l.update(ctx, t, model.TableCheckouts, i, rec); err != nil {
			return err
		}
		if err := l.transitionItem(ctx, c.ItemID, c.Item, c.User, releaseItem); err != nil {
			rec["status"] = c.Status
			if uerr := l.update(ctx, t, model.TableCheckouts, i, rec); uerr != nil {
				slog.Error("failed to roll back return", "id", c.ID, "error", uerr)
			}
			return err
		}
		returned = true
		return nil
	}()
	if err != nil || !returned {
		return err
	}

	l.emit(ctx, notify.Event{
		Kind:   notify.KindReturn,
		Icon:   "✅",
		Title:  "Item Returned: " + c.Item,
		Fields: []string{"*Returned by*\n" + c.User},
	})
	return nil
}
