package ledger

import (
	"context"
	"maps"

	"github.com/erazemk/labtrack/internal/apperr"
	"github.com/erazemk/labtrack/internal/auth"
	"github.com/erazemk/labtrack/internal/model"
	"github.com/erazemk/labtrack/internal/notify"
	"github.com/erazemk/labtrack/internal/rows"
)

// AddDelivery appends a received delivery.
func (l *Ledger) AddDelivery(ctx context.Context, p *model.Principal, delivery rows.Record) error {
	if err := auth.Authorize(p, model.RoleMember); err != nil {
		return err
	}

	rec := maps.Clone(delivery)
	if rec == nil {
		rec = rows.Record{}
	}
	if rec.String("date") == "" {
		rec["date"] = l.today()
	}

	err := func() error {
		defer l.lock(model.TableDeliveries)()
		t, recs, err := l.read(ctx, model.TableDeliveries)
		if err != nil {
			return err
		}
		if err := assignID(recs, rec, "delivery"); err != nil {
			return err
		}
		return l.append(ctx, t, model.TableDeliveries, rec)
	}()
	if err != nil {
		return err
	}

	receivedBy := rec.String("receivedBy")
	if receivedBy == "" {
		receivedBy = p.DisplayName()
	}
	l.emit(ctx, notify.Event{
		Kind:  notify.KindDelivery,
		Icon:  "🚚",
		Title: "Delivery Received: " + rec.String("item"),
		Fields: []string{
			"*Qty*\n" + rec.String("qty") + " " + rec.String("unit"),
			"*Supplier*\n" + orDash(rec.String("from")),
			"*Received by*\n" + receivedBy,
			"*Tracking*\n" + orDash(rec.String("tracking")),
		},
	})
	return nil
}

// AddOrder appends a purchase request. Missing status and date default to
// Pending and today.
func (l *Ledger) AddOrder(ctx context.Context, p *model.Principal, order rows.Record) error {
	if err := auth.Authorize(p, model.RoleMember); err != nil {
		return err
	}

	rec := maps.Clone(order)
	if rec == nil {
		rec = rows.Record{}
	}
	if rec.String("status") == "" {
		rec["status"] = model.OrderStatusPending
	}
	if rec.String("date") == "" {
		rec["date"] = l.today()
	}

	err := func() error {
		defer l.lock(model.TableOrders)()
		t, recs, err := l.read(ctx, model.TableOrders)
		if err != nil {
			return err
		}
		if err := assignID(recs, rec, "order"); err != nil {
			return err
		}
		return l.append(ctx, t, model.TableOrders, rec)
	}()
	if err != nil {
		return err
	}

	o := model.OrderFromRecord(rec)
	urgency := o.Urgency
	if urgency == "" {
		urgency = model.UrgencyNormal
	}
	var body string
	if o.Link != "" {
		body = "<" + o.Link + "|Purchase Link>"
	}
	l.emit(ctx, notify.Event{
		Kind:  notify.KindOrderAdded,
		Icon:  "🛒",
		Title: "New Order Request: " + o.Item,
		Body:  body,
		Fields: []string{
			"*Qty*\n" + rec.String("qty") + " " + o.Unit,
			"*Urgency*\n" + urgency,
			"*Price*\n" + orDash(o.Price),
			"*Requested by*\n" + p.DisplayName(),
		},
		Urgent: o.Urgent(),
	})
	return nil
}

// UpdateOrderStatus replaces an order's status. Any text is accepted.
func (l *Ledger) UpdateOrderStatus(ctx context.Context, p *model.Principal, id any, status string) error {
	if err := auth.Authorize(p, model.RoleMember); err != nil {
		return err
	}

	var item string
	err := func() error {
		defer l.lock(model.TableOrders)()
		t, recs, err := l.read(ctx, model.TableOrders)
		if err != nil {
			return err
		}
		i := findByID(recs, id)
		if i < 0 {
			return apperr.NotFound("No order with id %s", rows.CellString(id))
		}
		rec := recs[i]
		item = rec.String("item")
		rec["status"] = status
		return l.update(ctx, t, model.TableOrders, i, rec)
	}()
	if err != nil {
		return err
	}

	l.emit(ctx, notify.Event{
		Kind:  notify.KindOrderStatus,
		Icon:  "📋",
		Title: "Order Status Updated: " + item,
		Fields: []string{
			"*New Status*\n" + status,
			"*Updated by*\n" + p.DisplayName(),
		},
	})
	return nil
}

// DeleteOrder removes an order after writing its audit entry. Admins only.
func (l *Ledger) DeleteOrder(ctx context.Context, p *model.Principal, id any) error {
	if err := auth.Authorize(p, model.RoleAdmin); err != nil {
		return err
	}

	var name string
	details := "id:" + rows.CellString(id)
	err := func() error {
		defer l.lock(model.TableOrders, model.TableDeleteLog)()
		_, recs, err := l.read(ctx, model.TableOrders)
		if err != nil {
			return err
		}
		i := findByID(recs, id)
		if i < 0 {
			return apperr.NotFound("No order with id %s", rows.CellString(id))
		}

		name = recs[i].String("item")
		if name == "" {
			name = "Unknown"
		}
		if err := l.audit(ctx, "Order", name, details, p); err != nil {
			return err
		}
		if err := l.store.Delete(ctx, model.TableOrders, i); err != nil {
			return apperr.Server("failed to delete order", err)
		}
		return nil
	}()
	if err != nil {
		return err
	}

	l.emit(ctx, deletedEvent(notify.KindOrderDeleted, "Order", name, details, p))
	return nil
}
