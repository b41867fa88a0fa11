package ledger

import (
	"context"
	"time"

	"github.com/erazemk/labtrack/internal/model"
)

// OpenOrders returns orders that are pending, approved or ordered.
func (l *Ledger) OpenOrders(ctx context.Context) ([]model.Order, error) {
	recs, err := l.records(ctx, model.TableOrders)
	if err != nil {
		return nil, err
	}
	var open []model.Order
	for _, r := range recs {
		if o := model.OrderFromRecord(r); o.Open() {
			open = append(open, o)
		}
	}
	return open, nil
}

// OverdueCheckouts returns active checkouts due before day.
func (l *Ledger) OverdueCheckouts(ctx context.Context, day time.Time) ([]model.Checkout, error) {
	recs, err := l.records(ctx, model.TableCheckouts)
	if err != nil {
		return nil, err
	}
	day = day.In(l.Location)
	var overdue []model.Checkout
	for _, r := range recs {
		if c := model.CheckoutFromRecord(r); c.Overdue(day) {
			overdue = append(overdue, c)
		}
	}
	return overdue, nil
}

// LowStock returns items at or below their minimum quantity.
func (l *Ledger) LowStock(ctx context.Context) ([]model.Item, error) {
	recs, err := l.records(ctx, model.TableItems)
	if err != nil {
		return nil, err
	}
	var low []model.Item
	for _, r := range recs {
		if it := model.ItemFromRecord(r); it.LowStock() {
			low = append(low, it)
		}
	}
	return low, nil
}

// ActivityOn counts deliveries, checkouts and orders dated on day.
func (l *Ledger) ActivityOn(ctx context.Context, day time.Time) (model.Activity, error) {
	day = model.StartOfDay(day.In(l.Location))
	count := func(table, field string) (int, error) {
		recs, err := l.records(ctx, table)
		if err != nil {
			return 0, err
		}
		n := 0
		for _, r := range recs {
			if d, ok := model.ParseDate(r.String(field), l.Location); ok && d.Equal(day) {
				n++
			}
		}
		return n, nil
	}

	var a model.Activity
	var err error
	if a.Deliveries, err = count(model.TableDeliveries, "date"); err != nil {
		return a, err
	}
	if a.Checkouts, err = count(model.TableCheckouts, "out"); err != nil {
		return a, err
	}
	if a.Orders, err = count(model.TableOrders, "date"); err != nil {
		return a, err
	}
	return a, nil
}
