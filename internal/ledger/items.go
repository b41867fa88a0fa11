package ledger

import (
	"context"
	"maps"
	"slices"

	"github.com/erazemk/labtrack/internal/apperr"
	"github.com/erazemk/labtrack/internal/auth"
	"github.com/erazemk/labtrack/internal/model"
	"github.com/erazemk/labtrack/internal/notify"
	"github.com/erazemk/labtrack/internal/rows"
)

// AddItem appends a new item. A missing status means Available.
func (l *Ledger) AddItem(ctx context.Context, p *model.Principal, item rows.Record) error {
	if err := auth.Authorize(p, model.RoleMember); err != nil {
		return err
	}

	rec := maps.Clone(item)
	if rec == nil {
		rec = rows.Record{}
	}
	if rec.String("status") == "" {
		rec["status"] = model.ItemStatusAvailable
	}

	err := func() error {
		defer l.lock(model.TableItems)()
		t, recs, err := l.read(ctx, model.TableItems)
		if err != nil {
			return err
		}
		if err := assignID(recs, rec, "item"); err != nil {
			return err
		}
		return l.append(ctx, t, model.TableItems, rec)
	}()
	if err != nil {
		return err
	}

	qty := rec.String("qty")
	if qty == "" {
		qty = "0"
	}
	l.emit(ctx, notify.Event{
		Kind:  notify.KindItemAdded,
		Icon:  "📦",
		Title: "New Item Added: " + rec.String("name"),
		Fields: []string{
			"*Category*\n" + orDash(rec.String("cat")),
			"*Qty*\n" + qty + " " + rec.String("unit"),
			"*Location*\n" + orDash(rec.String("loc")),
			"*Added by*\n" + p.DisplayName(),
		},
	})
	return nil
}

// UpdateItem merges the editable fields present in partial into the item
// with partial's id. Absent fields are left as they are.
func (l *Ledger) UpdateItem(ctx context.Context, p *model.Principal, partial rows.Record) error {
	if err := auth.Authorize(p, model.RoleMember); err != nil {
		return err
	}

	defer l.lock(model.TableItems)()
	t, recs, err := l.read(ctx, model.TableItems)
	if err != nil {
		return err
	}

	id := partial[rows.IDField]
	i := findByID(recs, id)
	if i < 0 {
		return apperr.NotFound("No item with id %s", rows.CellString(id))
	}

	rec := recs[i]
	for _, f := range model.ItemEditableFields {
		if partial.Has(f) {
			rec[f] = partial[f]
		}
	}
	return l.update(ctx, t, model.TableItems, i, rec)
}

// DeleteItem removes an item after writing its audit entry. Admins only.
func (l *Ledger) DeleteItem(ctx context.Context, p *model.Principal, id any) error {
	if err := auth.Authorize(p, model.RoleAdmin); err != nil {
		return err
	}

	var name, details string
	err := func() error {
		defer l.lock(model.TableItems, model.TableDeleteLog)()
		_, recs, err := l.read(ctx, model.TableItems)
		if err != nil {
			return err
		}
		i := findByID(recs, id)
		if i < 0 {
			return apperr.NotFound("No item with id %s", rows.CellString(id))
		}

		rec := recs[i]
		name = rec.String("name")
		if name == "" {
			name = "Unknown"
		}
		details = "cat:" + rec.String("cat") +
			" qty:" + rec.String("qty") +
			" loc:" + rec.String("loc") +
			" serial:" + rec.String("serial")

		if err := l.audit(ctx, "Item", name, details, p); err != nil {
			return err
		}
		if err := l.store.Delete(ctx, model.TableItems, i); err != nil {
			return apperr.Server("failed to delete item", err)
		}
		return nil
	}()
	if err != nil {
		return err
	}

	l.emit(ctx, deletedEvent(notify.KindItemDeleted, "Item", name, details, p))
	return nil
}

// audit appends a DeleteLog entry. The caller holds the DeleteLog lock.
func (l *Ledger) audit(ctx context.Context, kind, name, details string, p *model.Principal) error {
	t, _, err := l.read(ctx, model.TableDeleteLog)
	if err != nil {
		return err
	}
	entry := model.DeletionRecord{
		Date:      l.now(),
		Type:      kind,
		Name:      name,
		Details:   details,
		DeletedBy: p.DisplayName(),
	}
	return l.append(ctx, t, model.TableDeleteLog, entry.Record())
}

func deletedEvent(kind notify.Kind, typ, name, details string, p *model.Principal) notify.Event {
	return notify.Event{
		Kind:  kind,
		Icon:  "🗑️",
		Title: typ + " Deleted: " + name,
		Fields: []string{
			"*Deleted by*\n" + p.DisplayName(),
			"*Details*\n" + details,
		},
	}
}

// transitionMode says whether a user starts or stops holding an item.
type transitionMode int

const (
	holdItem transitionMode = iota
	releaseItem
)

// transitionItem updates the status and holders of the item a checkout
// refers to. The item is found by itemId and, failing that, by the first
// row with the checkout's item name. No match is not an error. The caller
// holds the Items lock.
func (l *Ledger) transitionItem(ctx context.Context, itemID, itemName, user string, mode transitionMode) error {
	t, recs, err := l.read(ctx, model.TableItems)
	if err != nil {
		return err
	}

	i := -1
	if itemID != "" {
		i = findByID(recs, itemID)
	}
	if i < 0 {
		i = slices.IndexFunc(recs, func(r rows.Record) bool {
			return itemName != "" && r.String("name") == itemName
		})
	}
	if i < 0 {
		return nil
	}

	rec := recs[i]
	usedBy := rec.List("usedBy")
	switch mode {
	case holdItem:
		if user != "" && !slices.Contains(usedBy, user) {
			usedBy = append(usedBy, user)
		}
		rec["status"] = model.ItemStatusInUse
	case releaseItem:
		usedBy = slices.DeleteFunc(usedBy, func(u string) bool { return u == user })
		if len(usedBy) == 0 {
			rec["status"] = model.ItemStatusAvailable
		} else {
			rec["status"] = model.ItemStatusInUse
		}
	}
	rec["usedBy"] = usedBy
	return l.update(ctx, t, model.TableItems, i, rec)
}
