// Package ledger applies inventory mutations to the row store and emits
// a notification event for each one.
package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/labtrack/internal/apperr"
	"github.com/erazemk/labtrack/internal/model"
	"github.com/erazemk/labtrack/internal/notify"
	"github.com/erazemk/labtrack/internal/rows"
)

// TableStore reads and writes rows by position in named tables.
type TableStore interface {
	Ensure(ctx context.Context, table string, header []string) error
	Read(ctx context.Context, table string) (rows.Table, error)
	Append(ctx context.Context, table string, row []any) error
	Update(ctx context.Context, table string, index int, row []any) error
	Delete(ctx context.Context, table string, index int) error
}

// Notifier receives the outcome of successful mutations.
type Notifier interface {
	Notify(ctx context.Context, ev notify.Event)
}

// lockOrder is the order in which table locks are taken when an operation
// spans several tables.
var lockOrder = []string{
	model.TableItems,
	model.TableDeliveries,
	model.TableCheckouts,
	model.TableOrders,
	model.TableSettings,
	model.TableDeleteLog,
	model.TablePendingNotifs,
}

var lockRank = func() map[string]int {
	rank := make(map[string]int, len(lockOrder))
	for i, t := range lockOrder {
		rank[t] = i
	}
	return rank
}()

// Ledger is the inventory. Every scan-then-write sequence holds the
// table's lock so a located row position stays valid until written.
type Ledger struct {
	store    TableStore
	notifier Notifier
	locks    map[string]*sync.Mutex

	ensureMu sync.Mutex
	ensured  map[string]bool

	// Now and Location set the clock used for default dates and audit
	// timestamps.
	Now      func() time.Time
	Location *time.Location
}

// New returns a ledger over the store. Events are discarded until a
// notifier is set.
func New(store TableStore) *Ledger {
	l := &Ledger{
		store:    store,
		locks:    make(map[string]*sync.Mutex, len(lockOrder)),
		ensured:  make(map[string]bool),
		Now:      time.Now,
		Location: time.Local,
	}
	for _, t := range lockOrder {
		l.locks[t] = &sync.Mutex{}
	}
	return l
}

// SetNotifier sets where mutation events go.
func (l *Ledger) SetNotifier(n Notifier) {
	l.notifier = n
}

// EnsureTables creates every table that doesn't exist yet.
func (l *Ledger) EnsureTables(ctx context.Context) error {
	for _, t := range lockOrder {
		if err := l.ensure(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) ensure(ctx context.Context, table string) error {
	l.ensureMu.Lock()
	defer l.ensureMu.Unlock()
	if l.ensured[table] {
		return nil
	}
	if err := l.store.Ensure(ctx, table, model.Headers[table]); err != nil {
		return apperr.Server("failed to prepare "+table, err)
	}
	l.ensured[table] = true
	return nil
}

// lock takes the locks of the given tables in lockOrder and returns a
// function releasing them.
func (l *Ledger) lock(tables ...string) func() {
	sorted := append([]string(nil), tables...)
	sort.Slice(sorted, func(i, j int) bool { return lockRank[sorted[i]] < lockRank[sorted[j]] })

	for _, t := range sorted {
		l.locks[t].Lock()
	}
	return func() {
		for i := len(sorted) - 1; i >= 0; i-- {
			l.locks[sorted[i]].Unlock()
		}
	}
}

func (l *Ledger) now() time.Time {
	return l.Now().In(l.Location)
}

func (l *Ledger) today() string {
	return l.now().Format(model.DateLayout)
}

func (l *Ledger) emit(ctx context.Context, ev notify.Event) {
	if l.notifier == nil {
		return
	}
	l.notifier.Notify(ctx, ev)
}

// read loads and decodes a table. The caller holds the table's lock.
func (l *Ledger) read(ctx context.Context, table string) (rows.Table, []rows.Record, error) {
	if err := l.ensure(ctx, table); err != nil {
		return rows.Table{}, nil, err
	}
	t, err := l.store.Read(ctx, table)
	if err != nil {
		return rows.Table{}, nil, apperr.Server("failed to read "+table, err)
	}
	return t, rows.Decode(t), nil
}

func (l *Ledger) append(ctx context.Context, t rows.Table, table string, rec rows.Record) error {
	if err := l.store.Append(ctx, table, rows.Encode(rec, t.Header)); err != nil {
		return apperr.Server("failed to write "+table, err)
	}
	return nil
}

func (l *Ledger) update(ctx context.Context, t rows.Table, table string, index int, rec rows.Record) error {
	if err := l.store.Update(ctx, table, index, rows.Encode(rec, t.Header)); err != nil {
		return apperr.Server("failed to write "+table, err)
	}
	return nil
}

// findByID returns the position of the first record whose id matches.
func findByID(recs []rows.Record, id any) int {
	for i, r := range recs {
		if rows.Match(r[rows.IDField], id) {
			return i
		}
	}
	return -1
}

// assignID applies the uniqueness policy to a record about to be inserted:
// an empty id gets a fresh UUID and an id that already exists is refused.
func assignID(recs []rows.Record, rec rows.Record, kind string) error {
	id := rec.String(rows.IDField)
	if id == "" {
		rec[rows.IDField] = uuid.NewString()
		return nil
	}
	if findByID(recs, id) >= 0 {
		return apperr.Validation("%s with id %s already exists", kind, id)
	}
	rec[rows.IDField] = id
	return nil
}

// orDash renders an empty notification field as a dash.
func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
