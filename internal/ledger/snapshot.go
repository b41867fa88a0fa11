package ledger

import (
	"context"

	"github.com/erazemk/labtrack/internal/auth"
	"github.com/erazemk/labtrack/internal/model"
	"github.com/erazemk/labtrack/internal/rows"
)

// Snapshot is the complete read view returned to clients.
type Snapshot struct {
	Items      []rows.Record  `json:"items"`
	Deliveries []rows.Record  `json:"deliveries"`
	Checkouts  []rows.Record  `json:"checkouts"`
	Orders     []rows.Record  `json:"orders"`
	Settings   map[string]any `json:"settings"`
	UserRole   string         `json:"userRole"`
}

// Snapshot reads every table for an authenticated caller. Each table is
// read under its own lock.
func (l *Ledger) Snapshot(ctx context.Context, p *model.Principal) (*Snapshot, error) {
	if err := auth.Authorize(p, model.RoleMember); err != nil {
		return nil, err
	}

	snap := &Snapshot{UserRole: p.Role}
	for _, target := range []struct {
		table string
		dst   *[]rows.Record
	}{
		{model.TableItems, &snap.Items},
		{model.TableDeliveries, &snap.Deliveries},
		{model.TableCheckouts, &snap.Checkouts},
		{model.TableOrders, &snap.Orders},
	} {
		recs, err := l.records(ctx, target.table)
		if err != nil {
			return nil, err
		}
		*target.dst = recs
	}

	settings, err := l.Settings(ctx)
	if err != nil {
		return nil, err
	}
	snap.Settings = settings
	return snap, nil
}

// records reads one table under its lock.
func (l *Ledger) records(ctx context.Context, table string) ([]rows.Record, error) {
	defer l.lock(table)()
	_, recs, err := l.read(ctx, table)
	return recs, err
}
