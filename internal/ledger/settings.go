package ledger

import (
	"context"
	"encoding/json"

	"github.com/erazemk/labtrack/internal/auth"
	"github.com/erazemk/labtrack/internal/model"
	"github.com/erazemk/labtrack/internal/rows"
)

// SaveSettings sets a settings value, overwriting the first row with the
// key or appending a new one. Admins only.
func (l *Ledger) SaveSettings(ctx context.Context, p *model.Principal, key string, value any) error {
	if err := auth.Authorize(p, model.RoleAdmin); err != nil {
		return err
	}

	defer l.lock(model.TableSettings)()
	t, recs, err := l.read(ctx, model.TableSettings)
	if err != nil {
		return err
	}

	for i, r := range recs {
		if r.String("key") == key {
			r["value"] = settingValue(value)
			return l.update(ctx, t, model.TableSettings, i, r)
		}
	}
	return l.append(ctx, t, model.TableSettings, rows.Record{"key": key, "value": settingValue(value)})
}

// settingValue keeps scalars as they are and stores anything else, such
// as an admins list, as its JSON text.
func settingValue(v any) any {
	switch v.(type) {
	case nil:
		return ""
	case string, float64, json.Number, bool:
		return v
	}
	return rows.CellString(v)
}

// Setting returns the value of the first settings row with the key.
func (l *Ledger) Setting(ctx context.Context, key string) (string, bool, error) {
	defer l.lock(model.TableSettings)()
	_, recs, err := l.read(ctx, model.TableSettings)
	if err != nil {
		return "", false, err
	}
	for _, r := range recs {
		if r.String("key") == key {
			return r.String("value"), true, nil
		}
	}
	return "", false, nil
}

// Settings returns all settings as a map. Later duplicates of a key are
// ignored.
func (l *Ledger) Settings(ctx context.Context) (map[string]any, error) {
	defer l.lock(model.TableSettings)()
	_, recs, err := l.read(ctx, model.TableSettings)
	if err != nil {
		return nil, err
	}
	settings := make(map[string]any, len(recs))
	for _, r := range recs {
		key := r.String("key")
		if _, ok := settings[key]; !ok {
			settings[key] = r["value"]
		}
	}
	return settings, nil
}

var _ auth.SettingsReader = (*Ledger)(nil)
