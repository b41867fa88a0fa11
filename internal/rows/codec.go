package rows

import (
	"encoding/json"
	"strings"
)

// IDField is always decoded and encoded as a string.
const IDField = "id"

// listFields hold JSON-encoded string lists inside a single cell.
var listFields = map[string]bool{
	"usedBy": true,
	"fields": true,
}

// numberFields are coerced to numbers when non-empty.
var numberFields = map[string]bool{
	"qty":    true,
	"minQty": true,
}

// Decode converts every row of the table into a record.
func Decode(t Table) []Record {
	records := make([]Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		records = append(records, DecodeRow(t.Header, row))
	}
	return records
}

// DecodeRow converts one raw row. Cells missing at the end of a short row
// decode as empty strings.
func DecodeRow(header []string, row []any) Record {
	rec := make(Record, len(header))
	for i, h := range header {
		var cell any = ""
		if i < len(row) && row[i] != nil {
			cell = row[i]
		}
		rec[h] = decodeCell(h, cell)
	}
	return rec
}

func decodeCell(field string, cell any) any {
	switch {
	case field == IDField:
		return CellString(cell)
	case listFields[field]:
		return toList(cell)
	case numberFields[field]:
		if s, ok := cell.(string); ok {
			if f, ok := parseNumber(strings.TrimSpace(s)); ok {
				return f
			}
			return s
		}
		if f, ok := (Record{field: cell}).Number(field); ok {
			return f
		}
		return cell
	default:
		return cell
	}
}

// Encode converts a record into a raw row in header order. List fields are
// written as JSON strings, absent fields as empty cells and fields not in
// the header are dropped.
func Encode(rec Record, header []string) []any {
	row := make([]any, len(header))
	for i, h := range header {
		v, ok := rec[h]
		if !ok || v == nil {
			row[i] = ""
			continue
		}
		switch {
		case h == IDField:
			row[i] = CellString(v)
		case listFields[h]:
			if s, ok := v.(string); ok {
				row[i] = s
				continue
			}
			data, err := json.Marshal(toList(v))
			if err != nil {
				row[i] = "[]"
				continue
			}
			row[i] = string(data)
		default:
			row[i] = v
		}
	}
	return row
}

// toList reads a list field from a decoded value or its JSON-string form.
// Anything unparseable is an empty list.
func toList(v any) []string {
	switch l := v.(type) {
	case []string:
		out := make([]string, len(l))
		copy(out, l)
		return out
	case []any:
		out := make([]string, 0, len(l))
		for _, e := range l {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		if err := json.Unmarshal([]byte(l), &out); err != nil || out == nil {
			return []string{}
		}
		return out
	}
	return []string{}
}
