// Package rows maps between raw table rows and header-keyed records, and
// compares row identifiers that the store may have reformatted.
package rows

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Table is a header-labelled set of raw rows as returned by a row store.
// Cells hold strings, float64 or json.Number numbers, bools or nil.
type Table struct {
	Header []string `json:"header"`
	Rows   [][]any  `json:"rows"`
}

// Column returns the index of the named column, or -1.
func (t Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Record is one decoded row keyed by header name.
type Record map[string]any

// String returns the field formatted as a string; absent fields are "".
func (r Record) String(key string) string {
	return CellString(r[key])
}

// Number returns the field as a number. Empty and non-numeric values
// report false.
func (r Record) Number(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		return parseNumber(v.String())
	case string:
		return parseNumber(strings.TrimSpace(v))
	}
	return 0, false
}

// List returns a list field such as usedBy. Absent fields yield an empty list.
func (r Record) List(key string) []string {
	return toList(r[key])
}

// Has reports whether the field is present on the record.
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// CellString formats a raw cell the way a spreadsheet displays it. Numbers
// are written without exponent so large integer ids keep all digits.
func CellString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(c), 'f', -1, 32)
	case int:
		return strconv.Itoa(c)
	case int64:
		return strconv.FormatInt(c, 10)
	case json.Number:
		return c.String()
	case bool:
		return strconv.FormatBool(c)
	case []string:
		data, _ := json.Marshal(c)
		return string(data)
	default:
		data, err := json.Marshal(c)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

func parseNumber(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
