package rows

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var zeroFraction = regexp.MustCompile(`\.0+$`)

// Match reports whether a stored identifier denotes the same entity as a
// requested one. The store may turn "123" into 123 or 123.0, so equality is
// tried as trimmed strings, then as exact decimal numbers, then with any
// trailing ".0" fraction stripped. Neither value is modified.
func Match(stored, requested any) bool {
	a := strings.TrimSpace(CellString(stored))
	b := strings.TrimSpace(CellString(requested))
	if a == b {
		return true
	}

	if x, err := decimal.NewFromString(a); err == nil {
		if y, err := decimal.NewFromString(b); err == nil && x.Equal(y) {
			return true
		}
	}

	return zeroFraction.ReplaceAllString(a, "") == zeroFraction.ReplaceAllString(b, "")
}
