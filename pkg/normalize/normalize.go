// Package normalize canonicalizes free text into join keys.
package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Letters NFD does not decompose.
var ligatures = strings.NewReplacer(
	"œ", "oe", "æ", "ae", "ß", "ss", "ø", "o", "ł", "l", "đ", "d",
)

// Name lowercases, strips accents and turns hyphens into spaces
// (e.g. "Saint-Étienne" -> "saint etienne").
func Name(s string) string {
	s = strings.ToLower(s)
	s, _, _ = transform.String(stripAccents, s)
	s = ligatures.Replace(s)
	s = strings.ReplaceAll(s, "-", " ")
	return strings.TrimSpace(s)
}

// Value normalizes a table cell. Null and NaN map to "" so that they still
// take part in joins.
func Value(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return Name(x)
	case []byte:
		return Name(string(x))
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		return Name(strconv.FormatFloat(x, 'f', -1, 64))
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return Name(fmt.Sprint(x))
	}
}

// ColumnName lowercases s and replaces every rune outside [a-z0-9] with "_"
// ("Civilité" -> "civilit_").
func ColumnName(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
