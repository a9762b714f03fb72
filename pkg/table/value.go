package table

import (
	"math"
	"strconv"
	"strings"
)

// Kind is the storage class inferred for a column.
type Kind int

const (
	KindString Kind = iota
	KindInteger
	KindDecimal
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindDecimal:
		return "decimal"
	default:
		return "string"
	}
}

// String returns v as text; false for null.
func String(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case []byte:
		return string(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case int:
		return strconv.Itoa(x), true
	case float64:
		if math.IsNaN(x) {
			return "", false
		}
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}

// Float returns v as a number; false for null or non-numeric text.
func Float(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		if math.IsNaN(x) {
			return 0, false
		}
		return x, true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	case []byte:
		return Float(string(x))
	default:
		return 0, false
	}
}

// Int returns v as an integer; floats are accepted only when integral.
func Int(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		if math.IsNaN(x) || x != math.Trunc(x) {
			return 0, false
		}
		return int64(x), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		return n, err == nil
	case []byte:
		return Int(string(x))
	default:
		return 0, false
	}
}

// KindOf classifies a single non-null cell.
func KindOf(v any) Kind {
	switch v.(type) {
	case int64, int:
		return KindInteger
	case float64:
		return KindDecimal
	default:
		return KindString
	}
}

// InferKind returns the narrowest kind covering every non-null value:
// integers widen to decimal, anything else to string. An all-null column
// is a string column.
func InferKind(values []any) Kind {
	seen := false
	kind := KindInteger
	for _, v := range values {
		if v == nil {
			continue
		}
		if f, ok := v.(float64); ok && math.IsNaN(f) {
			continue
		}
		seen = true
		switch KindOf(v) {
		case KindString:
			return KindString
		case KindDecimal:
			kind = KindDecimal
		}
	}
	if !seen {
		return KindString
	}
	return kind
}

// ColumnValues returns every cell of col.
func (t *Table) ColumnValues(col string) []any {
	j := t.Index(col)
	if j < 0 {
		return nil
	}
	out := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[j]
	}
	return out
}

// Kinds infers the kind of every column.
func (t *Table) Kinds() []Kind {
	kinds := make([]Kind, len(t.columns))
	for j, c := range t.columns {
		kinds[j] = InferKind(t.ColumnValues(c))
	}
	return kinds
}
