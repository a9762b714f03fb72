// Package merge attaches the socio-economic reference columns to enriched
// client rows.
package merge

import (
	"log/slog"

	"github.com/hazyhaar/geoenrich/pkg/reference"
	"github.com/hazyhaar/geoenrich/pkg/table"
)

// ClashSuffix is appended to reference columns whose name already exists
// on the client side.
const ClashSuffix = "_ref"

// Result reports how many rows found a reference match.
type Result struct {
	Rows    int
	Matched int
}

// LeftJoin returns every left row extended with the right table's columns,
// matched on key. Keys are compared as geo codes (8-character codes get their
// leading zero back). Unmatched rows carry nulls; a duplicate right key keeps
// its first row. The right table's surrogate "id" column and its key are not
// copied.
func LeftJoin(left, right *table.Table, key string) (*table.Table, Result, error) {
	if err := left.Require(key); err != nil {
		return nil, Result{}, err
	}
	if err := right.Require(key); err != nil {
		return nil, Result{}, err
	}

	var refCols, outCols []string
	for _, c := range right.Columns() {
		if c == key || c == "id" {
			continue
		}
		refCols = append(refCols, c)
		name := c
		for left.Has(name) {
			name += ClashSuffix
		}
		outCols = append(outCols, name)
	}

	index := make(map[string]int, right.Len())
	dups := 0
	for i := range right.Rows {
		k, ok := joinKey(right.Value(i, key))
		if !ok {
			continue
		}
		if _, dup := index[k]; dup {
			dups++
			continue
		}
		index[k] = i
	}
	if dups > 0 {
		slog.Warn("duplicate join keys in reference", "table", right.Name, "key", key, "duplicates", dups)
	}

	out := left.Clone()
	res := Result{Rows: out.Len()}
	for _, c := range outCols {
		out.AddColumn(c)
	}
	for i := range out.Rows {
		k, ok := joinKey(out.Value(i, key))
		if !ok {
			continue
		}
		j, ok := index[k]
		if !ok {
			continue
		}
		res.Matched++
		for n, c := range refCols {
			out.Set(i, outCols[n], right.Value(j, c))
		}
	}
	return out, res, nil
}

func joinKey(v any) (string, bool) {
	s, ok := reference.Code(v)
	if !ok {
		return "", false
	}
	return reference.PadGeoCode(s), true
}
