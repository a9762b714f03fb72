// Package table holds the in-memory, column-addressed tables that flow
// between pipeline stages. Cells are nil, int64, float64 or string.
package table

import (
	"fmt"

	"github.com/hazyhaar/geoenrich/pkg/normalize"
)

// MissingColumnError reports a referenced column absent from a table.
type MissingColumnError struct {
	Table  string
	Column string
}

func (e *MissingColumnError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("column %q does not exist", e.Column)
	}
	return fmt.Sprintf("column %q does not exist in table %q", e.Column, e.Table)
}

// Table is an ordered set of named columns over a slice of rows.
type Table struct {
	Name    string
	Rows    [][]any
	columns []string
	index   map[string]int
}

// New creates an empty table with the given columns. A repeated name gets
// a numeric suffix ("code", "code_1"), so there is one column per name given.
func New(name string, columns []string) *Table {
	t := &Table{Name: name, index: make(map[string]int, len(columns))}
	for _, c := range columns {
		c = t.unique(c)
		t.index[c] = len(t.columns)
		t.columns = append(t.columns, c)
	}
	return t
}

// unique suffixes name until it is not a column of t.
func (t *Table) unique(name string) string {
	n := name
	for k := 1; ; k++ {
		if _, dup := t.index[n]; !dup {
			return n
		}
		n = fmt.Sprintf("%s_%d", name, k)
	}
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Has reports whether col exists.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Index returns the position of col, or -1.
func (t *Table) Index(col string) int {
	if i, ok := t.index[col]; ok {
		return i
	}
	return -1
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Append adds a row. Short rows are padded with nil.
func (t *Table) Append(row []any) {
	if len(row) < len(t.columns) {
		padded := make([]any, len(t.columns))
		copy(padded, row)
		row = padded
	}
	t.Rows = append(t.Rows, row)
}

// Value returns the cell at row i, column col (nil when the column is absent).
func (t *Table) Value(i int, col string) any {
	j, ok := t.index[col]
	if !ok {
		return nil
	}
	return t.Rows[i][j]
}

// Set writes the cell at row i, column col, adding the column if needed.
func (t *Table) Set(i int, col string, v any) {
	j := t.AddColumn(col)
	t.Rows[i][j] = v
}

// AddColumn appends col (filled with nil) and returns its position. An
// existing column is left untouched.
func (t *Table) AddColumn(col string) int {
	if j, ok := t.index[col]; ok {
		return j
	}
	j := len(t.columns)
	t.columns = append(t.columns, col)
	t.index[col] = j
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], nil)
	}
	return j
}

// Require fails with a MissingColumnError on the first absent column.
// Empty names are skipped.
func (t *Table) Require(cols ...string) error {
	for _, c := range cols {
		if c == "" {
			continue
		}
		if !t.Has(c) {
			return &MissingColumnError{Table: t.Name, Column: c}
		}
	}
	return nil
}

// Select projects the table onto cols. Absent, empty or repeated names are
// skipped.
func (t *Table) Select(cols []string) *Table {
	var keep []string
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		if c != "" && t.Has(c) && !seen[c] {
			seen[c] = true
			keep = append(keep, c)
		}
	}
	out := New(t.Name, keep)
	pos := make([]int, len(out.columns))
	for k, c := range out.columns {
		pos[k] = t.index[c]
	}
	out.Rows = make([][]any, len(t.Rows))
	for i, row := range t.Rows {
		r := make([]any, len(pos))
		for k, j := range pos {
			r[k] = row[j]
		}
		out.Rows[i] = r
	}
	return out
}

// Drop removes the named columns.
func (t *Table) Drop(cols ...string) {
	drop := make(map[string]bool, len(cols))
	for _, c := range cols {
		drop[c] = true
	}
	var keep []string
	for _, c := range t.columns {
		if !drop[c] {
			keep = append(keep, c)
		}
	}
	if len(keep) == len(t.columns) {
		return
	}
	*t = *t.Select(keep)
}

// Clone returns a deep copy of the row slices.
func (t *Table) Clone() *Table {
	out := New(t.Name, t.columns)
	out.Rows = make([][]any, len(t.Rows))
	for i, row := range t.Rows {
		out.Rows[i] = append([]any(nil), row...)
	}
	return out
}

// NormalizeColumnNames rewrites every column name with normalize.ColumnName.
// When two names collapse to the same key the later one gets a numeric suffix.
func (t *Table) NormalizeColumnNames() {
	cols := make([]string, len(t.columns))
	t.index = make(map[string]int, len(t.columns))
	for j, c := range t.columns {
		n := t.unique(normalize.ColumnName(c))
		cols[j] = n
		t.index[n] = j
	}
	t.columns = cols
}

// Rename changes a column name. It is a no-op when from is absent.
func (t *Table) Rename(from, to string) {
	j, ok := t.index[from]
	if !ok || from == to {
		return
	}
	delete(t.index, from)
	t.columns[j] = to
	t.index[to] = j
}
