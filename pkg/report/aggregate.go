// Package report renders summary views of an enriched table into xlsx
// workbooks with native charts.
package report

import (
	"sort"

	"github.com/hazyhaar/geoenrich/pkg/table"
)

// Aggregate is a small result block: the first column holds categories, the
// following ones numeric series.
type Aggregate struct {
	Header []string
	Rows   [][]any
}

// Len returns the number of categories.
func (a Aggregate) Len() int { return len(a.Rows) }

type counter struct {
	order []string
	n     map[string]int
}

func newCounter() *counter { return &counter{n: make(map[string]int)} }

func (c *counter) add(k string) {
	if _, ok := c.n[k]; !ok {
		c.order = append(c.order, k)
	}
	c.n[k]++
}

// byCount returns the keys by decreasing count, first-seen order on ties.
func (c *counter) byCount() []string {
	keys := append([]string(nil), c.order...)
	sort.SliceStable(keys, func(i, j int) bool { return c.n[keys[i]] > c.n[keys[j]] })
	return keys
}

func (c *counter) total() int {
	s := 0
	for _, v := range c.n {
		s += v
	}
	return s
}

func countColumn(t *table.Table, col string) (*counter, error) {
	if err := t.Require(col); err != nil {
		return nil, err
	}
	c := newCounter()
	for _, v := range t.ColumnValues(col) {
		if s, ok := table.String(v); ok {
			c.add(s)
		}
	}
	return c, nil
}

// ValueCounts counts the non-null values of col, most frequent first.
func ValueCounts(t *table.Table, col, category, label string) (Aggregate, error) {
	c, err := countColumn(t, col)
	if err != nil {
		return Aggregate{}, err
	}
	a := Aggregate{Header: []string{category, label}}
	for _, k := range c.byCount() {
		a.Rows = append(a.Rows, []any{k, int64(c.n[k])})
	}
	return a, nil
}

// Percentages is ValueCounts scaled to a share of 100.
func Percentages(t *table.Table, col, category, label string) (Aggregate, error) {
	c, err := countColumn(t, col)
	if err != nil {
		return Aggregate{}, err
	}
	a := Aggregate{Header: []string{category, label}}
	total := float64(c.total())
	for _, k := range c.byCount() {
		a.Rows = append(a.Rows, []any{k, 100 * float64(c.n[k]) / total})
	}
	return a, nil
}

// GroupMean averages value per distinct group, groups sorted ascending.
// Null groups are skipped; a group without numeric values gets a null mean.
func GroupMean(t *table.Table, group, value, label string) (Aggregate, error) {
	if err := t.Require(group, value); err != nil {
		return Aggregate{}, err
	}
	type acc struct {
		sum float64
		n   int
	}
	groups := make(map[string]*acc)
	for i := range t.Rows {
		g, ok := table.String(t.Value(i, group))
		if !ok {
			continue
		}
		a := groups[g]
		if a == nil {
			a = &acc{}
			groups[g] = a
		}
		if f, ok := table.Float(t.Value(i, value)); ok {
			a.sum += f
			a.n++
		}
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := Aggregate{Header: []string{group, label}}
	for _, k := range keys {
		var mean any
		if a := groups[k]; a.n > 0 {
			mean = a.sum / float64(a.n)
		}
		out.Rows = append(out.Rows, []any{k, mean})
	}
	return out, nil
}

// ColumnSums yields one row per column with the sum of its numeric values.
func ColumnSums(t *table.Table, cols []string, category, label string) (Aggregate, error) {
	if err := t.Require(cols...); err != nil {
		return Aggregate{}, err
	}
	a := Aggregate{Header: []string{category, label}}
	for _, c := range cols {
		var sum float64
		for _, v := range t.ColumnValues(c) {
			if f, ok := table.Float(v); ok {
				sum += f
			}
		}
		a.Rows = append(a.Rows, []any{c, sum})
	}
	return a, nil
}

// Crosstab counts rows per (row value, column value) pair. Both axes are
// sorted ascending and missing pairs count zero. Rows with a null on either
// axis are skipped.
func Crosstab(t *table.Table, rowCol, colCol string) (Aggregate, error) {
	if err := t.Require(rowCol, colCol); err != nil {
		return Aggregate{}, err
	}
	counts := make(map[[2]string]int)
	rowSet := make(map[string]bool)
	colSet := make(map[string]bool)
	for i := range t.Rows {
		r, ok := table.String(t.Value(i, rowCol))
		if !ok {
			continue
		}
		c, ok := table.String(t.Value(i, colCol))
		if !ok {
			continue
		}
		counts[[2]string{r, c}]++
		rowSet[r] = true
		colSet[c] = true
	}
	rows, cols := sortedKeys(rowSet), sortedKeys(colSet)

	a := Aggregate{Header: append([]string{rowCol}, cols...)}
	for _, r := range rows {
		line := []any{r}
		for _, c := range cols {
			line = append(line, int64(counts[[2]string{r, c}]))
		}
		a.Rows = append(a.Rows, line)
	}
	return a, nil
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
