package reference

import (
	"fmt"
	"log/slog"

	"github.com/hazyhaar/geoenrich/pkg/normalize"
	"github.com/hazyhaar/geoenrich/pkg/table"
)

// Age reference columns, youngest bracket first.
const ColGeoCode = "codgeo"

var BracketColumns = [9]string{
	"age_0_5", "age_6_10", "age_11_17", "age_18_24", "age_25_39",
	"age_40_54", "age_55_64", "age_65_79", "age_over_80",
}

// AgeBrackets holds the population count of each bracket for one geo code.
type AgeBrackets [9]float64

// AgeIndex maps a 9-character geo code to its bracket counts.
type AgeIndex struct {
	entries    map[string]AgeBrackets
	Collisions int
}

// NewAgeIndex indexes the commune/IRIS age-bracket table. Null counts are
// read as zero.
func NewAgeIndex(t *table.Table) (*AgeIndex, error) {
	if err := t.Require(ColGeoCode); err != nil {
		return nil, err
	}
	if err := t.Require(BracketColumns[:]...); err != nil {
		return nil, err
	}
	idx := &AgeIndex{entries: make(map[string]AgeBrackets, t.Len())}
	for i := range t.Rows {
		code, ok := Code(t.Value(i, ColGeoCode))
		if !ok {
			continue
		}
		code = PadGeoCode(code)
		if _, dup := idx.entries[code]; dup {
			idx.Collisions++
			continue
		}
		var b AgeBrackets
		for k, col := range BracketColumns {
			b[k], _ = table.Float(t.Value(i, col))
		}
		idx.entries[code] = b
	}
	if idx.Collisions > 0 {
		slog.Warn("duplicate geo codes in age reference", "table", t.Name, "collisions", idx.Collisions)
	}
	return idx, nil
}

// Lookup returns the brackets for a geo code, padding 8-character codes.
func (a *AgeIndex) Lookup(geoCode string) (AgeBrackets, bool) {
	if geoCode == "" {
		return AgeBrackets{}, false
	}
	b, ok := a.entries[PadGeoCode(geoCode)]
	return b, ok
}

// Len returns the number of geo codes.
func (a *AgeIndex) Len() int { return len(a.entries) }

// Birth-year range covered by the first-name table.
const (
	FirstYear = 1913
	LastYear  = 2014
)

// ColFirstName is the key column of the first-name table.
const ColFirstName = "prenom"

// YearColumn names the count column for a birth year ("n1985").
func YearColumn(year int) string {
	return fmt.Sprintf("n%d", year)
}

// Histogram holds births per year, index 0 being FirstYear.
type Histogram [LastYear - FirstYear + 1]float64

// Count returns the births recorded for year (0 outside the range).
func (h *Histogram) Count(year int) float64 {
	if year < FirstYear || year > LastYear {
		return 0
	}
	return h[year-FirstYear]
}

// FirstNameIndex maps a normalized first name to its birth-year histogram.
type FirstNameIndex struct {
	entries    map[string]*Histogram
	Collisions int
}

// NewFirstNameIndex indexes the wide first-name table (prenom, n1913..n2014).
// Missing year columns count as zero.
func NewFirstNameIndex(t *table.Table) (*FirstNameIndex, error) {
	if err := t.Require(ColFirstName); err != nil {
		return nil, err
	}
	yearPos := make([]int, LastYear-FirstYear+1)
	for y := FirstYear; y <= LastYear; y++ {
		yearPos[y-FirstYear] = t.Index(YearColumn(y))
	}
	nameCol := t.Index(ColFirstName)

	idx := &FirstNameIndex{entries: make(map[string]*Histogram, t.Len())}
	for _, row := range t.Rows {
		key := normalize.Value(row[nameCol])
		if key == "" {
			continue
		}
		if _, dup := idx.entries[key]; dup {
			idx.Collisions++
			continue
		}
		h := new(Histogram)
		for k, j := range yearPos {
			if j >= 0 {
				h[k], _ = table.Float(row[j])
			}
		}
		idx.entries[key] = h
	}
	if idx.Collisions > 0 {
		slog.Warn("key collisions after normalization", "table", t.Name, "collisions", idx.Collisions)
	}
	return idx, nil
}

// Lookup normalizes name and returns its histogram.
func (f *FirstNameIndex) Lookup(name any) (*Histogram, bool) {
	key := normalize.Value(name)
	if key == "" {
		return nil, false
	}
	h, ok := f.entries[key]
	return h, ok
}

// Len returns the number of distinct names.
func (f *FirstNameIndex) Len() int { return len(f.entries) }
