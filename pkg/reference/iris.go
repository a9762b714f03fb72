package reference

import (
	"log/slog"

	"github.com/hazyhaar/geoenrich/pkg/normalize"
	"github.com/hazyhaar/geoenrich/pkg/table"
)

// IRIS reference columns.
const (
	ColIrisCommune = "depcom"
	ColIrisLabel   = "lib_iris"
	ColIrisCode    = "code_iris"
)

// Iris is an IRIS reference hit.
type Iris struct {
	Code  string // commune code + 4-digit suffix
	Label string
}

// Suffix returns the last four characters of the IRIS code.
func (i Iris) Suffix() string {
	if len(i.Code) < 4 {
		return i.Code
	}
	return i.Code[len(i.Code)-4:]
}

type irisKey struct {
	commune, place string
}

// IrisIndex maps (commune code, normalized place name) to an IRIS zone.
type IrisIndex struct {
	entries    map[irisKey]Iris
	Collisions int
	Invalid    int // rows whose IRIS code is not 9 characters once padded
}

// NewIrisIndex indexes an IRIS reference table; first row wins on duplicates.
// A null label indexes as "", like a null client place name.
func NewIrisIndex(t *table.Table) (*IrisIndex, error) {
	if err := t.Require(ColIrisCommune, ColIrisLabel, ColIrisCode); err != nil {
		return nil, err
	}
	idx := &IrisIndex{entries: make(map[irisKey]Iris, t.Len())}
	for i := range t.Rows {
		commune, ok := Code(t.Value(i, ColIrisCommune))
		if !ok {
			continue
		}
		code, ok := Code(t.Value(i, ColIrisCode))
		if !ok {
			continue
		}
		if code = PadGeoCode(code); len(code) != GeoCodeWidth {
			idx.Invalid++
			continue
		}
		label, _ := table.String(t.Value(i, ColIrisLabel))
		key := irisKey{PadCommune(commune), normalize.Value(t.Value(i, ColIrisLabel))}
		if _, dup := idx.entries[key]; dup {
			idx.Collisions++
			continue
		}
		idx.entries[key] = Iris{Code: code, Label: label}
	}
	if idx.Collisions > 0 {
		slog.Warn("key collisions after normalization", "table", t.Name, "collisions", idx.Collisions)
	}
	if idx.Invalid > 0 {
		slog.Warn("malformed IRIS codes skipped", "table", t.Name, "rows", idx.Invalid)
	}
	return idx, nil
}

// Lookup resolves a commune code and client place name.
func (x *IrisIndex) Lookup(commune string, place any) (Iris, bool) {
	if commune == "" {
		return Iris{}, false
	}
	z, ok := x.entries[irisKey{commune, normalize.Value(place)}]
	return z, ok
}

// Len returns the number of distinct keys.
func (x *IrisIndex) Len() int { return len(x.entries) }
