// Package reference indexes the static geographic and demographic
// lookup tables used by the enrichment stages.
package reference

import (
	"log/slog"

	"github.com/hazyhaar/geoenrich/pkg/normalize"
	"github.com/hazyhaar/geoenrich/pkg/table"
)

// Postal reference columns.
const (
	ColPostalCode  = "code_postal"
	ColCommuneCode = "code_commune_insee"
	ColCommuneName = "nom_de_la_commune"
)

// Commune is a postal reference hit.
type Commune struct {
	Code string // 5-character INSEE code
	Name string
}

type postalKey struct {
	postal, city string
}

// PostalIndex maps (postal code, normalized city) to a commune.
type PostalIndex struct {
	entries    map[postalKey]Commune
	Collisions int
	Invalid    int // rows whose commune code is not 5 characters once padded
}

// NewPostalIndex indexes a postal reference table. When several rows share
// a key the first one wins.
func NewPostalIndex(t *table.Table) (*PostalIndex, error) {
	if err := t.Require(ColPostalCode, ColCommuneCode, ColCommuneName); err != nil {
		return nil, err
	}
	idx := &PostalIndex{entries: make(map[postalKey]Commune, t.Len())}
	for i := range t.Rows {
		postal, ok := Code(t.Value(i, ColPostalCode))
		if !ok {
			continue
		}
		code, ok := Code(t.Value(i, ColCommuneCode))
		if !ok {
			continue
		}
		if code = PadCommune(code); len(code) != CommuneWidth {
			idx.Invalid++
			continue
		}
		name, _ := table.String(t.Value(i, ColCommuneName))
		key := postalKey{PadPostal(postal), normalize.Value(t.Value(i, ColCommuneName))}
		if _, dup := idx.entries[key]; dup {
			idx.Collisions++
			continue
		}
		idx.entries[key] = Commune{Code: code, Name: name}
	}
	if idx.Collisions > 0 {
		slog.Warn("key collisions after normalization", "table", t.Name, "collisions", idx.Collisions)
	}
	if idx.Invalid > 0 {
		slog.Warn("malformed commune codes skipped", "table", t.Name, "rows", idx.Invalid)
	}
	return idx, nil
}

// Lookup resolves a client postal code and city. Both are canonicalized
// the same way as the reference.
func (p *PostalIndex) Lookup(postal, city any) (Commune, bool) {
	pc, ok := Code(postal)
	if !ok {
		return Commune{}, false
	}
	c, ok := p.entries[postalKey{PadPostal(pc), normalize.Value(city)}]
	return c, ok
}

// Len returns the number of distinct keys.
func (p *PostalIndex) Len() int { return len(p.entries) }
