// Package geo attaches INSEE commune and IRIS zone codes to client rows.
package geo

import (
	"log/slog"
	"strings"

	"github.com/hazyhaar/geoenrich/pkg/config"
	"github.com/hazyhaar/geoenrich/pkg/reference"
	"github.com/hazyhaar/geoenrich/pkg/table"
)

// Output columns.
const (
	ColINSEE       = "c_insee"
	ColCommuneName = "nom_de_la_commune"
	ColIrisCode    = "code_iris"
	ColIrisLabel   = "lib_iris"
	ColIrisSuffix  = "c_iris"
	ColQuality     = "c_qualite_iris"
	ColGeoCode     = "codgeo"
)

// Columns produced by SplitFullName.
const (
	ColSplitCivility  = "gender"
	ColSplitFirstName = "prenom"
	ColSplitLastName  = "nom"
)

// NoIris is the suffix of rows without an IRIS match.
const NoIris = "0000"

// Quality grades how much of the geographic join succeeded.
type Quality int

const (
	QualityIris    Quality = 1 // commune and IRIS matched
	QualityCommune Quality = 2 // commune only
	QualityNone    Quality = 8 // no match
)

// Result is the geographic resolution of one client row.
type Result struct {
	Commune    reference.Commune
	HasCommune bool
	Iris       reference.Iris
	HasIris    bool
}

// Quality grades r; it is monotonic in match completeness.
func (r Result) Quality() Quality {
	switch {
	case r.HasCommune && r.HasIris:
		return QualityIris
	case r.HasCommune:
		return QualityCommune
	default:
		return QualityNone
	}
}

// IrisSuffix returns the 4-digit IRIS suffix, NoIris when unmatched.
func (r Result) IrisSuffix() string {
	if !r.HasIris {
		return NoIris
	}
	return r.Iris.Suffix()
}

// GeoCode concatenates the commune code and IRIS suffix. Rows without a
// commune get an empty code.
func (r Result) GeoCode() string {
	if !r.HasCommune {
		return ""
	}
	return r.Commune.Code + r.IrisSuffix()
}

// Options selects the client columns.
type Options struct {
	Schema config.Schema
	// SplitFullName treats Schema.LastName as "CIVILITY FIRST LAST" and
	// splits it into gender, prenom and nom; every input column is kept.
	SplitFullName bool
}

// Stats tallies rows per quality grade.
type Stats map[Quality]int

// Enricher joins clients against the postal and IRIS references.
type Enricher struct {
	postal *reference.PostalIndex
	iris   *reference.IrisIndex
	logger *slog.Logger
}

// New creates an Enricher over loaded reference indexes.
func New(postal *reference.PostalIndex, iris *reference.IrisIndex, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{postal: postal, iris: iris, logger: logger}
}

// Resolve joins one row: postal code + city to a commune, then commune +
// place name to an IRIS zone. Misses are not errors.
func (e *Enricher) Resolve(postal, city, place any) Result {
	var r Result
	r.Commune, r.HasCommune = e.postal.Lookup(postal, city)
	if r.HasCommune {
		r.Iris, r.HasIris = e.iris.Lookup(r.Commune.Code, place)
	}
	return r
}

// Enrich returns a new table with column names normalized, projected on the
// schema, and extended with the geographic columns. Every input row yields
// exactly one output row.
func (e *Enricher) Enrich(in *table.Table, opts Options) (*table.Table, Stats, error) {
	t := in.Clone()
	t.NormalizeColumnNames()
	s := opts.Schema.Normalized()

	if err := s.Check(t, opts.SplitFullName); err != nil {
		return nil, nil, err
	}
	if opts.SplitFullName {
		splitFullName(t, s.LastName)
	} else {
		t = t.Select(s.Columns())
	}

	stats := make(Stats)
	for i := range t.Rows {
		var place any
		if s.PlaceName != "" {
			place = t.Value(i, s.PlaceName)
		}
		r := e.Resolve(t.Value(i, s.PostalCode), t.Value(i, s.City), place)
		writeResult(t, i, r)
		stats[r.Quality()]++
	}

	e.logger.Info("geo enrichment done",
		"rows", t.Len(),
		"iris", stats[QualityIris],
		"commune_only", stats[QualityCommune],
		"unmatched", stats[QualityNone],
	)
	return t, stats, nil
}

func writeResult(t *table.Table, i int, r Result) {
	var insee, communeName, irisCode, irisLabel any
	if r.HasCommune {
		insee, communeName = r.Commune.Code, r.Commune.Name
	}
	if r.HasIris {
		irisCode, irisLabel = r.Iris.Code, r.Iris.Label
	}
	t.Set(i, ColINSEE, insee)
	t.Set(i, ColCommuneName, communeName)
	t.Set(i, ColIrisCode, irisCode)
	t.Set(i, ColIrisLabel, irisLabel)
	t.Set(i, ColIrisSuffix, r.IrisSuffix())
	t.Set(i, ColQuality, int64(r.Quality()))
	t.Set(i, ColGeoCode, r.GeoCode())
}

// splitFullName fills gender, prenom and nom from the first three
// whitespace-separated words of col. Extra words stay with the last name.
func splitFullName(t *table.Table, col string) {
	for i := range t.Rows {
		var parts []string
		if s, ok := table.String(t.Value(i, col)); ok {
			parts = strings.Fields(s)
		}
		if len(parts) > 3 {
			parts = append(parts[:2], strings.Join(parts[2:], " "))
		}
		for k, out := range []string{ColSplitCivility, ColSplitFirstName, ColSplitLastName} {
			var v any
			if k < len(parts) {
				v = parts[k]
			}
			t.Set(i, out, v)
		}
	}
}
