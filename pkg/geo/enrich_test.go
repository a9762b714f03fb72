package geo

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hazyhaar/geoenrich/pkg/config"
	"github.com/hazyhaar/geoenrich/pkg/reference"
	"github.com/hazyhaar/geoenrich/pkg/table"
)

func testEnricher(t *testing.T) *Enricher {
	t.Helper()
	pt := table.New("refcp", []string{reference.ColPostalCode, reference.ColCommuneCode, reference.ColCommuneName})
	pt.Append([]any{int64(75001), int64(75101), "PARIS"})
	pt.Append([]any{int64(75001), int64(75101), "Paris"}) // duplicate reference row
	pt.Append([]any{int64(1000), int64(1053), "BOURG-EN-BRESSE"})
	pt.Append([]any{int64(69001), int64(69381), "LYON"})
	postal, err := reference.NewPostalIndex(pt)
	if err != nil {
		t.Fatalf("NewPostalIndex: %v", err)
	}

	it := table.New("ref_iris_geo2024", []string{reference.ColIrisCommune, reference.ColIrisLabel, reference.ColIrisCode})
	it.Append([]any{int64(75101), "Les Halles", "751010101"})
	it.Append([]any{int64(75101), "Les Halles", "751010199"}) // duplicate reference row
	it.Append([]any{int64(1053), "Centre", int64(10530102)})
	iris, err := reference.NewIrisIndex(it)
	if err != nil {
		t.Fatalf("NewIrisIndex: %v", err)
	}
	return New(postal, iris, nil)
}

func clients() *table.Table {
	t := table.New("true_table_entree", []string{"id", "ID Client", "Civilité", "Prénom", "CP", "Ville", "Lieu-dit", "Extra"})
	t.Append([]any{int64(1), int64(101), "Mme", "Sophie", int64(75001), "Paris", "Les Halles", "x"})
	t.Append([]any{int64(2), int64(102), "M", "Luc", "01000", "Bourg en Bresse", "Gare", "x"})
	t.Append([]any{int64(3), int64(103), "M", "Paul", int64(1000), "Bourg-en-Bresse", "CENTRE", "x"})
	t.Append([]any{int64(4), int64(104), "Mme", "Anna", int64(99999), "Nowhere", nil, "x"})
	t.Append([]any{int64(5), int64(105), nil, nil, nil, nil, nil, nil})
	return t
}

func schema() config.Schema {
	return config.Schema{
		Civility:   "Civilité",
		FirstName:  "Prénom",
		PlaceName:  "Lieu-dit",
		PostalCode: "CP",
		City:       "Ville",
		ClientID:   "ID Client",
		Email:      "email", // absent from the input: excluded from the projection
	}
}

func TestEnrich(t *testing.T) {
	e := testEnricher(t)
	out, stats, err := e.Enrich(clients(), Options{Schema: schema()})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}

	wantCols := []string{
		"civilit_", "pr_nom", "lieu_dit", "cp", "ville", "id_client",
		ColINSEE, ColCommuneName, ColIrisCode, ColIrisLabel, ColIrisSuffix, ColQuality, ColGeoCode,
	}
	if diff := cmp.Diff(wantCols, out.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	if out.Len() != 5 {
		t.Fatalf("rows = %d, want 5", out.Len())
	}

	type row struct {
		Insee, Suffix, GeoCode string
		Quality                int64
	}
	got := make([]row, out.Len())
	for i := range out.Rows {
		insee, _ := table.String(out.Value(i, ColINSEE))
		got[i] = row{
			Insee:   insee,
			Suffix:  out.Value(i, ColIrisSuffix).(string),
			GeoCode: out.Value(i, ColGeoCode).(string),
			Quality: out.Value(i, ColQuality).(int64),
		}
	}
	want := []row{
		{"75101", "0101", "751010101", 1},
		{"01053", "0000", "010530000", 2},
		{"01053", "0102", "010530102", 1},
		{"", "0000", "", 8},
		{"", "0000", "", 8},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	if stats[QualityIris] != 2 || stats[QualityCommune] != 1 || stats[QualityNone] != 2 {
		t.Errorf("stats = %v", stats)
	}
	if out.Value(3, ColINSEE) != nil {
		t.Errorf("unmatched c_insee should be null, got %v", out.Value(3, ColINSEE))
	}
}

func TestEnrichInvariants(t *testing.T) {
	e := testEnricher(t)
	out, _, err := e.Enrich(clients(), Options{Schema: schema()})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	for i := range out.Rows {
		q := Quality(out.Value(i, ColQuality).(int64))
		hasInsee := out.Value(i, ColINSEE) != nil
		hasIris := out.Value(i, ColIrisCode) != nil
		switch q {
		case QualityIris:
			if !hasInsee || !hasIris {
				t.Errorf("row %d: quality 1 without both matches", i)
			}
		case QualityCommune:
			if !hasInsee || hasIris {
				t.Errorf("row %d: quality 2 inconsistent", i)
			}
		case QualityNone:
			if hasInsee || hasIris {
				t.Errorf("row %d: quality 8 with a match", i)
			}
		default:
			t.Errorf("row %d: quality %d out of domain", i, q)
		}
		if code := out.Value(i, ColGeoCode).(string); code != "" && len(code) != 9 {
			t.Errorf("row %d: geo code %q is neither empty nor 9 characters", i, code)
		}
	}
}

func TestEnrichDoesNotMutateInput(t *testing.T) {
	e := testEnricher(t)
	in := clients()
	if _, _, err := e.Enrich(in, Options{Schema: schema()}); err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if in.Columns()[2] != "Civilité" || len(in.Columns()) != 8 {
		t.Errorf("input table was modified: %v", in.Columns())
	}
}

func TestEnrichMissingJoinColumn(t *testing.T) {
	e := testEnricher(t)
	s := schema()
	s.City = "Commune"
	_, _, err := e.Enrich(clients(), Options{Schema: s})
	var mce *table.MissingColumnError
	if !errors.As(err, &mce) || mce.Column != "commune" {
		t.Fatalf("expected missing commune column, got %v", err)
	}
}

func TestEnrichWithoutPlaceName(t *testing.T) {
	e := testEnricher(t)
	s := schema()
	s.PlaceName = ""
	out, stats, err := e.Enrich(clients(), Options{Schema: s})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if out.Has("lieu_dit") {
		t.Errorf("unmapped place name should not be projected")
	}
	if stats[QualityIris] != 0 || stats[QualityCommune] != 3 {
		t.Errorf("stats = %v", stats)
	}
}

func TestEnrichSplitFullName(t *testing.T) {
	e := testEnricher(t)
	in := table.New("clients", []string{"nom", "cp", "ville"})
	in.Append([]any{"MME Sophie Martin", "75001", "Paris"})
	in.Append([]any{"M Jean De La Fontaine", "75001", "Paris"})
	in.Append([]any{"Dupont", "75001", "Paris"})

	s := config.Schema{LastName: "nom", PostalCode: "cp", City: "ville"}
	out, _, err := e.Enrich(in, Options{Schema: s, SplitFullName: true})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	got := [][]any{}
	for i := range out.Rows {
		got = append(got, []any{
			out.Value(i, ColSplitCivility), out.Value(i, ColSplitFirstName), out.Value(i, ColSplitLastName),
		})
	}
	want := [][]any{
		{"MME", "Sophie", "Martin"},
		{"M", "Jean", "De La Fontaine"},
		{"Dupont", nil, nil},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("split mismatch (-want +got):\n%s", diff)
	}
}

func TestResultGeoCode(t *testing.T) {
	tests := []struct {
		name string
		r    Result
		code string
		q    Quality
	}{
		{"none", Result{}, "", QualityNone},
		{"commune", Result{Commune: reference.Commune{Code: "75101"}, HasCommune: true}, "751010000", QualityCommune},
		{"iris", Result{
			Commune: reference.Commune{Code: "75101"}, HasCommune: true,
			Iris: reference.Iris{Code: "751010101"}, HasIris: true,
		}, "751010101", QualityIris},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.GeoCode(); got != tt.code {
				t.Errorf("GeoCode = %q, want %q", got, tt.code)
			}
			if got := tt.r.Quality(); got != tt.q {
				t.Errorf("Quality = %d, want %d", got, tt.q)
			}
		})
	}
}

func TestGeoCodeWidth(t *testing.T) {
	pt := table.New("refcp", []string{reference.ColPostalCode, reference.ColCommuneCode, reference.ColCommuneName})
	pt.Append([]any{int64(1400), int64(1), "L'Abergement"})
	pt.Append([]any{int64(1000), int64(123456), "Trop Long"})
	postal, err := reference.NewPostalIndex(pt)
	if err != nil {
		t.Fatalf("NewPostalIndex: %v", err)
	}
	it := table.New("ref_iris_geo2024", []string{reference.ColIrisCommune, reference.ColIrisLabel, reference.ColIrisCode})
	it.Append([]any{int64(1), "Centre", int64(10101)})
	it.Append([]any{int64(1), "Bourg", "12345678901"})
	iris, err := reference.NewIrisIndex(it)
	if err != nil {
		t.Fatalf("NewIrisIndex: %v", err)
	}
	e := New(postal, iris, nil)

	tests := []struct {
		postal, city, place any
		code                string
		q                   Quality
	}{
		{int64(1400), "L'Abergement", "Centre", "000010101", QualityIris},
		{"01400", "L'Abergement", nil, "000010000", QualityCommune},
		{int64(1400), "L'Abergement", "Bourg", "000010000", QualityCommune},
		{int64(1000), "Trop Long", nil, "", QualityNone},
	}
	for _, tt := range tests {
		r := e.Resolve(tt.postal, tt.city, tt.place)
		got := r.GeoCode()
		if got != tt.code || r.Quality() != tt.q {
			t.Errorf("Resolve(%v, %v, %v) = %q q%d, want %q q%d", tt.postal, tt.city, tt.place, got, r.Quality(), tt.code, tt.q)
		}
		if got != "" && len(got) != reference.GeoCodeWidth {
			t.Errorf("geo code %q is %d characters", got, len(got))
		}
	}
}
