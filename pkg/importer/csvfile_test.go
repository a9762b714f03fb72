package importer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hazyhaar/geoenrich/pkg/table"
)

func TestTableName(t *testing.T) {
	tests := map[string]string{
		"refCP.csv":               "refcp",
		"Ref_IRIS_geo2024.csv":    "ref_iris_geo2024",
		"/data/table_prenoms.csv": "table_prenoms",
		"maj 2014-references.CSV": "maj_2014_references",
	}
	for in, want := range tests {
		if got := TableName(in); got != want {
			t.Errorf("TableName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseCSVSemicolonAndKinds(t *testing.T) {
	in := "\xEF\xBB\xBFCode_postal;Code_commune_INSEE;Nom de la commune;Ligne 5;lat\n" +
		"01000;01053;BOURG EN BRESSE;;46.2\n" +
		"20000;2A004;AJACCIO;;41.9\n" +
		"75001;75101;PARIS 01;LOUVRE;48\n"
	got, err := parseCSV(strings.NewReader(in), "")
	if err != nil {
		t.Fatalf("parseCSV: %v", err)
	}
	wantCols := []string{"code_postal", "code_commune_insee", "nom_de_la_commune", "ligne_5", "lat"}
	if diff := cmp.Diff(wantCols, got.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	want := [][]any{
		{int64(1000), "01053", "BOURG EN BRESSE", nil, 46.2},
		{int64(20000), "2A004", "AJACCIO", nil, 41.9},
		{int64(75001), "75101", "PARIS 01", "LOUVRE", 48.0},
	}
	if diff := cmp.Diff(want, got.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	wantKinds := []table.Kind{table.KindInteger, table.KindString, table.KindString, table.KindString, table.KindDecimal}
	if diff := cmp.Diff(wantKinds, got.Kinds()); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCSVDuplicateHeader(t *testing.T) {
	got, err := parseCSV(strings.NewReader("code,code,nom\n1,2,paris\n"), "")
	if err != nil {
		t.Fatalf("parseCSV: %v", err)
	}
	if diff := cmp.Diff([]string{"code", "code_1", "nom"}, got.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]any{{int64(1), int64(2), "paris"}}, got.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCSVTrimsTextCells(t *testing.T) {
	got, err := parseCSV(strings.NewReader("ville;code\n  Paris ;2A004\nLyon;  69001\n"), "")
	if err != nil {
		t.Fatalf("parseCSV: %v", err)
	}
	if diff := cmp.Diff([]any{"Paris", "Lyon"}, got.ColumnValues("ville")); diff != "" {
		t.Errorf("ville mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{"2A004", "69001"}, got.ColumnValues("code")); diff != "" {
		t.Errorf("code mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCSVLatin1(t *testing.T) {
	// "Lieu-dit,Population\nSaint-Étienne,171924\n" in ISO-8859-1.
	in := "Lieu-dit,Population\nSaint-\xC9tienne,171924\n"
	got, err := parseCSV(strings.NewReader(in), "latin1")
	if err != nil {
		t.Fatalf("parseCSV: %v", err)
	}
	if v := got.Value(0, "lieu_dit"); v != "Saint-Étienne" {
		t.Errorf("lieu_dit = %q", v)
	}
	if v := got.Value(0, "population"); v != int64(171924) {
		t.Errorf("population = %v", v)
	}
}

func TestParseCSVUnknownEncoding(t *testing.T) {
	if _, err := parseCSV(strings.NewReader("a\n1\n"), "klingon"); err == nil {
		t.Fatal("expected an error for an unknown encoding")
	}
}

func TestReadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Ref_IRIS_geo2024.csv")
	if err := os.WriteFile(path, []byte("DEPCOM,LIB_IRIS,CODE_IRIS\n75101,Les Halles,751010101\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ReadCSV(path, "")
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if got.Name != "ref_iris_geo2024" || got.Len() != 1 {
		t.Fatalf("table = %s with %d rows", got.Name, got.Len())
	}
	if v := got.Value(0, "code_iris"); v != int64(751010101) {
		t.Errorf("code_iris = %v", v)
	}
}
