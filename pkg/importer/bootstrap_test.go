package importer

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hazyhaar/geoenrich/pkg/config"
	"github.com/hazyhaar/geoenrich/pkg/store"
)

const (
	refCP   = "code_postal,code_commune_insee,nom_de_la_commune\n75001,75101,PARIS 01\n1000,1053,BOURG EN BRESSE\n"
	refIris = "DEPCOM;LIB_IRIS;CODE_IRIS\n75101;Les Halles;751010101\n"
)

func inseeZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("nat2021.csv")
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte(inseeSample))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func referenceServer(t *testing.T) (*httptest.Server, map[string]int) {
	t.Helper()
	hits := make(map[string]int)
	files := map[string][]byte{
		"/refCP.csv":            []byte(refCP),
		"/Ref_IRIS_geo2024.csv": []byte(refIris),
		"/nat2021_csv.zip":      inseeZip(t),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits[r.URL.Path]++
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, hits
}

func testSources(base string) []Source {
	s := DefaultSources()
	s[0].URL = base + "/refCP.csv"
	s[1].URL = base + "/Ref_IRIS_geo2024.csv"
	fn := FirstNamesSource()
	fn.URL = base + "/nat2021_csv.zip"
	return append(s, fn)
}

func TestBootstrapRun(t *testing.T) {
	srv, hits := referenceServer(t)
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "output_data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatal(err)
	}
	// Already present: loaded but not downloaded.
	socio := "codgeo,rev,id\n751010101,31000.5,7\n"
	if err := os.WriteFile(filepath.Join(dataDir, "maj_2014_references.csv"), []byte(socio), 0o644); err != nil {
		t.Fatal(err)
	}

	db := config.Database{Driver: "sqlite", Path: filepath.Join(dir, "geo.db")}
	registry := tempSourceDB(t)
	opts := Options{
		DataDir:      dataDir,
		TablesScript: filepath.Join(dir, "tables_script.yaml"),
		BatchSize:    1,
		Sources:      testSources(srv.URL),
	}
	sum, err := New(db, opts, registry, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantDownloaded := []string{"refCP.csv", "Ref_IRIS_geo2024.csv", "table_prenoms.csv"}
	if diff := cmp.Diff(wantDownloaded, sum.Downloaded); diff != "" {
		t.Errorf("downloaded mismatch (-want +got):\n%s", diff)
	}
	wantTables := map[string]int{"refcp": 2, "ref_iris_geo2024": 1, "table_prenoms": 2, "maj_2014_references": 1}
	if diff := cmp.Diff(wantTables, sum.Tables); diff != "" {
		t.Errorf("tables mismatch (-want +got):\n%s", diff)
	}

	script, err := ReadTablesScript(opts.TablesScript)
	if err != nil {
		t.Fatalf("ReadTablesScript: %v", err)
	}
	if !strings.Contains(script["refCP.csv"], "AUTOINCREMENT") {
		t.Errorf("refCP script lacks the surrogate key: %s", script["refCP.csv"])
	}
	if strings.Contains(script["maj_2014_references.csv"], "AUTOINCREMENT") {
		t.Errorf("a CSV with its own id must not get a surrogate key: %s", script["maj_2014_references.csv"])
	}

	st, err := store.Open(context.Background(), db, nil)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	iris, err := st.ReadTable(context.Background(), "ref_iris_geo2024")
	st.Close()
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if diff := cmp.Diff([]string{"id", "depcom", "lib_iris", "code_iris"}, iris.Columns()); diff != "" {
		t.Errorf("iris columns mismatch (-want +got):\n%s", diff)
	}
	if iris.Value(0, "lib_iris") != "Les Halles" || iris.Value(0, "code_iris") != int64(751010101) {
		t.Errorf("iris row = %v", iris.Rows[0])
	}

	status, err := registry.ListSources()
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	for _, s := range status {
		if s.LastRows == nil {
			t.Errorf("%s: load not recorded", s.SourceID)
		}
	}

	// Second run: everything is present, nothing is downloaded again.
	if _, err := New(db, opts, registry, nil).Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	for path, n := range hits {
		if n != 1 {
			t.Errorf("%s fetched %d times", path, n)
		}
	}
}

func TestBootstrapDownloadFailureAborts(t *testing.T) {
	srv, _ := referenceServer(t)
	dir := t.TempDir()
	sources := testSources(srv.URL)
	sources[1].URL = srv.URL + "/missing.csv"

	db := config.Database{Driver: "sqlite", Path: filepath.Join(dir, "geo.db")}
	opts := Options{DataDir: filepath.Join(dir, "data"), Sources: sources}
	sum, err := New(db, opts, nil, nil).Run(context.Background())
	if err == nil {
		t.Fatal("expected the run to fail")
	}
	if len(sum.Tables) != 0 {
		t.Errorf("tables loaded despite the failure: %v", sum.Tables)
	}
	if _, err := os.Stat(db.Path); !os.IsNotExist(err) {
		t.Error("database touched before downloads completed")
	}
}
