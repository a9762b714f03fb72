package merge

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hazyhaar/geoenrich/pkg/table"
)

func TestLeftJoin(t *testing.T) {
	left := table.New("02eg_age_sexe", []string{"id_client", "codgeo", "ville"})
	left.Append([]any{int64(1), "751010101", "Paris"})
	left.Append([]any{int64(2), "010530102", "Bourg"})
	left.Append([]any{int64(3), "", "Nowhere"})
	left.Append([]any{int64(4), "999990000", "Atlantis"})
	left.Append([]any{int64(1), "751010101", "Paris"})

	right := table.New("maj_2014_references", []string{"id", "codgeo", "rev", "ville", "propr"})
	right.Append([]any{int64(10), "751010101", 31000.5, "PARIS", int64(12)})
	right.Append([]any{int64(11), int64(10530102), 22000.0, "BOURG-EN-BRESSE", int64(40)})
	right.Append([]any{int64(12), "751010101", 99999.0, "DUP", int64(0)})

	out, res, err := LeftJoin(left, right, "codgeo")
	if err != nil {
		t.Fatalf("LeftJoin: %v", err)
	}

	wantCols := []string{"id_client", "codgeo", "ville", "rev", "ville_ref", "propr"}
	if diff := cmp.Diff(wantCols, out.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	want := [][]any{
		{int64(1), "751010101", "Paris", 31000.5, "PARIS", int64(12)},
		{int64(2), "010530102", "Bourg", 22000.0, "BOURG-EN-BRESSE", int64(40)},
		{int64(3), "", "Nowhere", nil, nil, nil},
		{int64(4), "999990000", "Atlantis", nil, nil, nil},
		{int64(1), "751010101", "Paris", 31000.5, "PARIS", int64(12)},
	}
	if diff := cmp.Diff(want, out.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Result{Rows: 5, Matched: 3}, res); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	if len(left.Columns()) != 3 {
		t.Errorf("left table was modified: %v", left.Columns())
	}
}

func TestLeftJoinMissingKey(t *testing.T) {
	left := table.New("clients", []string{"codgeo"})
	right := table.New("refs", []string{"code"})
	_, _, err := LeftJoin(left, right, "codgeo")
	var mce *table.MissingColumnError
	if !errors.As(err, &mce) || mce.Table != "refs" {
		t.Fatalf("expected missing key on refs, got %v", err)
	}
}
