package importer

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hazyhaar/geoenrich/pkg/store"
	"github.com/hazyhaar/geoenrich/pkg/table"
)

type fakeTx struct {
	argCounts []int
	failAt    int // 1-based exec call that fails, 0 never
	commits   int
	rollbacks int
}

func (f *fakeTx) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	f.argCounts = append(f.argCounts, len(args))
	if !strings.HasPrefix(query, "INSERT INTO `refcp`") {
		return nil, errors.New("unexpected statement: " + query)
	}
	if f.failAt == len(f.argCounts) {
		return nil, errors.New("Data too long for column 'nom'")
	}
	return nil, nil
}

func (f *fakeTx) Commit() error   { f.commits++; return nil }
func (f *fakeTx) Rollback() error { f.rollbacks++; return nil }

func rows(n int) *table.Table {
	t := table.New("refcp", []string{"code_postal", "nom"})
	for i := 0; i < n; i++ {
		t.Append([]any{int64(i), "commune"})
	}
	return t
}

func TestLoadBatches(t *testing.T) {
	tx := &fakeTx{}
	l := &Loader{Dialect: store.MySQL, BatchSize: 1000}
	batches, err := l.Load(context.Background(), tx, rows(2500))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if batches != 3 {
		t.Errorf("batches = %d, want 3", batches)
	}
	// Two columns per row: 1000, 1000 and 500 rows.
	if diff := cmp.Diff([]int{2000, 2000, 1000}, tx.argCounts); diff != "" {
		t.Errorf("batch sizes mismatch (-want +got):\n%s", diff)
	}
	if tx.commits != 1 || tx.rollbacks != 0 {
		t.Errorf("commits = %d, rollbacks = %d; want 1, 0", tx.commits, tx.rollbacks)
	}
}

func TestLoadDefaultBatchSize(t *testing.T) {
	tx := &fakeTx{}
	batches, err := (&Loader{Dialect: store.MySQL}).Load(context.Background(), tx, rows(1001))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if batches != 2 {
		t.Errorf("batches = %d, want 2", batches)
	}
}

func TestLoadFailureAborts(t *testing.T) {
	tx := &fakeTx{failAt: 2}
	l := &Loader{Dialect: store.MySQL, BatchSize: 1000}
	batches, err := l.Load(context.Background(), tx, rows(2500))

	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	if le.Table != "refcp" || le.Offset != 1000 {
		t.Errorf("LoadError = %+v", le)
	}
	if diff := cmp.Diff([]any{int64(1000), "commune"}, le.Row); diff != "" {
		t.Errorf("offending row mismatch (-want +got):\n%s", diff)
	}
	if batches != 1 || len(tx.argCounts) != 2 {
		t.Errorf("batches = %d, execs = %d; the third batch must not be sent", batches, len(tx.argCounts))
	}
	if tx.commits != 0 || tx.rollbacks != 1 {
		t.Errorf("commits = %d, rollbacks = %d; want 0, 1", tx.commits, tx.rollbacks)
	}
}
