package importer

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/geoenrich/pkg/store"
	"github.com/hazyhaar/geoenrich/pkg/table"
)

// DefaultBatchSize is the number of rows sent per batch.
const DefaultBatchSize = 1000

// Tx is the part of *sql.Tx used by the loader.
type Tx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Commit() error
	Rollback() error
}

// LoadError is a failed batch. Row is the first row of that batch.
type LoadError struct {
	Table  string
	Offset int
	Row    []any
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: batch at row %d: %v", e.Table, e.Offset, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Loader bulk-inserts tables in fixed-size batches.
type Loader struct {
	Dialect   store.Dialect
	BatchSize int
	Logger    *slog.Logger
}

// Load inserts every row of t into the table t.Name inside tx and commits
// once at the end. It returns the number of batches sent. The first failing
// batch is logged with its first row, tx is rolled back and a *LoadError is
// returned.
func (l *Loader) Load(ctx context.Context, tx Tx, t *table.Table) (int, error) {
	size := l.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cols := t.Columns()
	batches := 0
	for start := 0; start < t.Len(); start += size {
		end := min(start+size, t.Len())
		stmts, args := l.Dialect.InsertStatements(t.Name, cols, t.Rows[start:end])
		for i, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt, args[i]...); err != nil {
				logger.Error("batch insert failed",
					"table", t.Name,
					"offset", start,
					"row", fmt.Sprint(t.Rows[start]),
					"error", err,
				)
				tx.Rollback()
				return batches, &LoadError{Table: t.Name, Offset: start, Row: t.Rows[start], Err: err}
			}
		}
		batches++
		logger.Debug("batch inserted", "table", t.Name, "rows", end-start, "offset", start)
	}
	if err := tx.Commit(); err != nil {
		return batches, fmt.Errorf("load %s: commit: %w", t.Name, err)
	}
	logger.Info("table loaded", "table", t.Name, "rows", t.Len(), "batches", batches)
	return batches, nil
}
