package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/hazyhaar/geoenrich/pkg/table"
)

// ReadTable loads every row of name. Driver values are converted to
// int64, float64 or string according to the column database type.
func (s *Store) ReadTable(ctx context.Context, name string) (*table.Table, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+s.dialect.Quote(name))
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", name, err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("read table %s: column types: %w", name, err)
	}
	cols := make([]string, len(types))
	dbTypes := make([]string, len(types))
	for i, ct := range types {
		cols[i] = ct.Name()
		dbTypes[i] = strings.ToUpper(ct.DatabaseTypeName())
	}

	t := table.New(name, cols)
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("read table %s: scan: %w", name, err)
		}
		for i := range raw {
			raw[i] = convert(raw[i], dbTypes[i])
		}
		t.Append(raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read table %s: %w", name, err)
	}
	s.logger.Debug("table read", "table", name, "rows", t.Len(), "columns", len(cols))
	return t, nil
}

// convert turns a scanned driver value into a table cell.
func convert(v any, dbType string) any {
	switch x := v.(type) {
	case nil:
		return nil
	case int64, float64, string:
		if s, ok := x.(string); ok {
			return fromText(s, dbType)
		}
		return x
	case []byte:
		return fromText(string(x), dbType)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	default:
		return fmt.Sprint(x)
	}
}

func fromText(s, dbType string) any {
	switch {
	case isIntegerType(dbType):
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case isDecimalType(dbType):
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}

func isIntegerType(t string) bool {
	switch t {
	case "INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT", "MEDIUMINT", "INT2", "INT4", "INT8",
		"UNSIGNED INT", "UNSIGNED BIGINT", "UNSIGNED SMALLINT", "UNSIGNED TINYINT", "SERIAL":
		return true
	}
	return false
}

func isDecimalType(t string) bool {
	switch t {
	case "DECIMAL", "NUMERIC", "DOUBLE", "FLOAT", "REAL", "FLOAT4", "FLOAT8", "DOUBLE PRECISION":
		return true
	}
	return strings.HasPrefix(t, "DECIMAL") || strings.HasPrefix(t, "NUMERIC")
}

// ReplaceTable drops and recreates t.Name with t's content. The swap is
// atomic: on any failure the previous table is left in place.
func (s *Store) ReplaceTable(ctx context.Context, t *table.Table, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 1000
	}
	if s.dialect.TransactionalDDL {
		return s.replaceInTx(ctx, t, batchSize)
	}
	return s.replaceBySwap(ctx, t, batchSize)
}

func (s *Store) replaceInTx(ctx context.Context, t *table.Table, batchSize int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace %s: begin: %w", t.Name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+s.dialect.Quote(t.Name)); err != nil {
		return fmt.Errorf("replace %s: drop: %w", t.Name, err)
	}
	if err := s.createAndFill(ctx, tx, t.Name, t, batchSize); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace %s: commit: %w", t.Name, err)
	}
	s.logger.Info("table replaced", "table", t.Name, "rows", t.Len())
	return nil
}

// replaceBySwap is used where DDL commits implicitly (MySQL): the rows go
// into a staging table, then one RENAME TABLE swaps it in.
func (s *Store) replaceBySwap(ctx context.Context, t *table.Table, batchSize int) error {
	staging := t.Name + "__staging"
	retired := t.Name + "__old"
	q := s.dialect.Quote

	for _, name := range []string{staging, retired} {
		if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+q(name)); err != nil {
			return fmt.Errorf("replace %s: clear %s: %w", t.Name, name, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace %s: begin: %w", t.Name, err)
	}
	if err := s.createAndFill(ctx, tx, staging, t, batchSize); err != nil {
		tx.Rollback()
		s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+q(staging))
		return err
	}
	if err := tx.Commit(); err != nil {
		s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+q(staging))
		return fmt.Errorf("replace %s: commit: %w", t.Name, err)
	}

	exists, err := s.TableExists(ctx, t.Name)
	if err != nil {
		return err
	}
	swap := fmt.Sprintf("RENAME TABLE %s TO %s", q(staging), q(t.Name))
	if exists {
		swap = fmt.Sprintf("RENAME TABLE %s TO %s, %s TO %s", q(t.Name), q(retired), q(staging), q(t.Name))
	}
	if _, err := s.db.ExecContext(ctx, swap); err != nil {
		s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+q(staging))
		return fmt.Errorf("replace %s: swap: %w", t.Name, err)
	}
	if exists {
		if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+q(retired)); err != nil {
			s.logger.Warn("retired table not dropped", "table", retired, "error", err)
		}
	}
	s.logger.Info("table replaced", "table", t.Name, "rows", t.Len())
	return nil
}

func (s *Store) createAndFill(ctx context.Context, tx *sql.Tx, name string, t *table.Table, batchSize int) error {
	cols := t.Columns()
	if _, err := tx.ExecContext(ctx, s.dialect.CreateTable(name, cols, t.Kinds(), false)); err != nil {
		return fmt.Errorf("replace %s: create: %w", t.Name, err)
	}
	for start := 0; start < t.Len(); start += batchSize {
		end := min(start+batchSize, t.Len())
		stmts, args := s.dialect.InsertStatements(name, cols, t.Rows[start:end])
		for i, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt, args[i]...); err != nil {
				return fmt.Errorf("replace %s: insert rows %d-%d: %w", t.Name, start, end-1, err)
			}
		}
	}
	return nil
}

// TableExists reports whether name exists in the current database.
func (s *Store) TableExists(ctx context.Context, name string) (bool, error) {
	var query string
	switch s.dialect.Name {
	case "sqlite":
		query = "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
	case "postgres":
		query = "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1"
	default:
		query = "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?"
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, name).Scan(&n); err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return n > 0, nil
}
