package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hazyhaar/geoenrich/pkg/table"
)

// Dialect captures the SQL differences between supported datastores.
type Dialect struct {
	Name   string
	Driver string // database/sql driver name
	// TransactionalDDL is true when DROP/CREATE TABLE roll back with the
	// surrounding transaction.
	TransactionalDDL bool
	// MaxParams bounds the bind parameters of one statement (0 = unbounded).
	MaxParams int
	quote     string
	dollar    bool
	types     [3]string // indexed by table.Kind
	autoPK    string
}

var (
	MySQL = Dialect{
		Name: "mysql", Driver: "mysql",
		quote:  "`",
		types:  [3]string{"TEXT", "BIGINT", "DOUBLE"},
		autoPK: "id INT AUTO_INCREMENT PRIMARY KEY",
	}
	Postgres = Dialect{
		Name: "postgres", Driver: "postgres",
		TransactionalDDL: true,
		MaxParams:        65535,
		quote:            `"`,
		dollar:           true,
		types:            [3]string{"TEXT", "BIGINT", "DOUBLE PRECISION"},
		autoPK:           "id SERIAL PRIMARY KEY",
	}
	SQLite = Dialect{
		Name: "sqlite", Driver: "sqlite",
		TransactionalDDL: true,
		MaxParams:        32766,
		quote:            `"`,
		types:            [3]string{"TEXT", "INTEGER", "REAL"},
		autoPK:           "id INTEGER PRIMARY KEY AUTOINCREMENT",
	}
)

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch name {
	case "mysql":
		return MySQL, nil
	case "postgres":
		return Postgres, nil
	case "sqlite":
		return SQLite, nil
	}
	return Dialect{}, fmt.Errorf("unsupported driver %q", name)
}

// Quote escapes an identifier. Table names such as 01eg_insee_iris start
// with a digit and must always be quoted.
func (d Dialect) Quote(ident string) string {
	return d.quote + strings.ReplaceAll(ident, d.quote, d.quote+d.quote) + d.quote
}

// Placeholders returns n comma-separated bind markers, numbered from
// offset+1 for dialects that number them.
func (d Dialect) Placeholders(n, offset int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		if d.dollar {
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(offset + i + 1))
		} else {
			b.WriteByte('?')
		}
	}
	return b.String()
}

// ColumnType maps an inferred kind to a column type.
func (d Dialect) ColumnType(k table.Kind) string {
	return d.types[k]
}

// CreateTable builds a CREATE TABLE statement. With autoID an
// auto-increment primary key named id is prepended.
func (d Dialect) CreateTable(name string, columns []string, kinds []table.Kind, autoID bool) string {
	defs := make([]string, 0, len(columns)+1)
	if autoID {
		defs = append(defs, d.autoPK)
	}
	for i, c := range columns {
		defs = append(defs, d.Quote(c)+" "+d.ColumnType(kinds[i]))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", d.Quote(name), strings.Join(defs, ",\n\t"))
}

// InsertPrefix returns "INSERT INTO t (cols) VALUES ".
func (d Dialect) InsertPrefix(name string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.Quote(c)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES ", d.Quote(name), strings.Join(quoted, ", "))
}

// RowsPerStatement returns how many rows of width cols fit in a single
// multi-row INSERT, capped at want.
func (d Dialect) RowsPerStatement(cols, want int) int {
	if d.MaxParams == 0 || cols == 0 {
		return want
	}
	n := d.MaxParams / cols
	if n < 1 {
		n = 1
	}
	if n > want {
		return want
	}
	return n
}

// InsertStatements renders rows as one or more multi-row INSERT statements
// with their flattened arguments.
func (d Dialect) InsertStatements(name string, columns []string, rows [][]any) ([]string, [][]any) {
	if len(rows) == 0 {
		return nil, nil
	}
	prefix := d.InsertPrefix(name, columns)
	per := d.RowsPerStatement(len(columns), len(rows))

	var stmts []string
	var args [][]any
	for start := 0; start < len(rows); start += per {
		end := min(start+per, len(rows))
		var b strings.Builder
		b.WriteString(prefix)
		flat := make([]any, 0, (end-start)*len(columns))
		for i, row := range rows[start:end] {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('(')
			b.WriteString(d.Placeholders(len(columns), len(flat)))
			b.WriteByte(')')
			flat = append(flat, row[:len(columns)]...)
		}
		stmts = append(stmts, b.String())
		args = append(args, flat)
	}
	return stmts, args
}
