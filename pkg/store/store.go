// Package store reads and replaces whole tables in the relational
// datastore behind the enrichment pipeline.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/geoenrich/pkg/config"
)

// Store is an open datastore connection with its dialect.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// DSN builds the driver connection string. With withDB false the database
// name is left out (or replaced by the server maintenance database) so that
// the target database itself can be dropped and recreated.
func DSN(cfg config.Database, withDB bool) (string, error) {
	switch cfg.Driver {
	case "mysql":
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
		if withDB {
			mc.DBName = cfg.Database
		}
		// Client-side interpolation lifts the 65535 placeholder ceiling on
		// wide batch inserts.
		mc.InterpolateParams = true
		return mc.FormatDSN(), nil
	case "postgres":
		dbName := cfg.Database
		if !withDB {
			dbName = "postgres"
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(cfg.User, cfg.Password),
			Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Path:     "/" + dbName,
			RawQuery: "sslmode=disable",
		}
		return u.String(), nil
	case "sqlite":
		return cfg.Path + "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)", nil
	}
	return "", fmt.Errorf("unsupported driver %q", cfg.Driver)
}

// Open connects to the configured database and pings it.
func Open(ctx context.Context, cfg config.Database, logger *slog.Logger) (*Store, error) {
	d, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	dsn, err := DSN(cfg, true)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.Name, err)
	}
	if d.Name == "sqlite" {
		db.SetMaxOpenConns(1)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, dialect: d, logger: logger}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying pool.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect returns the SQL dialect of the store.
func (s *Store) Dialect() Dialect { return s.dialect }

// ExecContext runs a statement outside any transaction.
func (s *Store) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}

// BeginTx starts a transaction.
func (s *Store) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, nil)
}
