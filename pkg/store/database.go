package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hazyhaar/geoenrich/pkg/config"
)

// RecreateDatabase drops and recreates the configured database. For SQLite,
// which has no server-side databases, every user table is dropped instead.
func RecreateDatabase(ctx context.Context, cfg config.Database) error {
	d, err := DialectFor(cfg.Driver)
	if err != nil {
		return err
	}
	if d.Name == "sqlite" {
		return dropAllSQLiteTables(ctx, cfg)
	}

	dsn, err := DSN(cfg, false)
	if err != nil {
		return err
	}
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return fmt.Errorf("open %s server: %w", d.Name, err)
	}
	defer db.Close()

	name := d.Quote(cfg.Database)
	if _, err := db.ExecContext(ctx, "DROP DATABASE IF EXISTS "+name); err != nil {
		return fmt.Errorf("drop database %s: %w", cfg.Database, err)
	}
	create := "CREATE DATABASE " + name
	if d.Name == "mysql" {
		create = "CREATE DATABASE IF NOT EXISTS " + name
	}
	if _, err := db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create database %s: %w", cfg.Database, err)
	}
	return nil
}

func dropAllSQLiteTables(ctx context.Context, cfg config.Database) error {
	dsn, err := DSN(cfg, true)
	if err != nil {
		return err
	}
	db, err := sql.Open(SQLite.Driver, dsn)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'")
	if err != nil {
		return fmt.Errorf("list sqlite tables: %w", err)
	}
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			rows.Close()
			return fmt.Errorf("list sqlite tables: %w", err)
		}
		names = append(names, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("list sqlite tables: %w", err)
	}

	for _, n := range names {
		if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+SQLite.Quote(n)); err != nil {
			return fmt.Errorf("drop %s: %w", n, err)
		}
	}
	return nil
}
