package importer

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SourceStatus is a row of the import_sources table.
type SourceStatus struct {
	SourceID    string
	File        string
	Description string
	SourceURL   string
	License     string
	LastCheck   *int64
	LastStatus  *int
	LastError   *string
	LastLoad    *int64
	LastRows    *int64
	UpdatedAt   int64
}

// SourceDB keeps source URLs and their check/load history in SQLite, next to
// the downloaded files.
type SourceDB struct {
	db *sql.DB
}

// OpenSourceDB opens (or creates) the SQLite database at path and ensures the
// import_sources table exists.
func OpenSourceDB(path string) (*SourceDB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open source db: %w", err)
	}

	const ddl = `CREATE TABLE IF NOT EXISTS import_sources (
		source_id    TEXT PRIMARY KEY,
		file         TEXT NOT NULL,
		description  TEXT NOT NULL,
		source_url   TEXT NOT NULL,
		license      TEXT NOT NULL DEFAULT '',
		last_check   INTEGER,
		last_status  INTEGER,
		last_error   TEXT,
		last_load    INTEGER,
		last_rows    INTEGER,
		updated_at   INTEGER NOT NULL
	)`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("create import_sources table: %w", err)
	}

	return &SourceDB{db: db}, nil
}

// Close closes the SQLite handle.
func (s *SourceDB) Close() error {
	return s.db.Close()
}

// Seed inserts a row per source. Existing rows are left untouched so that
// URLs set with SetURL survive later runs.
func (s *SourceDB) Seed(sources []Source) error {
	const q = `INSERT OR IGNORE INTO import_sources
		(source_id, file, description, source_url, license, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	now := time.Now().Unix()
	for _, src := range sources {
		if _, err := s.db.Exec(q, src.ID, src.File, src.Description, src.URL, src.License, now); err != nil {
			return fmt.Errorf("seed %s: %w", src.ID, err)
		}
	}
	return nil
}

// GetURL returns the current URL of a source.
func (s *SourceDB) GetURL(sourceID string) (string, error) {
	var url string
	err := s.db.QueryRow(`SELECT source_url FROM import_sources WHERE source_id = ?`, sourceID).Scan(&url)
	if err != nil {
		return "", fmt.Errorf("get url for %s: %w", sourceID, err)
	}
	return url, nil
}

// SetURL overrides the URL of a source and records the change timestamp.
func (s *SourceDB) SetURL(sourceID, url string) error {
	res, err := s.db.Exec(
		`UPDATE import_sources SET source_url = ?, updated_at = ? WHERE source_id = ?`,
		url, time.Now().Unix(), sourceID,
	)
	if err != nil {
		return fmt.Errorf("set url for %s: %w", sourceID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("source %s not found in import_sources", sourceID)
	}
	return nil
}

// UpdateCheck persists the result of an availability check.
func (s *SourceDB) UpdateCheck(sourceID string, status int, checkErr string) error {
	var errPtr *string
	if checkErr != "" {
		errPtr = &checkErr
	}
	_, err := s.db.Exec(
		`UPDATE import_sources SET last_check = ?, last_status = ?, last_error = ? WHERE source_id = ?`,
		time.Now().Unix(), status, errPtr, sourceID,
	)
	if err != nil {
		return fmt.Errorf("update check for %s: %w", sourceID, err)
	}
	return nil
}

// RecordLoad stores the row count of a successful load.
func (s *SourceDB) RecordLoad(sourceID string, rows int) error {
	_, err := s.db.Exec(
		`UPDATE import_sources SET last_load = ?, last_rows = ? WHERE source_id = ?`,
		time.Now().Unix(), rows, sourceID,
	)
	if err != nil {
		return fmt.Errorf("record load for %s: %w", sourceID, err)
	}
	return nil
}

// ListSources returns all rows ordered by source_id.
func (s *SourceDB) ListSources() ([]SourceStatus, error) {
	rows, err := s.db.Query(`SELECT source_id, file, description, source_url, license,
		last_check, last_status, last_error, last_load, last_rows, updated_at
		FROM import_sources ORDER BY source_id`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []SourceStatus
	for rows.Next() {
		var src SourceStatus
		if err := rows.Scan(&src.SourceID, &src.File, &src.Description, &src.SourceURL, &src.License,
			&src.LastCheck, &src.LastStatus, &src.LastError, &src.LastLoad, &src.LastRows, &src.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}
