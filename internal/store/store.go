// Package store keeps a history of scrape runs and every business seen
// across them in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/jmylchreest/mapleads/pkg/business"
)

// AppName names the data directory.
const AppName = "mapleads"

// DefaultPath returns the database location under the XDG data directory,
// e.g. ~/.local/share/mapleads/mapleads.db on Linux.
func DefaultPath() string {
	return filepath.Join(xdg.DataHome, AppName, AppName+".db")
}

// Store is a SQLite-backed run history.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, path: path}
	if err := s.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		total INTEGER NOT NULL DEFAULT 0,
		found INTEGER NOT NULL DEFAULT 0,
		saved INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		output_path TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS businesses (
		identity TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		domain TEXT NOT NULL DEFAULT '',
		website TEXT NOT NULL DEFAULT '',
		phone_number TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		first_seen TEXT NOT NULL,
		last_seen TEXT NOT NULL,
		seen_count INTEGER NOT NULL DEFAULT 1,
		last_run_id INTEGER REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_businesses_category ON businesses(category, location);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Run is one recorded scrape.
type Run struct {
	ID         int64
	Query      string
	Category   string
	Location   string
	Total      int
	Found      int
	Saved      int
	Failed     int
	OutputPath string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Entry is a stored business with its sighting history.
type Entry struct {
	business.Record
	Identity  string
	FirstSeen time.Time
	LastSeen  time.Time
	SeenCount int
	LastRunID int64
}

// SaveRun records run and upserts records in one transaction. It sets
// run.ID and returns it. A stored email is kept when a later run found
// none.
func (s *Store) SaveRun(ctx context.Context, run *Run, records []business.Record) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
	INSERT INTO runs (query, category, location, total, found, saved, failed, output_path, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Query, run.Category, run.Location,
		run.Total, run.Found, run.Saved, run.Failed,
		run.OutputPath, formatTime(run.StartedAt), formatTime(run.FinishedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO businesses (identity, name, address, domain, website, phone_number, email, category, location, first_seen, last_seen, last_run_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(identity) DO UPDATE SET
		address = excluded.address,
		phone_number = excluded.phone_number,
		email = CASE WHEN excluded.email != '' THEN excluded.email ELSE businesses.email END,
		category = excluded.category,
		location = excluded.location,
		last_seen = excluded.last_seen,
		seen_count = businesses.seen_count + 1,
		last_run_id = excluded.last_run_id`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	seen := formatTime(run.FinishedAt)
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.Key().String(), r.Name, r.Address, r.Domain, r.Website, r.PhoneNumber, r.Email,
			r.Category, r.Location, seen, seen, runID,
		); err != nil {
			return 0, fmt.Errorf("failed to upsert business %q: %w", r.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	run.ID = runID
	return runID, nil
}

// Runs returns the most recent runs, newest first. A limit of zero or
// less returns every run.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, query, category, location, total, found, saved, failed, output_path, started_at, finished_at
	FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Query, &r.Category, &r.Location,
			&r.Total, &r.Found, &r.Saved, &r.Failed, &r.OutputPath, &started, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Business returns the stored entry for an identity key, or nil when it
// is unknown.
func (s *Store) Business(ctx context.Context, key business.IdentityKey) (*Entry, error) {
	var e Entry
	var first, last string
	var lastRun sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
	SELECT identity, name, address, domain, website, phone_number, email, category, location,
		first_seen, last_seen, seen_count, last_run_id
	FROM businesses WHERE identity = ?`, key.String()).Scan(
		&e.Identity, &e.Name, &e.Address, &e.Domain, &e.Website, &e.PhoneNumber, &e.Email,
		&e.Category, &e.Location, &first, &last, &e.SeenCount, &lastRun,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get business: %w", err)
	}
	e.FirstSeen = parseTime(first)
	e.LastSeen = parseTime(last)
	e.LastRunID = lastRun.Int64
	return &e, nil
}

// CountBusinesses returns the number of distinct businesses stored.
func (s *Store) CountBusinesses(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM businesses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count businesses: %w", err)
	}
	return n, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
