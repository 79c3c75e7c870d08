// Package db writes run results to a SQLite file.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// Import modernc.org/sqlite as a blank import to register the driver
	_ "modernc.org/sqlite"
)

// DB is an open report database.
type DB struct {
	*sql.DB
	path string
}

// An export must be a single file, so no WAL.
var pragmas = []string{
	"PRAGMA journal_mode=DELETE",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA foreign_keys=ON",
	"PRAGMA temp_store=MEMORY",
}

// schema holds one table per concern: runs, the info columns of each row,
// and one usage cell per row and month. A NULL value is a month without data.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		project TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS info (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		row_key TEXT NOT NULL,
		position INTEGER NOT NULL,
		project TEXT,
		name TEXT,
		description TEXT,
		sbu_requested REAL,
		pi TEXT,
		active TEXT,
		PRIMARY KEY (run_id, kind, row_key)
	)`,
	`CREATE TABLE IF NOT EXISTS usage (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		row_key TEXT NOT NULL,
		month TEXT NOT NULL,
		value REAL,
		PRIMARY KEY (run_id, kind, row_key, month)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_usage_month ON usage(run_id, kind, month)`,
}

// New opens the database at path and initializes the schema.
func New(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{DB: sqlDB, path: path}
	if err := db.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) init(ctx context.Context) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}

// Vacuum rebuilds the file without free pages.
func (db *DB) Vacuum() error {
	_, err := db.ExecContext(context.Background(), "VACUUM")
	return err
}
