// Package database is the sqlite store of venues, operating hours and menus.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// ErrVenueNotFound is returned when no active venue matches a lookup.
var ErrVenueNotFound = errors.New("venue not found")

// DB wraps sql.DB for the dining store.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

// NewDB opens database at path and runs migrations.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{DB: db, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS venues (
			id TEXT PRIMARY KEY,
			official_id INTEGER UNIQUE NOT NULL,
			slug TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			display_name TEXT,
			type TEXT NOT NULL,
			latitude REAL,
			longitude REAL,
			address TEXT,
			image_url TEXT,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS operating_hours (
			id TEXT PRIMARY KEY,
			venue_id TEXT NOT NULL,
			date TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			event_name TEXT,
			FOREIGN KEY (venue_id) REFERENCES venues(id)
		)`,

		`CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			venue_id TEXT NOT NULL,
			name TEXT NOT NULL,
			station TEXT,
			dietary_tags TEXT NOT NULL DEFAULT '[]',
			macronutrients TEXT NOT NULL DEFAULT '{}',
			avg_rating REAL,
			nutrition_score INTEGER,
			UNIQUE (venue_id, name),
			FOREIGN KEY (venue_id) REFERENCES venues(id)
		)`,

		`CREATE TABLE IF NOT EXISTS menu_events (
			id TEXT PRIMARY KEY,
			venue_id TEXT NOT NULL,
			item_id TEXT NOT NULL,
			meal TEXT NOT NULL,
			date TEXT NOT NULL,
			UNIQUE (item_id, date, meal),
			FOREIGN KEY (venue_id) REFERENCES venues(id),
			FOREIGN KEY (item_id) REFERENCES items(id)
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_venues_type ON venues(type, is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_hours_venue_date ON operating_hours(venue_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_menu_events_venue_date ON menu_events(venue_id, date)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
