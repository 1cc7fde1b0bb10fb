package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/omriShneor/reminder_agent/internal/database/migrations"
)

// DB is the reminder store
type DB struct {
	*sql.DB
}

// New opens (creating if needed) the SQLite file at dbPath and brings its
// schema up to date.
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrations.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DB{db}, nil
}

// WAL lets the HTTP API read while the scheduler writes; the busy timeout
// makes writers wait instead of failing with SQLITE_BUSY.
func dsn(path string) string {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path
	}
	return path + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
}

// Healthy pings the database and returns the number of pending reminders
func (d *DB) Healthy(ctx context.Context) (int, error) {
	if err := d.PingContext(ctx); err != nil {
		return 0, fmt.Errorf("failed to ping database: %w", err)
	}
	return d.CountPendingReminders()
}

func (d *DB) Close() error {
	return d.DB.Close()
}
