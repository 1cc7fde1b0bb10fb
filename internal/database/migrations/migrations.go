package migrations

import (
	"database/sql"
	"fmt"
	"slices"

	"github.com/omriShneor/reminder_agent/internal/logger"
)

// Migration is one schema step. Up runs inside the transaction that also
// records the version, so a failed step leaves no trace.
type Migration struct {
	Version int
	Name    string
	Up      func(tx *sql.Tx) error
}

// Querier is satisfied by both *sql.DB and *sql.Tx
type Querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
}

var registry []Migration

// Register adds a migration. Called from init in each NNN_*.go file.
func Register(m Migration) {
	registry = append(registry, m)
}

// RunMigrations applies every registered migration not yet recorded in
// schema_migrations, lowest version first.
func RunMigrations(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	applied, err := appliedVersions(db)
	if err != nil {
		return err
	}

	log := logger.For("migrations")
	for _, m := range pending(applied) {
		log.Info().Int("version", m.Version).Str("name", m.Name).Msg("Running migration")
		if err := apply(db, m); err != nil {
			return err
		}
	}
	return nil
}

func appliedVersions(db *sql.DB) (map[int]bool, error) {
	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func pending(applied map[int]bool) []Migration {
	var out []Migration
	for _, m := range registry {
		if !applied[m.Version] {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b Migration) int { return a.Version - b.Version })
	return out
}

func apply(db *sql.DB, m Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
	}
	defer tx.Rollback()

	if err := m.Up(tx); err != nil {
		return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Name, err)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.Version, m.Name); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
	}
	return tx.Commit()
}

// AddColumnIfNotExists adds a column unless the table already has it
func AddColumnIfNotExists(q Querier, table, column, columnDef string) error {
	exists, err := ColumnExists(q, table, column)
	if err != nil || exists {
		return err
	}
	_, err = q.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, columnDef))
	return err
}

// ColumnExists reports whether table has the named column
func ColumnExists(q Querier, table, column string) (bool, error) {
	rows, err := q.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid, notnull, pk int
			name, ctype      string
			dflt             any
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
