package migrations

import (
	"database/sql"
)

func init() {
	Register(Migration{
		Version: 1,
		Name:    "create_reminders_table",
		Up:      createRemindersTable,
	})
}

func createRemindersTable(tx *sql.Tx) error {
	// user_id is the conversation key, e.g. "telegram:123" or "api:alice".
	// date and time keep the canonical strings; remind_at is the combined instant in UTC.
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS reminders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ref TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			date TEXT NOT NULL,
			time TEXT NOT NULL,
			remind_at DATETIME NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending', 'delivered', 'cancelled')),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`CREATE INDEX IF NOT EXISTS idx_reminders_user ON reminders(user_id)`)
	return err
}
