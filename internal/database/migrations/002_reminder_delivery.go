package migrations

import (
	"database/sql"
)

func init() {
	Register(Migration{
		Version: 2,
		Name:    "reminder_delivery_tracking",
		Up:      addReminderDeliveryTracking,
	})
}

func addReminderDeliveryTracking(tx *sql.Tx) error {
	if err := AddColumnIfNotExists(tx, "reminders", "delivered_at", "DATETIME"); err != nil {
		return err
	}

	_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders(status, remind_at)`)
	return err
}
