package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/omriShneor/reminder_agent/internal/conversation"
)

// ReminderStatus represents the status of a reminder
type ReminderStatus string

const (
	ReminderStatusPending   ReminderStatus = "pending"
	ReminderStatusDelivered ReminderStatus = "delivered"
	ReminderStatusCancelled ReminderStatus = "cancelled"
)

// ErrReminderNotFound is returned when no reminder matches a lookup.
var ErrReminderNotFound = errors.New("reminder not found")

// Reminder is a stored reminder
type Reminder struct {
	ID          int64          `json:"id"`
	Ref         string         `json:"ref"`
	UserID      string         `json:"user_id"`
	Title       string         `json:"title"`
	Date        string         `json:"date"`
	Time        string         `json:"time"`
	RemindAt    time.Time      `json:"remind_at"`
	Status      ReminderStatus `json:"status"`
	DeliveredAt *time.Time     `json:"delivered_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

const reminderColumns = `id, ref, user_id, title, date, time, remind_at, status, delivered_at, created_at, updated_at`

// InsertReminder stores a new pending reminder. A ref is generated when empty.
func (d *DB) InsertReminder(ctx context.Context, reminder *Reminder) (*Reminder, error) {
	if reminder.Ref == "" {
		reminder.Ref = uuid.NewString()
	}

	result, err := d.ExecContext(ctx, `
		INSERT INTO reminders (ref, user_id, title, date, time, remind_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, reminder.Ref, reminder.UserID, reminder.Title, reminder.Date, reminder.Time, reminder.RemindAt.UTC(), ReminderStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder id: %w", err)
	}

	reminder.ID = id
	reminder.Status = ReminderStatusPending
	reminder.CreatedAt = time.Now()
	reminder.UpdatedAt = reminder.CreatedAt

	return reminder, nil
}

// CreateReminder stores a finished conversation draft.
func (d *DB) CreateReminder(ctx context.Context, r conversation.NewReminder) (conversation.Ack, error) {
	stored, err := d.InsertReminder(ctx, &Reminder{
		UserID:   r.UserID,
		Title:    r.Title,
		Date:     r.Date,
		Time:     r.Time,
		RemindAt: r.At,
	})
	if err != nil {
		return conversation.Ack{}, err
	}
	return conversation.Ack{ID: stored.Ref}, nil
}

type reminderScanner interface {
	Scan(dest ...any) error
}

func scanReminder(scanner reminderScanner) (*Reminder, error) {
	var reminder Reminder
	var deliveredAt sql.NullTime

	err := scanner.Scan(
		&reminder.ID, &reminder.Ref, &reminder.UserID, &reminder.Title, &reminder.Date, &reminder.Time,
		&reminder.RemindAt, &reminder.Status, &deliveredAt, &reminder.CreatedAt, &reminder.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if deliveredAt.Valid {
		reminder.DeliveredAt = &deliveredAt.Time
	}
	return &reminder, nil
}

// GetReminderByRef retrieves a reminder by its public ref
func (d *DB) GetReminderByRef(ref string) (*Reminder, error) {
	reminder, err := scanReminder(d.QueryRow(`
		SELECT `+reminderColumns+`
		FROM reminders
		WHERE ref = ?
	`, ref))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReminderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}

	return reminder, nil
}

// ListRemindersByUser retrieves a user's reminders ordered by time, optionally filtered by status
func (d *DB) ListRemindersByUser(userID string, status *ReminderStatus) ([]Reminder, error) {
	query := `
		SELECT ` + reminderColumns + `
		FROM reminders
		WHERE user_id = ?
	`
	args := []any{userID}

	if status != nil {
		query += " AND status = ?"
		args = append(args, *status)
	}
	query += " ORDER BY remind_at ASC, id ASC"

	rows, err := d.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	defer rows.Close()

	return collectReminders(rows)
}

// GetDueReminders returns pending reminders whose time has come, oldest first.
func (d *DB) GetDueReminders(now time.Time, limit int) ([]Reminder, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := d.Query(`
		SELECT `+reminderColumns+`
		FROM reminders
		WHERE status = ?
		  AND remind_at <= ?
		ORDER BY remind_at ASC
		LIMIT ?
	`, ReminderStatusPending, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get due reminders: %w", err)
	}
	defer rows.Close()

	return collectReminders(rows)
}

// MarkReminderDelivered flags a pending reminder as delivered.
// Returns true only when this call changed the row.
func (d *DB) MarkReminderDelivered(id int64, deliveredAt time.Time) (bool, error) {
	return d.transition(id, ReminderStatusDelivered, &deliveredAt)
}

// CancelReminder withdraws a pending reminder owned by userID.
// Returns true only when this call changed the row.
func (d *DB) CancelReminder(ref, userID string) (bool, error) {
	result, err := d.Exec(`
		UPDATE reminders
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE ref = ? AND user_id = ? AND status = ?
	`, ReminderStatusCancelled, ref, userID, ReminderStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to cancel reminder: %w", err)
	}
	return changed(result)
}

// CountPendingReminders returns how many reminders have not fired yet
func (d *DB) CountPendingReminders() (int, error) {
	var count int
	err := d.QueryRow(`SELECT COUNT(*) FROM reminders WHERE status = ?`, ReminderStatusPending).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending reminders: %w", err)
	}
	return count, nil
}

func (d *DB) transition(id int64, to ReminderStatus, deliveredAt *time.Time) (bool, error) {
	var at any
	if deliveredAt != nil {
		at = deliveredAt.UTC()
	}

	result, err := d.Exec(`
		UPDATE reminders
		SET status = ?, delivered_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`, to, at, id, ReminderStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to update reminder status: %w", err)
	}
	return changed(result)
}

func changed(result sql.Result) (bool, error) {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func collectReminders(rows *sql.Rows) ([]Reminder, error) {
	var reminders []Reminder
	for rows.Next() {
		reminder, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, *reminder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reminders: %w", err)
	}

	return reminders, nil
}
