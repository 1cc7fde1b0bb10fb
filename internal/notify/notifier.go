package notify

import (
	"context"
)

// ReminderNotice describes a reminder that was just saved
type ReminderNotice struct {
	UserID string
	Ref    string
	Title  string
	Date   string
	Time   string
	// DateLabel is the date as shown to the user (today, tomorrow, DD/MM/YYYY)
	DateLabel string
}

// Notifier sends notifications for saved reminders to a specific recipient
type Notifier interface {
	// Send sends a notification for a reminder to the specified recipient
	Send(ctx context.Context, notice *ReminderNotice, recipient string) error
	// Name returns the notifier type name (for logging)
	Name() string
	// IsConfigured returns true if the notifier has server-side config
	IsConfigured() bool
}
