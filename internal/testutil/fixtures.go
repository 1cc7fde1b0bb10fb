package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/omriShneor/reminder_agent/internal/database"
	"github.com/omriShneor/reminder_agent/internal/source"
	"github.com/omriShneor/reminder_agent/internal/timeutil"
)

// Clock is a manually advanced clock shared by the wired components
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

// Now returns the current fake time
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// ReminderBuilder builds stored reminders
type ReminderBuilder struct {
	userID string
	title  string
	at     time.Time
}

// NewReminderBuilder creates a reminder builder with defaults
func NewReminderBuilder() *ReminderBuilder {
	return &ReminderBuilder{
		userID: source.UserKey(source.SourceTypeAPI, "tester"),
		title:  "Test reminder",
		at:     DefaultNow.Add(time.Hour),
	}
}

// ForUser sets the owner by transport and address
func (b *ReminderBuilder) ForUser(t source.SourceType, identifier string) *ReminderBuilder {
	b.userID = source.UserKey(t, identifier)
	return b
}

// WithTitle sets the title
func (b *ReminderBuilder) WithTitle(title string) *ReminderBuilder {
	b.title = title
	return b
}

// At sets when the reminder fires
func (b *ReminderBuilder) At(at time.Time) *ReminderBuilder {
	b.at = at
	return b
}

// Build stores the reminder
func (b *ReminderBuilder) Build(db *database.DB) (*database.Reminder, error) {
	return db.InsertReminder(context.Background(), &database.Reminder{
		UserID:   b.userID,
		Title:    b.title,
		Date:     b.at.Format(timeutil.DateLayout),
		Time:     b.at.Format(timeutil.TimeLayout),
		RemindAt: b.at,
	})
}

// MustBuild stores the reminder and panics on error
func (b *ReminderBuilder) MustBuild(db *database.DB) *database.Reminder {
	r, err := b.Build(db)
	if err != nil {
		panic(err)
	}
	return r
}
