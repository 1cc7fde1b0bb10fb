package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omriShneor/reminder_agent/internal/conversation"
)

func insertReminder(t *testing.T, db *DB, userID, title string, at time.Time) *Reminder {
	t.Helper()
	r, err := db.InsertReminder(context.Background(), &Reminder{
		UserID:   userID,
		Title:    title,
		Date:     at.Format("2006-01-02"),
		Time:     at.Format("15:04"),
		RemindAt: at,
	})
	require.NoError(t, err)
	return r
}

func TestCreateReminder_FromConversation(t *testing.T) {
	db := NewTestDB(t)
	jakarta := time.FixedZone("WIB", 7*3600)
	at := time.Date(2024, 6, 2, 17, 0, 0, 0, jakarta)

	ack, err := db.CreateReminder(context.Background(), conversation.NewReminder{
		UserID: "telegram:42",
		Title:  "Call mom",
		Date:   "2024-06-02",
		Time:   "17:00",
		At:     at,
	})
	require.NoError(t, err)
	require.NotEmpty(t, ack.ID)

	stored, err := db.GetReminderByRef(ack.ID)
	require.NoError(t, err)
	assert.Equal(t, "telegram:42", stored.UserID)
	assert.Equal(t, "Call mom", stored.Title)
	assert.Equal(t, "2024-06-02", stored.Date)
	assert.Equal(t, "17:00", stored.Time)
	assert.True(t, stored.RemindAt.Equal(at), "remind_at %v != %v", stored.RemindAt, at)
	assert.Equal(t, ReminderStatusPending, stored.Status)
	assert.Nil(t, stored.DeliveredAt)
}

func TestGetReminderByRef_NotFound(t *testing.T) {
	db := NewTestDB(t)

	_, err := db.GetReminderByRef("does-not-exist")
	assert.ErrorIs(t, err, ErrReminderNotFound)
}

func TestListRemindersByUser(t *testing.T) {
	db := NewTestDB(t)
	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	later := insertReminder(t, db, "api:alice", "Later", base.Add(2*time.Hour))
	sooner := insertReminder(t, db, "api:alice", "Sooner", base.Add(time.Hour))
	insertReminder(t, db, "api:bob", "Not alice", base)

	reminders, err := db.ListRemindersByUser("api:alice", nil)
	require.NoError(t, err)
	require.Len(t, reminders, 2)
	assert.Equal(t, sooner.Ref, reminders[0].Ref)
	assert.Equal(t, later.Ref, reminders[1].Ref)

	ok, err := db.MarkReminderDelivered(sooner.ID, base.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, ok)

	pending := ReminderStatusPending
	reminders, err = db.ListRemindersByUser("api:alice", &pending)
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, "Later", reminders[0].Title)

	none, err := db.ListRemindersByUser("api:carol", nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetDueReminders(t *testing.T) {
	db := NewTestDB(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	overdue := insertReminder(t, db, "telegram:1", "Overdue", now.Add(-30*time.Minute))
	due := insertReminder(t, db, "telegram:1", "Due now", now)
	insertReminder(t, db, "telegram:1", "Future", now.Add(2*time.Hour))
	delivered := insertReminder(t, db, "telegram:1", "Already delivered", now.Add(-time.Hour))
	_, err := db.MarkReminderDelivered(delivered.ID, now.Add(-time.Hour))
	require.NoError(t, err)

	reminders, err := db.GetDueReminders(now, 10)
	require.NoError(t, err)
	require.Len(t, reminders, 2)
	assert.Equal(t, overdue.ID, reminders[0].ID)
	assert.Equal(t, due.ID, reminders[1].ID)

	limited, err := db.GetDueReminders(now, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGetDueReminders_MixedZones(t *testing.T) {
	db := NewTestDB(t)
	jakarta := time.FixedZone("WIB", 7*3600)
	// 18:00 in Jakarta is 11:00 UTC
	insertReminder(t, db, "whatsapp:1@s.whatsapp.net", "Jakarta evening", time.Date(2024, 6, 1, 18, 0, 0, 0, jakarta))

	before, err := db.GetDueReminders(time.Date(2024, 6, 1, 10, 59, 0, 0, time.UTC), 10)
	require.NoError(t, err)
	assert.Empty(t, before)

	after, err := db.GetDueReminders(time.Date(2024, 6, 1, 11, 1, 0, 0, time.UTC), 10)
	require.NoError(t, err)
	assert.Len(t, after, 1)
}

func TestMarkReminderDelivered_OnlyOnce(t *testing.T) {
	db := NewTestDB(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	r := insertReminder(t, db, "telegram:1", "Once", now)

	changed, err := db.MarkReminderDelivered(r.ID, now)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = db.MarkReminderDelivered(r.ID, now)
	require.NoError(t, err)
	assert.False(t, changed)

	stored, err := db.GetReminderByRef(r.Ref)
	require.NoError(t, err)
	assert.Equal(t, ReminderStatusDelivered, stored.Status)
	require.NotNil(t, stored.DeliveredAt)
	assert.True(t, stored.DeliveredAt.Equal(now))
}

func TestCancelReminder(t *testing.T) {
	db := NewTestDB(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	r := insertReminder(t, db, "api:alice", "Cancel me", now.Add(time.Hour))

	changed, err := db.CancelReminder(r.Ref, "api:bob")
	require.NoError(t, err)
	assert.False(t, changed, "other users cannot cancel")

	changed, err = db.CancelReminder(r.Ref, "api:alice")
	require.NoError(t, err)
	assert.True(t, changed)

	count, err := db.CountPendingReminders()
	require.NoError(t, err)
	assert.Zero(t, count)

	due, err := db.GetDueReminders(now.Add(2*time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}
