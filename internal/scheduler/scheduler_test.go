package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/omriShneor/reminder_agent/internal/conversation"
	"github.com/omriShneor/reminder_agent/internal/database"
	"github.com/omriShneor/reminder_agent/internal/mocks"
	"github.com/omriShneor/reminder_agent/internal/source"
	"github.com/omriShneor/reminder_agent/internal/timeutil"
)

var now = time.Date(2024, 6, 1, 17, 0, 0, 0, time.UTC)

type fakeSweeper struct{ n int }

func (f *fakeSweeper) Sweep() int { return f.n }

func newScheduler(t *testing.T, db DueStore) *Scheduler {
	t.Helper()
	s, err := New(db, nil, conversation.English, Config{})
	require.NoError(t, err)
	s.clock = timeutil.Fixed(now)
	return s
}

func TestNew_InvalidSchedule(t *testing.T) {
	_, err := New(&mocks.MockDB{}, nil, conversation.English, Config{DueSpec: "not a spec"})
	assert.Error(t, err)

	_, err = New(nil, &fakeSweeper{}, conversation.English, Config{SweepSpec: "@every nope"})
	assert.Error(t, err)
}

func TestNew_RegistersJobs(t *testing.T) {
	s, err := New(&mocks.MockDB{}, &fakeSweeper{}, conversation.English, Config{})
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 2)

	s, err = New(nil, nil, conversation.English, Config{})
	require.NoError(t, err)
	assert.Empty(t, s.cron.Entries())

	s.Start()
	s.Stop()
}

func TestDeliverDue(t *testing.T) {
	db := &mocks.MockDB{}
	db.On("GetDueReminders", now, defaultBatchSize).Return([]database.Reminder{
		{ID: 1, Ref: "a", UserID: "telegram:42", Title: "Call mom"},
		{ID: 2, Ref: "b", UserID: "whatsapp:628@s.whatsapp.net", Title: "Pay rent"},
	}, nil)
	db.On("MarkReminderDelivered", int64(1), now).Return(true, nil).Once()
	db.On("MarkReminderDelivered", int64(2), now).Return(true, nil).Once()

	tg := &mocks.MockSender{}
	tg.On("Send", mock.Anything, "42", "⏰ Reminder: Call mom").Return(nil).Once()
	wa := &mocks.MockSender{}
	wa.On("Send", mock.Anything, "628@s.whatsapp.net", "⏰ Reminder: Pay rent").Return(nil).Once()

	s := newScheduler(t, db)
	s.RegisterSender(source.SourceTypeTelegram, tg)
	s.RegisterSender(source.SourceTypeWhatsApp, wa)

	delivered, err := s.DeliverDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, delivered)

	db.AssertExpectations(t)
	tg.AssertExpectations(t)
	wa.AssertExpectations(t)
}

func TestDeliverDue_SendFailureLeavesPending(t *testing.T) {
	db := &mocks.MockDB{}
	db.On("GetDueReminders", now, defaultBatchSize).Return([]database.Reminder{
		{ID: 1, Ref: "a", UserID: "telegram:42", Title: "Call mom"},
	}, nil)

	tg := &mocks.MockSender{}
	tg.On("Send", mock.Anything, "42", mock.Anything).Return(errors.New("flood wait")).Once()

	s := newScheduler(t, db)
	s.RegisterSender(source.SourceTypeTelegram, tg)

	delivered, err := s.DeliverDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, delivered)
	db.AssertNotCalled(t, "MarkReminderDelivered", mock.Anything, mock.Anything)
}

func TestDeliverDue_NoTransportMarksDelivered(t *testing.T) {
	db := &mocks.MockDB{}
	db.On("GetDueReminders", now, defaultBatchSize).Return([]database.Reminder{
		{ID: 1, Ref: "a", UserID: "api:alice", Title: "Stretch"},
		{ID: 2, Ref: "b", UserID: "legacy-user", Title: "Stretch"},
	}, nil)
	db.On("MarkReminderDelivered", int64(1), now).Return(true, nil).Once()
	db.On("MarkReminderDelivered", int64(2), now).Return(true, nil).Once()

	s := newScheduler(t, db)

	delivered, err := s.DeliverDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, delivered)
	db.AssertExpectations(t)
}

func TestDeliverDue_AlreadyDeliveredNotCounted(t *testing.T) {
	db := &mocks.MockDB{}
	db.On("GetDueReminders", now, defaultBatchSize).Return([]database.Reminder{
		{ID: 1, Ref: "a", UserID: "telegram:42", Title: "Call mom"},
	}, nil)
	db.On("MarkReminderDelivered", int64(1), now).Return(false, nil).Once()

	tg := &mocks.MockSender{}
	tg.On("Send", mock.Anything, "42", mock.Anything).Return(nil).Once()

	s := newScheduler(t, db)
	s.RegisterSender(source.SourceTypeTelegram, tg)

	delivered, err := s.DeliverDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, delivered)
}

func TestDeliverDue_QueryError(t *testing.T) {
	db := &mocks.MockDB{}
	db.On("GetDueReminders", now, defaultBatchSize).Return(nil, errors.New("database is locked"))

	s := newScheduler(t, db)

	_, err := s.DeliverDue(context.Background())
	assert.ErrorContains(t, err, "failed to load due reminders")
}

func TestDeliverDue_WithDatabase(t *testing.T) {
	db := database.NewTestDB(t)
	ctx := context.Background()

	_, err := db.InsertReminder(ctx, &database.Reminder{
		UserID: "telegram:42", Title: "Call mom", Date: "2024-06-01", Time: "16:00",
		RemindAt: now.Add(-time.Hour),
	})
	require.NoError(t, err)
	later, err := db.InsertReminder(ctx, &database.Reminder{
		UserID: "telegram:42", Title: "Dinner", Date: "2024-06-01", Time: "19:00",
		RemindAt: now.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	tg := &mocks.MockSender{}
	tg.On("Send", mock.Anything, "42", "⏰ Reminder: Call mom").Return(nil).Once()

	s := newScheduler(t, db)
	s.RegisterSender(source.SourceTypeTelegram, tg)

	delivered, err := s.DeliverDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)

	// second run finds nothing new
	delivered, err = s.DeliverDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, delivered)
	tg.AssertExpectations(t)

	stored, err := db.GetReminderByRef(later.Ref)
	require.NoError(t, err)
	assert.Equal(t, database.ReminderStatusPending, stored.Status)
}

func TestSweepSessions(t *testing.T) {
	s, err := New(nil, &fakeSweeper{n: 3}, conversation.English, Config{})
	require.NoError(t, err)
	assert.Equal(t, 3, s.SweepSessions())
}
