package conversation_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/omriShneor/reminder_agent/internal/conversation"
	"github.com/omriShneor/reminder_agent/internal/draft"
	"github.com/omriShneor/reminder_agent/internal/mocks"
	"github.com/omriShneor/reminder_agent/internal/timeutil"
)

var now = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func newEngine(creator conversation.ReminderCreator, opts ...conversation.Option) *conversation.Engine {
	store := conversation.NewStore(conversation.WithStoreClock(timeutil.Fixed(now)))
	opts = append([]conversation.Option{
		conversation.WithClock(timeutil.Fixed(now)),
		conversation.WithLocation(time.UTC),
	}, opts...)
	return conversation.NewEngine(store, creator, opts...)
}

func say(e *conversation.Engine, user, text string) conversation.Result {
	return e.Handle(context.Background(), conversation.Message{UserID: user, Text: text})
}

func matchReminder(title, date, clock string) interface{} {
	return mock.MatchedBy(func(r conversation.NewReminder) bool {
		return r.Title == title && r.Date == date && r.Time == clock
	})
}

func TestHandle_SingleTurn(t *testing.T) {
	creator := new(mocks.MockReminderCreator)
	creator.On("CreateReminder", mock.Anything, mock.Anything).
		Return(conversation.Ack{ID: "r-1"}, nil).Once()

	e := newEngine(creator)
	res := say(e, "u1", "remind me call mom tomorrow at 5pm")

	assert.Equal(t, conversation.OutcomeSaved, res.Outcome)
	assert.True(t, res.Reply.Success)
	assert.Equal(t, "Okay, I saved your reminder: Call mom tomorrow at 17:00.", res.Reply.Text)
	require.NotNil(t, res.Reply.Payload)
	assert.Equal(t, draft.Record{Title: "Call mom", Date: "2024-06-02", Time: "17:00"}, *res.Reply.Payload)
	assert.Equal(t, "idle", res.State)
	assert.NoError(t, res.Err)

	creator.AssertNumberOfCalls(t, "CreateReminder", 1)
	got := creator.Calls[0].Arguments.Get(1).(conversation.NewReminder)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "Call mom", got.Title)
	assert.Equal(t, "2024-06-02", got.Date)
	assert.Equal(t, "17:00", got.Time)
	assert.True(t, got.At.Equal(time.Date(2024, 6, 2, 17, 0, 0, 0, time.UTC)))
}

func TestHandle_MultiTurn(t *testing.T) {
	creator := new(mocks.MockReminderCreator)
	creator.On("CreateReminder", mock.Anything, matchReminder("Call mom", "2024-06-01", "10:00")).
		Return(conversation.Ack{ID: "r-2"}, nil).Once()

	e := newEngine(creator)

	res := say(e, "u1", "remind me to call mom")
	assert.Equal(t, conversation.OutcomePrompted, res.Outcome)
	assert.Equal(t, "awaiting_time", res.State)
	assert.Equal(t, conversation.English.AskTime, res.Reply.Text)
	assert.True(t, res.Reply.Success)
	assert.Nil(t, res.Reply.Payload)

	res = say(e, "u1", "10")
	assert.Equal(t, conversation.OutcomePrompted, res.Outcome)
	assert.Equal(t, "awaiting_date", res.State)
	assert.Equal(t, conversation.English.AskDate, res.Reply.Text)

	info, ok := e.Store().Snapshot("u1")
	require.True(t, ok)
	require.NotNil(t, info.Draft)
	assert.Equal(t, "10:00", info.Draft.Time)
	assert.Equal(t, []draft.Field{draft.FieldDate}, info.Draft.Missing)

	res = say(e, "u1", "today")
	assert.Equal(t, conversation.OutcomeSaved, res.Outcome)
	assert.True(t, res.Reply.Success)
	assert.Equal(t, "Okay, I saved your reminder: Call mom today at 10:00.", res.Reply.Text)

	info, ok = e.Store().Snapshot("u1")
	require.True(t, ok)
	assert.Equal(t, "idle", info.State)
	assert.Nil(t, info.Draft)

	creator.AssertExpectations(t)
}

func TestHandle_InvalidDateReprompts(t *testing.T) {
	creator := new(mocks.MockReminderCreator)
	e := newEngine(creator)

	say(e, "u1", "remind me to call mom")
	say(e, "u1", "10")

	res := say(e, "u1", "31/02/2024")
	assert.Equal(t, conversation.OutcomeUnrecognized, res.Outcome)
	assert.False(t, res.Reply.Success)
	assert.Equal(t, conversation.English.RetryDate, res.Reply.Text)
	assert.Equal(t, "awaiting_date", res.State)
	assert.NoError(t, res.Err)

	info, _ := e.Store().Snapshot("u1")
	require.NotNil(t, info.Draft)
	assert.Equal(t, []draft.Field{draft.FieldDate}, info.Draft.Missing)
	assert.Empty(t, info.Draft.Date)

	creator.AssertNotCalled(t, "CreateReminder", mock.Anything, mock.Anything)
}

func TestHandle_InvalidTimeReprompts(t *testing.T) {
	creator := new(mocks.MockReminderCreator)
	e := newEngine(creator)

	say(e, "u1", "remind me to call mom")
	res := say(e, "u1", "later maybe")

	assert.Equal(t, conversation.OutcomeUnrecognized, res.Outcome)
	assert.Equal(t, conversation.English.RetryTime, res.Reply.Text)
	assert.Equal(t, "awaiting_time", res.State)
}

func TestHandle_AwaitingTitleTakesTextVerbatim(t *testing.T) {
	creator := new(mocks.MockReminderCreator)
	creator.On("CreateReminder", mock.Anything, matchReminder("beli susu", "2024-06-02", "10:00")).
		Return(conversation.Ack{}, nil).Once()

	e := newEngine(creator)

	res := say(e, "u1", "besok jam 10")
	assert.Equal(t, "awaiting_title", res.State)
	assert.Equal(t, conversation.English.AskTitle, res.Reply.Text)

	res = say(e, "u1", "   ")
	assert.Equal(t, conversation.OutcomeUnrecognized, res.Outcome)
	assert.Equal(t, "awaiting_title", res.State)

	res = say(e, "u1", "  beli susu  ")
	assert.Equal(t, conversation.OutcomeSaved, res.Outcome)
	creator.AssertExpectations(t)
}

func TestHandle_PersistenceFailure(t *testing.T) {
	creator := new(mocks.MockReminderCreator)
	creator.On("CreateReminder", mock.Anything, mock.Anything).
		Return(conversation.Ack{}, errors.New("canister returned HTTP 500"))

	e := newEngine(creator)

	res := say(e, "u1", "remind me call mom tomorrow at 5pm")
	assert.Equal(t, conversation.OutcomePersistFailed, res.Outcome)
	assert.False(t, res.Reply.Success)
	assert.Nil(t, res.Reply.Payload)
	assert.Equal(t, "Failed to save the reminder: canister returned HTTP 500", res.Reply.Text)
	assert.Equal(t, "idle", res.State)
	assert.Error(t, res.Err)

	info, ok := e.Store().Snapshot("u1")
	require.True(t, ok)
	assert.Equal(t, "idle", info.State)
	assert.Nil(t, info.Draft)

	// the next turn starts a fresh draft
	res = say(e, "u1", "buy milk")
	assert.Equal(t, "awaiting_time", res.State)
	info, _ = e.Store().Snapshot("u1")
	require.NotNil(t, info.Draft)
	assert.Equal(t, "Buy milk", info.Draft.Title)
	assert.Empty(t, info.Draft.Date)
}

func TestHandle_PersistenceFailureMidConversation(t *testing.T) {
	creator := new(mocks.MockReminderCreator)
	creator.On("CreateReminder", mock.Anything, mock.Anything).
		Return(conversation.Ack{}, errors.New("connection refused")).Once()

	e := newEngine(creator)
	say(e, "u1", "remind me to call mom")
	say(e, "u1", "10")
	res := say(e, "u1", "today")

	assert.Equal(t, conversation.OutcomePersistFailed, res.Outcome)
	assert.Equal(t, "idle", res.State)
	creator.AssertNumberOfCalls(t, "CreateReminder", 1)
}

func TestHandle_FaultLeavesStateThenResets(t *testing.T) {
	creator := new(mocks.MockReminderCreator)
	creator.On("CreateReminder", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { panic("backend exploded") }).
		Return(conversation.Ack{}, nil)

	e := newEngine(creator)
	say(e, "u1", "remind me to call mom")
	say(e, "u1", "10")

	for i := 1; i < conversation.DefaultMaxConsecutiveFaults; i++ {
		res := say(e, "u1", "today")
		assert.Equal(t, conversation.OutcomeFault, res.Outcome, "fault %d", i)
		assert.False(t, res.Reply.Success)
		assert.Equal(t, conversation.English.Fault, res.Reply.Text)
		assert.ErrorContains(t, res.Err, "backend exploded")
		assert.Equal(t, "awaiting_date", res.State)
	}

	info, _ := e.Store().Snapshot("u1")
	require.NotNil(t, info.Draft)
	assert.Equal(t, "10:00", info.Draft.Time)

	res := say(e, "u1", "today")
	assert.Equal(t, conversation.OutcomeFault, res.Outcome)
	assert.Equal(t, "idle", res.State)
}

func TestHandle_NonFaultTurnClearsFaultCount(t *testing.T) {
	creator := new(mocks.MockReminderCreator)
	creator.On("CreateReminder", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { panic("boom") }).
		Return(conversation.Ack{}, nil)

	e := newEngine(creator, conversation.WithMaxConsecutiveFaults(2))
	say(e, "u1", "remind me to call mom")
	say(e, "u1", "10")

	assert.Equal(t, conversation.OutcomeFault, say(e, "u1", "today").Outcome)
	assert.Equal(t, conversation.OutcomeUnrecognized, say(e, "u1", "whenever").Outcome)

	res := say(e, "u1", "today")
	assert.Equal(t, conversation.OutcomeFault, res.Outcome)
	assert.Equal(t, "awaiting_date", res.State)
}

func TestHandle_RequiresUser(t *testing.T) {
	e := newEngine(new(mocks.MockReminderCreator))
	res := e.Handle(context.Background(), conversation.Message{Text: "remind me"})

	assert.Equal(t, conversation.OutcomeFault, res.Outcome)
	assert.ErrorIs(t, res.Err, conversation.ErrNoUser)
	assert.Zero(t, e.Store().Len())
}

func TestHandle_FallsBackToSenderID(t *testing.T) {
	e := newEngine(new(mocks.MockReminderCreator))
	e.Handle(context.Background(), conversation.Message{SenderID: "telegram:42", Text: "buy milk"})

	info, ok := e.Store().Snapshot("telegram:42")
	require.True(t, ok)
	assert.Equal(t, "awaiting_time", info.State)
}

func TestHandle_UsersAreIndependent(t *testing.T) {
	e := newEngine(new(mocks.MockReminderCreator))

	say(e, "alice", "remind me to call mom")
	say(e, "bob", "besok jam 10")

	a, _ := e.Store().Snapshot("alice")
	b, _ := e.Store().Snapshot("bob")
	assert.Equal(t, "awaiting_time", a.State)
	assert.Equal(t, "awaiting_title", b.State)
}

func TestHandle_IndonesianReplies(t *testing.T) {
	creator := new(mocks.MockReminderCreator)
	creator.On("CreateReminder", mock.Anything, matchReminder("Meeting", "2024-06-02", "10:00")).
		Return(conversation.Ack{}, nil).Once()

	e := newEngine(creator, conversation.WithPhrasebook(conversation.Indonesian))

	res := say(e, "u1", "ingatkan saya meeting besok")
	assert.Equal(t, "Baik, jam berapa kamu ingin diingatkan?", res.Reply.Text)

	res = say(e, "u1", "jam 10")
	assert.Equal(t, "Oke, saya simpan reminder: Meeting besok jam 10:00.", res.Reply.Text)
	creator.AssertExpectations(t)
}

func TestHandle_NotifiesOnlyOnSave(t *testing.T) {
	creator := new(mocks.MockReminderCreator)
	creator.On("CreateReminder", mock.Anything, matchReminder("Call mom", "2024-06-02", "17:00")).
		Return(conversation.Ack{ID: "r-9"}, nil).Once()
	creator.On("CreateReminder", mock.Anything, matchReminder("Pay rent", "2024-06-02", "09:00")).
		Return(conversation.Ack{}, errors.New("down")).Once()

	notifier := new(mocks.MockSavedNotifier)
	notifier.On("ReminderSaved", mock.Anything, "u1",
		draft.Record{Title: "Call mom", Date: "2024-06-02", Time: "17:00"},
		conversation.Ack{ID: "r-9"}).Return().Once()

	e := newEngine(creator, conversation.WithNotifier(notifier))
	say(e, "u1", "remind me to call mom tomorrow at 5pm")
	say(e, "u1", "remind me to pay rent tomorrow at 9 am")

	notifier.AssertExpectations(t)
	notifier.AssertNumberOfCalls(t, "ReminderSaved", 1)
	creator.AssertExpectations(t)
}

func TestHandle_SerialisesTurnsPerUser(t *testing.T) {
	var inflight, maxInflight, calls atomic.Int32
	creator := conversation.CreatorFunc(func(ctx context.Context, r conversation.NewReminder) (conversation.Ack, error) {
		n := inflight.Add(1)
		for {
			m := maxInflight.Load()
			if n <= m || maxInflight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		inflight.Add(-1)
		calls.Add(1)
		return conversation.Ack{}, nil
	})

	e := newEngine(creator)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			say(e, "same-user", "remind me to stretch today at 11:00")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(20), calls.Load())
	assert.Equal(t, int32(1), maxInflight.Load())
	assert.Equal(t, 1, e.Store().Len())
}

func TestHandle_ConcurrentUsers(t *testing.T) {
	var calls atomic.Int32
	creator := conversation.CreatorFunc(func(ctx context.Context, r conversation.NewReminder) (conversation.Ack, error) {
		calls.Add(1)
		return conversation.Ack{ID: r.UserID}, nil
	})
	e := newEngine(creator)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("user-%d", i)
			say(e, user, "remind me to call mom")
			say(e, user, "17:30")
			say(e, user, "besok")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(50), calls.Load())
	assert.Equal(t, 50, e.Store().Len())
}

func TestFailureReason(t *testing.T) {
	assert.Equal(t, "HTTP 503", conversation.FailureReason(errors.New("HTTP 503")))

	long := errors.New(string(make([]byte, 300)))
	assert.Len(t, []rune(conversation.FailureReason(long)), 123)

	assert.Equal(t, "quota exceeded", conversation.FailureReason(reasonErr{}))
}

type reasonErr struct{}

func (reasonErr) Error() string  { return "backend: 429 Too Many Requests: quota exceeded for project" }
func (reasonErr) Reason() string { return "quota exceeded" }
