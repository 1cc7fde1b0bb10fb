package processor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/omriShneor/reminder_agent/internal/conversation"
	"github.com/omriShneor/reminder_agent/internal/mocks"
	"github.com/omriShneor/reminder_agent/internal/source"
	"github.com/omriShneor/reminder_agent/internal/timeutil"
)

func TestNew(t *testing.T) {
	t.Run("with explicit config", func(t *testing.T) {
		p := New(nil, Config{WorkerCount: 4, TurnTimeout: time.Second})
		assert.Equal(t, 4, p.workerCount)
		assert.Equal(t, time.Second, p.turnTimeout)
		assert.Len(t, p.queues, 4)
	})

	t.Run("with zero values uses defaults", func(t *testing.T) {
		p := New(nil, Config{})
		assert.Equal(t, defaultWorkerCount, p.workerCount)
		assert.Equal(t, defaultTurnTimeout, p.turnTimeout)
	})
}

func TestStop(t *testing.T) {
	p := New(nil, Config{})
	require.NoError(t, p.Start(make(chan source.Message)))

	// Just test that Stop doesn't hang
	p.Stop()
}

func TestShard_StableAndInRange(t *testing.T) {
	p := New(nil, Config{WorkerCount: 3})

	for _, key := range []string{"telegram:1", "whatsapp:62812@s.whatsapp.net", "api:alice"} {
		first := p.shard(key)
		assert.GreaterOrEqual(t, first, 0)
		assert.Less(t, first, 3)
		assert.Equal(t, first, p.shard(key))
	}
}

type recorder struct {
	mu      sync.Mutex
	replies map[string][]string
	done    chan struct{}
	want    int
	count   int
}

func newRecorder(want int) *recorder {
	return &recorder{replies: make(map[string][]string), done: make(chan struct{}), want: want}
}

func (r *recorder) Send(ctx context.Context, recipient, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies[recipient] = append(r.replies[recipient], text)
	r.count++
	if r.count == r.want {
		close(r.done)
	}
	return nil
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for replies")
	}
}

func newEngine(creator conversation.ReminderCreator) *conversation.Engine {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	return conversation.NewEngine(conversation.NewStore(), creator,
		conversation.WithClock(timeutil.Fixed(now)),
		conversation.WithLocation(time.UTC),
	)
}

func TestProcessor_MultiTurnConversation(t *testing.T) {
	creator := &mocks.MockReminderCreator{}
	creator.On("CreateReminder", mock.Anything, mock.MatchedBy(func(r conversation.NewReminder) bool {
		return r.UserID == "telegram:42" && r.Title == "Call mom" && r.Date == "2024-06-02" && r.Time == "17:00"
	})).Return(conversation.Ack{ID: "r1"}, nil).Once()

	rec := newRecorder(3)
	p := New(newEngine(creator), Config{WorkerCount: 2})
	p.RegisterSender(source.SourceTypeTelegram, rec)

	in := make(chan source.Message, 3)
	require.NoError(t, p.Start(in))
	defer p.Stop()

	for _, text := range []string{"remind me to call mom", "5pm", "tomorrow"} {
		in <- source.Message{SourceType: source.SourceTypeTelegram, Identifier: "42", Text: text}
	}

	rec.wait(t)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.replies["42"], 3)
	assert.Equal(t, conversation.English.AskTime, rec.replies["42"][0])
	assert.Equal(t, conversation.English.AskDate, rec.replies["42"][1])
	assert.Equal(t, "Okay, I saved your reminder: Call mom tomorrow at 17:00.", rec.replies["42"][2])
	creator.AssertExpectations(t)
}

func TestProcessor_RoutesRepliesPerSource(t *testing.T) {
	creator := &mocks.MockReminderCreator{}

	tg := newRecorder(1)
	wa := newRecorder(1)

	p := New(newEngine(creator), Config{})
	p.RegisterSender(source.SourceTypeTelegram, tg)
	p.RegisterSender(source.SourceTypeWhatsApp, wa)

	tgIn := make(chan source.Message, 1)
	waIn := make(chan source.Message, 1)
	require.NoError(t, p.Start(tgIn, waIn))
	defer p.Stop()

	// the same identifier on two transports belongs to two users
	tgIn <- source.Message{SourceType: source.SourceTypeTelegram, Identifier: "1", Text: "remind me to stretch"}
	waIn <- source.Message{SourceType: source.SourceTypeWhatsApp, Identifier: "1", Text: "tomorrow"}

	tg.wait(t)
	wa.wait(t)

	assert.Equal(t, []string{conversation.English.AskTime}, tg.replies["1"])
	assert.Equal(t, []string{conversation.English.AskTitle}, wa.replies["1"])
	creator.AssertNotCalled(t, "CreateReminder", mock.Anything, mock.Anything)
}

func TestProcessor_NoSenderDropsReply(t *testing.T) {
	sender := &mocks.MockSender{}
	p := New(newEngine(&mocks.MockReminderCreator{}), Config{})
	p.RegisterSender(source.SourceTypeTelegram, sender)

	// processed inline, no sender for api
	p.processMessage(source.Message{SourceType: source.SourceTypeAPI, Identifier: "alice", Text: "remind me to stretch"})

	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{
			name:     "under limit",
			input:    "short",
			maxLen:   10,
			expected: "short",
		},
		{
			name:     "at limit",
			input:    "exact",
			maxLen:   5,
			expected: "exact",
		},
		{
			name:     "over limit",
			input:    "this is a longer string",
			maxLen:   10,
			expected: "this is a ...",
		},
		{
			name:     "multibyte",
			input:    "ingatkan ⏰⏰⏰",
			maxLen:   10,
			expected: "ingatkan ⏰...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, truncate(tt.input, tt.maxLen))
		})
	}
}
