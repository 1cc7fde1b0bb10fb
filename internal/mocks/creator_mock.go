package mocks

import (
	"context"

	"github.com/omriShneor/reminder_agent/internal/conversation"
	"github.com/omriShneor/reminder_agent/internal/draft"
	"github.com/stretchr/testify/mock"
)

// MockReminderCreator is a mock implementation of conversation.ReminderCreator
type MockReminderCreator struct {
	mock.Mock
}

func (m *MockReminderCreator) CreateReminder(ctx context.Context, r conversation.NewReminder) (conversation.Ack, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(conversation.Ack), args.Error(1)
}

// MockSavedNotifier is a mock implementation of conversation.SavedNotifier
type MockSavedNotifier struct {
	mock.Mock
}

func (m *MockSavedNotifier) ReminderSaved(ctx context.Context, userID string, rec draft.Record, ack conversation.Ack) {
	m.Called(ctx, userID, rec, ack)
}
