package mocks

import (
	"time"

	"github.com/omriShneor/reminder_agent/internal/database"
	"github.com/stretchr/testify/mock"
)

// MockDB is a mock implementation of the reminder queries used by the scheduler
type MockDB struct {
	mock.Mock
}

func (m *MockDB) GetDueReminders(now time.Time, limit int) ([]database.Reminder, error) {
	args := m.Called(now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]database.Reminder), args.Error(1)
}

func (m *MockDB) MarkReminderDelivered(id int64, at time.Time) (bool, error) {
	args := m.Called(id, at)
	return args.Bool(0), args.Error(1)
}
