package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockSender is a mock implementation of source.Sender
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, recipient, text string) error {
	args := m.Called(ctx, recipient, text)
	return args.Error(0)
}
