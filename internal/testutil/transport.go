package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/omriShneor/reminder_agent/internal/source"
)

// SentMessage is a message the assistant sent through a fake transport
type SentMessage struct {
	Recipient string
	Text      string
}

// FakeTransport stands in for a chat transport: tests inject inbound text and
// read back what was sent.
type FakeTransport struct {
	sourceType source.SourceType
	inbound    chan source.Message

	mu      sync.Mutex
	sent    []SentMessage
	updated chan struct{}
}

// NewFakeTransport creates a transport of the given source type
func NewFakeTransport(t source.SourceType) *FakeTransport {
	return &FakeTransport{
		sourceType: t,
		inbound:    make(chan source.Message, 100),
		updated:    make(chan struct{}, 1),
	}
}

// Inbound is the channel the processor reads from
func (f *FakeTransport) Inbound() <-chan source.Message {
	return f.inbound
}

// Inject delivers a message from identifier to the assistant
func (f *FakeTransport) Inject(identifier, text string) {
	f.inbound <- source.Message{
		SourceType: f.sourceType,
		Identifier: identifier,
		Text:       text,
		Timestamp:  time.Now(),
	}
}

// Send implements source.Sender
func (f *FakeTransport) Send(ctx context.Context, recipient, text string) error {
	f.mu.Lock()
	f.sent = append(f.sent, SentMessage{Recipient: recipient, Text: text})
	f.mu.Unlock()

	select {
	case f.updated <- struct{}{}:
	default:
	}
	return nil
}

// Sent returns a copy of everything sent so far
func (f *FakeTransport) Sent() []SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SentMessage(nil), f.sent...)
}

// WaitForSent blocks until at least n messages were sent and returns them
func (f *FakeTransport) WaitForSent(t *testing.T, n int) []SentMessage {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if sent := f.Sent(); len(sent) >= n {
			return sent
		}
		select {
		case <-f.updated:
		case <-deadline:
			t.Fatalf("timed out waiting for %d sent messages, got %d", n, len(f.Sent()))
		}
	}
}
