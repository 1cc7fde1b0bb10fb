// Package testutil assembles the full assistant in memory for end-to-end tests.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/omriShneor/reminder_agent/internal/conversation"
	"github.com/omriShneor/reminder_agent/internal/database"
	"github.com/omriShneor/reminder_agent/internal/processor"
	"github.com/omriShneor/reminder_agent/internal/scheduler"
	"github.com/omriShneor/reminder_agent/internal/server"
	"github.com/omriShneor/reminder_agent/internal/source"
)

// DefaultNow is the instant test servers start at
var DefaultNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

// TestServer wraps the wired components for E2E testing
type TestServer struct {
	Server     *server.Server
	DB         *database.DB
	Store      *conversation.Store
	Engine     *conversation.Engine
	Processor  *processor.Processor
	Scheduler  *scheduler.Scheduler
	HTTPServer *httptest.Server
	Clock      *Clock

	// Fake chat transports
	Telegram *FakeTransport
	WhatsApp *FakeTransport

	creator   conversation.ReminderCreator
	phrases   conversation.Phrasebook
	eviction  conversation.EvictionPolicy
	maxFaults int
	t         *testing.T
}

// TestServerOption configures a test server
type TestServerOption func(*TestServer)

// WithCreator replaces the database as the persistence collaborator
func WithCreator(c conversation.ReminderCreator) TestServerOption {
	return func(ts *TestServer) { ts.creator = c }
}

// WithLocale sets the reply language
func WithLocale(locale string) TestServerOption {
	return func(ts *TestServer) { ts.phrases = conversation.PhrasebookFor(locale) }
}

// WithEviction sets the session eviction policy
func WithEviction(p conversation.EvictionPolicy) TestServerOption {
	return func(ts *TestServer) { ts.eviction = p }
}

// NewTestServer creates a fully configured test server for E2E testing
func NewTestServer(t *testing.T, opts ...TestServerOption) *TestServer {
	t.Helper()

	db := database.NewTestDB(t)

	ts := &TestServer{
		DB:        db,
		Clock:     NewClock(DefaultNow),
		Telegram:  NewFakeTransport(source.SourceTypeTelegram),
		WhatsApp:  NewFakeTransport(source.SourceTypeWhatsApp),
		creator:   db,
		phrases:   conversation.English,
		eviction:  conversation.NoEviction{},
		maxFaults: conversation.DefaultMaxConsecutiveFaults,
		t:         t,
	}

	// Apply options before wiring
	for _, opt := range opts {
		opt(ts)
	}

	ts.Store = conversation.NewStore(
		conversation.WithEviction(ts.eviction),
		conversation.WithStoreClock(ts.Clock.Now),
	)
	ts.Engine = conversation.NewEngine(ts.Store, ts.creator,
		conversation.WithPhrasebook(ts.phrases),
		conversation.WithClock(ts.Clock.Now),
		conversation.WithLocation(time.UTC),
		conversation.WithMaxConsecutiveFaults(ts.maxFaults),
	)

	ts.Processor = processor.New(ts.Engine, processor.Config{WorkerCount: 2, TurnTimeout: 5 * time.Second})
	ts.Processor.RegisterSender(source.SourceTypeTelegram, ts.Telegram)
	ts.Processor.RegisterSender(source.SourceTypeWhatsApp, ts.WhatsApp)
	require.NoError(t, ts.Processor.Start(ts.Telegram.Inbound(), ts.WhatsApp.Inbound()))

	sched, err := scheduler.New(db, ts.Store, ts.phrases, scheduler.Config{Clock: ts.Clock.Now})
	require.NoError(t, err, "failed to create scheduler")
	sched.RegisterSender(source.SourceTypeTelegram, ts.Telegram)
	sched.RegisterSender(source.SourceTypeWhatsApp, ts.WhatsApp)
	ts.Scheduler = sched

	ts.Server = server.New(server.ServerConfig{
		DB:       db,
		Chat:     ts.Engine,
		Sessions: ts.Store,
		Backend:  "sqlite",
	})
	ts.HTTPServer = httptest.NewServer(ts.Server.Handler())

	t.Cleanup(func() {
		ts.HTTPServer.Close()
		ts.Processor.Stop()
	})

	return ts
}

// BaseURL returns the test server base URL
func (ts *TestServer) BaseURL() string {
	return ts.HTTPServer.URL
}

// Client returns an HTTP client configured for the test server
func (ts *TestServer) Client() *http.Client {
	return ts.HTTPServer.Client()
}
