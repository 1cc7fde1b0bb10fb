// Package scheduler runs the periodic jobs: delivering reminders that fell due
// and sweeping idle conversation sessions.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/omriShneor/reminder_agent/internal/conversation"
	"github.com/omriShneor/reminder_agent/internal/database"
	"github.com/omriShneor/reminder_agent/internal/logger"
	"github.com/omriShneor/reminder_agent/internal/metrics"
	"github.com/omriShneor/reminder_agent/internal/source"
	"github.com/omriShneor/reminder_agent/internal/timeutil"
)

const (
	defaultDueSpec   = "@every 1m"
	defaultSweepSpec = "@every 10m"
	defaultBatchSize = 50
	sendTimeout      = 15 * time.Second
)

// DueStore is the reminder storage the delivery job reads and updates
type DueStore interface {
	GetDueReminders(now time.Time, limit int) ([]database.Reminder, error)
	MarkReminderDelivered(id int64, at time.Time) (bool, error)
}

// Sweeper drops idle sessions and returns how many went
type Sweeper interface {
	Sweep() int
}

// Config holds the job schedules in cron syntax
type Config struct {
	DueSpec   string
	SweepSpec string
	BatchSize int
	// Clock defaults to the system clock
	Clock timeutil.Clock
}

// Scheduler manages the cron jobs
type Scheduler struct {
	cron     *cron.Cron
	db       DueStore
	sessions Sweeper
	phrases  conversation.Phrasebook
	senders  map[source.SourceType]source.Sender
	batch    int
	clock    timeutil.Clock
	log      zerolog.Logger
}

// New creates a scheduler. A nil db disables due delivery; a nil sessions
// disables the sweep.
func New(db DueStore, sessions Sweeper, phrases conversation.Phrasebook, cfg Config) (*Scheduler, error) {
	if cfg.DueSpec == "" {
		cfg.DueSpec = defaultDueSpec
	}
	if cfg.SweepSpec == "" {
		cfg.SweepSpec = defaultSweepSpec
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.SystemClock
	}

	log := logger.For("scheduler")
	cronLog := cronLogger{log: log}

	s := &Scheduler{
		cron:     cron.New(cron.WithLogger(cronLog), cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog))),
		db:       db,
		sessions: sessions,
		phrases:  phrases,
		senders:  make(map[source.SourceType]source.Sender),
		batch:    cfg.BatchSize,
		clock:    cfg.Clock,
		log:      log,
	}

	if db != nil {
		if _, err := s.cron.AddFunc(cfg.DueSpec, s.deliverDueJob); err != nil {
			return nil, fmt.Errorf("invalid due delivery schedule %q: %w", cfg.DueSpec, err)
		}
	}
	if sessions != nil {
		if _, err := s.cron.AddFunc(cfg.SweepSpec, func() { s.SweepSessions() }); err != nil {
			return nil, fmt.Errorf("invalid session sweep schedule %q: %w", cfg.SweepSpec, err)
		}
	}

	return s, nil
}

// RegisterSender sets how due reminders reach users of a source type
func (s *Scheduler) RegisterSender(t source.SourceType, sender source.Sender) {
	s.senders[t] = sender
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) deliverDueJob() {
	if _, err := s.DeliverDue(context.Background()); err != nil {
		s.log.Error().Err(err).Msg("Due delivery failed")
	}
}

// DeliverDue sends every reminder whose time has come and returns how many
// were delivered. A reminder is marked delivered only after its message was
// sent, so a failed send is retried on the next run. Reminders of users with
// no push transport are marked delivered without a message.
func (s *Scheduler) DeliverDue(ctx context.Context) (int, error) {
	now := s.clock()

	due, err := s.db.GetDueReminders(now, s.batch)
	if err != nil {
		return 0, fmt.Errorf("failed to load due reminders: %w", err)
	}

	delivered := 0
	for _, r := range due {
		sourceType, recipient, ok := source.ParseUserKey(r.UserID)
		sender, hasSender := s.senders[sourceType]

		if !ok || !hasSender {
			s.markDelivered(r, now)
			metrics.DueDeliveries.WithLabelValues(string(sourceType), "no_sender").Inc()
			s.log.Debug().Str("user_id", r.UserID).Str("ref", r.Ref).Msg("No transport for due reminder")
			continue
		}

		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		err := sender.Send(sendCtx, recipient, fmt.Sprintf(s.phrases.Due, r.Title))
		cancel()
		if err != nil {
			metrics.DueDeliveries.WithLabelValues(string(sourceType), "error").Inc()
			s.log.Warn().Err(err).Str("user_id", r.UserID).Str("ref", r.Ref).Msg("Failed to deliver reminder")
			continue
		}

		if s.markDelivered(r, now) {
			delivered++
		}
		metrics.DueDeliveries.WithLabelValues(string(sourceType), "ok").Inc()
	}

	if delivered > 0 {
		s.log.Info().Int("delivered", delivered).Int("due", len(due)).Msg("Delivered due reminders")
	}
	return delivered, nil
}

func (s *Scheduler) markDelivered(r database.Reminder, at time.Time) bool {
	changed, err := s.db.MarkReminderDelivered(r.ID, at)
	if err != nil {
		s.log.Error().Err(err).Str("ref", r.Ref).Msg("Failed to mark reminder delivered")
		return false
	}
	return changed
}

// SweepSessions evicts idle sessions
func (s *Scheduler) SweepSessions() int {
	n := s.sessions.Sweep()
	if n > 0 {
		s.log.Info().Int("evicted", n).Msg("Swept idle sessions")
	}
	return n
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
