package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/omriShneor/reminder_agent/internal/draft"
	"github.com/omriShneor/reminder_agent/internal/logger"
	"github.com/omriShneor/reminder_agent/internal/metrics"
)

// NewReminder is a finished reminder handed to persistence. At is Date and
// Time combined in the engine's location.
type NewReminder struct {
	UserID string
	Title  string
	Date   string
	Time   string
	At     time.Time
}

// Ack is what a backend returns for a stored reminder.
type Ack struct {
	ID string `json:"id,omitempty"`
}

// ReminderCreator durably stores a finished reminder.
type ReminderCreator interface {
	CreateReminder(ctx context.Context, r NewReminder) (Ack, error)
}

// CreatorFunc adapts a function to ReminderCreator.
type CreatorFunc func(ctx context.Context, r NewReminder) (Ack, error)

func (f CreatorFunc) CreateReminder(ctx context.Context, r NewReminder) (Ack, error) {
	return f(ctx, r)
}

// SavedNotifier is told about every reminder that was stored successfully.
type SavedNotifier interface {
	ReminderSaved(ctx context.Context, userID string, rec draft.Record, ack Ack)
}

// Reasoner is implemented by errors that carry a short user-facing reason.
type Reasoner interface {
	Reason() string
}

const maxReasonLen = 120

// FailureReason returns the short reason shown to the user for a
// persistence error.
func FailureReason(err error) string {
	var r Reasoner
	if errors.As(err, &r) {
		return r.Reason()
	}
	msg := []rune(err.Error())
	if len(msg) > maxReasonLen {
		return string(msg[:maxReasonLen]) + "..."
	}
	return string(msg)
}

// Instrument wraps next with persistence metrics and logging under the
// backend label.
func Instrument(backend string, next ReminderCreator) ReminderCreator {
	log := logger.For("persist").With().Str("backend", backend).Logger()
	return CreatorFunc(func(ctx context.Context, r NewReminder) (Ack, error) {
		start := time.Now()
		ack, err := next.CreateReminder(ctx, r)
		metrics.PersistDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())

		if err != nil {
			metrics.PersistRequests.WithLabelValues(backend, "error").Inc()
			log.Warn().Err(err).Str("user_id", r.UserID).Msg("Failed to persist reminder")
			return Ack{}, err
		}
		metrics.PersistRequests.WithLabelValues(backend, "ok").Inc()
		log.Info().Str("user_id", r.UserID).Str("id", ack.ID).Time("at", r.At).Msg("Persisted reminder")
		return ack, nil
	})
}
