package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/omriShneor/reminder_agent/internal/conversation"
	"github.com/omriShneor/reminder_agent/internal/draft"
	"github.com/omriShneor/reminder_agent/internal/logger"
	"github.com/omriShneor/reminder_agent/internal/timeutil"
)

const sendTimeout = 10 * time.Second

// Service emails a confirmation whenever a conversation saves a reminder.
// Failures are logged and never affect the conversation.
type Service struct {
	emailNotifier Notifier
	recipient     string
	phrases       conversation.Phrasebook
	clock         timeutil.Clock
	log           zerolog.Logger
}

// NewService creates a notification service sending to recipient
func NewService(emailNotifier Notifier, recipient string, phrases conversation.Phrasebook) *Service {
	return &Service{
		emailNotifier: emailNotifier,
		recipient:     recipient,
		phrases:       phrases,
		clock:         timeutil.SystemClock,
		log:           logger.For("notify"),
	}
}

// ReminderSaved implements conversation.SavedNotifier
func (s *Service) ReminderSaved(ctx context.Context, userID string, rec draft.Record, ack conversation.Ack) {
	if !s.IsEmailAvailable() {
		return
	}

	notice := &ReminderNotice{
		UserID:    userID,
		Ref:       ack.ID,
		Title:     rec.Title,
		Date:      rec.Date,
		Time:      rec.Time,
		DateLabel: s.phrases.DateLabel(rec.Date, s.clock()),
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := s.emailNotifier.Send(ctx, notice, s.recipient); err != nil {
		s.log.Warn().Err(err).Str("notifier", s.emailNotifier.Name()).Str("user_id", userID).Msg("Email failed")
		return
	}
	s.log.Info().Str("notifier", s.emailNotifier.Name()).Str("user_id", userID).Str("title", rec.Title).Msg("Email sent")
}

// IsEmailAvailable returns true if email notifications can be used
func (s *Service) IsEmailAvailable() bool {
	return s.emailNotifier != nil && s.emailNotifier.IsConfigured() && s.recipient != ""
}
