package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/omriShneor/reminder_agent/internal/draft"
	"github.com/omriShneor/reminder_agent/internal/logger"
	"github.com/omriShneor/reminder_agent/internal/metrics"
	"github.com/omriShneor/reminder_agent/internal/nlp"
	"github.com/omriShneor/reminder_agent/internal/timeutil"
)

// DefaultMaxConsecutiveFaults is how many faulted turns in a row a session
// tolerates before it is reset to Idle.
const DefaultMaxConsecutiveFaults = 3

// ErrNoUser is returned for a message with neither a user id nor a sender id.
var ErrNoUser = errors.New("message has no user or sender id")

// Message is one inbound chat message. UserID falls back to SenderID when empty.
type Message struct {
	UserID   string
	SenderID string
	Text     string
}

// Key returns the id the message's session is stored under.
func (m Message) Key() string {
	if m.UserID != "" {
		return m.UserID
	}
	return m.SenderID
}

// Reply is what the user gets back for a turn.
type Reply struct {
	Text    string        `json:"text"`
	Success bool          `json:"success"`
	Payload *draft.Record `json:"structured_payload,omitempty"`
}

// Outcome classifies how a turn ended.
type Outcome string

const (
	// OutcomePrompted: the draft advanced and the next field was asked for.
	OutcomePrompted Outcome = "prompted"
	// OutcomeSaved: the draft completed and was persisted.
	OutcomeSaved Outcome = "saved"
	// OutcomeUnrecognized: the expected field could not be read; same question again.
	OutcomeUnrecognized Outcome = "unrecognized"
	// OutcomePersistFailed: persistence returned an error; the draft was dropped.
	OutcomePersistFailed Outcome = "persist_failed"
	// OutcomeFault: an internal error; the session was left as it was.
	OutcomeFault Outcome = "fault"
)

// Result is the full account of one turn.
type Result struct {
	Reply   Reply
	Outcome Outcome
	// State is the session state after the turn.
	State string
	Err   error
}

// Engine runs the slot-filling dialogue for every user.
type Engine struct {
	store     *Store
	creator   ReminderCreator
	notifier  SavedNotifier
	phrases   Phrasebook
	clock     timeutil.Clock
	loc       *time.Location
	maxFaults int
	log       zerolog.Logger
}

type Option func(*Engine)

func WithPhrasebook(p Phrasebook) Option {
	return func(e *Engine) { e.phrases = p }
}

// WithClock sets the source of "now" for relative dates and confirmations.
func WithClock(c timeutil.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLocation sets the zone a reminder's date and time are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

func WithNotifier(n SavedNotifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithMaxConsecutiveFaults sets the fault count that resets a session. Zero
// or less disables the reset.
func WithMaxConsecutiveFaults(n int) Option {
	return func(e *Engine) { e.maxFaults = n }
}

func NewEngine(store *Store, creator ReminderCreator, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		creator:   creator,
		phrases:   English,
		clock:     timeutil.SystemClock,
		loc:       time.Local,
		maxFaults: DefaultMaxConsecutiveFaults,
		log:       logger.For("conversation"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the session store the engine works on.
func (e *Engine) Store() *Store {
	return e.store
}

// Phrases returns the engine's reply texts.
func (e *Engine) Phrases() Phrasebook {
	return e.phrases
}

// Handle processes one message to completion, including any persistence
// call. Turns of the same user are serialised; different users run in
// parallel.
func (e *Engine) Handle(ctx context.Context, msg Message) Result {
	key := msg.Key()
	if key == "" {
		return Result{
			Reply:   Reply{Text: e.phrases.Fault},
			Outcome: OutcomeFault,
			Err:     ErrNoUser,
		}
	}

	sess := e.store.acquire(key)
	defer sess.mu.Unlock()

	from := sess.state.Name()
	res := e.turn(ctx, sess, msg.Text)

	if res.Outcome == OutcomeFault {
		sess.faults++
		e.log.Error().Err(res.Err).Str("user_id", key).Str("state", from).Int("faults", sess.faults).Msg("Turn failed")
		if e.maxFaults > 0 && sess.faults >= e.maxFaults {
			e.log.Warn().Str("user_id", key).Str("state", from).Msg("Resetting session after repeated faults")
			sess.state = Idle{}
			sess.faults = 0
		}
	} else {
		sess.faults = 0
	}

	res.State = sess.state.Name()
	metrics.ConversationTurns.WithLabelValues(from, string(res.Outcome)).Inc()
	e.log.Debug().
		Str("user_id", key).
		Str("from", from).
		Str("to", res.State).
		Str("outcome", string(res.Outcome)).
		Msg("Turn handled")
	return res
}

// turn dispatches on the session state. The state is only replaced once a
// step has fully succeeded, so a fault leaves it untouched.
func (e *Engine) turn(ctx context.Context, sess *Session, text string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = e.fault(fmt.Errorf("panic: %v", r))
		}
	}()

	now := e.clock()

	switch st := sess.state.(type) {
	case Idle:
		d := draft.Build(text, now)
		return e.advance(ctx, sess, d, now)

	case AwaitingTime:
		t, ok := nlp.ExtractTimeAnswer(text)
		if !ok {
			return e.unrecognized(draft.FieldTime)
		}
		return e.advance(ctx, sess, draft.Apply(st.Draft, draft.FieldTime, t), now)

	case AwaitingDate:
		d, ok := nlp.ExtractDateAnswer(text, now)
		if !ok {
			return e.unrecognized(draft.FieldDate)
		}
		return e.advance(ctx, sess, draft.Apply(st.Draft, draft.FieldDate, d), now)

	case AwaitingTitle:
		title := strings.TrimSpace(text)
		if title == "" {
			return e.unrecognized(draft.FieldTitle)
		}
		return e.advance(ctx, sess, draft.Apply(st.Draft, draft.FieldTitle, title), now)

	default:
		return e.fault(fmt.Errorf("unknown session state %T", st))
	}
}

// advance finalises a complete draft or asks for its next missing field.
func (e *Engine) advance(ctx context.Context, sess *Session, d draft.Draft, now time.Time) Result {
	if d.IsComplete() {
		return e.finalize(ctx, sess, d, now)
	}

	next, _ := d.Next()
	sess.state = awaiting(d)
	return Result{
		Reply:   Reply{Text: e.phrases.Ask(next), Success: true},
		Outcome: OutcomePrompted,
	}
}

// finalize persists a complete draft exactly once and returns the session to Idle.
func (e *Engine) finalize(ctx context.Context, sess *Session, d draft.Draft, now time.Time) Result {
	rec, err := d.Record()
	if err != nil {
		return e.fault(fmt.Errorf("failed to build record: %w", err))
	}
	at, err := rec.At(e.loc)
	if err != nil {
		return e.fault(fmt.Errorf("failed to combine date and time: %w", err))
	}

	ack, err := e.creator.CreateReminder(ctx, NewReminder{
		UserID: sess.userID,
		Title:  rec.Title,
		Date:   rec.Date,
		Time:   rec.Time,
		At:     at,
	})
	sess.state = Idle{}
	if err != nil {
		return Result{
			Reply:   Reply{Text: fmt.Sprintf(e.phrases.SaveFailed, FailureReason(err))},
			Outcome: OutcomePersistFailed,
			Err:     err,
		}
	}

	if e.notifier != nil {
		e.notifier.ReminderSaved(ctx, sess.userID, rec, ack)
	}

	return Result{
		Reply: Reply{
			Text:    e.phrases.Confirm(rec, now),
			Success: true,
			Payload: &rec,
		},
		Outcome: OutcomeSaved,
	}
}

func (e *Engine) unrecognized(field draft.Field) Result {
	return Result{
		Reply:   Reply{Text: e.phrases.Retry(field)},
		Outcome: OutcomeUnrecognized,
	}
}

func (e *Engine) fault(err error) Result {
	return Result{
		Reply:   Reply{Text: e.phrases.Fault},
		Outcome: OutcomeFault,
		Err:     err,
	}
}
