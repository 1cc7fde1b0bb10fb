package conversation

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/omriShneor/reminder_agent/internal/draft"
	"github.com/omriShneor/reminder_agent/internal/logger"
	"github.com/omriShneor/reminder_agent/internal/metrics"
	"github.com/omriShneor/reminder_agent/internal/timeutil"
)

// Session is one user's conversation. Its mutex is held for a whole turn,
// so turns of the same user never interleave.
type Session struct {
	mu       sync.Mutex
	userID   string
	state    State
	faults   int
	evicted  bool
	lastSeen atomic.Int64
}

func (s *Session) touch(t time.Time) {
	s.lastSeen.Store(t.UnixNano())
}

// LastActivity is safe to call without holding the session.
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// SessionInfo is a point-in-time copy of a session for inspection.
type SessionInfo struct {
	UserID       string       `json:"user_id"`
	State        string       `json:"state"`
	Draft        *draft.Draft `json:"draft,omitempty"`
	LastActivity time.Time    `json:"last_activity"`
}

// Store maps user ids to sessions, creating them on first contact.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	policy   EvictionPolicy
	clock    timeutil.Clock
	log      zerolog.Logger
}

type StoreOption func(*Store)

// WithEviction sets the policy applied on session creation and on Sweep.
func WithEviction(p EvictionPolicy) StoreOption {
	return func(s *Store) { s.policy = p }
}

func WithStoreClock(c timeutil.Clock) StoreOption {
	return func(s *Store) { s.clock = c }
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		sessions: make(map[string]*Session),
		policy:   NoEviction{},
		clock:    timeutil.SystemClock,
		log:      logger.For("sessions"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// acquire returns the locked session for userID, creating it in Idle if
// needed. The caller must unlock it.
func (s *Store) acquire(userID string) *Session {
	for {
		now := s.clock()

		s.mu.Lock()
		sess, ok := s.sessions[userID]
		if !ok {
			sess = &Session{userID: userID, state: Idle{}}
			sess.touch(now)
			s.sessions[userID] = sess
			s.evictLocked(now, userID)
			metrics.ActiveSessions.Set(float64(len(s.sessions)))
		}
		s.mu.Unlock()

		sess.mu.Lock()
		if sess.evicted {
			// Lost a race with eviction; start over with a fresh session.
			sess.mu.Unlock()
			continue
		}
		sess.touch(now)
		return sess
	}
}

// Snapshot returns a copy of the session for userID. It waits for an
// in-flight turn of that user to finish.
func (s *Store) Snapshot(userID string) (SessionInfo, bool) {
	s.mu.Lock()
	sess, ok := s.sessions[userID]
	s.mu.Unlock()
	if !ok {
		return SessionInfo{}, false
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.evicted {
		return SessionInfo{}, false
	}

	info := SessionInfo{
		UserID:       userID,
		State:        sess.state.Name(),
		LastActivity: sess.LastActivity(),
	}
	if d, ok := DraftOf(sess.state); ok {
		info.Draft = &d
	}
	return info, true
}

// Forget drops the session for userID, discarding any draft. It reports
// whether a session existed.
func (s *Store) Forget(userID string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[userID]
	s.mu.Unlock()
	if !ok {
		return false
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.evicted {
		return false
	}
	sess.evicted = true
	delete(s.sessions, userID)
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return true
}

// Len returns the number of sessions held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep applies the eviction policy and returns how many sessions were dropped.
func (s *Store) Sweep() int {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.evictLocked(now, "")
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return n
}

// evictLocked must be called with s.mu held. Sessions in the middle of a
// turn are skipped, and keep is ranked as the most recent session.
func (s *Store) evictLocked(now time.Time, keep string) int {
	activity := make([]Activity, 0, len(s.sessions))
	for id, sess := range s.sessions {
		activity = append(activity, Activity{UserID: id, LastActivity: sess.LastActivity()})
	}
	sort.Slice(activity, func(i, j int) bool {
		a, b := activity[i], activity[j]
		if a.UserID == keep || b.UserID == keep {
			return b.UserID == keep && a.UserID != keep
		}
		if !a.LastActivity.Equal(b.LastActivity) {
			return a.LastActivity.Before(b.LastActivity)
		}
		return a.UserID < b.UserID
	})

	evicted := 0
	for _, id := range s.policy.Victims(now, activity) {
		sess, ok := s.sessions[id]
		if !ok || id == keep || !sess.mu.TryLock() {
			continue
		}
		sess.evicted = true
		sess.mu.Unlock()
		delete(s.sessions, id)
		evicted++
	}

	if evicted > 0 {
		metrics.SessionEvictions.Add(float64(evicted))
		s.log.Debug().Int("evicted", evicted).Int("remaining", len(s.sessions)).Msg("Evicted idle sessions")
	}
	return evicted
}
