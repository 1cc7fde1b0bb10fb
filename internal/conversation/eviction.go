package conversation

import "time"

// Activity describes one stored session for an EvictionPolicy.
type Activity struct {
	UserID       string
	LastActivity time.Time
}

// EvictionPolicy decides which sessions to drop. Sessions are passed oldest
// activity first.
type EvictionPolicy interface {
	Victims(now time.Time, sessions []Activity) []string
}

// NoEviction keeps every session for the life of the process.
type NoEviction struct{}

func (NoEviction) Victims(time.Time, []Activity) []string { return nil }

// LRU caps the number of sessions, dropping the least recently active.
type LRU struct {
	MaxSessions int
}

func (p LRU) Victims(_ time.Time, sessions []Activity) []string {
	if p.MaxSessions <= 0 || len(sessions) <= p.MaxSessions {
		return nil
	}
	excess := sessions[:len(sessions)-p.MaxSessions]
	victims := make([]string, len(excess))
	for i, a := range excess {
		victims[i] = a.UserID
	}
	return victims
}

// IdleTimeout drops sessions untouched for longer than TTL.
type IdleTimeout struct {
	TTL time.Duration
}

func (p IdleTimeout) Victims(now time.Time, sessions []Activity) []string {
	if p.TTL <= 0 {
		return nil
	}
	var victims []string
	for _, a := range sessions {
		if now.Sub(a.LastActivity) > p.TTL {
			victims = append(victims, a.UserID)
		}
	}
	return victims
}

// Policies applies several policies and evicts the union of their victims.
type Policies []EvictionPolicy

func (ps Policies) Victims(now time.Time, sessions []Activity) []string {
	seen := make(map[string]bool)
	var victims []string
	for _, p := range ps {
		for _, id := range p.Victims(now, sessions) {
			if !seen[id] {
				seen[id] = true
				victims = append(victims, id)
			}
		}
	}
	return victims
}
