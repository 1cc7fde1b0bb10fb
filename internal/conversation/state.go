package conversation

import "github.com/omriShneor/reminder_agent/internal/draft"

// State is where a session sits in the slot-filling dialogue. The set of
// implementations is closed: Idle or one of the Awaiting* states, each of
// which carries the draft being filled.
type State interface {
	Name() string
	isState()
}

type Idle struct{}

type AwaitingTime struct{ Draft draft.Draft }

type AwaitingDate struct{ Draft draft.Draft }

type AwaitingTitle struct{ Draft draft.Draft }

func (Idle) Name() string          { return "idle" }
func (AwaitingTime) Name() string  { return "awaiting_time" }
func (AwaitingDate) Name() string  { return "awaiting_date" }
func (AwaitingTitle) Name() string { return "awaiting_title" }

func (Idle) isState()          {}
func (AwaitingTime) isState()  {}
func (AwaitingDate) isState()  {}
func (AwaitingTitle) isState() {}

// awaiting returns the state that asks for the next missing field of d.
// A complete draft maps to Idle.
func awaiting(d draft.Draft) State {
	next, ok := d.Next()
	if !ok {
		return Idle{}
	}
	switch next {
	case draft.FieldTitle:
		return AwaitingTitle{Draft: d}
	case draft.FieldTime:
		return AwaitingTime{Draft: d}
	default:
		return AwaitingDate{Draft: d}
	}
}

// DraftOf returns the draft held by s, if any.
func DraftOf(s State) (draft.Draft, bool) {
	switch st := s.(type) {
	case AwaitingTime:
		return st.Draft, true
	case AwaitingDate:
		return st.Draft, true
	case AwaitingTitle:
		return st.Draft, true
	}
	return draft.Draft{}, false
}
