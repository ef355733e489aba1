package overtime

import (
	"fmt"
	"time"
)

// State is the position of an attendance session in the overtime prompt flow.
type State string

const (
	StateAwaitingPrompt State = "awaiting_prompt"
	StatePrompted       State = "prompted"
	StateApproved       State = "approved"
	StateDeclined       State = "declined"
)

func (s State) IsValid() bool {
	switch s {
	case StateAwaitingPrompt, StatePrompted, StateApproved, StateDeclined:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateApproved || s == StateDeclined
}

// Event drives a transition.
type Event string

const (
	EventPrompt  Event = "prompt"
	EventApprove Event = "approve"
	EventDecline Event = "decline"
	EventTimeout Event = "timeout"
)

var transitions = map[State]map[Event]State{
	StateAwaitingPrompt: {
		EventPrompt: StatePrompted,
	},
	StatePrompted: {
		EventApprove: StateApproved,
		EventDecline: StateDeclined,
		EventTimeout: StateDeclined,
	},
}

// Next returns the state reached from s by e.
func (s State) Next(e Event) (State, error) {
	if next, ok := transitions[s][e]; ok {
		return next, nil
	}
	switch {
	case s.IsTerminal():
		return s, fmt.Errorf("%w: %s", ErrAlreadyResponded, s)
	case s == StateAwaitingPrompt && (e == EventApprove || e == EventDecline):
		return s, ErrNotPrompted
	default:
		return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, e, s)
	}
}

// Action is what the scheduler must do for a session at a given instant.
type Action int

const (
	ActionNone Action = iota
	ActionPrompt
	ActionAutoDecline
)

func (a Action) String() string {
	switch a {
	case ActionPrompt:
		return "prompt"
	case ActionAutoDecline:
		return "auto_decline"
	default:
		return "none"
	}
}

// Schedule holds the daily prompt time and the response window.
type Schedule struct {
	PromptHour      int
	PromptMinute    int
	ResponseTimeout time.Duration
}

// DefaultSchedule prompts at 17:00 and declines after 15 minutes without an answer.
func DefaultSchedule() Schedule {
	return Schedule{PromptHour: 17, PromptMinute: 0, ResponseTimeout: 15 * time.Minute}
}

// PromptAt returns the prompt instant on the local day of clockIn. Sessions that
// start at or after that instant are never prompted.
func (s Schedule) PromptAt(clockIn time.Time, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	local := clockIn.In(loc)
	at := time.Date(local.Year(), local.Month(), local.Day(), s.PromptHour, s.PromptMinute, 0, 0, loc)
	return at, clockIn.Before(at)
}

// Prompt is the overtime view of one open session.
type Prompt struct {
	State      State
	ClockIn    time.Time
	PromptedAt *time.Time
}

// Decide returns the action due at now. It never returns an action for a
// terminal state, so repeated ticks after a transition are no-ops.
func (s Schedule) Decide(p Prompt, loc *time.Location, now time.Time) Action {
	switch p.State {
	case StateAwaitingPrompt:
		if at, ok := s.PromptAt(p.ClockIn, loc); ok && !now.Before(at) {
			return ActionPrompt
		}
	case StatePrompted:
		if p.PromptedAt != nil && !now.Before(p.PromptedAt.Add(s.ResponseTimeout)) {
			return ActionAutoDecline
		}
	}
	return ActionNone
}

// Deadline is when an unanswered prompt is declined.
func (s Schedule) Deadline(promptedAt time.Time) time.Time {
	return promptedAt.Add(s.ResponseTimeout)
}
