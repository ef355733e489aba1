package overtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_Next(t *testing.T) {
	next, err := StateAwaitingPrompt.Next(EventPrompt)
	require.NoError(t, err)
	assert.Equal(t, StatePrompted, next)

	next, err = StatePrompted.Next(EventApprove)
	require.NoError(t, err)
	assert.Equal(t, StateApproved, next)

	next, err = StatePrompted.Next(EventTimeout)
	require.NoError(t, err)
	assert.Equal(t, StateDeclined, next)

	_, err = StateAwaitingPrompt.Next(EventApprove)
	assert.ErrorIs(t, err, ErrNotPrompted)

	_, err = StateDeclined.Next(EventApprove)
	assert.ErrorIs(t, err, ErrAlreadyResponded)

	_, err = StatePrompted.Next(EventPrompt)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSchedule_PromptAt(t *testing.T) {
	loc := time.FixedZone("WAT", 3600)
	s := DefaultSchedule()

	at, ok := s.PromptAt(time.Date(2026, 3, 2, 8, 0, 0, 0, loc), loc)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 2, 17, 0, 0, 0, loc), at)

	_, ok = s.PromptAt(time.Date(2026, 3, 2, 18, 0, 0, 0, loc), loc)
	assert.False(t, ok, "sessions starting after the prompt time are not prompted")
}

func TestSchedule_Decide(t *testing.T) {
	loc := time.UTC
	s := DefaultSchedule()
	clockIn := time.Date(2026, 3, 2, 8, 0, 0, 0, loc)
	promptAt := time.Date(2026, 3, 2, 17, 0, 0, 0, loc)

	p := Prompt{State: StateAwaitingPrompt, ClockIn: clockIn}
	assert.Equal(t, ActionNone, s.Decide(p, loc, promptAt.Add(-time.Second)))
	assert.Equal(t, ActionPrompt, s.Decide(p, loc, promptAt))

	p = Prompt{State: StatePrompted, ClockIn: clockIn, PromptedAt: &promptAt}
	assert.Equal(t, ActionNone, s.Decide(p, loc, promptAt.Add(14*time.Minute)))
	assert.Equal(t, ActionAutoDecline, s.Decide(p, loc, promptAt.Add(15*time.Minute)))

	p.State = StateDeclined
	assert.Equal(t, ActionNone, s.Decide(p, loc, promptAt.Add(16*time.Minute)))
}
