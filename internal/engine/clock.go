package engine

import (
	"slices"
	"time"

	"trivia-service/internal/domain"
)

// ClockState is the per-question timer state.
type ClockState int

const (
	ClockRunning ClockState = iota
	ClockFrozen
	ClockAnswered
)

func (s ClockState) String() string {
	switch s {
	case ClockRunning:
		return "running"
	case ClockFrozen:
		return "frozen"
	case ClockAnswered:
		return "answered"
	default:
		return "unknown"
	}
}

// Clock is the countdown for a single question: Running -> (Frozen <-> Running) -> Answered.
// It is not safe for concurrent use; the owning round serializes access.
type Clock struct {
	limit      time.Duration
	remaining  time.Duration
	freezeLeft time.Duration
	state      ClockState
	selection  int
	hidden     []int
}

// NewClock returns a running clock with limit on it.
func NewClock(limit time.Duration) *Clock {
	c := &Clock{limit: limit}
	c.Reset()
	return c
}

// Reset starts the clock over for the next question.
func (c *Clock) Reset() {
	c.remaining = c.limit
	c.freezeLeft = 0
	c.state = ClockRunning
	c.selection = domain.TimeoutSelection
	c.hidden = nil
}

func (c *Clock) State() ClockState        { return c.state }
func (c *Clock) Remaining() time.Duration { return c.remaining }
func (c *Clock) Hidden() []int            { return slices.Clone(c.hidden) }

// Selection returns the final selection once the clock is answered.
func (c *Clock) Selection() (int, bool) {
	return c.selection, c.state == ClockAnswered
}

// Tick advances the clock by step and reports whether it just expired.
// A frozen clock spends the step on the freeze instead.
func (c *Clock) Tick(step time.Duration) bool {
	switch c.state {
	case ClockFrozen:
		if c.freezeLeft > 0 {
			c.freezeLeft -= step
			if c.freezeLeft <= 0 {
				c.freezeLeft = 0
				c.state = ClockRunning
			}
		}
		return false
	case ClockRunning:
		c.remaining -= step
		if c.remaining <= 0 {
			c.remaining = 0
			c.state = ClockAnswered
			c.selection = domain.TimeoutSelection
			return true
		}
	}
	return false
}

// Freeze suspends the countdown for d (until Resume when d <= 0).
// Only a running clock can be frozen.
func (c *Clock) Freeze(d time.Duration) bool {
	if c.state != ClockRunning {
		return false
	}
	c.state = ClockFrozen
	c.freezeLeft = d
	return true
}

// Resume ends a freeze early.
func (c *Clock) Resume() bool {
	if c.state != ClockFrozen {
		return false
	}
	c.state = ClockRunning
	c.freezeLeft = 0
	return true
}

// Answer records the final selection. It fails once the clock is answered.
func (c *Clock) Answer(selection int) bool {
	if c.state == ClockAnswered {
		return false
	}
	c.state = ClockAnswered
	c.selection = selection
	return true
}

// Hide marks option positions hidden for the rest of this question.
func (c *Clock) Hide(positions ...int) {
	for _, p := range positions {
		if !slices.Contains(c.hidden, p) {
			c.hidden = append(c.hidden, p)
		}
	}
	slices.Sort(c.hidden)
}

// IsHidden reports whether the option at position was hidden.
func (c *Clock) IsHidden(position int) bool {
	return slices.Contains(c.hidden, position)
}
