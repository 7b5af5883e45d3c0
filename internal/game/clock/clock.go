// Package clock advances world time in response to combat rounds and the end
// of combat.
package clock

import (
	"sync"
	"time"
)

const (
	// RoundLength is the world time of one combat round.
	RoundLength = 12 * time.Second
	// EndOfCombat is added once combat ends: one ten-minute turn.
	EndOfCombat = 600 * time.Second
)

// Settings selects which advances apply.
type Settings struct {
	TwelveSecondRounds bool
	AdvanceOnCombatEnd bool
}

// Clock is the world clock. It is safe for concurrent use.
type Clock struct {
	mu       sync.Mutex
	elapsed  time.Duration
	settings Settings
}

// New returns a clock starting at start.
func New(start time.Duration, s Settings) *Clock {
	return &Clock{elapsed: start, settings: s}
}

// Now returns the elapsed world time.
func (c *Clock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

// Advance adds d to the world time and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.elapsed += d
	return c.elapsed
}

// RoundStarted advances by RoundLength when twelve-second rounds are on.
// advanced reports whether time moved.
func (c *Clock) RoundStarted() (now time.Duration, advanced bool) {
	if !c.settings.TwelveSecondRounds {
		return c.Now(), false
	}
	return c.Advance(RoundLength), true
}

// CombatEnded advances by EndOfCombat when that option is on.
func (c *Clock) CombatEnded() (now time.Duration, advanced bool) {
	if !c.settings.AdvanceOnCombatEnd {
		return c.Now(), false
	}
	return c.Advance(EndOfCombat), true
}
