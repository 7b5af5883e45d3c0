// Package spellpoints converts arcane spell slots into a spell point pool.
package spellpoints

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// ErrInsufficientPoints is returned when a cast costs more than the pool holds.
var ErrInsufficientPoints = errors.New("spellpoints: not enough spell points")

// costs is the spell point price of one slot of each spell level.
var costs = map[int]int{0: 2, 1: 4, 2: 6, 3: 10, 4: 15, 5: 22, 6: 30, 7: 40, 8: 50, 9: 60}

// ErrUnknownLevel is returned when a cast names a level outside 0..9.
var ErrUnknownLevel = errors.New("spellpoints: unknown spell level")

// Cost returns the spell point cost of a spell of level, or 0 for levels
// outside 0..9.
func Cost(level int) int { return costs[level] }

// FromSlots totals the spell point value of the slots per level.
func FromSlots(slots map[int]int) int {
	total := 0
	for level, n := range slots {
		total += n * Cost(level)
	}
	return total
}

// Caster is the part of a character sheet that determines spell points.
type Caster struct {
	Slots   map[int]int `yaml:"slots"`
	Classes []string    `yaml:"classes"`
	Int     int         `yaml:"int"`
	Cha     int         `yaml:"cha"`
}

// ClassBonus returns the bonus points granted by the caster's classes: each
// mage or wizard class adds max(0, (INT-10)/2) and each bard class the same
// from CHA.
func (c Caster) ClassBonus() int {
	bonus := 0
	for _, class := range c.Classes {
		name := strings.ToLower(class)
		switch {
		case strings.Contains(name, "mage"), strings.Contains(name, "wizard"):
			bonus += abilityBonus(c.Int)
		case strings.Contains(name, "bard"):
			bonus += abilityBonus(c.Cha)
		}
	}
	return bonus
}

// Max returns the caster's maximum spell points.
func (c Caster) Max() int { return FromSlots(c.Slots) + c.ClassBonus() }

func abilityBonus(score int) int {
	return max(0, score-10) / 2
}

// Pool is a caster's current and maximum spell points.
type Pool struct {
	Max     int
	Current int
}

// Percent returns Current as a percentage of Max, or 0 when Max is 0.
func (p Pool) Percent() float64 {
	if p.Max == 0 {
		return 0
	}
	return float64(p.Current) / float64(p.Max) * 100
}

// Ledger tracks the pools of many actors. It is safe for concurrent use.
type Ledger struct {
	mu    sync.Mutex
	pools map[string]Pool
}

// NewLedger returns an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{pools: make(map[string]Pool)}
}

// Refresh recomputes actorID's maximum from c. A new actor starts full; an
// existing one keeps its current points, clamped to the new maximum.
func (l *Ledger) Refresh(actorID string, c Caster) Pool {
	l.mu.Lock()
	defer l.mu.Unlock()
	maxPts := c.Max()
	p, ok := l.pools[actorID]
	if !ok {
		p.Current = maxPts
	}
	p.Max = maxPts
	p.Current = min(p.Current, maxPts)
	l.pools[actorID] = p
	return p
}

// Pool returns actorID's pool; ok is false for unknown actors.
func (l *Ledger) Pool(actorID string) (Pool, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.pools[actorID]
	return p, ok
}

// Cast deducts the cost of a spell of level from actorID's pool.
//
// Postcondition: on error the pool is unchanged.
func (l *Ledger) Cast(actorID string, level int) (Pool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.pools[actorID]
	if !ok {
		return Pool{}, fmt.Errorf("no spell points recorded for %q", actorID)
	}
	cost, known := costs[level]
	if !known {
		return p, fmt.Errorf("%w: %d", ErrUnknownLevel, level)
	}
	if p.Current < cost {
		return p, fmt.Errorf("%w: level %d costs %d, %d remaining", ErrInsufficientPoints, level, cost, p.Current)
	}
	p.Current -= cost
	l.pools[actorID] = p
	return p, nil
}

// Reset restores actorID's pool to its maximum.
func (l *Ledger) Reset(actorID string) (Pool, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.pools[actorID]
	if !ok {
		return Pool{}, false
	}
	p.Current = p.Max
	l.pools[actorID] = p
	return p, true
}

// SlowestSpellModifier is used for casting times above nine segments.
const SlowestSpellModifier = 10

var leadingInt = regexp.MustCompile(`^\s*([+-]?\d+)`)

// InitiativeModifier returns the initiative modifier for a spell with the
// given casting time, read as its leading integer. A casting time that does
// not start with a number adds nothing; a negative one is floored at 0 so the
// formula keeps a single "+ N" term.
func InitiativeModifier(castingTime string) int {
	m := leadingInt.FindStringSubmatch(castingTime)
	if m == nil {
		return 0
	}
	v, err := strconv.Atoi(m[1])
	if err != nil || v > 9 {
		return SlowestSpellModifier
	}
	return max(v, 0)
}

// InitiativeFormula returns the initiative roll for casting a spell.
func InitiativeFormula(castingTime string) string {
	return fmt.Sprintf("1d10 + %d", InitiativeModifier(castingTime))
}
