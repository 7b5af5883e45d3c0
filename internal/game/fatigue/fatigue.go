// Package fatigue tracks fatigue points and the combat actions that spend
// them.
package fatigue

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// EffectDuration is how long the marker effect of a HUD action lasts.
const EffectDuration = 12 * time.Second

// Action is a combat HUD action.
type Action string

const (
	HalfMove   Action = "half_move"
	Attack     Action = "attack"
	FullAttack Action = "full_attack"
)

// ParseAction converts s to an Action.
func ParseAction(s string) (Action, bool) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case HalfMove, Attack, FullAttack:
		return a, true
	}
	return "", false
}

// TurnChange is what an action does to the actor's place in the round.
type TurnChange int

const (
	// TurnUnchanged leaves the turn order alone.
	TurnUnchanged TurnChange = iota
	// TurnDelayed moves the actor behind the last combatant.
	TurnDelayed
	// TurnEnded advances past the actor if it is their turn.
	TurnEnded
)

// Effect is a timed status marker applied by an action.
type Effect struct {
	Name     string
	StatusID string
	Duration time.Duration
}

// Outcome describes the consequences of one action.
type Outcome struct {
	Action  Action
	Effect  *Effect
	Fatigue int
	Turn    TurnChange
	Pool    Pool
}

var rules = map[Action]Outcome{
	HalfMove:   {Effect: &Effect{Name: "Moved", StatusID: "moved", Duration: EffectDuration}, Turn: TurnDelayed},
	Attack:     {Effect: &Effect{Name: "Attacked", StatusID: "attacked", Duration: EffectDuration}, Fatigue: 1, Turn: TurnDelayed},
	FullAttack: {Fatigue: 1, Turn: TurnEnded},
}

// Pool is an actor's fatigue.
type Pool struct {
	Base    int `yaml:"base"`
	Bonus   int `yaml:"bonus"`
	Current int `yaml:"current"`
}

// Max returns Base + Bonus.
func (p Pool) Max() int { return p.Base + p.Bonus }

// Exhausted reports whether Current has reached Max.
func (p Pool) Exhausted() bool { return p.Current >= p.Max() }

// Tracker holds fatigue pools per actor. It is safe for concurrent use.
type Tracker struct {
	mu    sync.Mutex
	pools map[string]Pool
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{pools: make(map[string]Pool)}
}

// Set replaces actorID's pool.
func (t *Tracker) Set(actorID string, p Pool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pools[actorID] = p
}

// Pool returns actorID's pool; an unknown actor has an empty pool.
func (t *Tracker) Pool(actorID string) Pool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pools[actorID]
}

// Apply records action for actorID and returns its consequences.
func (t *Tracker) Apply(actorID string, action Action) (Outcome, error) {
	out, ok := rules[action]
	if !ok {
		return Outcome{}, fmt.Errorf("unknown fatigue action %q", action)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.pools[actorID]
	p.Current += out.Fatigue
	t.pools[actorID] = p

	out.Action = action
	out.Pool = p
	if out.Effect != nil {
		e := *out.Effect
		out.Effect = &e
	}
	return out, nil
}

// Rest clears actorID's current fatigue.
func (t *Tracker) Rest(actorID string) Pool {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.pools[actorID]
	p.Current = 0
	t.pools[actorID] = p
	return p
}
