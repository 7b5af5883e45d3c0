// Package gameserver adapts host events to the rule engines. It decodes a
// YAML event stream, resolves entity references, routes each event to the
// engine that owns it, and renders the engines' notifications.
package gameserver

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/tactics/internal/game/combat"
	"github.com/cory-johannsen/tactics/internal/game/initiative"
)

// EventType names the kind of host event.
type EventType string

const (
	EventAttack          EventType = "attack"
	EventInitiative      EventType = "initiative"
	EventSpellInitiative EventType = "spell_initiative"
	EventDelay           EventType = "delay"
	EventRoundStart      EventType = "round_start"
	EventCombatEnd       EventType = "combat_end"
	EventHUDAction       EventType = "hud_action"
	EventSpellCast       EventType = "spell_cast"
	EventSpellReset      EventType = "spell_reset"
)

// ErrUnknownEvent is returned for an event whose type no handler claims.
var ErrUnknownEvent = errors.New("unknown event type")

// Event is one host event. Type selects which of the remaining fields are
// read; the others are ignored.
type Event struct {
	Type EventType `yaml:"type"`

	// Attack is the roll of an attack event.
	Attack *combat.RollEvent `yaml:"attack"`
	// Initiative is the roll of an initiative event.
	Initiative *initiative.Roll `yaml:"initiative"`

	// Actor and Combatant identify the subject of delay, HUD and spell events.
	Actor     string `yaml:"actor"`
	Combatant string `yaml:"combatant"`
	// Action is the HUD action: half_move, attack or full_attack.
	Action string `yaml:"action"`
	// Level is the spell level of a spell_cast event.
	Level int `yaml:"level"`
	// CastingTime is the casting time of a spell_initiative event.
	CastingTime string `yaml:"casting_time"`
}

// Stream decodes a YAML document stream into Events, one per document.
type Stream struct {
	dec *yaml.Decoder
	n   int
}

// NewStream reads events from r. Unknown keys are rejected.
func NewStream(r io.Reader) *Stream {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	return &Stream{dec: dec}
}

// Next returns the next event.
//
// Postcondition: returns io.EOF after the last document. Empty documents are
// skipped. Decode errors name the document's position in the stream.
func (s *Stream) Next() (Event, error) {
	for {
		var ev Event
		err := s.dec.Decode(&ev)
		if errors.Is(err, io.EOF) {
			return Event{}, io.EOF
		}
		s.n++
		if err != nil {
			return Event{}, fmt.Errorf("decoding event %d: %w", s.n, err)
		}
		if ev.Type == "" && ev.Attack == nil && ev.Initiative == nil {
			continue
		}
		ev.Type = EventType(strings.ToLower(strings.TrimSpace(string(ev.Type))))
		return ev, nil
	}
}
