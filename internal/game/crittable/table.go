// Package crittable resolves a confirmed critical hit into a hit location and
// effect using per-creature location tables and per-severity effect tables.
package crittable

import (
	"errors"
	"fmt"
	"strings"
)

// EffectCount is the number of effects per location; one is picked with 1d6.
const EffectCount = 6

// RandomLocation asks the resolver to roll the location.
const RandomLocation = "random"

var (
	// ErrUnknownTable is returned when no effect or location table matches.
	ErrUnknownTable = errors.New("crittable: unknown table")
	// ErrUnknownLocation is returned when a location has no entry.
	ErrUnknownLocation = errors.New("crittable: unknown location")
)

// Key identifies an effect table.
type Key struct {
	Severity   string
	Creature   string
	DamageType string
}

func (k Key) normalized() Key {
	return Key{
		Severity:   strings.ToLower(strings.TrimSpace(k.Severity)),
		Creature:   strings.ToLower(strings.TrimSpace(k.Creature)),
		DamageType: strings.ToLower(strings.TrimSpace(k.DamageType)),
	}
}

// String renders k as severity/creature/damage_type.
func (k Key) String() string {
	return k.Severity + "/" + k.Creature + "/" + k.DamageType
}

// LocationEntry maps an inclusive roll range to a body location.
type LocationEntry struct {
	Location string `yaml:"location"`
	Min      int    `yaml:"min"`
	Max      int    `yaml:"max"`
}

// LocationTable is the hit location table of one creature type.
type LocationTable struct {
	Dice    string          `yaml:"dice"`
	Entries []LocationEntry `yaml:"entries"`
}

// Lookup returns the location covering roll.
func (t *LocationTable) Lookup(roll int) (string, bool) {
	for _, e := range t.Entries {
		if roll >= e.Min && roll <= e.Max {
			return e.Location, true
		}
	}
	return "", false
}

// Locations returns the location names in table order.
func (t *LocationTable) Locations() []string {
	out := make([]string, 0, len(t.Entries))
	for _, e := range t.Entries {
		out = append(out, e.Location)
	}
	return out
}

// EffectRow lists the possible effects of a critical hit to one location.
type EffectRow struct {
	Location string   `yaml:"location"`
	Effects  []string `yaml:"effects"`
}

// EffectTable is the effect table for one severity, creature, and damage type.
type EffectTable struct {
	Severity   string      `yaml:"severity"`
	Creature   string      `yaml:"creature"`
	DamageType string      `yaml:"damage_type"`
	Entries    []EffectRow `yaml:"entries"`
}

// Key returns the table's normalized key.
func (t *EffectTable) Key() Key {
	return Key{Severity: t.Severity, Creature: t.Creature, DamageType: t.DamageType}.normalized()
}

// Row returns the effects for location, matched case-insensitively.
func (t *EffectTable) Row(location string) (EffectRow, bool) {
	for _, r := range t.Entries {
		if strings.EqualFold(r.Location, location) {
			return r, true
		}
	}
	return EffectRow{}, false
}

// Validate checks that every row has exactly EffectCount effects.
func (t *EffectTable) Validate() error {
	if t.Severity == "" || t.Creature == "" || t.DamageType == "" {
		return fmt.Errorf("effect table %s: severity, creature and damage_type are required", t.Key())
	}
	for _, r := range t.Entries {
		if len(r.Effects) != EffectCount {
			return fmt.Errorf("effect table %s location %q: want %d effects, got %d", t.Key(), r.Location, EffectCount, len(r.Effects))
		}
	}
	return nil
}

// Registry holds location and effect tables.
type Registry struct {
	locations map[string]*LocationTable
	effects   map[Key]*EffectTable
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		locations: make(map[string]*LocationTable),
		effects:   make(map[Key]*EffectTable),
	}
}

// AddLocations registers the location table for creature.
func (r *Registry) AddLocations(creature string, t *LocationTable) {
	r.locations[strings.ToLower(creature)] = t
}

// AddEffects registers t under its key, replacing any earlier table.
func (r *Registry) AddEffects(t *EffectTable) {
	r.effects[t.Key()] = t
}

// Locations returns the location table for creature.
func (r *Registry) Locations(creature string) (*LocationTable, error) {
	t, ok := r.locations[strings.ToLower(creature)]
	if !ok {
		return nil, fmt.Errorf("%w: no location table for creature %q", ErrUnknownTable, creature)
	}
	return t, nil
}

// Effects returns the effect table for k.
func (r *Registry) Effects(k Key) (*EffectTable, error) {
	t, ok := r.effects[k.normalized()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, k.normalized())
	}
	return t, nil
}

// Len returns the number of effect tables.
func (r *Registry) Len() int { return len(r.effects) }
