package gameserver

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/tactics/internal/game/combat"
	"github.com/cory-johannsen/tactics/internal/game/fatigue"
	"github.com/cory-johannsen/tactics/internal/game/spellpoints"
)

// EntityRecord is one entry of the entity file: the combat view of an actor,
// weapon or target plus the optional caster and fatigue sheets of an actor.
type EntityRecord struct {
	combat.Entity `yaml:",inline"`
	Caster        *spellpoints.Caster `yaml:"caster"`
	Fatigue       *fatigue.Pool       `yaml:"fatigue"`
}

type entityFile struct {
	Entities []EntityRecord `yaml:"entities"`
}

// Registry resolves references against loaded entities. A reference matches
// an entity ID exactly, or failing that an entity name case-insensitively.
// It satisfies combat.References and is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]*EntityRecord
	byName map[string]*EntityRecord
	order  []string
}

var _ combat.References = (*Registry)(nil)

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[string]*EntityRecord),
		byName: make(map[string]*EntityRecord),
	}
}

// LoadRegistry reads an entity file. An empty path yields an empty Registry.
//
// Postcondition: returns an error when the file cannot be read, contains an
// unknown key, or repeats an ID.
func LoadRegistry(path string) (*Registry, error) {
	reg := NewRegistry()
	if path == "" {
		return reg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading entities %s: %w", path, err)
	}
	var f entityFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing entities %s: %w", path, err)
	}
	for _, rec := range f.Entities {
		if err := reg.Add(rec); err != nil {
			return nil, fmt.Errorf("entities %s: %w", path, err)
		}
	}
	return reg, nil
}

// Add registers rec.
//
// Precondition: rec.ID is non-empty and not yet registered.
func (r *Registry) Add(rec EntityRecord) error {
	if strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("entity %q has no id", rec.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byID[rec.ID]; dup {
		return fmt.Errorf("duplicate entity id %q", rec.ID)
	}
	stored := rec
	r.byID[rec.ID] = &stored
	if name := strings.ToLower(strings.TrimSpace(rec.Name)); name != "" {
		if _, taken := r.byName[name]; !taken {
			r.byName[name] = &stored
		}
	}
	r.order = append(r.order, rec.ID)
	return nil
}

// Lookup implements combat.References. An unresolved reference returns
// (nil, nil).
func (r *Registry) Lookup(_ context.Context, ref string) (*combat.Entity, error) {
	rec := r.find(ref)
	if rec == nil {
		return nil, nil
	}
	e := rec.Entity
	e.Properties = append([]string(nil), rec.Properties...)
	return &e, nil
}

// Record returns the full record for ref.
func (r *Registry) Record(ref string) (EntityRecord, bool) {
	rec := r.find(ref)
	if rec == nil {
		return EntityRecord{}, false
	}
	return *rec, true
}

// Records returns every record in load order.
func (r *Registry) Records() []EntityRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]EntityRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.byID[id])
	}
	return out
}

// Len returns the number of entities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func (r *Registry) find(ref string) *EntityRecord {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rec, ok := r.byID[ref]; ok {
		return rec
	}
	return r.byName[strings.ToLower(ref)]
}

// Seed loads every actor's caster and fatigue sheet into the ledgers.
func (r *Registry) Seed(spells *spellpoints.Ledger, tired *fatigue.Tracker) {
	for _, rec := range r.Records() {
		if rec.Caster != nil && spells != nil {
			spells.Refresh(rec.ID, *rec.Caster)
		}
		if rec.Fatigue != nil && tired != nil {
			tired.Set(rec.ID, *rec.Fatigue)
		}
	}
}
