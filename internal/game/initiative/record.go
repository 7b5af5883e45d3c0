package initiative

import (
	"context"
	"sort"
	"sync"
)

// Record is the stored initiative of one combatant.
type Record struct {
	ID          string
	ActorID     string
	CombatantID string
	ActorName   string
	Formula     string
	RawRoll     int
	NaturalRoll int
	Modifier    int
	PhaseID     int
	PhaseCode   string
	Value       float64
	Delayed     bool
}

// Store persists initiative records, one per combatant.
type Store interface {
	// Save inserts rec or overwrites the record of the same combatant.
	Save(ctx context.Context, rec Record) error
	// Get returns the record for combatantID; ok is false when none exists.
	Get(ctx context.Context, combatantID string) (rec Record, ok bool, err error)
	// List returns every record ordered by ascending Value.
	List(ctx context.Context) ([]Record, error)
	// Clear removes every record.
	Clear(ctx context.Context) error
}

// MemoryStore is an in-process Store. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.CombatantID] = rec
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, combatantID string) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[combatantID]
	return rec, ok, nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	SortByValue(out)
	return out, nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]Record)
	return nil
}

// SortByValue orders records by ascending Value, ties broken by CombatantID.
func SortByValue(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Value != recs[j].Value {
			return recs[i].Value < recs[j].Value
		}
		return recs[i].CombatantID < recs[j].CombatantID
	})
}

// DelayedValue returns the initiative for a combatant that delays its turn:
// one past the last value in recs, or 1 when recs is empty.
func DelayedValue(recs []Record) float64 {
	last := 0.0
	for _, r := range recs {
		last = max(last, r.Value)
	}
	return last + 1
}
