package combat

import "sync"

// RollKind identifies what a secondary roll is confirming.
type RollKind string

const (
	KindCritical RollKind = "critical"
	KindFumble   RollKind = "fumble"
)

type lockKey struct {
	actorID string
	kind    RollKind
}

// LockTable tracks secondary rolls in flight per (actor, kind).
// It is safe for concurrent use.
type LockTable struct {
	mu   sync.Mutex
	held map[lockKey]struct{}
}

// NewLockTable returns an empty LockTable.
func NewLockTable() *LockTable {
	return &LockTable{held: make(map[lockKey]struct{})}
}

// TryAcquire marks (actorID, kind) as in flight.
//
// Postcondition: when ok is true, release must be called exactly once to
// return the key to idle; extra calls are no-ops. When ok is false the key was
// already held and release is nil.
func (t *LockTable) TryAcquire(actorID string, kind RollKind) (release func(), ok bool) {
	key := lockKey{actorID: actorID, kind: kind}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, busy := t.held[key]; busy {
		return nil, false
	}
	t.held[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.held, key)
			t.mu.Unlock()
		})
	}, true
}

// Held reports whether (actorID, kind) is in flight.
func (t *LockTable) Held(actorID string, kind RollKind) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.held[lockKey{actorID: actorID, kind: kind}]
	return ok
}
