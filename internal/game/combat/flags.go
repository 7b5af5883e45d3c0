package combat

import (
	"context"
	"sync"
)

// FlagFumbleProcessed guards an actor while its fumble table result is
// being dispatched.
const FlagFumbleProcessed = "fumbleProcessed"

// FlagStore holds per-actor boolean flags.
type FlagStore interface {
	// Acquire sets flag on actorID. acquired is false when it was already set.
	Acquire(ctx context.Context, actorID, flag string) (acquired bool, err error)
	// Release clears flag on actorID. Clearing an unset flag is not an error.
	Release(ctx context.Context, actorID, flag string) error
}

// MemoryFlagStore is an in-process FlagStore. It is safe for concurrent use.
type MemoryFlagStore struct {
	mu    sync.Mutex
	flags map[[2]string]struct{}
}

// NewMemoryFlagStore returns an empty MemoryFlagStore.
func NewMemoryFlagStore() *MemoryFlagStore {
	return &MemoryFlagStore{flags: make(map[[2]string]struct{})}
}

// Acquire implements FlagStore.
func (s *MemoryFlagStore) Acquire(_ context.Context, actorID, flag string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := [2]string{actorID, flag}
	if _, ok := s.flags[k]; ok {
		return false, nil
	}
	s.flags[k] = struct{}{}
	return true, nil
}

// Release implements FlagStore.
func (s *MemoryFlagStore) Release(_ context.Context, actorID, flag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flags, [2]string{actorID, flag})
	return nil
}

// IsSet reports whether flag is set on actorID.
func (s *MemoryFlagStore) IsSet(actorID, flag string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.flags[[2]string{actorID, flag}]
	return ok
}
