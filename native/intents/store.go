package intents

import (
	"sync"

	"intentnet/core/types"
)

// MemoryStore is a map-backed state backend for the intents engine. It is the
// default for tests and for nodes running without persistence.
type MemoryStore struct {
	mu      sync.RWMutex
	intents map[types.IntentID]*types.Intent
	seq     uint64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{intents: make(map[types.IntentID]*types.Intent)}
}

func (s *MemoryStore) IntentPut(intent *types.Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents[intent.ID] = intent.Clone()
	return nil
}

func (s *MemoryStore) IntentGet(id types.IntentID) (*types.Intent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	intent, ok := s.intents[id]
	if !ok {
		return nil, false
	}
	return intent.Clone(), true
}

func (s *MemoryStore) IntentRemove(id types.IntentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.intents, id)
	return nil
}

func (s *MemoryStore) IntentIterate(fn func(*types.Intent) bool) error {
	s.mu.RLock()
	snapshot := make([]*types.Intent, 0, len(s.intents))
	for _, intent := range s.intents {
		snapshot = append(snapshot, intent.Clone())
	}
	s.mu.RUnlock()
	for _, intent := range snapshot {
		if !fn(intent) {
			break
		}
	}
	return nil
}

func (s *MemoryStore) NextSequence() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.seq
	s.seq++
	return seq, nil
}
