package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/tessera/pkg/domain"
)

// Store implements ports.ScriptStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Script
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store, optionally seeded with scripts.
func NewStore(scripts ...*domain.Script) *Store {
	s := &Store{
		data: make(map[string]*domain.Script),
	}
	for _, script := range scripts {
		s.data[script.ID] = script.Clone()
	}
	return s
}

// Save persists a deep copy of the script.
func (s *Store) Save(ctx context.Context, script *domain.Script) error {
	copied := script.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[script.ID] = copied
	return nil
}

// Load retrieves a copy of the script so callers can't mutate the stored tree.
func (s *Store) Load(ctx context.Context, id string) (*domain.Script, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	script, ok := s.data[id]
	if !ok {
		return nil, domain.ErrScriptNotFound
	}
	return script.Clone(), nil
}

// Delete removes the script.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns the stored IDs in ascending order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
