package scope

import (
	"sort"
	"sync"
)

// Store is a concurrency-safe variable namespace.
type Store interface {
	Load(name string) (any, bool)
	Store(name string, value any)
	Delete(name string)
	// Range calls fn for each entry until fn returns false.
	// It does not imply a consistent snapshot.
	Range(fn func(name string, value any) bool)
}

// MemoryStore is a Store backed by sync.Map.
type MemoryStore struct {
	m sync.Map
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(name string) (any, bool) { return s.m.Load(name) }

func (s *MemoryStore) Store(name string, value any) { s.m.Store(name, value) }

func (s *MemoryStore) Delete(name string) { s.m.Delete(name) }

func (s *MemoryStore) Range(fn func(name string, value any) bool) {
	s.m.Range(func(k, v any) bool {
		return fn(k.(string), v)
	})
}

// Snapshot copies a store into a plain map.
func Snapshot(s Store) map[string]any {
	out := make(map[string]any)
	if s == nil {
		return out
	}
	s.Range(func(name string, value any) bool {
		out[name] = value
		return true
	})
	return out
}

// SortedNames returns the keys of m in sorted order.
func SortedNames(m map[string]any) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
