package scope

import (
	"sort"
	"sync"
)

// Provider computes a system variable on demand.
type Provider func() any

// SystemVars is the read-only scope. Values are computed when looked up.
type SystemVars struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewSystemVars creates an empty system scope.
func NewSystemVars() *SystemVars {
	return &SystemVars{providers: make(map[string]Provider)}
}

// Provide registers (or replaces) the provider of a system variable.
// Providers are installed by the engine owner; scripts can never write here.
func (s *SystemVars) Provide(name string, p Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[name] = p
}

// Lookup evaluates the named provider.
func (s *SystemVars) Lookup(name string) (any, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	p, ok := s.providers[name]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return p(), true
}

// Names returns the provided variable names in sorted order.
func (s *SystemVars) Names() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Values evaluates every provider.
func (s *SystemVars) Values() map[string]any {
	out := make(map[string]any)
	for _, name := range s.Names() {
		if v, ok := s.Lookup(name); ok {
			out[name] = v
		}
	}
	return out
}
