package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/scope"
)

// Registry manages the available block types.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler to the registry.
// If a handler with the same type exists, it is overwritten.
func (r *Registry) Register(h Handler) error {
	if err := h.verify(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[h.Type] = h
	return nil
}

// MustRegister is Register for static catalogs; it panics on a malformed handler.
func (r *Registry) MustRegister(handlers ...Handler) {
	for _, h := range handlers {
		if err := r.Register(h); err != nil {
			panic(err)
		}
	}
}

// Get looks up a handler by block type.
func (r *Registry) Get(blockType string) (Handler, bool) {
	r.mu.RLock()
	h, ok := r.handlers[blockType]
	r.mu.RUnlock()
	return h, ok
}

// Handlers returns every handler sorted by kind then type.
func (r *Registry) Handlers() []Handler {
	r.mu.RLock()
	out := make([]Handler, 0, len(r.handlers))
	for _, h := range r.handlers {
		out = append(out, h)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// Category returns the event category a trigger block listens to.
func (r *Registry) Category(b *domain.Block) (string, error) {
	h, ok := r.Get(b.Type)
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownBlockType, b.Type)
	}
	if h.Kind != domain.KindTrigger {
		return "", fmt.Errorf("block %s is a %s, not a trigger", b.Label(), h.Kind)
	}
	return h.Category(b.Params), nil
}

// MatchesEvent reports whether a trigger block accepts ev.
func (r *Registry) MatchesEvent(b *domain.Block, ev *domain.Event) bool {
	if b == nil || ev == nil {
		return false
	}
	h, ok := r.Get(b.Type)
	if !ok || h.Kind != domain.KindTrigger {
		return false
	}
	if h.Category(b.Params) != ev.Category {
		return false
	}
	return h.Match == nil || h.Match(b.Params, ev)
}

// BuildContext creates the fresh execution context of a matched trigger.
// Event fields are bound as local "event.<field>" variables before the
// handler's own bindings.
func (r *Registry) BuildContext(ctx context.Context, b *domain.Block, ev *domain.Event, env *scope.Env) *scope.Context {
	c := scope.New(ctx, env, ev)
	if ev != nil {
		c.SetLocal("event.category", ev.Category)
		for k, v := range ev.Fields {
			c.SetLocal("event."+k, v)
		}
	}
	if h, ok := r.Get(b.Type); ok && h.Bind != nil {
		h.Bind(c, b.Params, ev)
	}
	return c
}
