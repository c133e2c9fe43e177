// Package testutils provides a small probe block catalog for interpreter and
// dispatcher tests.
package testutils

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/registry"
	"github.com/aretw0/tessera/pkg/schema"
	"github.com/aretw0/tessera/pkg/scope"
)

// Probe records the labels of executed "mark" blocks.
type Probe struct {
	mu    sync.Mutex
	calls []string
}

func (p *Probe) record(s string) {
	p.mu.Lock()
	p.calls = append(p.calls, s)
	p.mu.Unlock()
}

// Calls returns a copy of the recorded labels.
func (p *Probe) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// Reset forgets every recorded call.
func (p *Probe) Reset() {
	p.mu.Lock()
	p.calls = nil
	p.mu.Unlock()
}

// NewRegistry returns a registry holding the probe catalog:
//
//	on(event, cancel)     trigger on category `event`
//	check(pass)           condition with a fixed verdict
//	above(name, than)     condition: local int `name` > than
//	target(id)            condition: always true, sets the target
//	mark(label)           action: records label (and "@target" when set)
//	count(name)           action: increments local int `name`
//	fail(message)         action: returns Error
//	explode               action: panics
//	escape                action: returns Break from a non-control block
//	times(n)              loop: n iterations, local "i" is 1-based
//	break, continue, return(value)
func NewRegistry(t testing.TB) (*registry.Registry, *Probe) {
	t.Helper()
	probe := &Probe{}
	reg := registry.NewRegistry()

	handlers := []registry.Handler{
		{
			Type: "on", Kind: domain.KindTrigger,
			Schema: schema.Schema{
				"event":  schema.Required(schema.String()),
				"cancel": schema.Optional(schema.Bool(), false),
			},
			Category: func(p domain.Params) string { return p.String("event") },
			Bind: func(c *scope.Context, p domain.Params, _ *domain.Event) {
				if p.Bool("cancel") {
					c.RequestCancel()
				}
			},
		},
		{
			Type: "check", Kind: domain.KindCondition,
			Schema: schema.Schema{"pass": schema.Required(schema.Bool())},
			Test: func(c *scope.Context, p domain.Params) (*scope.Context, bool, error) {
				return nil, p.Bool("pass"), nil
			},
		},
		{
			Type: "above", Kind: domain.KindCondition,
			Schema: schema.Schema{
				"name": schema.Required(schema.String()),
				"than": schema.Required(schema.Int()),
			},
			Test: func(c *scope.Context, p domain.Params) (*scope.Context, bool, error) {
				v, _ := c.Get(p.String("name"))
				n, _ := v.(int)
				return nil, n > p.Int("than"), nil
			},
		},
		{
			Type: "target", Kind: domain.KindCondition,
			Schema: schema.Schema{"id": schema.Required(schema.String())},
			Test: func(c *scope.Context, p domain.Params) (*scope.Context, bool, error) {
				return c.WithTarget(&domain.Subject{ID: p.String("id")}), true, nil
			},
		},
		{
			Type: "mark", Kind: domain.KindAction,
			Schema: schema.Schema{"label": schema.Required(schema.String())},
			Run: func(c *scope.Context, p domain.Params) domain.Signal {
				label := p.String("label")
				if t := c.Target(); t != nil {
					label += "@" + t.ID
				}
				probe.record(label)
				return domain.Success()
			},
		},
		{
			Type: "count", Kind: domain.KindAction, Leaf: true,
			Schema: schema.Schema{"name": schema.Required(schema.String())},
			Run: func(c *scope.Context, p domain.Params) domain.Signal {
				v, _ := c.GetIn(scope.Local, p.String("name"))
				n, _ := v.(int)
				c.SetLocal(p.String("name"), n+1)
				return domain.Success()
			},
		},
		{
			Type: "fail", Kind: domain.KindAction, Leaf: true,
			Schema: schema.Schema{"message": schema.Optional(schema.String(), "failed")},
			Run: func(c *scope.Context, p domain.Params) domain.Signal {
				return domain.Error(p.String("message"))
			},
		},
		{
			Type: "explode", Kind: domain.KindAction, Leaf: true,
			Run: func(*scope.Context, domain.Params) domain.Signal {
				panic("explode block")
			},
		},
		{
			Type: "escape", Kind: domain.KindAction, Leaf: true,
			Run: func(*scope.Context, domain.Params) domain.Signal { return domain.Break() },
		},
		{
			Type: "times", Kind: domain.KindLoop,
			Schema: schema.Schema{"n": schema.Required(schema.Int())},
			Next: func(c *scope.Context, p domain.Params, i int) (bool, domain.Signal) {
				if i >= p.Int("n") {
					return false, domain.Success()
				}
				c.SetLocal("i", i+1)
				return true, domain.Success()
			},
		},
		{
			Type: "break", Kind: domain.KindControl, NeedsLoop: true,
			Run: func(*scope.Context, domain.Params) domain.Signal { return domain.Break() },
		},
		{
			Type: "continue", Kind: domain.KindControl, NeedsLoop: true,
			Run: func(*scope.Context, domain.Params) domain.Signal { return domain.Continue() },
		},
		{
			Type: "return", Kind: domain.KindControl,
			Schema: schema.Schema{"value": schema.Optional(schema.Any(), nil)},
			Run: func(c *scope.Context, p domain.Params) domain.Signal { return domain.Return(p.Value("value")) },
		},
	}
	for _, h := range handlers {
		require.NoError(t, reg.Register(h))
	}
	return reg, probe
}

// B builds a block without a kind; validation fills it in.
func B(typ string, params domain.Params, children ...*domain.Block) *domain.Block {
	return &domain.Block{Type: typ, Params: params, Children: children}
}

// Mark is shorthand for a mark block.
func Mark(label string, children ...*domain.Block) *domain.Block {
	return B("mark", domain.Params{"label": label}, children...)
}

// Script validates a script rooted at on(event) and returns its normalized form.
func Script(t testing.TB, reg *registry.Registry, id, event string, body ...*domain.Block) *domain.Script {
	t.Helper()
	s := &domain.Script{ID: id, Root: B("on", domain.Params{"event": event}, body...)}
	prepared, err := reg.Prepare(s)
	require.NoError(t, err)
	return prepared
}

// Context returns a fresh context for an event of the given category.
func Context(env *scope.Env, category string) *scope.Context {
	return scope.New(context.Background(), env, &domain.Event{Category: category})
}
