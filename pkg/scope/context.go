package scope

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/aretw0/tessera/pkg/domain"
)

// Name identifies one of the variable namespaces.
type Name string

const (
	Local  Name = "local"
	Global Name = "global"
	System Name = "system"
)

// ParseName converts a scope name. The empty string means local.
func ParseName(s string) (Name, error) {
	switch Name(s) {
	case "", Local:
		return Local, nil
	case Global:
		return Global, nil
	case System:
		return System, nil
	}
	return "", fmt.Errorf("unknown scope %q", s)
}

// Context is the state of one execution of one script.
// It is not safe for concurrent use; only the global store it refers to is shared.
type Context struct {
	ctx      context.Context
	env      *Env
	scriptID string
	event    *domain.Event
	actor    *domain.Subject
	target   *domain.Subject
	locals   map[string]any
	cancel   *atomic.Bool
	debug    bool
	calls    []string
}

// New creates a fresh context for ev. The actor is the event's actor.
func New(ctx context.Context, env *Env, ev *domain.Event) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if env == nil {
		env = NewEnv(nil)
	}
	c := &Context{
		ctx:    ctx,
		env:    env,
		event:  ev,
		locals: make(map[string]any),
		cancel: new(atomic.Bool),
		debug:  env.Debug,
	}
	if ev != nil {
		c.actor = ev.Actor
	}
	return c
}

// WithTarget returns a context identical to c except for its target.
// Locals and the cancel flag stay shared with c.
func (c *Context) WithTarget(target *domain.Subject) *Context {
	cp := *c
	cp.target = target
	return &cp
}

// ForScript tags the context with the running script.
func (c *Context) ForScript(id string) *Context {
	c.scriptID = id
	return c
}

// Call returns a context sharing c's locals, subjects and cancel flag with
// id pushed onto its call chain.
func (c *Context) Call(id string) *Context {
	cp := *c
	cp.calls = append(slices.Clone(c.calls), id)
	return &cp
}

// Calls is the chain of scripts entered from the running script, outermost first.
func (c *Context) Calls() []string { return c.calls }

// Get resolves name local → global → system.
func (c *Context) Get(name string) (any, bool) {
	if v, ok := c.locals[name]; ok {
		return v, true
	}
	if c.env.Global != nil {
		if v, ok := c.env.Global.Load(name); ok {
			return v, true
		}
	}
	return c.env.System.Lookup(name)
}

// GetIn reads a variable from one scope only.
func (c *Context) GetIn(scope Name, name string) (any, bool) {
	switch scope {
	case Local:
		v, ok := c.locals[name]
		return v, ok
	case Global:
		if c.env.Global == nil {
			return nil, false
		}
		return c.env.Global.Load(name)
	case System:
		return c.env.System.Lookup(name)
	}
	return nil, false
}

// Set writes a variable into the given scope.
func (c *Context) Set(scope Name, name string, value any) error {
	switch scope {
	case Local:
		c.locals[name] = value
	case Global:
		if c.env.Global == nil {
			return fmt.Errorf("set %s: no global store", name)
		}
		c.env.Global.Store(name, value)
	case System:
		return fmt.Errorf("set %s: %w", name, domain.ErrReadOnlyScope)
	default:
		return fmt.Errorf("set %s: unknown scope %q", name, scope)
	}
	return nil
}

// SetLocal writes a local variable.
func (c *Context) SetLocal(name string, value any) { c.locals[name] = value }

// Delete removes a variable from a writable scope.
func (c *Context) Delete(scope Name, name string) error {
	switch scope {
	case Local:
		delete(c.locals, name)
	case Global:
		if c.env.Global != nil {
			c.env.Global.Delete(name)
		}
	default:
		return fmt.Errorf("delete %s: %w", name, domain.ErrReadOnlyScope)
	}
	return nil
}

// Locals returns a copy of the local scope.
func (c *Context) Locals() map[string]any {
	out := make(map[string]any, len(c.locals))
	for k, v := range c.locals {
		out[k] = v
	}
	return out
}

// Vars returns the merged view of every scope with local taking priority.
func (c *Context) Vars() map[string]any {
	out := c.env.System.Values()
	for k, v := range Snapshot(c.env.Global) {
		out[k] = v
	}
	for k, v := range c.locals {
		out[k] = v
	}
	return out
}

func (c *Context) Actor() *domain.Subject  { return c.actor }
func (c *Context) Target() *domain.Subject { return c.target }
func (c *Context) Event() *domain.Event    { return c.event }
func (c *Context) Env() *Env               { return c.env }
func (c *Context) ScriptID() string        { return c.scriptID }
func (c *Context) Debug() bool             { return c.debug }

// SetDebug toggles block tracing for this context.
func (c *Context) SetDebug(v bool) { c.debug = v }

// Ctx returns the standard context the run was started with.
func (c *Context) Ctx() context.Context { return c.ctx }

// Logger returns the env logger annotated with the script ID.
func (c *Context) Logger() *slog.Logger {
	l := c.env.logger()
	if c.scriptID != "" {
		l = l.With("script", c.scriptID)
	}
	return l
}

// RequestCancel asks the host to suppress the triggering event.
func (c *Context) RequestCancel() { c.cancel.Store(true) }

// CancelRequested reports whether any block asked for suppression.
func (c *Context) CancelRequested() bool { return c.cancel.Load() }
