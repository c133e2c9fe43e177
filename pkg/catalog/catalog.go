// Package catalog is the reference block catalog.
//
// It covers every interpreter path (triggers, conditions, actions, loops and
// control blocks) over the host side-effect API. Text parameters go through
// the variable resolver; an unresolved placeholder becomes the block's
// "fallback" parameter.
package catalog

import (
	"fmt"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/host"
	"github.com/aretw0/tessera/pkg/interpolate"
	"github.com/aretw0/tessera/pkg/registry"
	"github.com/aretw0/tessera/pkg/schema"
	"github.com/aretw0/tessera/pkg/scope"
)

// Catalog builds the reference handlers over a host API.
type Catalog struct {
	api     host.API
	js      *scriptEngine
	scripts ScriptRunner
}

// ScriptRunner runs the body of the registered script id inside c.
type ScriptRunner func(c *scope.Context, id string) domain.Signal

// Option configures a Catalog.
type Option func(*Catalog)

// WithScripts lets run_script call registered scripts through run.
func WithScripts(run ScriptRunner) Option {
	return func(cat *Catalog) {
		cat.scripts = run
	}
}

// New creates a catalog over api.
func New(api host.API, opts ...Option) *Catalog {
	cat := &Catalog{api: api, js: newScriptEngine()}
	for _, opt := range opts {
		opt(cat)
	}
	return cat
}

// Handlers returns every handler of the catalog.
func (cat *Catalog) Handlers() []registry.Handler {
	var hs []registry.Handler
	hs = append(hs, cat.triggers()...)
	hs = append(hs, cat.conditions()...)
	hs = append(hs, cat.actions()...)
	hs = append(hs, cat.loops()...)
	hs = append(hs, cat.control()...)
	return hs
}

// Register installs the catalog into reg.
func Register(reg *registry.Registry, api host.API, opts ...Option) error {
	for _, h := range New(api, opts...).Handlers() {
		if err := reg.Register(h); err != nil {
			return fmt.Errorf("catalog: %w", err)
		}
	}
	return nil
}

// textField declares a templated text parameter.
func textField(required bool) schema.Field {
	if required {
		return schema.Required(schema.String())
	}
	return schema.Optional(schema.String(), "")
}

// withFallback adds the "fallback" parameter to a schema.
func withFallback(s schema.Schema) schema.Schema {
	s["fallback"] = schema.Optional(schema.String(), "").Describe("text used for unresolved placeholders")
	return s
}

// text resolves a templated parameter.
func text(c *scope.Context, p domain.Params, name string) string {
	return interpolate.Text(c, p.String(name), p.String("fallback"))
}

// resolveValue interpolates string values and leaves others untouched.
func resolveValue(c *scope.Context, p domain.Params, name string) any {
	v := p.Value(name)
	if s, ok := v.(string); ok {
		return interpolate.Text(c, s, p.String("fallback"))
	}
	return v
}

// subject picks the actor or the target of c.
func subject(c *scope.Context, which string) (*domain.Subject, error) {
	var s *domain.Subject
	if which == "target" {
		s = c.Target()
	} else {
		s = c.Actor()
	}
	if s == nil {
		return nil, fmt.Errorf("no %s: %w", which, host.ErrNoSubject)
	}
	return s, nil
}

// fromError converts a host failure into an Error signal.
func fromError(op string, err error) domain.Signal {
	if err == nil {
		return domain.Success()
	}
	return domain.Errorf("%s: %v", op, err)
}

func writableScope(s string) scope.Name {
	if s == string(scope.Global) {
		return scope.Global
	}
	return scope.Local
}
