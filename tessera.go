package tessera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/tessera/internal/logging"
	"github.com/aretw0/tessera/pkg/catalog"
	"github.com/aretw0/tessera/pkg/dispatch"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/host"
	"github.com/aretw0/tessera/pkg/ports"
	"github.com/aretw0/tessera/pkg/registry"
	"github.com/aretw0/tessera/pkg/scope"
)

// Engine is the high-level entry point for the Tessera library.
// It wires the registry, the shared environment and the dispatcher, and
// provides a simplified API for hosts.
type Engine struct {
	Name string

	reg    *registry.Registry
	env    *scope.Env
	disp   *dispatch.Dispatcher
	hooks  domain.LifecycleHooks
	logger *slog.Logger
	api    host.API
	global scope.Store
	sinks  []ports.ReportSink
	store  ports.ScriptStore
	debug  bool
	clock  func() time.Time
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks. Repeated options chain.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithHost installs the reference catalog over api.
func WithHost(api host.API) Option {
	return func(e *Engine) {
		e.api = api
	}
}

// WithRegistry replaces the block registry.
// Combined with WithHost the catalog is added to reg.
func WithRegistry(reg *registry.Registry) Option {
	return func(e *Engine) {
		e.reg = reg
	}
}

// WithGlobalStore sets the backend of the global scope.
func WithGlobalStore(s scope.Store) Option {
	return func(e *Engine) {
		e.global = s
	}
}

// WithDebug makes every script trace its blocks at Debug level.
func WithDebug(debug bool) Option {
	return func(e *Engine) {
		e.debug = debug
	}
}

// WithReportSink records every dispatch report. Repeated options add sinks.
func WithReportSink(sink ports.ReportSink) Option {
	return func(e *Engine) {
		e.sinks = append(e.sinks, sink)
	}
}

// WithScriptStore persists registrations: Register saves, Unregister deletes.
func WithScriptStore(store ports.ScriptStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithName labels the engine in logs and system variables.
func WithName(name string) Option {
	return func(e *Engine) {
		e.Name = name
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.clock = now
	}
}

// New initializes a new Tessera Engine.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{clock: time.Now}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("engine", eng.Name)
	}
	if eng.reg == nil {
		eng.reg = registry.NewRegistry()
	}
	if eng.api != nil {
		runScript := func(c *scope.Context, id string) domain.Signal { return eng.disp.RunScript(c, id) }
		if err := catalog.Register(eng.reg, eng.api, catalog.WithScripts(runScript)); err != nil {
			return nil, fmt.Errorf("failed to install catalog: %w", err)
		}
	}

	eng.env = scope.NewEnv(eng.global)
	eng.env.Logger = eng.logger
	eng.env.Debug = eng.debug

	eng.disp = dispatch.New(eng.reg, eng.env,
		dispatch.WithLogger(eng.logger),
		dispatch.WithLifecycleHooks(eng.hooks),
		dispatch.WithClock(eng.clock),
	)
	eng.provideSystem()
	return eng, nil
}

func (e *Engine) provideSystem() {
	sys := e.env.System
	sys.Provide("time", func() any { return e.clock().Format(time.RFC3339) })
	sys.Provide("unix", func() any { return int(e.clock().Unix()) })
	sys.Provide("scripts", func() any { return e.disp.Stats().Scripts })
	sys.Provide("dispatched", func() any { return int(e.disp.Stats().Dispatched) })
	if e.Name != "" {
		sys.Provide("engine", func() any { return e.Name })
	}
}

// Registry exposes the block registry.
func (e *Engine) Registry() *registry.Registry { return e.reg }

// Env exposes the shared environment (global and system scopes).
func (e *Engine) Env() *scope.Env { return e.env }

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// Stats returns the dispatcher counters.
func (e *Engine) Stats() dispatch.Stats { return e.disp.Stats() }

// Register validates and activates a script, persisting it when a script
// store is configured. Invalid scripts are never stored. When the store
// rejects the script, the previously active version (if any) is restored.
func (e *Engine) Register(ctx context.Context, s *domain.Script) error {
	prev, replaced := e.disp.Script(s.ID)
	if err := e.disp.Register(s); err != nil {
		return err
	}
	if e.store == nil {
		return nil
	}
	if err := e.store.Save(ctx, s); err != nil {
		if replaced {
			if rerr := e.disp.Register(prev); rerr != nil {
				e.logger.Error("restore script failed", "script", s.ID, "err", rerr)
			}
		} else {
			_ = e.disp.Unregister(s.ID)
		}
		return fmt.Errorf("persist script %s: %w", s.ID, err)
	}
	return nil
}

// Unregister deactivates a script and removes it from the script store.
func (e *Engine) Unregister(ctx context.Context, id string) error {
	if err := e.disp.Unregister(id); err != nil {
		return err
	}
	if e.store != nil {
		if err := e.store.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete script %s: %w", id, err)
		}
	}
	return nil
}

// Script returns the normalized copy of a registered script.
func (e *Engine) Script(id string) (*domain.Script, bool) { return e.disp.Script(id) }

// Scripts returns the registered scripts in registration order.
func (e *Engine) Scripts() []*domain.Script { return e.disp.Scripts() }

// Validate checks a script against the registry without registering it.
func (e *Engine) Validate(s *domain.Script) error { return e.reg.ValidateScript(s) }

// Dispatch runs the scripts matching ev and hands the report to every sink.
// Sink failures are logged; they never change the report.
func (e *Engine) Dispatch(ctx context.Context, ev domain.Event) *domain.Report {
	report := e.disp.Dispatch(ctx, ev)
	for _, sink := range e.sinks {
		if err := sink.Record(ctx, report); err != nil {
			e.logger.Warn("report sink failed", "category", ev.Category, "err", err)
		}
	}
	return report
}

// LoadScripts registers every script of store. Scripts failing validation
// are skipped; their errors are joined in the result.
func (e *Engine) LoadScripts(ctx context.Context, store ports.ScriptStore) (int, error) {
	ids, err := store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list scripts: %w", err)
	}
	var errs []error
	loaded := 0
	for _, id := range ids {
		s, err := store.Load(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("load %s: %w", id, err))
			continue
		}
		if err := e.disp.Register(s); err != nil {
			errs = append(errs, err)
			continue
		}
		loaded++
	}
	e.logger.Info("scripts loaded", "count", loaded, "failed", len(errs))
	return loaded, errors.Join(errs...)
}

// RegisterAll registers scripts in order, stopping at the first failure.
func (e *Engine) RegisterAll(ctx context.Context, scripts []*domain.Script) error {
	for _, s := range scripts {
		if err := e.Register(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
