// Package dispatch bridges host events to registered scripts.
//
// The Dispatcher keeps an index of scripts by the event category their trigger
// declares. Registration replaces index slices instead of mutating them, so a
// dispatch in progress always walks a consistent snapshot while scripts are
// registered or removed concurrently.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/tessera/internal/logging"
	"github.com/aretw0/tessera/internal/runtime"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/registry"
	"github.com/aretw0/tessera/pkg/scope"
)

type entry struct {
	script   *domain.Script
	category string
}

// Dispatcher matches events to scripts and runs them in isolation.
type Dispatcher struct {
	reg    *registry.Registry
	interp *runtime.Interpreter
	env    *scope.Env
	hooks  domain.LifecycleHooks
	logger *slog.Logger
	now    func() time.Time

	mu         sync.RWMutex
	byCategory map[string][]*entry
	byID       map[string]*entry
	order      []string

	dispatched atomic.Int64
	executed   atomic.Int64
	failed     atomic.Int64
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(d *Dispatcher) {
		d.hooks = hooks
	}
}

// WithClock overrides the time source used for event timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// New creates a dispatcher over reg and env.
func New(reg *registry.Registry, env *scope.Env, opts ...Option) *Dispatcher {
	if env == nil {
		env = scope.NewEnv(nil)
	}
	d := &Dispatcher{
		reg:        reg,
		interp:     runtime.New(reg),
		env:        env,
		logger:     logging.NewNop(),
		now:        time.Now,
		byCategory: make(map[string][]*entry),
		byID:       make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register validates s and activates it. A script with the same ID is replaced.
// The dispatcher keeps its own normalized copy of s.
func (d *Dispatcher) Register(s *domain.Script) error {
	prepared, err := d.reg.Prepare(s)
	if err != nil {
		return err
	}
	category, err := d.reg.Category(prepared.Root)
	if err != nil {
		return fmt.Errorf("register %s: %w", s.ID, err)
	}
	e := &entry{script: prepared, category: category}

	d.mu.Lock()
	defer d.mu.Unlock()
	if old, ok := d.byID[s.ID]; ok {
		d.removeLocked(old)
	} else {
		d.order = append(d.order, s.ID)
	}
	d.byID[s.ID] = e
	list := d.byCategory[category]
	next := make([]*entry, len(list), len(list)+1)
	copy(next, list)
	d.byCategory[category] = append(next, e)

	d.logger.Debug("script registered", "script", s.ID, "category", category)
	return nil
}

// Unregister deactivates a script.
func (d *Dispatcher) Unregister(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.byID[id]
	if !ok {
		return fmt.Errorf("unregister %s: %w", id, domain.ErrScriptNotFound)
	}
	d.removeLocked(e)
	delete(d.byID, id)
	for i, sid := range d.order {
		if sid == id {
			d.order = append(d.order[:i:i], d.order[i+1:]...)
			break
		}
	}
	d.logger.Debug("script unregistered", "script", id)
	return nil
}

func (d *Dispatcher) removeLocked(e *entry) {
	list := d.byCategory[e.category]
	next := make([]*entry, 0, len(list))
	for _, other := range list {
		if other != e {
			next = append(next, other)
		}
	}
	if len(next) == 0 {
		delete(d.byCategory, e.category)
		return
	}
	d.byCategory[e.category] = next
}

// Script returns a registered script.
func (d *Dispatcher) Script(id string) (*domain.Script, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.byID[id]
	if !ok {
		return nil, false
	}
	return e.script, true
}

// MaxCallDepth bounds nested RunScript calls.
const MaxCallDepth = 8

// RunScript runs the body of the registered script id inside c, sharing its
// locals, subjects and cancel flag. A Return ends only the called script.
// Calling a script already on the call chain is an error.
func (d *Dispatcher) RunScript(c *scope.Context, id string) domain.Signal {
	s, ok := d.Script(id)
	if !ok {
		return domain.Errorf("script %q: %v", id, domain.ErrScriptNotFound)
	}
	if id == c.ScriptID() || slices.Contains(c.Calls(), id) {
		return domain.Errorf("recursive call to script %q", id)
	}
	if len(c.Calls()) >= MaxCallDepth {
		return domain.Errorf("script call depth exceeds %d", MaxCallDepth)
	}
	sig := d.interp.Run(c.Call(id), s.Root)
	if sig.Kind == domain.SignalReturn {
		return domain.Success()
	}
	return sig
}

// Scripts returns the registered scripts in registration order.
func (d *Dispatcher) Scripts() []*domain.Script {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*domain.Script, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.byID[id].script)
	}
	return out
}

// Categories returns the categories with at least one script, sorted.
func (d *Dispatcher) Categories() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.byCategory))
	for c := range d.byCategory {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (d *Dispatcher) snapshot(category string) []*entry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.byCategory[category]
}

// Dispatch runs every script whose trigger matches ev, one after another,
// and reports their outcomes. A script failing or panicking never prevents
// the others from running.
func (d *Dispatcher) Dispatch(ctx context.Context, ev domain.Event) *domain.Report {
	if ev.Time.IsZero() {
		ev.Time = d.now()
	}
	d.dispatched.Add(1)
	report := &domain.Report{Event: ev, Outcomes: []domain.Outcome{}}

	for _, e := range d.snapshot(ev.Category) {
		ok, failed := d.matches(e.script, &ev)
		if failed != nil {
			report.Outcomes = append(report.Outcomes, *failed)
			continue
		}
		if !ok {
			continue
		}
		outcome, cancel := d.runScript(ctx, e.script, &ev)
		report.Outcomes = append(report.Outcomes, outcome)
		if cancel {
			report.Cancel = true
		}
	}

	if d.hooks.OnDispatch != nil {
		d.hooks.OnDispatch(ctx, report)
	}
	return report
}

// matches evaluates the trigger filter of s. A panicking filter yields a
// Panicked Error outcome for s only.
func (d *Dispatcher) matches(s *domain.Script, ev *domain.Event) (ok bool, failed *domain.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			failed = &domain.Outcome{
				ScriptID: s.ID,
				Signal:   domain.Errorf("panic in trigger match: %v", r),
				Panicked: true,
			}
			d.executed.Add(1)
			d.failed.Add(1)
			d.logger.Error("trigger match panicked", "script", s.ID, "category", ev.Category, "panic", r)
		}
	}()
	return d.reg.MatchesEvent(s.Root, ev), nil
}

func (d *Dispatcher) runScript(ctx context.Context, s *domain.Script, ev *domain.Event) (outcome domain.Outcome, cancel bool) {
	d.executed.Add(1)
	if d.hooks.OnScriptStart != nil {
		d.hooks.OnScriptStart(ctx, s, ev)
	}
	start := d.now()

	defer func() {
		if r := recover(); r != nil {
			outcome = domain.Outcome{
				ScriptID: s.ID,
				Signal:   domain.Errorf("panic: %v", r),
				Panicked: true,
			}
			cancel = false
			d.logger.Error("script panicked", "script", s.ID, "category", ev.Category, "panic", r)
		}
		outcome.Duration = d.now().Sub(start)
		if outcome.Signal.IsError() {
			d.failed.Add(1)
		}
		if d.hooks.OnScriptFinish != nil {
			d.hooks.OnScriptFinish(ctx, s, outcome)
		}
	}()

	c := d.reg.BuildContext(ctx, s.Root, ev, d.env).ForScript(s.ID)
	sig := d.interp.Run(c, s.Root)
	outcome = domain.Outcome{ScriptID: s.ID, Signal: sig}

	if sig.IsError() {
		d.logger.Warn("script failed",
			"script", s.ID,
			"category", ev.Category,
			"origin", sig.Origin,
			"error", sig.Message,
		)
		return outcome, false
	}
	return outcome, c.CancelRequested()
}

// Stats is a point-in-time view of the dispatcher counters.
type Stats struct {
	Scripts    int   `json:"scripts"`
	Dispatched int64 `json:"dispatched"`
	Executed   int64 `json:"executed"`
	Failed     int64 `json:"failed"`
}

// Stats returns the current counters.
func (d *Dispatcher) Stats() Stats {
	d.mu.RLock()
	n := len(d.byID)
	d.mu.RUnlock()
	return Stats{
		Scripts:    n,
		Dispatched: d.dispatched.Load(),
		Executed:   d.executed.Load(),
		Failed:     d.failed.Load(),
	}
}
