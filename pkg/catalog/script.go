package catalog

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/scope"
)

const defaultScriptTimeoutMS = 100

var errScriptTimeout = errors.New("script timed out")

// scriptEngine evaluates JavaScript sources with goja. Programs are compiled
// once per distinct source; a fresh runtime is used for every evaluation.
type scriptEngine struct {
	programs sync.Map // source -> *goja.Program
}

func newScriptEngine() *scriptEngine {
	return &scriptEngine{}
}

func (e *scriptEngine) compile(src string) (*goja.Program, error) {
	if p, ok := e.programs.Load(src); ok {
		return p.(*goja.Program), nil
	}
	p, err := goja.Compile("block", src, true)
	if err != nil {
		return nil, err
	}
	e.programs.Store(src, p)
	return p, nil
}

func (e *scriptEngine) check(p domain.Params) error {
	if _, err := e.compile(p.String("source")); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if p.Int("timeout_ms") <= 0 {
		return fmt.Errorf("timeout_ms must be positive")
	}
	return nil
}

// eval runs the source of p. With writable set, set(name, value) and
// setGlobal(name, value) are available to the script.
func (e *scriptEngine) eval(c *scope.Context, p domain.Params, writable bool) (goja.Value, error) {
	prog, err := e.compile(p.String("source"))
	if err != nil {
		return nil, err
	}

	vm := goja.New()
	globals := map[string]any{
		"vars":   c.Vars(),
		"actor":  subjectValue(c.Actor()),
		"target": subjectValue(c.Target()),
		"event":  eventValue(c.Event()),
	}

	var setErr error
	if writable {
		globals["set"] = func(name string, v goja.Value) {
			c.SetLocal(name, v.Export())
		}
		globals["setGlobal"] = func(name string, v goja.Value) {
			if err := c.Set(scope.Global, name, v.Export()); err != nil {
				setErr = err
			}
		}
	}
	for name, v := range globals {
		if err := vm.Set(name, v); err != nil {
			return nil, fmt.Errorf("script: bind %s: %w", name, err)
		}
	}

	timeout := time.Duration(p.Int("timeout_ms")) * time.Millisecond
	timer := time.AfterFunc(timeout, func() { vm.Interrupt(errScriptTimeout) })
	defer timer.Stop()

	stop := interruptOnDone(c, vm)
	defer stop()

	v, err := vm.RunProgram(prog)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return nil, fmt.Errorf("script interrupted after %s", timeout)
		}
		return nil, fmt.Errorf("script: %w", err)
	}
	if setErr != nil {
		return nil, setErr
	}
	return v, nil
}

// interruptOnDone interrupts vm when the run's standard context ends.
func interruptOnDone(c *scope.Context, vm *goja.Runtime) func() {
	ctx := c.Ctx()
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()
	return func() { close(done) }
}

func subjectValue(s *domain.Subject) any {
	if s == nil {
		return nil
	}
	return map[string]any{
		"id":         s.ID,
		"name":       s.DisplayName(),
		"kind":       s.Kind,
		"attributes": s.Attributes,
	}
}

func eventValue(ev *domain.Event) any {
	if ev == nil {
		return nil
	}
	fields := make(map[string]any, len(ev.Fields))
	for k, v := range ev.Fields {
		fields[k] = v
	}
	return map[string]any{
		"category": ev.Category,
		"fields":   fields,
	}
}
