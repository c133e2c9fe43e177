package dispatch_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tessera/internal/testutils"
	"github.com/aretw0/tessera/pkg/dispatch"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/registry"
	"github.com/aretw0/tessera/pkg/schema"
	"github.com/aretw0/tessera/pkg/scope"
)

var (
	b    = testutils.B
	mark = testutils.Mark
)

func script(id, category string, body ...*domain.Block) *domain.Script {
	return &domain.Script{ID: id, Root: b("on", domain.Params{"event": category}, body...)}
}

func newDispatcher(t *testing.T, opts ...dispatch.Option) (*dispatch.Dispatcher, *testutils.Probe) {
	t.Helper()
	reg, probe := testutils.NewRegistry(t)
	return dispatch.New(reg, scope.NewEnv(nil), opts...), probe
}

func TestDispatch_RunsOnlyMatchingScriptsOnce(t *testing.T) {
	d, probe := newDispatcher(t)
	require.NoError(t, d.Register(script("join-1", "actor.join", mark("j1"))))
	require.NoError(t, d.Register(script("join-2", "actor.join", mark("j2"))))
	require.NoError(t, d.Register(script("quit", "actor.quit", mark("q"))))

	r := d.Dispatch(context.Background(), domain.Event{Category: "actor.join"})

	assert.Equal(t, 2, r.Matched())
	assert.ElementsMatch(t, []string{"j1", "j2"}, probe.Calls())
	assert.False(t, r.Event.Time.IsZero(), "timestamp filled")

	probe.Reset()
	r = d.Dispatch(context.Background(), domain.Event{Category: "world.rain"})
	assert.Equal(t, 0, r.Matched())
	assert.Empty(t, probe.Calls())
}

func TestDispatch_IsolatesFailures(t *testing.T) {
	d, probe := newDispatcher(t)
	require.NoError(t, d.Register(script("bad", "x", b("fail", domain.Params{"message": "invalid"}), mark("never"))))
	require.NoError(t, d.Register(script("panics", "x", b("explode", nil))))
	require.NoError(t, d.Register(script("good", "x", mark("ok"))))

	r := d.Dispatch(context.Background(), domain.Event{Category: "x"})

	require.Equal(t, 3, r.Matched())
	assert.Equal(t, []string{"ok"}, probe.Calls())

	bad, _ := r.Outcome("bad")
	assert.Equal(t, domain.StatusError, bad.Status())
	assert.Equal(t, "invalid", bad.Signal.Message)

	p, _ := r.Outcome("panics")
	assert.True(t, p.Panicked)
	assert.Contains(t, p.Signal.Message, "explode block")

	good, _ := r.Outcome("good")
	assert.Equal(t, domain.StatusSuccess, good.Status())

	stats := d.Stats()
	assert.Equal(t, int64(1), stats.Dispatched)
	assert.Equal(t, int64(3), stats.Executed)
	assert.Equal(t, int64(2), stats.Failed)
}

func TestDispatch_IsolatesPanickingTriggerMatch(t *testing.T) {
	reg, probe := testutils.NewRegistry(t)
	require.NoError(t, reg.Register(registry.Handler{
		Type: "on_broken", Kind: domain.KindTrigger,
		Schema:   schema.Schema{"event": schema.Required(schema.String())},
		Category: func(p domain.Params) string { return p.String("event") },
		Match: func(domain.Params, *domain.Event) bool {
			var seen map[string]bool
			seen["x"] = true
			return true
		},
	}))
	d := dispatch.New(reg, scope.NewEnv(nil))
	require.NoError(t, d.Register(&domain.Script{
		ID:   "broken",
		Root: b("on_broken", domain.Params{"event": "x"}, mark("never")),
	}))
	require.NoError(t, d.Register(script("good", "x", mark("ok"))))

	var r *domain.Report
	require.NotPanics(t, func() {
		r = d.Dispatch(context.Background(), domain.Event{Category: "x"})
	})

	assert.Equal(t, []string{"ok"}, probe.Calls())
	broken, ok := r.Outcome("broken")
	require.True(t, ok)
	assert.True(t, broken.Panicked)
	assert.Equal(t, domain.StatusError, broken.Status())
	assert.Contains(t, broken.Signal.Message, "nil map")

	good, _ := r.Outcome("good")
	assert.Equal(t, domain.StatusSuccess, good.Status())
	assert.Equal(t, int64(1), d.Stats().Failed)
}

func TestRunScript_DepthAndReturn(t *testing.T) {
	reg, probe := testutils.NewRegistry(t)
	var d *dispatch.Dispatcher
	require.NoError(t, reg.Register(registry.Handler{
		Type: "call", Kind: domain.KindAction,
		Schema: schema.Schema{"id": schema.Required(schema.String())},
		Run: func(c *scope.Context, p domain.Params) domain.Signal {
			return d.RunScript(c, p.String("id"))
		},
	}))
	d = dispatch.New(reg, scope.NewEnv(nil))

	require.NoError(t, d.Register(script("leaf", "unused", mark("leaf"), b("return", nil), mark("never"))))
	require.NoError(t, d.Register(script("caller", "x", b("call", domain.Params{"id": "leaf"}), mark("after"))))
	for i := 0; i <= dispatch.MaxCallDepth; i++ {
		require.NoError(t, d.Register(script(fmt.Sprintf("deep-%d", i), "unused",
			b("call", domain.Params{"id": fmt.Sprintf("deep-%d", i+1)}))))
	}
	require.NoError(t, d.Register(script("deep-start", "y", b("call", domain.Params{"id": "deep-0"}))))

	r := d.Dispatch(context.Background(), domain.Event{Category: "x"})
	o, _ := r.Outcome("caller")
	assert.Equal(t, domain.StatusSuccess, o.Status())
	assert.Equal(t, []string{"leaf", "after"}, probe.Calls())

	r = d.Dispatch(context.Background(), domain.Event{Category: "y"})
	o, _ = r.Outcome("deep-start")
	require.True(t, o.Signal.IsError())
	assert.Contains(t, o.Signal.Message, "call depth exceeds")
}

func TestDispatch_Cancellation(t *testing.T) {
	d, _ := newDispatcher(t)
	cancelling := func(id string, body ...*domain.Block) *domain.Script {
		return &domain.Script{ID: id, Root: b("on", domain.Params{"event": "x", "cancel": true}, body...)}
	}

	require.NoError(t, d.Register(cancelling("c1", b("fail", nil))))
	r := d.Dispatch(context.Background(), domain.Event{Category: "x"})
	assert.False(t, r.Cancel, "a failed script does not cancel")

	require.NoError(t, d.Register(cancelling("c2", b("return", domain.Params{"value": 1}))))
	r = d.Dispatch(context.Background(), domain.Event{Category: "x"})
	assert.True(t, r.Cancel, "an early return still counts as success")

	require.NoError(t, d.Unregister("c2"))
	require.NoError(t, d.Register(script("plain", "x", mark("a"))))
	r = d.Dispatch(context.Background(), domain.Event{Category: "x"})
	assert.False(t, r.Cancel)
}

func TestRegister_ValidatesAndReplaces(t *testing.T) {
	d, probe := newDispatcher(t)

	err := d.Register(script("s", "x", b("break", nil)))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidScript)
	assert.Empty(t, d.Scripts())

	require.NoError(t, d.Register(script("s", "x", mark("v1"))))
	require.NoError(t, d.Register(script("s", "y", mark("v2"))))
	assert.Len(t, d.Scripts(), 1)
	assert.Equal(t, []string{"y"}, d.Categories())

	d.Dispatch(context.Background(), domain.Event{Category: "x"})
	d.Dispatch(context.Background(), domain.Event{Category: "y"})
	assert.Equal(t, []string{"v2"}, probe.Calls())
}

func TestUnregister(t *testing.T) {
	d, probe := newDispatcher(t)
	require.NoError(t, d.Register(script("a", "x", mark("a"))))
	require.NoError(t, d.Register(script("b", "x", mark("b"))))

	require.NoError(t, d.Unregister("a"))
	assert.ErrorIs(t, d.Unregister("a"), domain.ErrScriptNotFound)

	d.Dispatch(context.Background(), domain.Event{Category: "x"})
	assert.Equal(t, []string{"b"}, probe.Calls())

	_, ok := d.Script("a")
	assert.False(t, ok)
	s, ok := d.Script("b")
	require.True(t, ok)
	assert.Equal(t, domain.KindTrigger, s.Root.Kind)
}

func TestDispatch_Hooks(t *testing.T) {
	var (
		started  []string
		finished []domain.Outcome
		reports  int
	)
	hooks := domain.LifecycleHooks{
		OnScriptStart:  func(_ context.Context, s *domain.Script, _ *domain.Event) { started = append(started, s.ID) },
		OnScriptFinish: func(_ context.Context, _ *domain.Script, o domain.Outcome) { finished = append(finished, o) },
		OnDispatch:     func(context.Context, *domain.Report) { reports++ },
	}
	d, _ := newDispatcher(t, dispatch.WithLifecycleHooks(hooks))
	require.NoError(t, d.Register(script("a", "x", b("explode", nil))))

	d.Dispatch(context.Background(), domain.Event{Category: "x"})

	assert.Equal(t, []string{"a"}, started)
	require.Len(t, finished, 1)
	assert.True(t, finished[0].Panicked)
	assert.Equal(t, 1, reports)
}

func TestDispatch_ConcurrentRegistration(t *testing.T) {
	reg, _ := testutils.NewRegistry(t)
	d := dispatch.New(reg, scope.NewEnv(nil))
	require.NoError(t, d.Register(script("base", "x", b("count", domain.Params{"name": "n"}))))

	var wg sync.WaitGroup
	ctx := context.Background()
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id := fmt.Sprintf("w%d-%d", w, i)
				_ = d.Register(script(id, "x", mark(id)))
				_ = d.Unregister(id)
			}
		}(w)
	}
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				r := d.Dispatch(ctx, domain.Event{Category: "x"})
				assertHasBase(t, r)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, d.Scripts(), 1)
}

func assertHasBase(t *testing.T, r *domain.Report) {
	t.Helper()
	_, ok := r.Outcome("base")
	assert.True(t, ok)
}

func TestDispatch_ScenarioErrorStopsSiblings(t *testing.T) {
	reg, probe := testutils.NewRegistry(t)
	d := dispatch.New(reg, nil)
	require.NoError(t, d.Register(script("s", "x", b("fail", domain.Params{"message": "bad param"}), mark("broadcast"))))

	r := d.Dispatch(context.Background(), domain.Event{Category: "x"})

	o, ok := r.Outcome("s")
	require.True(t, ok)
	assert.True(t, o.Signal.IsError())
	assert.Empty(t, probe.Calls())
}
