package tessera_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tessera"
	"github.com/aretw0/tessera/pkg/adapters/memory"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/dsl"
	"github.com/aretw0/tessera/pkg/host"
	"github.com/aretw0/tessera/pkg/observability"
	"github.com/aretw0/tessera/pkg/scope"
)

func newEngine(t *testing.T, opts ...tessera.Option) (*tessera.Engine, *host.Recorder) {
	t.Helper()
	rec := host.NewRecorder()
	eng, err := tessera.New(append([]tessera.Option{tessera.WithHost(rec)}, opts...)...)
	require.NoError(t, err)
	return eng, rec
}

func join(name string) domain.Event {
	return domain.Event{Category: "actor.join", Actor: &domain.Subject{ID: strings.ToLower(name), Name: name}}
}

func TestEngine_RegisterAndDispatch(t *testing.T) {
	eng, rec := newEngine(t)
	ctx := context.Background()

	require.NoError(t, eng.Register(ctx, dsl.New("welcome").On("join").Then(
		dsl.Do("send_message", dsl.P{"text": "Welcome {player}!"}),
	).Build()))

	report := eng.Dispatch(ctx, join("Ann"))
	require.Equal(t, 1, report.Matched())
	assert.Equal(t, domain.StatusSuccess, report.Outcomes[0].Status())
	assert.Equal(t, []host.Call{{Op: "send_message", Subject: "ann", Text: "Welcome Ann!"}}, rec.Calls())
	assert.Equal(t, 1, eng.Stats().Scripts)
}

func TestEngine_RejectsInvalidScripts(t *testing.T) {
	store := memory.NewStore()
	eng, _ := newEngine(t, tessera.WithScriptStore(store))
	ctx := context.Background()

	err := eng.Register(ctx, dsl.New("bad").On("join").Then(dsl.Break()).Build())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidScript)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids, "invalid scripts are never persisted")
}

func TestEngine_RunScriptCallsRegisteredScripts(t *testing.T) {
	eng, rec := newEngine(t)
	ctx := context.Background()

	require.NoError(t, eng.Register(ctx, dsl.New("rules").On("event", dsl.P{"event": "shared.rules"}).Then(
		dsl.Do("send_message", dsl.P{"text": "rules for {player}"}),
	).Build()))
	require.NoError(t, eng.Register(ctx, dsl.New("welcome").On("join").Then(
		dsl.Do("run_script", dsl.P{"id": "rules"}),
	).Build()))

	report := eng.Dispatch(ctx, join("Ann"))
	require.Equal(t, 1, report.Matched())
	assert.Equal(t, domain.StatusSuccess, report.Outcomes[0].Status())
	assert.Equal(t, []host.Call{{Op: "send_message", Subject: "ann", Text: "rules for Ann"}}, rec.Calls())
}

type flakyStore struct {
	*memory.Store
	full bool
}

func (s *flakyStore) Save(ctx context.Context, script *domain.Script) error {
	if s.full {
		return errors.New("disk full")
	}
	return s.Store.Save(ctx, script)
}

func TestEngine_RegisterRollsBackOnStoreFailure(t *testing.T) {
	store := &flakyStore{Store: memory.NewStore()}
	eng, rec := newEngine(t, tessera.WithScriptStore(store))
	ctx := context.Background()

	require.NoError(t, eng.Register(ctx, dsl.New("greet").On("join").Then(
		dsl.Do("send_message", dsl.P{"text": "v1"}),
	).Build()))

	store.full = true
	err := eng.Register(ctx, dsl.New("w").On("join").Then(
		dsl.Do("send_message", dsl.P{"text": "never"}),
	).Build())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	_, active := eng.Script("w")
	assert.False(t, active, "unsaved script is not active")

	err = eng.Register(ctx, dsl.New("greet").On("join").Then(
		dsl.Do("send_message", dsl.P{"text": "v2"}),
	).Build())
	require.Error(t, err)

	report := eng.Dispatch(ctx, join("Ann"))
	assert.Equal(t, 1, report.Matched())
	assert.Equal(t, []host.Call{{Op: "send_message", Subject: "ann", Text: "v1"}}, rec.Calls())
}

func TestEngine_ScriptStorePersistence(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	eng, _ := newEngine(t, tessera.WithScriptStore(store))

	require.NoError(t, eng.Register(ctx, dsl.New("a").On("join").Build()))
	require.NoError(t, eng.Register(ctx, dsl.New("b").On("quit").Build()))
	require.NoError(t, eng.Unregister(ctx, "b"))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)

	// A fresh engine restores the stored scripts.
	restored, _ := newEngine(t)
	require.NoError(t, store.Save(ctx, dsl.New("broken").On("no_such_trigger").Build()))
	n, err := restored.LoadScripts(ctx, store)
	assert.Equal(t, 1, n)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidScript)
	_, ok := restored.Script("a")
	assert.True(t, ok)

	assert.ErrorIs(t, restored.Unregister(ctx, "missing"), domain.ErrScriptNotFound)
}

type failingSink struct{ calls int }

func (s *failingSink) Record(context.Context, *domain.Report) error {
	s.calls++
	return errors.New("sink down")
}

func TestEngine_ReportSinks(t *testing.T) {
	feed := observability.NewFeed(10)
	broken := &failingSink{}
	eng, _ := newEngine(t, tessera.WithReportSink(broken), tessera.WithReportSink(feed))
	ctx := context.Background()
	require.NoError(t, eng.Register(ctx, dsl.New("w").On("join").Build()))

	report := eng.Dispatch(ctx, join("Bo"))

	assert.Equal(t, 1, broken.calls)
	require.Len(t, feed.Recent(0), 1)
	assert.Same(t, report, feed.Recent(0)[0])
}

func TestEngine_SystemScope(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	global := scope.NewMemoryStore()
	eng, rec := newEngine(t,
		tessera.WithClock(func() time.Time { return now }),
		tessera.WithGlobalStore(global),
		tessera.WithName("lobby"),
	)
	ctx := context.Background()

	require.NoError(t, eng.Register(ctx, dsl.New("sys").On("join").Then(
		dsl.Do("broadcast", dsl.P{"text": "{engine} {time} {unix} scripts={scripts}"}),
		dsl.Do("set_variable", dsl.P{"name": "last", "value": "{player}", "scope": "global"}),
	).Build()))

	eng.Dispatch(ctx, join("Cy"))

	calls := rec.CallsOf("broadcast")
	require.Len(t, calls, 1)
	assert.Equal(t, "lobby 2026-05-01T08:00:00Z 1777622400 scripts=1", calls[0].Text)

	v, ok := global.Load("last")
	require.True(t, ok)
	assert.Equal(t, "Cy", v)
	assert.Equal(t, 1, eng.Env().System.Values()["dispatched"])
}

func TestEngine_LifecycleHooksChain(t *testing.T) {
	var order []string
	eng, _ := newEngine(t,
		tessera.WithLifecycleHooks(domain.LifecycleHooks{
			OnDispatch: func(context.Context, *domain.Report) { order = append(order, "first") },
		}),
		tessera.WithLifecycleHooks(domain.LifecycleHooks{
			OnDispatch: func(context.Context, *domain.Report) { order = append(order, "second") },
		}),
	)
	eng.Dispatch(context.Background(), join("Di"))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestEngine_WithoutHost(t *testing.T) {
	eng, err := tessera.New()
	require.NoError(t, err)
	assert.Empty(t, eng.Registry().Handlers())
	assert.Error(t, eng.Validate(dsl.New("x").On("join").Build()))
}
