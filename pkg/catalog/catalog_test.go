package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tessera/pkg/catalog"
	"github.com/aretw0/tessera/pkg/dispatch"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/host"
	"github.com/aretw0/tessera/pkg/registry"
	"github.com/aretw0/tessera/pkg/scope"
)

type fixture struct {
	reg  *registry.Registry
	env  *scope.Env
	host *host.Recorder
	d    *dispatch.Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{reg: registry.NewRegistry(), env: scope.NewEnv(nil), host: host.NewRecorder()}
	runScript := func(c *scope.Context, id string) domain.Signal { return f.d.RunScript(c, id) }
	require.NoError(t, catalog.Register(f.reg, f.host, catalog.WithScripts(runScript)))
	f.d = dispatch.New(f.reg, f.env)
	return f
}

func (f *fixture) register(t *testing.T, id string, root *domain.Block) {
	t.Helper()
	require.NoError(t, f.d.Register(&domain.Script{ID: id, Root: root}))
}

func (f *fixture) fire(category string, actor *domain.Subject, fields map[string]any) *domain.Report {
	return f.d.Dispatch(context.Background(), domain.Event{Category: category, Actor: actor, Fields: fields})
}

func blk(typ string, params domain.Params, children ...*domain.Block) *domain.Block {
	return &domain.Block{Type: typ, Params: params, Children: children}
}

var (
	steve = &domain.Subject{ID: "steve", Name: "Steve"}
	admin = &domain.Subject{ID: "admin", Name: "Admin", Attributes: map[string]any{"op": true}}
)

// Join → is_op(false) → send_message "Welcome".
func TestScenario_WelcomeNonOperators(t *testing.T) {
	f := newFixture(t)
	f.register(t, "welcome", blk("join", nil,
		blk("is_op", domain.Params{"value": false},
			blk("send_message", domain.Params{"text": "Welcome {player}"}),
		),
	))

	r := f.fire(catalog.CategoryJoin, steve, nil)
	require.Equal(t, 1, r.Matched())
	assert.Equal(t, []host.Call{{Op: "send_message", Subject: "steve", Text: "Welcome Steve"}}, f.host.Calls())

	f.host.Reset()
	r = f.fire(catalog.CategoryJoin, admin, nil)
	o, _ := r.Outcome("welcome")
	assert.Equal(t, domain.StatusSuccess, o.Status())
	assert.Empty(t, f.host.Calls())
}

// A failing action stops the broadcast behind it.
func TestScenario_FailingActionStopsSiblings(t *testing.T) {
	f := newFixture(t)
	f.host.FailOn("send_message", errors.New("actor offline"))
	f.register(t, "s", blk("event", domain.Params{"event": "x"},
		blk("send_message", domain.Params{"text": "hi"}),
		blk("broadcast", domain.Params{"text": "never"}),
	))

	r := f.fire("x", steve, nil)
	o, _ := r.Outcome("s")
	require.True(t, o.Signal.IsError())
	assert.Contains(t, o.Signal.Message, "actor offline")
	assert.Equal(t, "send_message", o.Signal.Origin)
	assert.Empty(t, f.host.CallsOf("broadcast"))
}

// repeat 6 with a break behind increment + compare(counter > 5) runs 6 times.
func TestScenario_RepeatWithBreak(t *testing.T) {
	f := newFixture(t)
	f.register(t, "loop", blk("event", domain.Params{"event": "x"},
		blk("repeat", domain.Params{"times": 6},
			blk("increment", domain.Params{"name": "counter", "scope": "global"}),
			blk("compare", domain.Params{"variable": "counter", "op": ">", "value": 5}, blk("break", nil)),
			blk("increment", domain.Params{"name": "after_check", "scope": "global"}),
		),
	))

	f.fire("x", nil, nil)

	counter, _ := f.env.Global.Load("counter")
	after, _ := f.env.Global.Load("after_check")
	assert.Equal(t, 6, counter)
	assert.Equal(t, 5, after)
}

// {gold} resolves from global when local is absent; to the fallback otherwise.
func TestScenario_TemplateFallthrough(t *testing.T) {
	f := newFixture(t)
	f.register(t, "s", blk("join", nil,
		blk("send_message", domain.Params{"text": "Hello {player}, {gold} coins", "fallback": ""}),
	))

	f.fire(catalog.CategoryJoin, steve, nil)
	f.env.Global.Store("gold", 10)
	f.fire(catalog.CategoryJoin, steve, nil)

	calls := f.host.CallsOf("send_message")
	require.Len(t, calls, 2)
	assert.Equal(t, "Hello Steve,  coins", calls[0].Text)
	assert.Equal(t, "Hello Steve, 10 coins", calls[1].Text)
}

func TestTriggers_Matching(t *testing.T) {
	f := newFixture(t)
	f.register(t, "chat", blk("chat", domain.Params{"contains": "help"},
		blk("send_message", domain.Params{"text": "{player} asked: {message}"})))
	f.register(t, "cmd", blk("command", domain.Params{"name": "/home"},
		blk("send_message", domain.Params{"text": "args={args} n={argc} first={arg.1}"})))
	f.register(t, "stone", blk("block_break", domain.Params{"material": "stone", "cancel": true},
		blk("broadcast", domain.Params{"text": "{player} broke {block}"})))
	f.register(t, "filtered", blk("event", domain.Params{"event": "shop.buy", "fields": map[string]any{"item": "sword"}},
		blk("broadcast", domain.Params{"text": "sword sold"})))

	f.fire(catalog.CategoryChat, steve, map[string]any{"message": "I need HELP"})
	f.fire(catalog.CategoryChat, steve, map[string]any{"message": "hello"})
	f.fire(catalog.CategoryCommand, steve, map[string]any{"name": "home", "args": []any{"bed", 2}})

	r := f.fire(catalog.CategoryBlockBreak, steve, map[string]any{"material": "STONE"})
	assert.True(t, r.Cancel)
	r = f.fire(catalog.CategoryBlockBreak, steve, map[string]any{"material": "dirt"})
	assert.False(t, r.Cancel)
	assert.Equal(t, 0, r.Matched())

	f.fire("shop.buy", steve, map[string]any{"item": "shield"})
	f.fire("shop.buy", steve, map[string]any{"item": "sword"})

	texts := []string{}
	for _, c := range f.host.Calls() {
		texts = append(texts, c.Text)
	}
	assert.Equal(t, []string{
		"Steve asked: I need HELP",
		"args=bed 2 n=2 first=bed",
		"Steve broke STONE",
		"sword sold",
	}, texts)
}

func TestTimer_ValidatesSchedule(t *testing.T) {
	f := newFixture(t)
	err := f.d.Register(&domain.Script{ID: "t", Root: blk("timer", domain.Params{"schedule": "not cron"})})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schedule")

	f.register(t, "t", blk("timer", domain.Params{"schedule": "*/5 * * * *"},
		blk("set_variable", domain.Params{"name": "ticked", "value": "{time}", "scope": "global"})))
	f.fire(catalog.CategoryTimer, nil, map[string]any{"schedule": "* * * * *", "time": "never"})
	f.fire(catalog.CategoryTimer, nil, map[string]any{"schedule": "*/5 * * * *", "time": "12:05"})

	v, _ := f.env.Global.Load("ticked")
	assert.Equal(t, "12:05", v)
}

func TestNearestEntity_SetsTargetForSubtree(t *testing.T) {
	f := newFixture(t)
	zombie := &domain.Subject{ID: "z1", Name: "Zed", Kind: "zombie"}
	f.host.Place(steve, host.Location{World: "w"})
	f.host.Place(zombie, host.Location{World: "w", X: 4})

	f.register(t, "s", blk("join", nil,
		blk("nearest_entity", domain.Params{"kind": "zombie", "radius": 5},
			blk("send_message", domain.Params{"text": "boo from {target}", "to": "target"}),
			blk("teleport", domain.Params{"x": 100, "y": 64, "z": 0, "world": "w", "who": "target"}),
		),
		blk("send_message", domain.Params{"text": "near {target_name}", "to": "actor"}),
		blk("send_message", domain.Params{"text": "target now", "to": "target"}),
	))

	r := f.fire(catalog.CategoryJoin, steve, nil)

	calls := f.host.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, host.Call{Op: "send_message", Subject: "z1", Text: "boo from Zed"}, calls[0])
	assert.Equal(t, "teleport", calls[1].Op)
	assert.Equal(t, "z1", calls[1].Subject)
	assert.Equal(t, "near Zed", calls[2].Text)

	o, _ := r.Outcome("s")
	require.True(t, o.Signal.IsError(), "the target does not leak past the condition")
	assert.Contains(t, o.Signal.Message, "no target")
}

func TestActions_Variables(t *testing.T) {
	f := newFixture(t)
	f.register(t, "s", blk("event", domain.Params{"event": "x"},
		blk("set_variable", domain.Params{"name": "greeting", "value": "hi {player}"}),
		blk("set_variable", domain.Params{"name": "saved", "value": "{greeting}!", "scope": "global"}),
		blk("increment", domain.Params{"name": "score", "by": 2.5, "scope": "global"}),
		blk("has_variable", domain.Params{"name": "greeting", "scope": "global"},
			blk("fail", domain.Params{"message": "greeting leaked"})),
		blk("has_variable", domain.Params{"name": "saved"},
			blk("return", domain.Params{"value": "{saved}"})),
		blk("fail", nil),
	))

	r := f.fire("x", steve, nil)

	o, _ := r.Outcome("s")
	assert.Equal(t, domain.StatusReturned, o.Status(), o.Signal.String())
	assert.Equal(t, "hi Steve!", o.Signal.Value)
	score, _ := f.env.Global.Load("score")
	assert.Equal(t, 2.5, score)
}

func TestIncrement_RejectsNonNumbers(t *testing.T) {
	f := newFixture(t)
	f.env.Global.Store("name", "steve")
	f.register(t, "s", blk("event", domain.Params{"event": "x"},
		blk("increment", domain.Params{"name": "name", "scope": "global"})))

	o, _ := f.fire("x", nil, nil).Outcome("s")
	assert.True(t, o.Signal.IsError())
}

func TestLoops_WhileAndForeach(t *testing.T) {
	f := newFixture(t)
	f.env.Global.Store("names", []string{"a", "b", "c"})
	f.register(t, "s", blk("event", domain.Params{"event": "x"},
		blk("set_variable", domain.Params{"name": "n", "value": 0}),
		blk("while", domain.Params{"variable": "n", "op": "<", "value": 3},
			blk("increment", domain.Params{"name": "n"}),
			blk("broadcast", domain.Params{"text": "while {n}"}),
		),
		blk("foreach", domain.Params{"items": "names", "as": "who"},
			blk("compare", domain.Params{"variable": "who", "value": "b"}, blk("continue", nil)),
			blk("broadcast", domain.Params{"text": "each {index}:{who}"}),
		),
		blk("foreach", domain.Params{"values": []any{1, 2}},
			blk("broadcast", domain.Params{"text": "v{item}"}),
		),
	))

	r := f.fire("x", nil, nil)
	o, _ := r.Outcome("s")
	require.True(t, o.Signal.IsSuccess(), o.Signal.String())

	var texts []string
	for _, c := range f.host.CallsOf("broadcast") {
		texts = append(texts, c.Text)
	}
	assert.Equal(t, []string{"while 1", "while 2", "while 3", "each 1:a", "each 3:c", "v1", "v2"}, texts)
}

func TestWhile_Limit(t *testing.T) {
	f := newFixture(t)
	f.register(t, "s", blk("event", domain.Params{"event": "x"},
		blk("set_variable", domain.Params{"name": "on", "value": true}),
		blk("while", domain.Params{"variable": "on", "value": true, "limit": 5},
			blk("increment", domain.Params{"name": "spins", "scope": "global"}),
		),
	))

	o, _ := f.fire("x", nil, nil).Outcome("s")
	require.True(t, o.Signal.IsError())
	assert.Equal(t, "while loop exceeded 5 iterations", o.Signal.Message)
	spins, _ := f.env.Global.Load("spins")
	assert.Equal(t, 5, spins)
}

func TestForeach_NeedsOneSource(t *testing.T) {
	f := newFixture(t)
	err := f.d.Register(&domain.Script{ID: "s", Root: blk("event", domain.Params{"event": "x"},
		blk("foreach", domain.Params{"as": "x"}))})
	assert.ErrorIs(t, err, domain.ErrInvalidScript)
}

func TestScriptBlocks(t *testing.T) {
	f := newFixture(t)
	f.register(t, "s", blk("event", domain.Params{"event": "x"},
		blk("js", domain.Params{"source": `set("double", event.fields.n * 2); setGlobal("who", actor.name)`}),
		blk("script", domain.Params{"source": `vars.double > 5 && target === null`},
			blk("broadcast", domain.Params{"text": "big {double}"}),
		),
	))

	f.fire("x", steve, map[string]any{"n": 3})
	f.fire("x", steve, map[string]any{"n": 2})

	calls := f.host.CallsOf("broadcast")
	require.Len(t, calls, 1)
	assert.Equal(t, "big 6", calls[0].Text)
	who, _ := f.env.Global.Load("who")
	assert.Equal(t, "Steve", who)
}

func TestScriptBlocks_Errors(t *testing.T) {
	f := newFixture(t)

	err := f.d.Register(&domain.Script{ID: "bad", Root: blk("event", domain.Params{"event": "x"},
		blk("script", domain.Params{"source": "this is not }{ javascript"}))})
	require.Error(t, err)

	f.register(t, "throws", blk("event", domain.Params{"event": "x"},
		blk("js", domain.Params{"source": `throw new Error("nope")`}),
		blk("broadcast", domain.Params{"text": "never"}),
	))
	f.register(t, "spins", blk("event", domain.Params{"event": "y"},
		blk("script", domain.Params{"source": `for (;;) {}`, "timeout_ms": 20}),
	))

	o, _ := f.fire("x", nil, nil).Outcome("throws")
	require.True(t, o.Signal.IsError())
	assert.Contains(t, o.Signal.Message, "nope")

	o, _ = f.fire("y", nil, nil).Outcome("spins")
	require.True(t, o.Signal.IsError())
	assert.Contains(t, o.Signal.Message, "interrupted")
}

func TestCommandsAndCancel(t *testing.T) {
	f := newFixture(t)
	f.register(t, "s", blk("command", domain.Params{"name": "spawn"},
		blk("run_command", domain.Params{"command": "tp {player} 0 64 0"}),
		blk("run_command", domain.Params{"command": "me waves", "as": "actor"}),
		blk("cancel_event", nil),
		blk("log", domain.Params{"message": "spawned {player}", "level": "debug"}),
	))

	r := f.fire(catalog.CategoryCommand, steve, map[string]any{"name": "spawn"})

	assert.True(t, r.Cancel)
	calls := f.host.CallsOf("run_command")
	require.Len(t, calls, 2)
	assert.Equal(t, host.Call{Op: "run_command", Text: "tp Steve 0 64 0"}, calls[0])
	assert.Equal(t, "steve", calls[1].Subject)
}

func TestIsOp_WithoutActorIsRuntimeError(t *testing.T) {
	f := newFixture(t)
	f.register(t, "s", blk("event", domain.Params{"event": "x"}, blk("is_op", nil)))

	o, _ := f.fire("x", nil, nil).Outcome("s")
	assert.True(t, o.Signal.IsError())
}

func TestRunScript_CallsRegisteredScript(t *testing.T) {
	f := newFixture(t)
	f.register(t, "greeting", blk("event", domain.Params{"event": "unused"},
		blk("send_message", domain.Params{"text": "hello {player}"}),
		blk("set_variable", domain.Params{"name": "greeted", "value": true}),
		blk("return", nil),
		blk("broadcast", domain.Params{"text": "never"}),
	))
	f.register(t, "main", blk("join", nil,
		blk("run_script", domain.Params{"id": "greeting"}),
		blk("has_variable", domain.Params{"name": "greeted"},
			blk("broadcast", domain.Params{"text": "after"}),
		),
	))

	r := f.d.Dispatch(context.Background(), domain.Event{Category: "actor.join", Actor: steve})
	o, _ := r.Outcome("main")
	require.Equal(t, domain.StatusSuccess, o.Status(), o.Signal.Message)
	assert.Equal(t, []host.Call{
		{Op: "send_message", Subject: "steve", Text: "hello Steve"},
		{Op: "broadcast", Text: "after"},
	}, f.host.Calls())
}

func TestRunScript_Errors(t *testing.T) {
	f := newFixture(t)
	f.register(t, "missing", blk("event", domain.Params{"event": "x"},
		blk("run_script", domain.Params{"id": "nope"}),
	))
	f.register(t, "ping", blk("event", domain.Params{"event": "y"},
		blk("run_script", domain.Params{"id": "pong"}),
	))
	f.register(t, "pong", blk("event", domain.Params{"event": "unused"},
		blk("run_script", domain.Params{"id": "ping"}),
	))

	o, _ := f.fire("x", nil, nil).Outcome("missing")
	require.True(t, o.Signal.IsError())
	assert.Contains(t, o.Signal.Message, "script not found")

	o, _ = f.fire("y", nil, nil).Outcome("ping")
	require.True(t, o.Signal.IsError())
	assert.Contains(t, o.Signal.Message, `recursive call to script "ping"`)

	err := f.d.Register(&domain.Script{ID: "noid", Root: blk("event", domain.Params{"event": "x"},
		blk("run_script", nil))})
	assert.ErrorIs(t, err, domain.ErrInvalidScript)
}

func TestRunScript_WithoutRunner(t *testing.T) {
	reg := registry.NewRegistry()
	require.NoError(t, catalog.Register(reg, host.NewRecorder()))
	d := dispatch.New(reg, nil)
	require.NoError(t, d.Register(&domain.Script{ID: "s", Root: blk("event", domain.Params{"event": "x"},
		blk("run_script", domain.Params{"id": "s"}))}))

	o, _ := d.Dispatch(context.Background(), domain.Event{Category: "x"}).Outcome("s")
	require.True(t, o.Signal.IsError())
	assert.Contains(t, o.Signal.Message, "no script runner")
}

func TestCatalog_HandlersAreWellFormed(t *testing.T) {
	reg := registry.NewRegistry()
	require.NoError(t, catalog.Register(reg, host.NewRecorder()))

	kinds := map[domain.Kind]int{}
	for _, h := range reg.Handlers() {
		kinds[h.Kind]++
		assert.NotEmpty(t, h.Doc, h.Type)
	}
	assert.Equal(t, 7, kinds[domain.KindTrigger])
	assert.Equal(t, 5, kinds[domain.KindCondition])
	assert.Equal(t, 11, kinds[domain.KindAction])
	assert.Equal(t, 3, kinds[domain.KindLoop])
	assert.Equal(t, 3, kinds[domain.KindControl])
}
