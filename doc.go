/*
Package tessera is an event-driven visual scripting engine.

Scripts are trees of typed blocks: a trigger at the root, then conditions,
actions, loops and control blocks. The host delivers events; every registered
script whose trigger matches walks its tree under an isolated execution
context, and the host receives a Report with one outcome per script and the
decision to cancel the event.

# Concept

A script never touches the host directly. Blocks reach the outside world only
through the host.API boundary (messages, commands, teleports, entity lookups),
so the same script runs against a game server, a test Recorder or any other
host. Variables live in three scopes: local to a run, global to the engine and
a read-only system scope computed by the engine.

# Key Features

  - Validated Scripts: Every tree is checked against the block registry before registration.
  - Isolated Runs: A failing or panicking script never stops the others.
  - Signal Algebra: Break, Continue and Return propagate through the tree like statements.
  - Hexagonal Architecture: Stores, sinks and event sources are adapters.

# Usage

	rec := host.NewRecorder()
	eng, err := tessera.New(tessera.WithHost(rec))
	if err != nil {
		log.Fatal(err)
	}

	script := dsl.New("welcome").On("join").Then(
		dsl.Do("send_message", dsl.P{"text": "Welcome {player}!"}),
	).Build()
	if err := eng.Register(ctx, script); err != nil {
		log.Fatal(err)
	}

	report := eng.Dispatch(ctx, domain.Event{
		Category: "actor.join",
		Actor:    &domain.Subject{ID: "u1", Name: "Ann"},
	})
	fmt.Println(report.Outcomes[0].Status())
*/
package tessera
