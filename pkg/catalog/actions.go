package catalog

import (
	"log/slog"
	"math"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/host"
	"github.com/aretw0/tessera/pkg/registry"
	"github.com/aretw0/tessera/pkg/schema"
	"github.com/aretw0/tessera/pkg/scope"
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func (cat *Catalog) actions() []registry.Handler {
	return []registry.Handler{
		{
			Type: "send_message", Kind: domain.KindAction,
			Doc: "Sends a message to the actor or the target.",
			Schema: withFallback(schema.Schema{
				"text": textField(true),
				"to":   schema.Optional(schema.Enum("actor", "target"), "actor"),
			}),
			Run: func(c *scope.Context, p domain.Params) domain.Signal {
				to, err := subject(c, p.String("to"))
				if err != nil {
					return fromError("send message", err)
				}
				return fromError("send message", cat.api.SendMessage(c.Ctx(), to, text(c, p, "text")))
			},
		},
		{
			Type: "broadcast", Kind: domain.KindAction,
			Doc:    "Sends a message to everyone.",
			Schema: withFallback(schema.Schema{"text": textField(true)}),
			Run: func(c *scope.Context, p domain.Params) domain.Signal {
				return fromError("broadcast", cat.api.Broadcast(c.Ctx(), text(c, p, "text")))
			},
		},
		{
			Type: "set_variable", Kind: domain.KindAction,
			Doc: "Writes a local or global variable. String values are templates.",
			Schema: withFallback(schema.Schema{
				"name":  schema.Required(schema.String()),
				"value": schema.Required(schema.Any()),
				"scope": schema.Optional(schema.Enum("local", "global"), "local"),
			}),
			Run: func(c *scope.Context, p domain.Params) domain.Signal {
				err := c.Set(writableScope(p.String("scope")), p.String("name"), resolveValue(c, p, "value"))
				return fromError("set variable", err)
			},
		},
		{
			Type: "increment", Kind: domain.KindAction,
			Doc: "Adds by to a numeric variable, starting from zero.",
			Schema: schema.Schema{
				"name":  schema.Required(schema.String()),
				"by":    schema.Optional(schema.Float(), 1.0),
				"scope": schema.Optional(schema.Enum("local", "global"), "local"),
			},
			Run: func(c *scope.Context, p domain.Params) domain.Signal {
				sc, name := writableScope(p.String("scope")), p.String("name")
				current := 0.0
				if v, ok := c.GetIn(sc, name); ok {
					f, isNum := domain.ToFloat(v)
					if !isNum {
						return domain.Errorf("increment %s: %v is not a number", name, v)
					}
					current = f
				}
				return fromError("increment", c.Set(sc, name, number(current+p.Float("by"))))
			},
		},
		{
			Type: "run_command", Kind: domain.KindAction,
			Doc: "Runs a host command as the console or as the actor.",
			Schema: withFallback(schema.Schema{
				"command": textField(true),
				"as":      schema.Optional(schema.Enum("console", "actor"), "console"),
			}),
			Run: func(c *scope.Context, p domain.Params) domain.Signal {
				var as *domain.Subject
				if p.String("as") == "actor" {
					a, err := subject(c, "actor")
					if err != nil {
						return fromError("run command", err)
					}
					as = a
				}
				return fromError("run command", cat.api.RunCommand(c.Ctx(), as, text(c, p, "command")))
			},
		},
		{
			Type: "teleport", Kind: domain.KindAction,
			Doc: "Moves the actor or the target to a location.",
			Schema: schema.Schema{
				"x":     schema.Required(schema.Float()),
				"y":     schema.Required(schema.Float()),
				"z":     schema.Required(schema.Float()),
				"world": schema.Optional(schema.String(), ""),
				"who":   schema.Optional(schema.Enum("actor", "target"), "actor"),
			},
			Run: func(c *scope.Context, p domain.Params) domain.Signal {
				who, err := subject(c, p.String("who"))
				if err != nil {
					return fromError("teleport", err)
				}
				loc := host.Location{World: p.String("world"), X: p.Float("x"), Y: p.Float("y"), Z: p.Float("z")}
				return fromError("teleport", cat.api.Teleport(c.Ctx(), who, loc))
			},
		},
		{
			Type: "log", Kind: domain.KindAction,
			Doc: "Writes a log line.",
			Schema: withFallback(schema.Schema{
				"message": textField(true),
				"level":   schema.Optional(schema.Enum("debug", "info", "warn", "error"), "info"),
			}),
			Run: func(c *scope.Context, p domain.Params) domain.Signal {
				var category string
				if ev := c.Event(); ev != nil {
					category = ev.Category
				}
				c.Logger().Log(c.Ctx(), logLevels[p.String("level")], text(c, p, "message"), "category", category)
				return domain.Success()
			},
		},
		{
			Type: "cancel_event", Kind: domain.KindAction,
			Doc: "Asks the host to suppress the triggering event.",
			Run: func(c *scope.Context, _ domain.Params) domain.Signal {
				c.RequestCancel()
				return domain.Success()
			},
		},
		{
			Type: "fail", Kind: domain.KindAction, Leaf: true,
			Doc:    "Stops the script with an error.",
			Schema: withFallback(schema.Schema{"message": schema.Optional(schema.String(), "script failed")}),
			Run: func(c *scope.Context, p domain.Params) domain.Signal {
				return domain.Error(text(c, p, "message"))
			},
		},
		{
			Type: "run_script", Kind: domain.KindAction,
			Doc:    "Runs the body of another registered script in the current context.",
			Schema: schema.Schema{"id": schema.Required(schema.String())},
			Run: func(c *scope.Context, p domain.Params) domain.Signal {
				if cat.scripts == nil {
					return domain.Error("run_script: no script runner configured")
				}
				return cat.scripts(c, p.String("id"))
			},
		},
		{
			Type: "js", Kind: domain.KindAction,
			Doc: "Runs JavaScript with set(name, value) and setGlobal(name, value); a thrown error fails the block.",
			Schema: schema.Schema{
				"source":     schema.Required(schema.String()),
				"timeout_ms": schema.Optional(schema.Int(), defaultScriptTimeoutMS),
			},
			Check: cat.js.check,
			Run: func(c *scope.Context, p domain.Params) domain.Signal {
				if _, err := cat.js.eval(c, p, true); err != nil {
					return domain.Error(err.Error())
				}
				return domain.Success()
			},
		},
	}
}

// number stores whole results as int.
func number(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int(f)
	}
	return f
}
