package catalog

import (
	"fmt"
	"strings"

	"github.com/gorhill/cronexpr"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/interpolate"
	"github.com/aretw0/tessera/pkg/registry"
	"github.com/aretw0/tessera/pkg/schema"
	"github.com/aretw0/tessera/pkg/scope"
)

// Event categories of the built-in triggers.
const (
	CategoryJoin       = "actor.join"
	CategoryQuit       = "actor.quit"
	CategoryChat       = "actor.chat"
	CategoryCommand    = "actor.command"
	CategoryBlockBreak = "world.block_break"
	CategoryTimer      = "timer.tick"
)

func triggerSchema(s schema.Schema) schema.Schema {
	if s == nil {
		s = schema.Schema{}
	}
	s["cancel"] = schema.Optional(schema.Bool(), false).Describe("suppress the host event after a successful run")
	return s
}

func fixed(category string) func(domain.Params) string {
	return func(domain.Params) string { return category }
}

// bindActor is the Bind shared by every trigger: cancel intent and the
// "player" variable.
func bindActor(c *scope.Context, p domain.Params, ev *domain.Event) {
	if p.Bool("cancel") {
		c.RequestCancel()
	}
	if a := c.Actor(); a != nil {
		c.SetLocal("player", a.DisplayName())
	}
}

func bindWith(extra func(c *scope.Context, ev *domain.Event)) func(*scope.Context, domain.Params, *domain.Event) {
	return func(c *scope.Context, p domain.Params, ev *domain.Event) {
		bindActor(c, p, ev)
		extra(c, ev)
	}
}

func (cat *Catalog) triggers() []registry.Handler {
	return []registry.Handler{
		{
			Type: "event", Kind: domain.KindTrigger,
			Doc: "Any host event of the given category, optionally filtered by field equality.",
			Schema: triggerSchema(schema.Schema{
				"event":  schema.Required(schema.String()),
				"fields": schema.Optional(schema.Map(), nil),
			}),
			Category: func(p domain.Params) string { return p.String("event") },
			Match: func(p domain.Params, ev *domain.Event) bool {
				for k, want := range p.Map("fields") {
					got, ok := ev.Field(k)
					if !ok || interpolate.Format(got) != interpolate.Format(want) {
						return false
					}
				}
				return true
			},
			Bind: bindActor,
		},
		{
			Type: "join", Kind: domain.KindTrigger,
			Doc:      "An actor joined.",
			Schema:   triggerSchema(nil),
			Category: fixed(CategoryJoin),
			Bind:     bindActor,
		},
		{
			Type: "quit", Kind: domain.KindTrigger,
			Doc:      "An actor left.",
			Schema:   triggerSchema(nil),
			Category: fixed(CategoryQuit),
			Bind:     bindActor,
		},
		{
			Type: "chat", Kind: domain.KindTrigger,
			Doc: "An actor sent a chat message, optionally containing a substring.",
			Schema: triggerSchema(schema.Schema{
				"contains": schema.Optional(schema.String(), ""),
			}),
			Category: fixed(CategoryChat),
			Match: func(p domain.Params, ev *domain.Event) bool {
				needle := strings.ToLower(p.String("contains"))
				return needle == "" || strings.Contains(strings.ToLower(ev.FieldString("message")), needle)
			},
			Bind: bindWith(func(c *scope.Context, ev *domain.Event) {
				c.SetLocal("message", ev.FieldString("message"))
			}),
		},
		{
			Type: "command", Kind: domain.KindTrigger,
			Doc: "An actor ran a named command.",
			Schema: triggerSchema(schema.Schema{
				"name": schema.Required(schema.String()),
			}),
			Category: fixed(CategoryCommand),
			Match: func(p domain.Params, ev *domain.Event) bool {
				return strings.EqualFold(strings.TrimPrefix(ev.FieldString("name"), "/"), strings.TrimPrefix(p.String("name"), "/"))
			},
			Bind: bindWith(func(c *scope.Context, ev *domain.Event) {
				args := commandArgs(ev)
				c.SetLocal("args", strings.Join(args, " "))
				c.SetLocal("argc", len(args))
				for i, a := range args {
					c.SetLocal(fmt.Sprintf("arg.%d", i+1), a)
				}
			}),
		},
		{
			Type: "block_break", Kind: domain.KindTrigger,
			Doc: "An actor broke a world block, optionally of a given material.",
			Schema: triggerSchema(schema.Schema{
				"material": schema.Optional(schema.String(), ""),
			}),
			Category: fixed(CategoryBlockBreak),
			Match: func(p domain.Params, ev *domain.Event) bool {
				want := p.String("material")
				return want == "" || strings.EqualFold(ev.FieldString("material"), want)
			},
			Bind: bindWith(func(c *scope.Context, ev *domain.Event) {
				c.SetLocal("block", ev.FieldString("material"))
			}),
		},
		{
			Type: "timer", Kind: domain.KindTrigger,
			Doc: "A cron schedule fired.",
			Schema: triggerSchema(schema.Schema{
				"schedule": schema.Required(schema.String()).Describe("cron expression"),
			}),
			Check: func(p domain.Params) error {
				if _, err := cronexpr.Parse(p.String("schedule")); err != nil {
					return fmt.Errorf("schedule %q: %w", p.String("schedule"), err)
				}
				return nil
			},
			Category: fixed(CategoryTimer),
			Match: func(p domain.Params, ev *domain.Event) bool {
				return ev.FieldString("schedule") == p.String("schedule")
			},
			Bind: bindWith(func(c *scope.Context, ev *domain.Event) {
				if t, ok := ev.Field("time"); ok {
					c.SetLocal("time", t)
				} else {
					c.SetLocal("time", ev.Time)
				}
			}),
		},
	}
}

func commandArgs(ev *domain.Event) []string {
	v, ok := ev.Field("args")
	if !ok {
		return nil
	}
	switch a := v.(type) {
	case string:
		return strings.Fields(a)
	case []string:
		return a
	case []any:
		out := make([]string, len(a))
		for i, x := range a {
			out[i] = interpolate.Format(x)
		}
		return out
	}
	return []string{interpolate.Format(v)}
}
