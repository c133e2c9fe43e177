package catalog

import (
	"fmt"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/registry"
	"github.com/aretw0/tessera/pkg/schema"
	"github.com/aretw0/tessera/pkg/scope"
)

func (cat *Catalog) conditions() []registry.Handler {
	return []registry.Handler{
		{
			Type: "is_op", Kind: domain.KindCondition,
			Doc: "The actor's operator flag equals value.",
			Schema: schema.Schema{
				"value": schema.Optional(schema.Bool(), true),
			},
			Test: func(c *scope.Context, p domain.Params) (*scope.Context, bool, error) {
				a, err := subject(c, "actor")
				if err != nil {
					return nil, false, err
				}
				return nil, a.IsOperator() == p.Bool("value"), nil
			},
		},
		{
			Type: "compare", Kind: domain.KindCondition,
			Doc: "Compares a variable with a value. A missing variable is false.",
			Schema: withFallback(schema.Schema{
				"variable": schema.Required(schema.String()),
				"op":       schema.Optional(schema.Enum(compareOps...), "=="),
				"value":    schema.Required(schema.Any()),
			}),
			Test: func(c *scope.Context, p domain.Params) (*scope.Context, bool, error) {
				left, ok := c.Get(p.String("variable"))
				if !ok {
					return nil, false, nil
				}
				res, err := compare(left, p.String("op"), resolveValue(c, p, "value"))
				return nil, res, err
			},
		},
		{
			Type: "has_variable", Kind: domain.KindCondition,
			Doc: "A variable is set, in any scope or in the given one.",
			Schema: schema.Schema{
				"name":  schema.Required(schema.String()),
				"scope": schema.Optional(schema.Enum("any", "local", "global", "system"), "any"),
			},
			Test: func(c *scope.Context, p domain.Params) (*scope.Context, bool, error) {
				if s := p.String("scope"); s != "any" {
					_, ok := c.GetIn(scope.Name(s), p.String("name"))
					return nil, ok, nil
				}
				_, ok := c.Get(p.String("name"))
				return nil, ok, nil
			},
		},
		{
			Type: "nearest_entity", Kind: domain.KindCondition,
			Doc: "An entity of the given kind is within radius of the actor; it becomes the target of the children.",
			Schema: schema.Schema{
				"kind":   schema.Optional(schema.String(), ""),
				"radius": schema.Optional(schema.Float(), 10.0),
			},
			Check: func(p domain.Params) error {
				if p.Float("radius") <= 0 {
					return fmt.Errorf("radius must be positive")
				}
				return nil
			},
			Test: func(c *scope.Context, p domain.Params) (*scope.Context, bool, error) {
				a, err := subject(c, "actor")
				if err != nil {
					return nil, false, err
				}
				found, err := cat.api.Nearest(c.Ctx(), a, p.String("kind"), p.Float("radius"))
				if err != nil {
					return nil, false, fmt.Errorf("nearest entity: %w", err)
				}
				if found == nil {
					return nil, false, nil
				}
				c.SetLocal("target_name", found.DisplayName())
				return c.WithTarget(found), true, nil
			},
		},
		{
			Type: "script", Kind: domain.KindCondition,
			Doc: "A JavaScript expression over vars, actor, target and event is truthy.",
			Schema: schema.Schema{
				"source":     schema.Required(schema.String()),
				"timeout_ms": schema.Optional(schema.Int(), defaultScriptTimeoutMS),
			},
			Check: cat.js.check,
			Test: func(c *scope.Context, p domain.Params) (*scope.Context, bool, error) {
				v, err := cat.js.eval(c, p, false)
				if err != nil {
					return nil, false, err
				}
				return nil, v.ToBoolean(), nil
			},
		},
	}
}
