package catalog

import (
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/registry"
	"github.com/aretw0/tessera/pkg/schema"
	"github.com/aretw0/tessera/pkg/scope"
)

func (cat *Catalog) control() []registry.Handler {
	return []registry.Handler{
		{
			Type: "break", Kind: domain.KindControl, NeedsLoop: true,
			Doc: "Stops the nearest enclosing loop.",
			Run: func(*scope.Context, domain.Params) domain.Signal { return domain.Break() },
		},
		{
			Type: "continue", Kind: domain.KindControl, NeedsLoop: true,
			Doc: "Ends the current iteration of the nearest enclosing loop.",
			Run: func(*scope.Context, domain.Params) domain.Signal { return domain.Continue() },
		},
		{
			Type: "return", Kind: domain.KindControl,
			Doc: "Stops the script successfully, reporting value.",
			Schema: withFallback(schema.Schema{
				"value": schema.Optional(schema.Any(), nil),
			}),
			Run: func(c *scope.Context, p domain.Params) domain.Signal {
				return domain.Return(resolveValue(c, p, "value"))
			},
		},
	}
}
