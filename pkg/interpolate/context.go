package interpolate

import "github.com/aretw0/tessera/pkg/scope"

// Text resolves tmpl against the variables visible from c.
// The names "actor" and "target" resolve to the context subjects when no
// variable shadows them.
func Text(c *scope.Context, tmpl, fallback string) string {
	return Resolve(tmpl, ContextLookup(c), fallback)
}

// ContextLookup adapts a context to a Lookup.
func ContextLookup(c *scope.Context) Lookup {
	return func(name string) (any, bool) {
		if v, ok := c.Get(name); ok {
			return v, true
		}
		switch name {
		case "actor":
			if a := c.Actor(); a != nil {
				return a, true
			}
		case "target":
			if t := c.Target(); t != nil {
				return t, true
			}
		}
		return nil, false
	}
}
