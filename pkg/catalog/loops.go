package catalog

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/registry"
	"github.com/aretw0/tessera/pkg/schema"
	"github.com/aretw0/tessera/pkg/scope"
)

const defaultWhileLimit = 1000

func (cat *Catalog) loops() []registry.Handler {
	return []registry.Handler{
		{
			Type: "repeat", Kind: domain.KindLoop,
			Doc: "Runs the children a fixed number of times; index counts from 1.",
			Schema: schema.Schema{
				"times": schema.Required(schema.Int()),
				"index": schema.Optional(schema.String(), "index"),
			},
			Check: func(p domain.Params) error {
				if p.Int("times") < 0 {
					return errors.New("times must not be negative")
				}
				return nil
			},
			Next: func(c *scope.Context, p domain.Params, i int) (bool, domain.Signal) {
				if i >= p.Int("times") {
					return false, domain.Success()
				}
				c.SetLocal(p.String("index"), i+1)
				return true, domain.Success()
			},
		},
		{
			Type: "while", Kind: domain.KindLoop,
			Doc: "Runs the children while a comparison holds, failing after limit iterations.",
			Schema: withFallback(schema.Schema{
				"variable": schema.Required(schema.String()),
				"op":       schema.Optional(schema.Enum(compareOps...), "=="),
				"value":    schema.Required(schema.Any()),
				"limit":    schema.Optional(schema.Int(), defaultWhileLimit),
			}),
			Check: func(p domain.Params) error {
				if p.Int("limit") <= 0 {
					return errors.New("limit must be positive")
				}
				return nil
			},
			Next: func(c *scope.Context, p domain.Params, i int) (bool, domain.Signal) {
				left, ok := c.Get(p.String("variable"))
				if !ok {
					return false, domain.Success()
				}
				holds, err := compare(left, p.String("op"), resolveValue(c, p, "value"))
				if err != nil {
					return false, domain.Error(err.Error())
				}
				if !holds {
					return false, domain.Success()
				}
				if i >= p.Int("limit") {
					return false, domain.Errorf("while loop exceeded %d iterations", p.Int("limit"))
				}
				return true, domain.Success()
			},
		},
		{
			Type: "foreach", Kind: domain.KindLoop,
			Doc: "Runs the children once per element of a list variable (items) or literal (values).",
			Schema: schema.Schema{
				"items":  schema.Optional(schema.String(), nil),
				"values": schema.Optional(schema.Slice(schema.Any()), nil),
				"as":     schema.Optional(schema.String(), "item"),
				"index":  schema.Optional(schema.String(), "index"),
			},
			Check: func(p domain.Params) error {
				if p.Has("items") == p.Has("values") {
					return errors.New("exactly one of items or values is required")
				}
				return nil
			},
			Next: func(c *scope.Context, p domain.Params, i int) (bool, domain.Signal) {
				list, err := collection(c, p)
				if err != nil {
					return false, domain.Error(err.Error())
				}
				if i >= len(list) {
					return false, domain.Success()
				}
				c.SetLocal(p.String("as"), list[i])
				c.SetLocal(p.String("index"), i+1)
				return true, domain.Success()
			},
		},
	}
}

// collection returns the list a foreach walks. It is re-read on every
// iteration, so the body sees its own edits of the variable.
func collection(c *scope.Context, p domain.Params) ([]any, error) {
	if p.Has("values") {
		v, _ := p.Value("values").([]any)
		return v, nil
	}
	name := p.String("items")
	v, ok := c.Get(name)
	if !ok || v == nil {
		return nil, nil
	}
	if list, ok := v.([]any); ok {
		return list, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("foreach: variable %s is %T, not a list", name, v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}
