package domain

import (
	"fmt"
	"strconv"
)

// Kind is the category tag of a block. It decides how the interpreter walks it.
type Kind string

const (
	// KindTrigger roots a script and declares the host event it listens to.
	KindTrigger Kind = "trigger"
	// KindCondition gates its children behind a predicate.
	KindCondition Kind = "condition"
	// KindAction performs a host side-effect.
	KindAction Kind = "action"
	// KindLoop repeats its children according to its own termination rule.
	KindLoop Kind = "loop"
	// KindControl produces a non-local exit (break, continue, return).
	KindControl Kind = "control"
)

// Valid reports whether k is one of the known categories.
func (k Kind) Valid() bool {
	switch k {
	case KindTrigger, KindCondition, KindAction, KindLoop, KindControl:
		return true
	}
	return false
}

// Block is one node of an authored script tree.
// Type selects the handler in the registry; Kind must agree with that handler.
type Block struct {
	ID       string   `json:"id,omitempty" yaml:"id,omitempty" mapstructure:"id"`
	Kind     Kind     `json:"kind,omitempty" yaml:"kind,omitempty" mapstructure:"kind"`
	Type     string   `json:"type" yaml:"type" mapstructure:"type"`
	Params   Params   `json:"params,omitempty" yaml:"params,omitempty" mapstructure:"params"`
	Children []*Block `json:"children,omitempty" yaml:"children,omitempty" mapstructure:"children"`
}

// Label returns a short human-readable identifier for logs and error origins.
func (b *Block) Label() string {
	if b == nil {
		return "<nil>"
	}
	if b.ID != "" {
		return b.ID
	}
	return b.Type
}

// Params is the parameter bag of a block.
// Accessors never fail: once a block passed schema validation every declared
// parameter is present with its declared type.
type Params map[string]any

// Has reports whether the parameter is set.
func (p Params) Has(name string) bool {
	_, ok := p[name]
	return ok
}

// Value returns the raw parameter value.
func (p Params) Value(name string) any {
	return p[name]
}

// String returns the parameter as a string, formatting scalars if needed.
func (p Params) String(name string) string {
	switch v := p[name].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the parameter as an int.
func (p Params) Int(name string) int {
	switch v := p[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}

// Float returns the parameter as a float64.
func (p Params) Float(name string) float64 {
	f, _ := ToFloat(p[name])
	return f
}

// Bool returns the parameter as a bool.
func (p Params) Bool(name string) bool {
	b, _ := p[name].(bool)
	return b
}

// Strings returns the parameter as a string slice.
func (p Params) Strings(name string) []string {
	switch v := p[name].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return nil
}

// Map returns the parameter as a string-keyed map.
func (p Params) Map(name string) map[string]any {
	m, _ := p[name].(map[string]any)
	return m
}

// Clone returns a shallow copy of the bag.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// ToFloat converts any numeric value (or numeric string) to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
