// Package interpolate substitutes {name} placeholders in block text.
//
// Placeholders are resolved through a lookup function, normally
// scope.Context.Get, so local, global and system variables are all reachable.
// A placeholder with no value is replaced by the caller's fallback. "{{" and
// "}}" produce literal braces. Substitution never fails.
package interpolate

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aretw0/tessera/pkg/domain"
)

// Lookup resolves a variable name.
type Lookup func(name string) (any, bool)

// Resolve substitutes every placeholder of tmpl.
func Resolve(tmpl string, lookup Lookup, fallback string) string {
	if !strings.ContainsAny(tmpl, "{}") {
		return tmpl
	}

	var b strings.Builder
	b.Grow(len(tmpl))
	for i := 0; i < len(tmpl); i++ {
		ch := tmpl[i]
		switch {
		case ch == '{' && i+1 < len(tmpl) && tmpl[i+1] == '{':
			b.WriteByte('{')
			i++
		case ch == '}' && i+1 < len(tmpl) && tmpl[i+1] == '}':
			b.WriteByte('}')
			i++
		case ch == '{':
			end := strings.IndexByte(tmpl[i+1:], '}')
			name := ""
			if end >= 0 {
				name = tmpl[i+1 : i+1+end]
			}
			if !validName(name) {
				b.WriteByte(ch)
				continue
			}
			b.WriteString(lookupString(lookup, name, fallback))
			i += end + 1
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// Names lists the placeholder names of tmpl in order of appearance.
func Names(tmpl string) []string {
	var names []string
	Resolve(tmpl, func(name string) (any, bool) {
		names = append(names, name)
		return nil, false
	}, "")
	return names
}

func lookupString(lookup Lookup, name, fallback string) string {
	if lookup == nil {
		return fallback
	}
	v, ok := lookup(name)
	if !ok || v == nil {
		return fallback
	}
	return Format(v)
}

// Format renders a variable value as text. Whole floats print without a
// fractional part and subjects print their display name.
func Format(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	case *domain.Subject:
		return x.DisplayName()
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '.', r == '-', r == ':':
		default:
			return false
		}
	}
	return true
}
