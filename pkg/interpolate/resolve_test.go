package interpolate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/scope"
)

func mapLookup(m map[string]any) Lookup {
	return func(name string) (any, bool) {
		v, ok := m[name]
		return v, ok
	}
}

func TestResolve(t *testing.T) {
	vars := mapLookup(map[string]any{
		"player": "Steve",
		"gold":   float64(10),
		"ratio":  0.5,
		"n":      3,
		"nil":    nil,
	})

	tests := []struct {
		tmpl string
		want string
	}{
		{"no placeholders", "no placeholders"},
		{"Hello {player}", "Hello Steve"},
		{"{gold} coins", "10 coins"},
		{"{ratio}", "0.5"},
		{"{n}/{n}", "3/3"},
		{"[{missing}]", "[?]"},
		{"[{nil}]", "[?]"},
		{"{{player}}", "{player}"},
		{"open { brace", "open { brace"},
		{"{not a name}", "{not a name}"},
		{"unterminated {player", "unterminated {player"},
		{"{}", "{}"},
		{"close } only", "close } only"},
	}

	for _, tt := range tests {
		t.Run(tt.tmpl, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.tmpl, vars, "?"))
		})
	}
}

func TestResolve_NilLookup(t *testing.T) {
	assert.Equal(t, "a--b", Resolve("a-{x}-b", nil, ""))
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"player", "event.material"}, Names("{player} broke {event.material} {{x}}"))
}

// Local gold absent, global gold present: the global value wins; with
// neither the caller's fallback is used.
func TestText_ScopeFallthrough(t *testing.T) {
	env := scope.NewEnv(nil)
	c := scope.New(context.Background(), env, &domain.Event{Actor: &domain.Subject{ID: "u1", Name: "Steve"}})
	c.SetLocal("player", "Steve")

	assert.Equal(t, "Hello Steve,  coins", Text(c, "Hello {player}, {gold} coins", ""))

	env.Global.Store("gold", 10)
	assert.Equal(t, "Hello Steve, 10 coins", Text(c, "Hello {player}, {gold} coins", ""))

	c.SetLocal("gold", 3)
	assert.Equal(t, "Hello Steve, 3 coins", Text(c, "Hello {player}, {gold} coins", ""))
}

func TestText_Subjects(t *testing.T) {
	c := scope.New(context.Background(), scope.NewEnv(nil), &domain.Event{Actor: &domain.Subject{ID: "u1", Name: "Steve"}})
	c = c.WithTarget(&domain.Subject{ID: "zombie-7"})

	assert.Equal(t, "Steve sees zombie-7", Text(c, "{actor} sees {target}", ""))
}
