package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParams_Accessors(t *testing.T) {
	p := Params{
		"s":    "hello",
		"n":    3,
		"f":    float64(4),
		"ns":   "12",
		"b":    true,
		"list": []any{"a", 1},
		"m":    map[string]any{"k": "v"},
	}

	assert.Equal(t, "hello", p.String("s"))
	assert.Equal(t, "3", p.String("n"))
	assert.Equal(t, "", p.String("missing"))
	assert.Equal(t, 3, p.Int("n"))
	assert.Equal(t, 4, p.Int("f"))
	assert.Equal(t, 12, p.Int("ns"))
	assert.Equal(t, 3.0, p.Float("n"))
	assert.True(t, p.Bool("b"))
	assert.False(t, p.Bool("s"))
	assert.Equal(t, []string{"a", "1"}, p.Strings("list"))
	assert.Equal(t, "v", p.Map("m")["k"])
	assert.True(t, p.Has("s"))
	assert.False(t, p.Has("missing"))

	c := p.Clone()
	c["s"] = "changed"
	assert.Equal(t, "hello", p.String("s"))
}

func TestScript_Walk(t *testing.T) {
	s := &Script{ID: "s", Root: &Block{Type: "join", Children: []*Block{
		{Type: "is_op", Children: []*Block{{Type: "send_message"}}},
		{Type: "log"},
	}}}

	var order []string
	s.Walk(func(b *Block, depth int) bool {
		order = append(order, b.Type)
		return true
	})
	assert.Equal(t, []string{"join", "is_op", "send_message", "log"}, order)
	assert.Equal(t, 4, s.Count())

	var shallow []string
	s.Walk(func(b *Block, depth int) bool {
		shallow = append(shallow, b.Type)
		return depth < 1 && b.Type != "is_op"
	})
	assert.Equal(t, []string{"join", "is_op", "log"}, shallow)
}

func TestKind_Valid(t *testing.T) {
	assert.True(t, KindLoop.Valid())
	assert.False(t, Kind("widget").Valid())
}

func TestSubject(t *testing.T) {
	s := &Subject{ID: "u1", Attributes: map[string]any{"op": true}}
	assert.Equal(t, "u1", s.DisplayName())
	assert.True(t, s.IsOperator())

	var none *Subject
	assert.False(t, none.IsOperator())
	assert.Equal(t, "", none.DisplayName())
}
