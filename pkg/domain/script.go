package domain

// Script is a block tree whose root is a trigger.
// The interpreter never mutates a script's shape; only registration-time
// validation normalizes its parameters.
type Script struct {
	ID          string `json:"id" yaml:"id" mapstructure:"id"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Root        *Block `json:"root" yaml:"root" mapstructure:"root"`
}

// Walk visits every block of the tree depth-first in authored order.
// Returning false from fn stops descending into that block's children.
func (s *Script) Walk(fn func(b *Block, depth int) bool) {
	if s == nil || s.Root == nil {
		return
	}
	walk(s.Root, 0, fn)
}

func walk(b *Block, depth int, fn func(*Block, int) bool) {
	if b == nil || !fn(b, depth) {
		return
	}
	for _, child := range b.Children {
		walk(child, depth+1, fn)
	}
}

// Count returns the number of blocks in the tree.
func (s *Script) Count() int {
	n := 0
	s.Walk(func(*Block, int) bool {
		n++
		return true
	})
	return n
}

// Clone returns a deep copy of the script, parameters included.
func (s *Script) Clone() *Script {
	if s == nil {
		return nil
	}
	out := *s
	out.Root = s.Root.Clone()
	return &out
}

// Clone returns a deep copy of the block and its subtree.
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	out := &Block{ID: b.ID, Kind: b.Kind, Type: b.Type}
	if b.Params != nil {
		out.Params = make(Params, len(b.Params))
		for k, v := range b.Params {
			out.Params[k] = CloneValue(v)
		}
	}
	if b.Children != nil {
		out.Children = make([]*Block, len(b.Children))
		for i, c := range b.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

// CloneValue deep-copies the maps and slices of a decoded document value.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = CloneValue(e)
		}
		return out
	case Params:
		out := make(Params, len(t))
		for k, e := range t {
			out[k] = CloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
