package dsl

import "github.com/aretw0/tessera/pkg/domain"

// P is shorthand for a parameter bag.
type P = domain.Params

// BlockBuilder provides a fluent API for configuring a block.
type BlockBuilder struct {
	block    domain.Block
	children []*BlockBuilder
}

func newBlock(kind domain.Kind, typ string, params P) *BlockBuilder {
	return &BlockBuilder{block: domain.Block{Kind: kind, Type: typ, Params: params.Clone()}}
}

// If creates a condition block.
func If(typ string, params P) *BlockBuilder { return newBlock(domain.KindCondition, typ, params) }

// Do creates an action block.
func Do(typ string, params P) *BlockBuilder { return newBlock(domain.KindAction, typ, params) }

// Loop creates a loop block.
func Loop(typ string, params P) *BlockBuilder { return newBlock(domain.KindLoop, typ, params) }

// Repeat creates a repeat loop of n iterations.
func Repeat(n int) *BlockBuilder { return Loop("repeat", P{"times": n}) }

// ForEach creates a loop over the list variable items.
func ForEach(items, as string) *BlockBuilder {
	return Loop("foreach", P{"items": items, "as": as})
}

// Break creates a break block.
func Break() *BlockBuilder { return newBlock(domain.KindControl, "break", nil) }

// Continue creates a continue block.
func Continue() *BlockBuilder { return newBlock(domain.KindControl, "continue", nil) }

// Return creates a return block carrying value.
func Return(value any) *BlockBuilder {
	if value == nil {
		return newBlock(domain.KindControl, "return", nil)
	}
	return newBlock(domain.KindControl, "return", P{"value": value})
}

// ID sets the block identifier reported as the origin of its errors.
func (b *BlockBuilder) ID(id string) *BlockBuilder {
	b.block.ID = id
	return b
}

// Param sets one parameter.
func (b *BlockBuilder) Param(name string, value any) *BlockBuilder {
	if b.block.Params == nil {
		b.block.Params = P{}
	}
	b.block.Params[name] = value
	return b
}

// Then appends children in order.
func (b *BlockBuilder) Then(children ...*BlockBuilder) *BlockBuilder {
	b.children = append(b.children, children...)
	return b
}

// Block materializes the tree. Every call returns a fresh copy.
func (b *BlockBuilder) Block() *domain.Block {
	out := b.block
	out.Params = b.block.Params.Clone()
	out.Children = nil
	for _, c := range b.children {
		out.Children = append(out.Children, c.Block())
	}
	return &out
}
