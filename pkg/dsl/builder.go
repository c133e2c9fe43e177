package dsl

import "github.com/aretw0/tessera/pkg/domain"

// ScriptBuilder manages script construction.
type ScriptBuilder struct {
	id, name, description string
	root                  *BlockBuilder
}

// New creates a new script builder.
func New(id string) *ScriptBuilder {
	return &ScriptBuilder{id: id}
}

// Named sets the display name.
func (s *ScriptBuilder) Named(name string) *ScriptBuilder {
	s.name = name
	return s
}

// Describe sets the description.
func (s *ScriptBuilder) Describe(text string) *ScriptBuilder {
	s.description = text
	return s
}

// On sets the trigger, with optional parameters.
func (s *ScriptBuilder) On(trigger string, params ...P) *ScriptBuilder {
	p := P{}
	for _, extra := range params {
		for k, v := range extra {
			p[k] = v
		}
	}
	if len(p) == 0 {
		p = nil
	}
	s.root = newBlock(domain.KindTrigger, trigger, p)
	return s
}

// Then appends blocks to the script body.
func (s *ScriptBuilder) Then(children ...*BlockBuilder) *ScriptBuilder {
	if s.root == nil {
		s.root = newBlock(domain.KindTrigger, "", nil)
	}
	s.root.Then(children...)
	return s
}

// Build returns the script.
func (s *ScriptBuilder) Build() *domain.Script {
	out := &domain.Script{ID: s.id, Name: s.name, Description: s.description}
	if s.root != nil {
		out.Root = s.root.Block()
	}
	return out
}
