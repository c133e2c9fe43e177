package domain

import "time"

// Subject is an actor or target a script operates on.
type Subject struct {
	ID         string         `json:"id" yaml:"id" mapstructure:"id"`
	Name       string         `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	Kind       string         `json:"kind,omitempty" yaml:"kind,omitempty" mapstructure:"kind"`
	Attributes map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty" mapstructure:"attributes"`
}

// DisplayName returns Name, or ID when no name is set.
func (s *Subject) DisplayName() string {
	if s == nil {
		return ""
	}
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// Attr returns an attribute value.
func (s *Subject) Attr(name string) (any, bool) {
	if s == nil || s.Attributes == nil {
		return nil, false
	}
	v, ok := s.Attributes[name]
	return v, ok
}

// IsOperator reports whether the subject carries the operator flag.
func (s *Subject) IsOperator() bool {
	v, _ := s.Attr("op")
	b, _ := v.(bool)
	return b
}

// Event is an opaque host occurrence.
// Category is the registration key ("actor.join", "world.block_break", "timer.tick").
type Event struct {
	Category string         `json:"category" yaml:"category" mapstructure:"category"`
	Actor    *Subject       `json:"actor,omitempty" yaml:"actor,omitempty" mapstructure:"actor"`
	Fields   map[string]any `json:"fields,omitempty" yaml:"fields,omitempty" mapstructure:"fields"`
	Time     time.Time      `json:"time" yaml:"time,omitempty" mapstructure:"time"`
}

// Field returns an event field.
func (e *Event) Field(name string) (any, bool) {
	if e == nil || e.Fields == nil {
		return nil, false
	}
	v, ok := e.Fields[name]
	return v, ok
}

// FieldString returns an event field as a string, or "" when absent.
func (e *Event) FieldString(name string) string {
	v, ok := e.Field(name)
	if !ok {
		return ""
	}
	return Params{"v": v}.String("v")
}
