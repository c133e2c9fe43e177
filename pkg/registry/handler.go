package registry

import (
	"fmt"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/schema"
	"github.com/aretw0/tessera/pkg/scope"
)

// Handler is the capability entry of one block type.
// Which function fields are required depends on Kind.
type Handler struct {
	Type   string        `json:"type"`
	Kind   domain.Kind   `json:"kind"`
	Doc    string        `json:"doc,omitempty"`
	Schema schema.Schema `json:"params,omitempty"`

	// Leaf forbids children. Control handlers are always leaves.
	Leaf bool `json:"leaf,omitempty"`
	// NeedsLoop requires a loop ancestor (break, continue).
	NeedsLoop bool `json:"needs_loop,omitempty"`
	// Check runs handler-specific structural checks on normalized params.
	Check func(p domain.Params) error `json:"-"`

	// Category returns the event category a trigger listens to.
	Category func(p domain.Params) string `json:"-"`
	// Match refines category matching (field filters). Nil matches every event of the category.
	Match func(p domain.Params, ev *domain.Event) bool `json:"-"`
	// Bind seeds the fresh context of a matched trigger.
	Bind func(c *scope.Context, p domain.Params, ev *domain.Event) `json:"-"`

	// Test is the predicate of a condition. A non-nil returned context
	// replaces c for the condition's children.
	Test func(c *scope.Context, p domain.Params) (*scope.Context, bool, error) `json:"-"`

	// Run performs an action or produces a control signal.
	Run func(c *scope.Context, p domain.Params) domain.Signal `json:"-"`

	// Next is called before iteration i of a loop. It returns false to stop
	// the loop or a non-success signal to abort it.
	Next func(c *scope.Context, p domain.Params, i int) (bool, domain.Signal) `json:"-"`
}

func (h Handler) verify() error {
	if h.Type == "" {
		return fmt.Errorf("handler has no type")
	}
	var missing string
	switch h.Kind {
	case domain.KindTrigger:
		if h.Category == nil {
			missing = "Category"
		}
	case domain.KindCondition:
		if h.Test == nil {
			missing = "Test"
		}
	case domain.KindAction, domain.KindControl:
		if h.Run == nil {
			missing = "Run"
		}
	case domain.KindLoop:
		if h.Next == nil {
			missing = "Next"
		}
	default:
		return fmt.Errorf("handler %s: invalid kind %q", h.Type, h.Kind)
	}
	if missing != "" {
		return fmt.Errorf("handler %s: %s kind requires %s", h.Type, h.Kind, missing)
	}
	return nil
}

func (h Handler) leaf() bool {
	return h.Leaf || h.Kind == domain.KindControl
}
