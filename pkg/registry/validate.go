package registry

import (
	"errors"
	"fmt"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/schema"
)

// BlockError locates a structural problem inside a tree.
type BlockError struct {
	Path string // e.g. root/children[0]/children[1]
	Type string
	Err  error
}

func (e *BlockError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Path, e.Type, e.Err)
}

func (e *BlockError) Unwrap() error { return e.Err }

// ValidationError aggregates every structural problem of a script.
type ValidationError struct {
	ScriptID string
	Problems []*BlockError
}

func (e *ValidationError) Error() string {
	agg := &schema.AggregateError{}
	for _, p := range e.Problems {
		agg.Errors = append(agg.Errors, p)
	}
	return fmt.Sprintf("script %q: %s", e.ScriptID, agg.Error())
}

// Unwrap exposes domain.ErrInvalidScript and every problem.
func (e *ValidationError) Unwrap() []error {
	errs := []error{domain.ErrInvalidScript}
	for _, p := range e.Problems {
		errs = append(errs, p)
	}
	return errs
}

// Problems returns the block errors of a validation failure.
func Problems(err error) []*BlockError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Problems
	}
	return nil
}

// ValidateScript checks a script without keeping the normalized copy.
func (r *Registry) ValidateScript(s *domain.Script) error {
	_, err := r.Prepare(s)
	return err
}

// Prepare validates s and returns a normalized deep copy: kinds filled from
// handlers, parameters defaulted and coerced. s itself is never modified.
func (r *Registry) Prepare(s *domain.Script) (*domain.Script, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil script", domain.ErrInvalidScript)
	}
	v := &validator{
		reg:    r,
		seen:   make(map[*domain.Block]string),
		onPath: make(map[*domain.Block]bool),
	}
	out := &domain.Script{ID: s.ID, Name: s.Name, Description: s.Description}

	if s.ID == "" {
		v.fail("script", "", errors.New("missing id"))
	}
	if s.Root == nil {
		v.fail("root", "", errors.New("missing root block"))
	} else {
		out.Root = v.block(s.Root, "root", 0, 0)
	}

	if len(v.problems) > 0 {
		return nil, &ValidationError{ScriptID: s.ID, Problems: v.problems}
	}
	return out, nil
}

type validator struct {
	reg      *Registry
	seen     map[*domain.Block]string
	onPath   map[*domain.Block]bool
	problems []*BlockError
}

func (v *validator) fail(path, typ string, err error) {
	v.problems = append(v.problems, &BlockError{Path: path, Type: typ, Err: err})
}

func (v *validator) block(b *domain.Block, path string, depth, loops int) *domain.Block {
	if b == nil {
		v.fail(path, "", errors.New("nil block"))
		return nil
	}
	if v.onPath[b] {
		v.fail(path, b.Type, errors.New("cycle: block is its own ancestor"))
		return nil
	}
	if first, dup := v.seen[b]; dup {
		v.fail(path, b.Type, fmt.Errorf("block already used at %s", first))
		return nil
	}
	v.seen[b] = path
	v.onPath[b] = true
	defer delete(v.onPath, b)

	out := &domain.Block{ID: b.ID, Kind: b.Kind, Type: b.Type}

	h, ok := v.reg.Get(b.Type)
	if !ok {
		v.fail(path, b.Type, domain.ErrUnknownBlockType)
		out.Params = b.Params.Clone()
	} else {
		v.handler(h, b, out, path, depth, loops)
	}

	if h.Kind == domain.KindLoop {
		loops++
	}
	if ok && h.leaf() && len(b.Children) > 0 {
		v.fail(path, b.Type, fmt.Errorf("%s blocks cannot have children", h.Kind))
	}
	for i, child := range b.Children {
		if c := v.block(child, fmt.Sprintf("%s/children[%d]", path, i), depth+1, loops); c != nil {
			out.Children = append(out.Children, c)
		}
	}
	return out
}

func (v *validator) handler(h Handler, b, out *domain.Block, path string, depth, loops int) {
	switch {
	case b.Kind != "" && b.Kind != h.Kind:
		v.fail(path, b.Type, fmt.Errorf("kind %q does not match handler kind %q", b.Kind, h.Kind))
	case depth == 0 && h.Kind != domain.KindTrigger:
		v.fail(path, b.Type, fmt.Errorf("root must be a trigger, got %s", h.Kind))
	case depth > 0 && h.Kind == domain.KindTrigger:
		v.fail(path, b.Type, errors.New("triggers are only allowed at the root"))
	}
	out.Kind = h.Kind

	if h.NeedsLoop && loops == 0 {
		v.fail(path, b.Type, fmt.Errorf("%s outside of loop", b.Type))
	}

	params, err := h.Schema.Apply(b.Params)
	if err != nil {
		if errs := schema.ValidationErrors(err); errs != nil {
			for _, e := range errs {
				v.fail(path, b.Type, e)
			}
		} else {
			v.fail(path, b.Type, err)
		}
		out.Params = b.Params.Clone()
		return
	}
	out.Params = domain.Params(params)

	if h.Check != nil {
		if err := h.Check(out.Params); err != nil {
			v.fail(path, b.Type, err)
		}
	}
}
