// Package runtime walks block trees and turns them into control signals.
package runtime

import (
	"log/slog"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/registry"
	"github.com/aretw0/tessera/pkg/scope"
)

type walker func(in *Interpreter, h registry.Handler, c *scope.Context, b *domain.Block) domain.Signal

// Interpreter executes blocks using the handlers of a registry.
// It holds no per-run state and may be shared by concurrent dispatches.
type Interpreter struct {
	reg     *registry.Registry
	walkers map[domain.Kind]walker
}

// New creates an interpreter over reg.
func New(reg *registry.Registry) *Interpreter {
	return &Interpreter{
		reg: reg,
		walkers: map[domain.Kind]walker{
			domain.KindCondition: walkCondition,
			domain.KindAction:    walkAction,
			domain.KindControl:   walkAction,
			domain.KindLoop:      walkLoop,
			domain.KindTrigger:   walkNestedTrigger,
		},
	}
}

// Run executes the body of a matched script: the children of its trigger.
// The trigger's own logic is never evaluated here. A Break or Continue that
// escapes to the root becomes an Error.
func (in *Interpreter) Run(c *scope.Context, root *domain.Block) domain.Signal {
	sig := in.ExecuteChildren(c, root)
	if sig.IsLoopControl() {
		return domain.Errorf("%s outside of loop", sig.Kind).WithOrigin(root.Label())
	}
	return sig
}

// Execute runs one block and returns its signal.
func (in *Interpreter) Execute(c *scope.Context, b *domain.Block) domain.Signal {
	h, ok := in.reg.Get(b.Type)
	if !ok {
		return domain.Errorf("unknown block type %q", b.Type).WithOrigin(b.Label())
	}
	w, ok := in.walkers[h.Kind]
	if !ok {
		return domain.Errorf("block kind %q cannot be executed", h.Kind).WithOrigin(b.Label())
	}

	sig := w(in, h, c, b)
	if c.Debug() {
		c.Logger().Debug("block executed",
			slog.String("type", b.Type),
			slog.String("id", b.ID),
			slog.String("kind", string(h.Kind)),
			slog.String("signal", sig.String()),
		)
	}
	return sig
}

// ExecuteChildren runs the children of b in authored order, stopping at the
// first signal that is not Success and returning it.
func (in *Interpreter) ExecuteChildren(c *scope.Context, b *domain.Block) domain.Signal {
	for _, child := range b.Children {
		if sig := in.Execute(c, child); !sig.IsSuccess() {
			return sig
		}
	}
	return domain.Success()
}

func walkCondition(in *Interpreter, h registry.Handler, c *scope.Context, b *domain.Block) domain.Signal {
	target, ok, err := h.Test(c, b.Params)
	if err != nil {
		return domain.Error(err.Error()).WithOrigin(b.Label())
	}
	if !ok {
		return domain.Success()
	}
	if target == nil {
		target = c
	}
	return in.ExecuteChildren(target, b)
}

func walkAction(in *Interpreter, h registry.Handler, c *scope.Context, b *domain.Block) domain.Signal {
	sig := h.Run(c, b.Params)
	if !sig.IsSuccess() {
		return sig.WithOrigin(b.Label())
	}
	return in.ExecuteChildren(c, b)
}

func walkLoop(in *Interpreter, h registry.Handler, c *scope.Context, b *domain.Block) domain.Signal {
	for i := 0; ; i++ {
		more, sig := h.Next(c, b.Params, i)
		if !sig.IsSuccess() {
			return sig.WithOrigin(b.Label())
		}
		if !more {
			return domain.Success()
		}

		switch body := in.ExecuteChildren(c, b); body.Kind {
		case domain.SignalBreak:
			return domain.Success()
		case domain.SignalSuccess, domain.SignalContinue:
		default:
			return body
		}
	}
}

func walkNestedTrigger(_ *Interpreter, _ registry.Handler, _ *scope.Context, b *domain.Block) domain.Signal {
	return domain.Errorf("trigger %s cannot be nested", b.Type).WithOrigin(b.Label())
}
