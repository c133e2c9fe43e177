package domain

import "context"

// LifecycleHooks defines callbacks for engine observability.
// Any field may be nil.
type LifecycleHooks struct {
	OnScriptStart  func(context.Context, *Script, *Event)
	OnScriptFinish func(context.Context, *Script, Outcome)
	OnDispatch     func(context.Context, *Report)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnScriptStart: func(ctx context.Context, s *Script, e *Event) {
			if h.OnScriptStart != nil {
				h.OnScriptStart(ctx, s, e)
			}
			if other.OnScriptStart != nil {
				other.OnScriptStart(ctx, s, e)
			}
		},
		OnScriptFinish: func(ctx context.Context, s *Script, o Outcome) {
			if h.OnScriptFinish != nil {
				h.OnScriptFinish(ctx, s, o)
			}
			if other.OnScriptFinish != nil {
				other.OnScriptFinish(ctx, s, o)
			}
		},
		OnDispatch: func(ctx context.Context, r *Report) {
			if h.OnDispatch != nil {
				h.OnDispatch(ctx, r)
			}
			if other.OnDispatch != nil {
				other.OnDispatch(ctx, r)
			}
		},
	}
}
