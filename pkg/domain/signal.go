package domain

import "fmt"

// SignalKind enumerates the control signals a block execution can produce.
type SignalKind int

const (
	// SignalSuccess lets the parent proceed to the next sibling.
	SignalSuccess SignalKind = iota
	// SignalError aborts the whole script with a readable reason.
	SignalError
	// SignalBreak stops the nearest enclosing loop.
	SignalBreak
	// SignalContinue ends the current iteration of the nearest enclosing loop.
	SignalContinue
	// SignalReturn stops the whole script successfully, carrying a value.
	SignalReturn
)

var signalKindNames = [...]string{
	SignalSuccess:  "success",
	SignalError:    "error",
	SignalBreak:    "break",
	SignalContinue: "continue",
	SignalReturn:   "return",
}

func (k SignalKind) String() string {
	if k >= 0 && int(k) < len(signalKindNames) {
		return signalKindNames[k]
	}
	return fmt.Sprintf("signal(%d)", int(k))
}

// Signal is the result of executing a block.
type Signal struct {
	Kind    SignalKind `json:"kind"`
	Message string     `json:"message,omitempty"`
	Value   any        `json:"value,omitempty"`
	// Origin identifies the block that produced an Error.
	Origin string `json:"origin,omitempty"`
}

// Success returns the signal that lets execution proceed.
func Success() Signal { return Signal{Kind: SignalSuccess} }

// Error returns a failure signal carrying msg.
func Error(msg string) Signal { return Signal{Kind: SignalError, Message: msg} }

// Errorf is Error with formatting.
func Errorf(format string, args ...any) Signal {
	return Error(fmt.Sprintf(format, args...))
}

// Break returns the loop-exit signal.
func Break() Signal { return Signal{Kind: SignalBreak} }

// Continue returns the next-iteration signal.
func Continue() Signal { return Signal{Kind: SignalContinue} }

// Return returns the early-exit signal carrying v.
func Return(v any) Signal { return Signal{Kind: SignalReturn, Value: v} }

// IsSuccess reports whether the signal lets siblings run.
func (s Signal) IsSuccess() bool { return s.Kind == SignalSuccess }

// IsError reports whether the signal is a failure.
func (s Signal) IsError() bool { return s.Kind == SignalError }

// Aborts reports whether the signal terminates the whole script.
func (s Signal) Aborts() bool { return s.Kind == SignalError || s.Kind == SignalReturn }

// IsLoopControl reports whether the signal is consumed by a loop.
func (s Signal) IsLoopControl() bool { return s.Kind == SignalBreak || s.Kind == SignalContinue }

// WithOrigin stamps the origin on an Error that has none yet.
func (s Signal) WithOrigin(origin string) Signal {
	if s.Kind == SignalError && s.Origin == "" {
		s.Origin = origin
	}
	return s
}

func (s Signal) String() string {
	switch s.Kind {
	case SignalError:
		if s.Origin != "" {
			return fmt.Sprintf("error(%s): %s", s.Origin, s.Message)
		}
		return "error: " + s.Message
	case SignalReturn:
		if s.Value != nil {
			return fmt.Sprintf("return(%v)", s.Value)
		}
	}
	return s.Kind.String()
}
