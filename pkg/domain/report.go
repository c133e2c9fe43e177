package domain

import "time"

// Outcome statuses.
const (
	StatusSuccess  = "success"
	StatusReturned = "returned"
	StatusError    = "error"
)

// Outcome is the final signal of one script for one event.
type Outcome struct {
	ScriptID string        `json:"script_id"`
	Signal   Signal        `json:"signal"`
	Duration time.Duration `json:"duration"`
	Panicked bool          `json:"panicked,omitempty"`
}

// Status collapses the signal into success, returned or error.
func (o Outcome) Status() string {
	switch o.Signal.Kind {
	case SignalError:
		return StatusError
	case SignalReturn:
		return StatusReturned
	}
	return StatusSuccess
}

// Report is the result of dispatching one event.
type Report struct {
	Event    Event     `json:"event"`
	Outcomes []Outcome `json:"outcomes"`
	// Cancel asks the host to suppress the underlying event.
	Cancel bool `json:"cancel"`
}

// Matched returns the number of scripts that ran.
func (r *Report) Matched() int { return len(r.Outcomes) }

// Errors returns the outcomes that failed.
func (r *Report) Errors() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Signal.IsError() {
			out = append(out, o)
		}
	}
	return out
}

// Outcome returns the outcome of a given script.
func (r *Report) Outcome(scriptID string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.ScriptID == scriptID {
			return o, true
		}
	}
	return Outcome{}, false
}
