package host

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aretw0/tessera/pkg/domain"
)

// Call is one recorded side-effect.
type Call struct {
	Op      string    `json:"op"`
	Subject string    `json:"subject,omitempty"`
	Text    string    `json:"text,omitempty"`
	To      *Location `json:"to,omitempty"`
}

// Recorder is an in-memory API. It records every call, keeps a flat world of
// placed subjects and can echo messages to a writer.
type Recorder struct {
	mu       sync.Mutex
	calls    []Call
	places   map[string]Location
	subjects map[string]*domain.Subject
	failures map[string]error
	out      io.Writer
	commands CommandRunner
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithOutput echoes messages, broadcasts and commands to w.
func WithOutput(w io.Writer) RecorderOption {
	return func(r *Recorder) { r.out = w }
}

// WithCommands delegates RunCommand to runner after recording it.
func WithCommands(runner CommandRunner) RecorderOption {
	return func(r *Recorder) { r.commands = runner }
}

// NewRecorder creates an empty recorder.
func NewRecorder(opts ...RecorderOption) *Recorder {
	r := &Recorder{
		places:   make(map[string]Location),
		subjects: make(map[string]*domain.Subject),
		failures: make(map[string]error),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Place puts a subject at loc.
func (r *Recorder) Place(s *domain.Subject, loc Location) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects[s.ID] = s
	r.places[s.ID] = loc
}

// Position returns where a subject currently is.
func (r *Recorder) Position(id string) (Location, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	loc, ok := r.places[id]
	return loc, ok
}

// FailOn makes every later call of op return err. A nil err clears it.
func (r *Recorder) FailOn(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.failures, op)
		return
	}
	r.failures[op] = err
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// CallsOf returns the recorded calls of one operation.
func (r *Recorder) CallsOf(op string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

func (r *Recorder) record(c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failures[c.Op]; err != nil {
		return err
	}
	r.calls = append(r.calls, c)
	if r.out != nil {
		switch {
		case c.Subject != "":
			fmt.Fprintf(r.out, "[%s -> %s] %s\n", c.Op, c.Subject, c.Text)
		default:
			fmt.Fprintf(r.out, "[%s] %s\n", c.Op, c.Text)
		}
	}
	return nil
}

func (r *Recorder) SendMessage(_ context.Context, to *domain.Subject, text string) error {
	if to == nil {
		return fmt.Errorf("send message: %w", ErrNoSubject)
	}
	return r.record(Call{Op: "send_message", Subject: to.ID, Text: text})
}

func (r *Recorder) Broadcast(_ context.Context, text string) error {
	return r.record(Call{Op: "broadcast", Text: text})
}

func (r *Recorder) RunCommand(ctx context.Context, as *domain.Subject, command string) error {
	c := Call{Op: "run_command", Text: command}
	if as != nil {
		c.Subject = as.ID
	}
	if err := r.record(c); err != nil {
		return err
	}
	if r.commands != nil {
		return r.commands.RunCommand(ctx, as, command)
	}
	return nil
}

func (r *Recorder) Teleport(_ context.Context, who *domain.Subject, to Location) error {
	if who == nil {
		return fmt.Errorf("teleport: %w", ErrNoSubject)
	}
	dest := to
	if err := r.record(Call{Op: "teleport", Subject: who.ID, Text: to.String(), To: &dest}); err != nil {
		return err
	}
	r.mu.Lock()
	r.subjects[who.ID] = who
	r.places[who.ID] = to
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Nearest(_ context.Context, from *domain.Subject, kind string, radius float64) (*domain.Subject, error) {
	if from == nil {
		return nil, fmt.Errorf("nearest: %w", ErrNoSubject)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failures["nearest"]; err != nil {
		return nil, err
	}
	origin, ok := r.places[from.ID]
	if !ok {
		return nil, nil
	}

	var (
		best     *domain.Subject
		bestDist = radius
	)
	for id, loc := range r.places {
		s := r.subjects[id]
		if id == from.ID || (kind != "" && s.Kind != kind) {
			continue
		}
		d := origin.Distance(loc)
		if d > bestDist || (d == bestDist && best != nil && best.ID < id) {
			continue
		}
		best, bestDist = s, d
	}
	return best, nil
}

var _ API = (*Recorder)(nil)
