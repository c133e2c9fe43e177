package tessera

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aretw0/tessera/pkg/codec"
	"github.com/aretw0/tessera/pkg/domain"
)

// Runner reads one event per line and prints the resulting reports.
// This allows for easy testing and integration with different frontends (CLI, TUI, etc).
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ReportRenderer
}

// ReportRenderer turns a report into terminal output.
type ReportRenderer func(*domain.Report) (string, error)

// NewRunner creates a Runner over the given IO.
func NewRunner(in io.Reader, out io.Writer) *Runner {
	return &Runner{Input: in, Output: out}
}

// Run processes lines until EOF, "exit" or "quit".
// A line is either a JSON event or "category key=value ...". The keys
// "actor" and "actor.<attr>" describe the actor; the rest become fields.
func (r *Runner) Run(ctx context.Context, engine *Engine) error {
	if r.Input == nil {
		return errors.New("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return errors.New("output writer must be set (use os.Stdout)")
	}
	lines := bufio.NewReader(r.Input)
	limit := maxInputSize()

	if !r.Headless {
		fmt.Fprintln(r.Output, "--- Tessera console ---")
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !r.Headless {
			fmt.Fprint(r.Output, "> ")
		}
		raw, size, err := readLine(lines, limit)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("input error: %w", err)
		}
		if errors.Is(err, io.EOF) && size == 0 {
			return nil
		}
		if size > limit {
			fmt.Fprintf(r.Output, "error: %v: size=%d limit=%d\n", ErrInputTooLarge, size, limit)
			continue
		}
		line := strings.TrimSpace(raw)
		switch line {
		case "":
			continue
		case "exit", "quit":
			if !r.Headless {
				fmt.Fprintln(r.Output, "Bye!")
			}
			return nil
		}

		line, err = SanitizeInput(line)
		if err != nil {
			fmt.Fprintf(r.Output, "error: %v\n", err)
			continue
		}
		ev, err := ParseEvent(line)
		if err != nil {
			fmt.Fprintf(r.Output, "error: %v\n", err)
			continue
		}
		report := engine.Dispatch(ctx, ev)

		output := Summary(report)
		if r.Renderer != nil {
			if rendered, err := r.Renderer(report); err == nil {
				output = rendered
			}
		}
		fmt.Fprintln(r.Output, strings.TrimRight(output, "\n"))
	}
}

// readLine reads up to the next newline, keeping at most limit+2 bytes.
// size is the full length of the line; the rest of an oversized line is
// consumed and dropped.
func readLine(br *bufio.Reader, limit int) (string, int, error) {
	var buf []byte
	size := 0
	for {
		chunk, err := br.ReadSlice('\n')
		size += len(chunk)
		if room := limit + 2 - len(buf); room > 0 {
			if len(chunk) > room {
				chunk = chunk[:room]
			}
			buf = append(buf, chunk...)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		line := strings.TrimRight(string(buf), "\r\n")
		if n := len(buf) - len(line); n > 0 {
			size -= n
		}
		return line, size, err
	}
}

// ParseEvent decodes one console line.
func ParseEvent(line string) (domain.Event, error) {
	if strings.HasPrefix(line, "{") {
		return codec.DecodeEvent([]byte(line), codec.JSON)
	}
	words, err := splitWords(line)
	if err != nil {
		return domain.Event{}, err
	}
	ev := domain.Event{Category: words[0]}
	for _, w := range words[1:] {
		key, raw, ok := strings.Cut(w, "=")
		if !ok || key == "" {
			return ev, fmt.Errorf("expected key=value, got %q", w)
		}
		value := literal(raw)
		switch {
		case key == "actor":
			if ev.Actor == nil {
				ev.Actor = &domain.Subject{}
			}
			ev.Actor.ID, ev.Actor.Name = raw, raw
		case strings.HasPrefix(key, "actor."):
			if ev.Actor == nil {
				ev.Actor = &domain.Subject{}
			}
			if ev.Actor.Attributes == nil {
				ev.Actor.Attributes = make(map[string]any)
			}
			ev.Actor.Attributes[strings.TrimPrefix(key, "actor.")] = value
		default:
			if ev.Fields == nil {
				ev.Fields = make(map[string]any)
			}
			ev.Fields[key] = value
		}
	}
	return ev, nil
}

// literal types a console value: integers, floats and booleans stay typed.
func literal(raw string) any {
	if i, err := strconv.Atoi(raw); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil && (raw == "true" || raw == "false") {
		return b
	}
	return raw
}

// splitWords splits on spaces, keeping double-quoted runs together.
func splitWords(line string) ([]string, error) {
	var (
		words   []string
		cur     strings.Builder
		quoted  bool
		pending bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			pending = true
		case r == ' ' && !quoted:
			if pending {
				words = append(words, cur.String())
				cur.Reset()
				pending = false
			}
		default:
			cur.WriteRune(r)
			pending = true
		}
	}
	if quoted {
		return nil, errors.New("unterminated quote")
	}
	if pending {
		words = append(words, cur.String())
	}
	if len(words) == 0 {
		return nil, errors.New("empty event")
	}
	return words, nil
}

// Summary renders a report as plain text, one line per outcome.
func Summary(r *domain.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d script(s)", r.Event.Category, r.Matched())
	if r.Cancel {
		b.WriteString(", cancelled")
	}
	for _, o := range r.Outcomes {
		fmt.Fprintf(&b, "\n  %s %s", o.ScriptID, o.Status())
		switch o.Signal.Kind {
		case domain.SignalError:
			fmt.Fprintf(&b, " (%s)", o.Signal)
		case domain.SignalReturn:
			fmt.Fprintf(&b, " %v", o.Signal.Value)
		}
	}
	return b.String()
}
