package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/aretw0/tessera/pkg/domain"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return r.Render
}

// NewReportRenderer renders dispatch reports as markdown tables.
func NewReportRenderer() func(*domain.Report) (string, error) {
	render := NewRenderer()
	return func(r *domain.Report) (string, error) {
		return render(ReportMarkdown(r))
	}
}

// ReportMarkdown describes a report as a markdown table.
func ReportMarkdown(r *domain.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**: %d script(s)", r.Event.Category, r.Matched())
	if r.Cancel {
		b.WriteString(", *cancelled*")
	}
	b.WriteString("\n")
	if len(r.Outcomes) == 0 {
		return b.String()
	}

	b.WriteString("\n| Script | Status | Signal | Duration |\n|---|---|---|---|\n")
	for _, o := range r.Outcomes {
		status := o.Status()
		if o.Panicked {
			status += " (panic)"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			cell(o.ScriptID), status, cell(o.Signal.String()), o.Duration.Round(time.Microsecond))
	}
	return b.String()
}

// cell escapes table separators.
func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
