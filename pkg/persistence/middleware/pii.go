package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/ports"
)

// Mask replaces redacted values.
const Mask = "***"

type piiMiddleware struct {
	next     ports.ReportSink
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks event fields and actor
// attributes whose keys match one of the patterns before a report is recorded.
func NewPIIMiddleware(patternStrings []string) (SinkMiddleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("pii pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.ReportSink) ports.ReportSink {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Record(ctx context.Context, report *domain.Report) error {
	// The dispatcher hands the same report to hooks and callers, so mask a copy.
	cloned := *report
	cloned.Event.Fields = deepCopyMap(report.Event.Fields)
	if report.Event.Actor != nil {
		actor := *report.Event.Actor
		actor.Attributes = deepCopyMap(actor.Attributes)
		maskMap(actor.Attributes, m.patterns)
		cloned.Event.Actor = &actor
	}
	maskMap(cloned.Event.Fields, m.patterns)

	return m.next.Record(ctx, &cloned)
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return domain.CloneValue(m).(map[string]any)
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Mask
				masked = true
				break
			}
		}
		if sub, ok := v.(map[string]any); ok && !masked {
			maskMap(sub, patterns)
		}
	}
}
