package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/tessera/pkg/domain"
)

// Metrics holds the Prometheus collectors of one engine.
type Metrics struct {
	dispatches *prometheus.CounterVec
	outcomes   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	panics     *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tessera_dispatches_total",
				Help: "Events dispatched, by category.",
			},
			[]string{"category"},
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tessera_script_outcomes_total",
				Help: "Script runs, by script and final status.",
			},
			[]string{"script", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tessera_script_duration_seconds",
				Help:    "Duration of script runs.",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"script"},
		),
		panics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tessera_script_panics_total",
				Help: "Handler panics recovered during script runs.",
			},
			[]string{"script"},
		),
	}
	for _, c := range []prometheus.Collector{m.dispatches, m.outcomes, m.duration, m.panics} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnScriptFinish: func(_ context.Context, s *domain.Script, o domain.Outcome) {
			m.outcomes.WithLabelValues(s.ID, o.Status()).Inc()
			m.duration.WithLabelValues(s.ID).Observe(o.Duration.Seconds())
			if o.Panicked {
				m.panics.WithLabelValues(s.ID).Inc()
			}
		},
		OnDispatch: func(_ context.Context, r *domain.Report) {
			m.dispatches.WithLabelValues(r.Event.Category).Inc()
		},
	}
}
