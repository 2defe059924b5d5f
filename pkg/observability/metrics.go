package observability

import (
	"context"

	"github.com/aretw0/mentor/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors fed by lifecycle hooks.
type Metrics struct {
	PhaseTransitions *prometheus.CounterVec
	AtomCompletions  *prometheus.CounterVec
	Directives       *prometheus.CounterVec
	RequestFailures  *prometheus.CounterVec
	StaleDiscards    *prometheus.CounterVec
	FinalMastery     prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg.
// A nil registerer skips registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PhaseTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mentor_phase_transitions_total",
			Help: "Session phase transitions by target phase.",
		}, []string{"phase"}),
		AtomCompletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mentor_atom_completions_total",
			Help: "Atom completions by pacing band.",
		}, []string{"pacing"}),
		Directives: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mentor_directives_total",
			Help: "Resolved directives by kind and next-action code.",
		}, []string{"kind", "code"}),
		RequestFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mentor_request_failures_total",
			Help: "Failed learning-service requests by slot.",
		}, []string{"slot"}),
		StaleDiscards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mentor_stale_responses_total",
			Help: "Responses discarded because the session moved on, by slot.",
		}, []string{"slot"}),
		FinalMastery: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mentor_atom_final_mastery",
			Help:    "Final mastery reported at atom completion.",
			Buckets: []float64{0.2, 0.4, 0.6, 0.8, 1},
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.PhaseTransitions,
			m.AtomCompletions,
			m.Directives,
			m.RequestFailures,
			m.StaleDiscards,
			m.FinalMastery,
		)
	}
	return m
}

// Hooks returns lifecycle hooks recording into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPhaseChange: func(_ context.Context, e *domain.PhaseEvent) {
			m.PhaseTransitions.WithLabelValues(string(e.To)).Inc()
		},
		OnAtomComplete: func(_ context.Context, e *domain.CompletionEvent) {
			m.AtomCompletions.WithLabelValues(string(e.Record.Pacing)).Inc()
			m.FinalMastery.Observe(e.Record.Mastery)
		},
		OnDirective: func(_ context.Context, e *domain.DirectiveEvent) {
			code := string(e.Code)
			if code == "" {
				code = "none"
			}
			m.Directives.WithLabelValues(string(e.Directive.Kind), code).Inc()
		},
		OnRequestFailure: func(_ context.Context, e *domain.RequestEvent) {
			m.RequestFailures.WithLabelValues(string(e.Slot)).Inc()
		},
		OnStaleDiscard: func(_ context.Context, e *domain.RequestEvent) {
			m.StaleDiscards.WithLabelValues(string(e.Slot)).Inc()
		},
	}
}
