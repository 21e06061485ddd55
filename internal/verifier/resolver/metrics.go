package resolver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts resolver polls by outcome.
type Metrics struct {
	Polls     *prometheus.CounterVec
	Ambiguous prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Polls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mediguard_resolver_polls_total",
			Help: "Audit feed polls, by outcome",
		}, []string{"outcome"}),
		Ambiguous: f.NewCounter(prometheus.CounterOpts{
			Name: "mediguard_resolver_ambiguous_matches_total",
			Help: "Heuristic matches made while other candidate records were in the window",
		}),
	}
}

func (m *Metrics) observe(outcome string) {
	if m == nil {
		return
	}
	m.Polls.WithLabelValues(outcome).Inc()
}

func (m *Metrics) incAmbiguous() {
	if m == nil {
		return
	}
	m.Ambiguous.Inc()
}
