package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics satisfies the classifier and dispatcher observers.
type Metrics struct {
	IntentAttempts *prometheus.CounterVec
	IntentFallback prometheus.Counter
	Dispatched     *prometheus.CounterVec
	TurnDuration   *prometheus.HistogramVec
}

// New registers the collectors on reg; pass prometheus.DefaultRegisterer to
// expose them on /metrics.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		IntentAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rolplay_intent_attempts_total",
				Help: "Remote classification attempts by outcome",
			},
			[]string{"outcome"},
		),
		IntentFallback: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rolplay_intent_fallback_total",
				Help: "Turns classified by the keyword fallback",
			},
		),
		Dispatched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rolplay_dispatch_total",
				Help: "Data turns dispatched per query type",
			},
			[]string{"query_type"},
		),
		TurnDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rolplay_turn_duration_seconds",
				Help:    "End-to-end duration of a turn",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"fallback"},
		),
	}
}

func (m *Metrics) OnAttempt(outcome string) { m.IntentAttempts.WithLabelValues(outcome).Inc() }

func (m *Metrics) OnFallback() { m.IntentFallback.Inc() }

func (m *Metrics) OnDispatch(queryType string) { m.Dispatched.WithLabelValues(queryType).Inc() }

func (m *Metrics) ObserveTurn(d time.Duration, fallback bool) {
	label := "false"
	if fallback {
		label = "true"
	}
	m.TurnDuration.WithLabelValues(label).Observe(d.Seconds())
}
