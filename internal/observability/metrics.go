// Package observability registers the Prometheus collectors of the API process.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Generation outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeUpstream    = "upstream_error"
	OutcomeMalformed   = "malformed_response"
	OutcomeSchema      = "schema_violation"
	OutcomePersistence = "persistence_error"
)

type Metrics struct {
	Generations       *prometheus.CounterVec
	InferenceDuration prometheus.Histogram
	WorkoutLogs       prometheus.Counter
}

// NewMetrics registers the collectors on reg. Tests pass a fresh registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Generations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fitcoach_workout_generations_total",
			Help: "Workout generation attempts by outcome.",
		}, []string{"outcome"}),
		InferenceDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fitcoach_inference_duration_seconds",
			Help:    "Latency of the inference provider round-trip.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 120},
		}),
		WorkoutLogs: factory.NewCounter(prometheus.CounterOpts{
			Name: "fitcoach_workout_logs_total",
			Help: "Workout sessions logged.",
		}),
	}
}
