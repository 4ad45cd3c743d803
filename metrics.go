package labbook

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "labbook"

// Run statuses reported by RunsTotal.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusCached  = "cached"
)

// Metrics holds the Prometheus collectors updated by experiments. A nil
// *Metrics records nothing.
type Metrics struct {
	// RunsTotal counts calls by experiment and status.
	RunsTotal *prometheus.CounterVec

	// RunDurationSeconds observes the wall time of the wrapped function.
	RunDurationSeconds *prometheus.HistogramVec

	// SaveDurationSeconds observes the time taken to persist an observation.
	SaveDurationSeconds *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "runs_total",
				Help:      "Total number of experiment calls by experiment and status",
			},
			[]string{"experiment", "status"},
		),
		RunDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "run_duration_seconds",
				Help:      "Wall time of experiment functions in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 12),
			},
			[]string{"experiment"},
		),
		SaveDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "save_duration_seconds",
				Help:      "Time taken to persist one observation in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"backend"},
		),
	}
}

func (m *Metrics) observeRun(experiment, status string, d time.Duration) {
	if m == nil {
		return
	}

	m.RunsTotal.WithLabelValues(experiment, status).Inc()

	if status != StatusCached {
		m.RunDurationSeconds.WithLabelValues(experiment).Observe(d.Seconds())
	}
}

func (m *Metrics) observeSave(backend string, d time.Duration) {
	if m == nil {
		return
	}

	m.SaveDurationSeconds.WithLabelValues(backend).Observe(d.Seconds())
}
