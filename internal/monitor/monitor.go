package monitor

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks engine throughput. A private registry keeps tests and
// multiple instances from tripping over duplicate registration.
type Metrics struct {
	registry *prometheus.Registry

	SubmissionsTotal prometheus.Counter
	CorrectTotal     prometheus.Counter
	ScoringLatency   prometheus.Histogram
	ActiveMatches    prometheus.Gauge
	MatchesFinished  prometheus.Counter
}

func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SubmissionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Total number of answer submissions accepted",
		}),
		CorrectTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "correct_answers_total",
			Help:      "Total number of correct answers scored",
		}),
		ScoringLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scoring_latency_seconds",
			Help:      "Answer scoring latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
		ActiveMatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_matches",
			Help:      "Number of matches not yet finished or canceled",
		}),
		MatchesFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_finished_total",
			Help:      "Total number of finalized matches",
		}),
	}
	m.registry.MustRegister(
		m.SubmissionsTotal,
		m.CorrectTotal,
		m.ScoringLatency,
		m.ActiveMatches,
		m.MatchesFinished,
	)
	return m
}

// Handler serves the /metrics endpoint for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveScoring records one scoring pass.
func (m *Metrics) ObserveScoring(start time.Time, correct bool) {
	m.SubmissionsTotal.Inc()
	if correct {
		m.CorrectTotal.Inc()
	}
	m.ScoringLatency.Observe(time.Since(start).Seconds())
}
