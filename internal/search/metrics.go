package search

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the search pipeline. A nil
// *Metrics records nothing.
type Metrics struct {
	QueryDuration *prometheus.HistogramVec
	Candidates    prometheus.Histogram
	Results       prometheus.Histogram
	DedupeDropped prometheus.Counter
	Retries       prometheus.Counter
	ScoredRecipes *prometheus.CounterVec
	QueryErrors   prometheus.Counter
}

// NewMetrics registers the search collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	sizeBuckets := prometheus.ExponentialBuckets(1, 4, 8)

	return &Metrics{
		QueryDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recipefinder_query_duration_seconds",
				Help:    "Duration of top-k queries by pipeline stage",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"stage"},
		),
		Candidates: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "recipefinder_candidates",
			Help:    "Number of candidates returned by the candidate filter",
			Buckets: sizeBuckets,
		}),
		Results: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "recipefinder_results",
			Help:    "Number of results returned by a top-k query",
			Buckets: sizeBuckets,
		}),
		DedupeDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "recipefinder_dedupe_dropped_total",
			Help: "Total number of candidates dropped as near-duplicates",
		}),
		Retries: f.NewCounter(prometheus.CounterOpts{
			Name: "recipefinder_candidate_retries_total",
			Help: "Total number of candidate filter retries with a doubled limit",
		}),
		ScoredRecipes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipefinder_coverage_recipes_total",
				Help: "Total number of recipes scored, by scoring path",
			},
			[]string{"path"},
		),
		QueryErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "recipefinder_query_errors_total",
			Help: "Total number of failed top-k queries",
		}),
	}
}

func (m *Metrics) observeStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.QueryDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func (m *Metrics) observeCandidates(n int) {
	if m == nil {
		return
	}
	m.Candidates.Observe(float64(n))
}

func (m *Metrics) observeResults(n int) {
	if m == nil {
		return
	}
	m.Results.Observe(float64(n))
}

func (m *Metrics) addDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DedupeDropped.Add(float64(n))
}

func (m *Metrics) incRetries() {
	if m == nil {
		return
	}
	m.Retries.Inc()
}

func (m *Metrics) addScored(path string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ScoredRecipes.WithLabelValues(path).Add(float64(n))
}

func (m *Metrics) incErrors() {
	if m == nil {
		return
	}
	m.QueryErrors.Inc()
}
