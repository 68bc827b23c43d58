// Package instrument owns the Prometheus collectors of the service.
package instrument

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fundsentinel"

// Metrics holds every collector on a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry             *prometheus.Registry
	refreshRuns          *prometheus.CounterVec
	stageDuration        *prometheus.HistogramVec
	feedDropped          prometheus.Counter
	historyConflicts     prometheus.Counter
	recommendationSource *prometheus.CounterVec
	oracleDuration       prometheus.Histogram
}

// New creates and registers all collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		refreshRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_runs_total",
			Help:      "Refresh pipeline runs by outcome.",
		}, []string{"outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_stage_duration_seconds",
			Help:      "Duration of each refresh stage.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"stage"}),
		feedDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_dropped_lines_total",
			Help:      "Malformed feed lines dropped by the parser.",
		}),
		historyConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_conflicts_total",
			Help:      "Observations skipped because a concurrent writer stored them first.",
		}),
		recommendationSource: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Recommendation requests by the path that served them.",
		}, []string{"source"}),
		oracleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_request_duration_seconds",
			Help:      "Latency of scoring oracle calls, successful or not.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.refreshRuns,
		m.stageDuration,
		m.feedDropped,
		m.historyConflicts,
		m.recommendationSource,
		m.oracleDuration,
	)
	return m
}

// Handler serves the registry in the exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RefreshFinished counts one run by outcome (success, failed, skipped)
func (m *Metrics) RefreshFinished(outcome string) {
	if m == nil {
		return
	}
	m.refreshRuns.WithLabelValues(outcome).Inc()
}

// StageDone records how long a refresh stage took
func (m *Metrics) StageDone(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// FeedDropped adds parser drops
func (m *Metrics) FeedDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.feedDropped.Add(float64(n))
}

// HistoryConflicts adds insert conflicts
func (m *Metrics) HistoryConflicts(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.historyConflicts.Add(float64(n))
}

// RecommendationServed counts one request by source
func (m *Metrics) RecommendationServed(source string) {
	if m == nil {
		return
	}
	m.recommendationSource.WithLabelValues(source).Inc()
}

// OracleCall records one oracle round trip
func (m *Metrics) OracleCall(d time.Duration) {
	if m == nil {
		return
	}
	m.oracleDuration.Observe(d.Seconds())
}
