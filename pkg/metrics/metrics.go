// Package metrics defines the Prometheus collectors for index builds, query
// execution, result caching and matrix exports, and serves them for scraping.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	QueriesTotal         *prometheus.CounterVec
	QueryLatency         *prometheus.HistogramVec
	QueryResultsCount    *prometheus.HistogramVec
	CacheHitsTotal       *prometheus.CounterVec
	CacheMissesTotal     prometheus.Counter
	MatrixRowsTotal      *prometheus.CounterVec
	IndexKeys            *prometheus.GaugeVec
	IndexDocuments       prometheus.Gauge
	BuildDuration        prometheus.Histogram
}

// New creates all collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer in binaries and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "similarity_queries_total",
				Help: "Total similarity commands by command symbol and outcome.",
			},
			[]string{"command", "outcome"},
		),
		QueryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "similarity_query_latency_seconds",
				Help:    "Similarity command latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 10, 60, 600},
			},
			[]string{"command"},
		),
		QueryResultsCount: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "similarity_query_results_count",
				Help:    "Number of entries returned per similarity command.",
				Buckets: []float64{0, 1, 5, 10, 50, 100, 1000, 10000},
			},
			[]string{"command"},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "result_cache_hits_total",
				Help: "Total result cache hits by tier (local, redis).",
			},
			[]string{"tier"},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "result_cache_misses_total",
				Help: "Total result cache misses.",
			},
		),
		MatrixRowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matrix_rows_total",
				Help: "Full-matrix rows by sink kind and status (written, dropped).",
			},
			[]string{"sink", "status"},
		),
		IndexKeys: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "index_keys",
				Help: "Number of keys per inverted index (category, term) and stem table size.",
			},
			[]string{"index"},
		),
		IndexDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_documents",
				Help: "Number of distinct documents across both indices.",
			},
		),
		BuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "index_build_duration_seconds",
				Help:    "Time to build or load the corpus indices.",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.QueriesTotal,
		m.QueryLatency,
		m.QueryResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.MatrixRowsTotal,
		m.IndexKeys,
		m.IndexDocuments,
		m.BuildDuration,
	)

	return m
}

// ObserveQuery records one executed command.
func (m *Metrics) ObserveQuery(command, outcome string, elapsed time.Duration, results int) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(command, outcome).Inc()
	m.QueryLatency.WithLabelValues(command).Observe(elapsed.Seconds())
	if outcome == "ok" {
		m.QueryResultsCount.WithLabelValues(command).Observe(float64(results))
	}
}

func (m *Metrics) CacheHit(tier string) {
	if m == nil {
		return
	}
	m.CacheHitsTotal.WithLabelValues(tier).Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.CacheMissesTotal.Inc()
}

// ObserveMatrix records how many matrix rows a sink stored and dropped.
func (m *Metrics) ObserveMatrix(sink string, written, dropped int) {
	if m == nil {
		return
	}
	m.MatrixRowsTotal.WithLabelValues(sink, "written").Add(float64(written))
	m.MatrixRowsTotal.WithLabelValues(sink, "dropped").Add(float64(dropped))
}

// ObserveBuild records index sizes after a build or snapshot load.
func (m *Metrics) ObserveBuild(categories, terms, stems, documents int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.IndexKeys.WithLabelValues("category").Set(float64(categories))
	m.IndexKeys.WithLabelValues("term").Set(float64(terms))
	m.IndexKeys.WithLabelValues("stem").Set(float64(stems))
	m.IndexDocuments.Set(float64(documents))
	m.BuildDuration.Observe(elapsed.Seconds())
}
