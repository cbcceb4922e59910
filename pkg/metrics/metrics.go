// Package metrics defines the Prometheus metric collectors used by the
// retriever and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the retriever.
type Metrics struct {
	FactsIngestedTotal   *prometheus.CounterVec
	StoreFlushesTotal    *prometheus.CounterVec
	StoreFlushSize       prometheus.Histogram
	WorkerMergesTotal    *prometheus.CounterVec
	MergedRecordsTotal   prometheus.Counter
	MatrixBuildsTotal    *prometheus.CounterVec
	MatrixBuildDuration  *prometheus.HistogramVec
	VocabularySize       prometheus.Gauge
	DocumentCount        prometheus.Gauge
	RetrieveQueriesTotal *prometheus.CounterVec
	RetrieveLatency      prometheus.Histogram
	RetrieveResultsCount prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
}

// New creates all collectors and registers them on reg. Passing
// prometheus.DefaultRegisterer exposes them through Handler.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FactsIngestedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retriever_facts_ingested_total",
				Help: "Total facts ingested by builder role (master, worker).",
			},
			[]string{"role"},
		),
		StoreFlushesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retriever_store_flushes_total",
				Help: "Document store batch flushes by mode (blocking, opportunistic) and status.",
			},
			[]string{"mode", "status"},
		),
		StoreFlushSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "retriever_store_flush_size",
				Help:    "Documents written per store batch flush.",
				Buckets: []float64{1, 10, 100, 500, 1000, 5000},
			},
		),
		WorkerMergesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retriever_worker_merges_total",
				Help: "Worker contributions merged into the master by status.",
			},
			[]string{"status"},
		),
		MergedRecordsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "retriever_merged_records_total",
				Help: "Frequency records re-emitted into the master by the merge task.",
			},
		),
		MatrixBuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retriever_matrix_builds_total",
				Help: "Derived matrix rebuilds by matrix (count, tfidf).",
			},
			[]string{"matrix"},
		),
		MatrixBuildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "retriever_matrix_build_duration_seconds",
				Help:    "Derived matrix build latency in seconds.",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"matrix"},
		),
		VocabularySize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "retriever_vocabulary_size",
				Help: "Distinct tokens in the master vocabulary.",
			},
		),
		DocumentCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "retriever_document_count",
				Help: "Document ids issued by the shared counter.",
			},
		),
		RetrieveQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retriever_queries_total",
				Help: "Retrieve calls by result type (hit, zero_result, error).",
			},
			[]string{"result_type"},
		),
		RetrieveLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "retriever_query_latency_seconds",
				Help:    "Ranking latency in seconds, excluding document lookups.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
			},
		),
		RetrieveResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "retriever_query_results_count",
				Help:    "Number of ranked documents returned per query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "retriever_cache_hits_total",
				Help: "Total number of query cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "retriever_cache_misses_total",
				Help: "Total number of query cache misses.",
			},
		),
	}

	reg.MustRegister(
		m.FactsIngestedTotal,
		m.StoreFlushesTotal,
		m.StoreFlushSize,
		m.WorkerMergesTotal,
		m.MergedRecordsTotal,
		m.MatrixBuildsTotal,
		m.MatrixBuildDuration,
		m.VocabularySize,
		m.DocumentCount,
		m.RetrieveQueriesTotal,
		m.RetrieveLatency,
		m.RetrieveResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

// NewUnregistered returns collectors bound to a private registry. Builders
// fall back to it when no Metrics is supplied.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
