// Package metrics defines the Prometheus collectors used across the
// pipeline and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the services record into.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   *prometheus.HistogramVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	DocsIndexedTotal     prometheus.Counter
	DocsSkippedTotal     prometheus.Counter
	PostingsWrittenTotal prometheus.Counter
	SimilarityPairsTotal prometheus.Counter
	SimilarityEdgesKept  prometheus.Counter
	GraphFlushesTotal    *prometheus.CounterVec
	CentralityDuration   *prometheus.HistogramVec
	PageRankIterations   prometheus.Gauge
	CircuitBreakerState  *prometheus.GaugeVec
}

// New registers all collectors with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers all collectors with reg. Tests pass a
// throwaway registry so repeated construction does not collide.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, path, and status.",
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "path"}),

		HTTPRequestsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Requests currently being served.",
		}),

		SearchQueriesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "search_queries_total",
			Help: "Search queries by result type (hit, zero_result, error).",
		}, []string{"result_type"}),

		SearchLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "search_latency_seconds",
			Help:    "Query latency split by cache status.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"cache_status"}),

		SearchResultsCount: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "search_results_count",
			Help:    "Results returned per query.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		}, []string{}),

		CacheHitsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Query cache hits.",
		}),

		CacheMissesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Query cache misses.",
		}),

		DocsIndexedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "docs_indexed_total",
			Help: "Documents accepted into the index.",
		}),

		DocsSkippedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "docs_skipped_total",
			Help: "Documents rejected below the minimum token count.",
		}),

		PostingsWrittenTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "postings_written_total",
			Help: "Posting rows written to the index.",
		}),

		SimilarityPairsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "similarity_pairs_total",
			Help: "Document pairs scored during graph builds.",
		}),

		SimilarityEdgesKept: f.NewCounter(prometheus.CounterOpts{
			Name: "similarity_edges_kept_total",
			Help: "Pairs kept under the distance threshold.",
		}),

		GraphFlushesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "graph_flushes_total",
			Help: "Edge batch flushes by status.",
		}, []string{"status"}),

		CentralityDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "centrality_stage_duration_seconds",
			Help:    "Wall-clock duration of each centrality stage.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"stage"}),

		PageRankIterations: f.NewGauge(prometheus.GaugeOpts{
			Name: "pagerank_iterations",
			Help: "Iterations the last PageRank run took to converge.",
		}),

		CircuitBreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Breaker state (0=closed, 1=open, 2=half-open).",
		}, []string{"name"}),
	}
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
