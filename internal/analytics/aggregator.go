package analytics

import (
	"cmp"
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/bibliograph/bibliograph/internal/index"
	"github.com/bibliograph/bibliograph/pkg/kafka"
)

// topQueryCount bounds the top-queries and zero-result lists in the
// snapshot.
const topQueryCount = 10

// AggregatedStats is the snapshot served by the stats endpoint.
type AggregatedStats struct {
	TotalQueries      int64            `json:"total_queries"`
	DocsIndexed       int64            `json:"docs_indexed"`
	CacheHits         int64            `json:"cache_hits"`
	CacheMisses       int64            `json:"cache_misses"`
	ZeroResultCount   int64            `json:"zero_result_count"`
	AvgLatencyMs      float64          `json:"avg_latency_ms"`
	P50LatencyMs      int64            `json:"p50_latency_ms"`
	P95LatencyMs      int64            `json:"p95_latency_ms"`
	P99LatencyMs      int64            `json:"p99_latency_ms"`
	QueriesByMode     map[string]int64 `json:"queries_by_mode"`
	TopQueries        []QueryCount     `json:"top_queries"`
	ZeroResultQueries []QueryCount     `json:"zero_result_queries"`
	QueriesPerMinute  float64          `json:"queries_per_minute"`
}

// QueryCount pairs a query string with how often it was seen.
type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator keeps running aggregates over consumed events. Everything
// lives in memory behind one mutex; restarting the service restarts the
// window. The query total is implicit: one latency sample is recorded per
// query, so len(latencies) is the count.
type Aggregator struct {
	mu          sync.Mutex
	docsIndexed int64
	cacheHits   int64
	cacheMisses int64
	zeroResults int64
	latencies   []int64
	queries     map[string]int64
	zeroQueries map[string]int64
	modes       map[string]int64
	since       time.Time

	log *slog.Logger
}

// NewAggregator creates an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		queries:     make(map[string]int64),
		zeroQueries: make(map[string]int64),
		modes:       make(map[string]int64),
		since:       time.Now(),
		log:         slog.Default().With("component", "analytics-aggregator"),
	}
}

// QueryHandler returns the Kafka handler for the search-events topic.
// Undecodable events are logged and dropped, never retried.
func (a *Aggregator) QueryHandler() kafka.MessageHandler {
	return func(ctx context.Context, key, value []byte) error {
		event, err := kafka.DecodeJSON[QueryEvent](value)
		if err != nil {
			a.log.Error("undecodable query event dropped", "error", err)
			return nil
		}
		a.recordQuery(event)
		return nil
	}
}

// IndexedHandler returns the Kafka handler for the index-complete topic.
func (a *Aggregator) IndexedHandler() kafka.MessageHandler {
	return func(ctx context.Context, key, value []byte) error {
		if _, err := kafka.DecodeJSON[index.IndexedEvent](value); err != nil {
			a.log.Error("undecodable index event dropped", "error", err)
			return nil
		}
		a.mu.Lock()
		a.docsIndexed++
		a.mu.Unlock()
		return nil
	}
}

func (a *Aggregator) recordQuery(event QueryEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.latencies = append(a.latencies, event.LatencyMs)
	a.queries[event.Query]++
	a.modes[event.Mode]++
	if event.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	if event.Hits == 0 {
		a.zeroResults++
		a.zeroQueries[event.Query]++
	}
}

// Stats returns a consistent snapshot of the aggregates.
func (a *Aggregator) Stats() AggregatedStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := AggregatedStats{
		TotalQueries:      int64(len(a.latencies)),
		DocsIndexed:       a.docsIndexed,
		CacheHits:         a.cacheHits,
		CacheMisses:       a.cacheMisses,
		ZeroResultCount:   a.zeroResults,
		QueriesByMode:     maps.Clone(a.modes),
		TopQueries:        topN(a.queries, topQueryCount),
		ZeroResultQueries: topN(a.zeroQueries, topQueryCount),
	}

	if n := len(a.latencies); n > 0 {
		sorted := slices.Clone(a.latencies)
		slices.Sort(sorted)
		var sum int64
		for _, ms := range sorted {
			sum += ms
		}
		stats.AvgLatencyMs = float64(sum) / float64(n)
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}

	if minutes := time.Since(a.since).Minutes(); minutes > 0 {
		stats.QueriesPerMinute = float64(stats.TotalQueries) / minutes
	}
	return stats
}

// percentile picks the pct-th sample from an ascending slice.
func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[min(pct*len(sorted)/100, len(sorted)-1)]
}

// topN ranks counts descending, breaking ties alphabetically, and keeps
// the first n.
func topN(counts map[string]int64, n int) []QueryCount {
	ranked := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		ranked = append(ranked, QueryCount{Query: query, Count: count})
	}
	slices.SortFunc(ranked, func(a, b QueryCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Query, b.Query)
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
