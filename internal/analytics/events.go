// Package analytics aggregates query events emitted by the searcher. The
// searcher publishes one QueryEvent per request to Kafka; the analytics
// service consumes them, keeps running aggregates in memory, and serves
// them over HTTP.
package analytics

import "time"

// Query modes carried on events, one per search endpoint.
const (
	ModeKeyword = "keyword"
	ModePattern = "pattern"
	ModeContent = "content"
	ModeGrouped = "grouped"
)

// QueryEvent records one executed search query.
type QueryEvent struct {
	Mode      string    `json:"mode"`
	Query     string    `json:"query"`
	Sort      string    `json:"sort,omitempty"`
	Hits      int       `json:"hits"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}
