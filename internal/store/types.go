package store

import "time"

// Document is a corpus entry. Identity fields are set at ingestion and never
// mutated by the derived-table builders.
type Document struct {
	ID         int64     `json:"id"`
	ExternalID int64     `json:"external_id"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	Language   string    `json:"language"`
	TokenCount int       `json:"token_count"`
	CoverURL   string    `json:"cover_url,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

// Term is a normalized token with its stable internal identifier.
type Term struct {
	ID   int64
	Text string
}

// Posting records the frequency of a term within a document.
type Posting struct {
	TermID int64
	DocID  int64
	Count  int
}

// TopTerm is one row of a document's top-K term summary. Rank starts at 1.
type TopTerm struct {
	DocID  int64
	TermID int64
	Term   string
	Count  int
	Rank   int
}

// Edge is an undirected similarity edge. Invariant: DocA < DocB,
// Distance and Similarity each in [0,1] and summing to 1.
type Edge struct {
	DocA       int64   `json:"doc_a"`
	DocB       int64   `json:"doc_b"`
	Distance   float64 `json:"distance"`
	Similarity float64 `json:"similarity"`
}

// CentralityScore holds the three per-document graph metrics.
type CentralityScore struct {
	DocID       int64   `json:"doc_id"`
	PageRank    float64 `json:"pagerank"`
	Closeness   float64 `json:"closeness"`
	Betweenness float64 `json:"betweenness"`
}

// DocumentMeta is a document joined with its centrality scores, if any.
type DocumentMeta struct {
	Document
	Centrality *CentralityScore `json:"centrality,omitempty"`
}

// TitleRow pairs a document id with its title for in-memory matching.
type TitleRow struct {
	DocID int64
	Title string
}

// DocCount pairs a document id with a term's occurrence count in it.
type DocCount struct {
	DocID int64
	Count int
}

// TermDocCount is a (term, document, count) row from a tier join.
type TermDocCount struct {
	TermID int64
	DocID  int64
	Count  int
}

// Neighbor is a graph neighbor of a document, ordered by similarity.
type Neighbor struct {
	DocID      int64   `json:"doc_id"`
	Distance   float64 `json:"distance"`
	Similarity float64 `json:"similarity"`
}

// EdgeStats summarises a built similarity graph.
type EdgeStats struct {
	Edges         int64   `json:"edges"`
	MinDistance   float64 `json:"min_distance"`
	AvgDistance   float64 `json:"avg_distance"`
	MaxDistance   float64 `json:"max_distance"`
	MinSimilarity float64 `json:"min_similarity"`
	AvgSimilarity float64 `json:"avg_similarity"`
	MaxSimilarity float64 `json:"max_similarity"`
}

// Centrality metric names accepted by TopByCentrality and the sort modes.
const (
	MetricPageRank    = "pagerank"
	MetricCloseness   = "closeness"
	MetricBetweenness = "betweenness"
)
