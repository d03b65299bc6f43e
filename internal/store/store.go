// Package store defines the persistence boundary for the indexing pipeline.
// The interfaces are deliberately narrow: each pipeline stage depends only on
// the operations it uses, so any backend (PostgreSQL, embedded SQLite, or the
// in-memory store used by tests) can serve it.
package store

import "context"

// DocumentStore owns document identity and raw text.
type DocumentStore interface {
	// UpsertDocument inserts or updates a document by its external
	// identifier and returns the internal id.
	UpsertDocument(ctx context.Context, doc Document) (int64, error)
	// SaveText stores the document's normalized raw text.
	SaveText(ctx context.Context, docID int64, content string) error
	// GetDocument returns a document by internal id, or
	// errors.ErrDocumentNotFound.
	GetDocument(ctx context.Context, id int64) (Document, error)
}

// IndexStore holds the inverted index: vocabulary, postings, top terms.
type IndexStore interface {
	// UpsertTerms resolves each term to its stable id, creating missing
	// ones. Resolution is idempotent across runs.
	UpsertTerms(ctx context.Context, terms []string) (map[string]int64, error)
	// UpsertPostings overwrites the (term, doc) counts for one document.
	UpsertPostings(ctx context.Context, docID int64, counts map[int64]int) error
	// ReplaceTopTerms drops and recreates the whole top-terms table.
	ReplaceTopTerms(ctx context.Context, rows []TopTerm) error
	// ForEachPosting streams every posting row.
	ForEachPosting(ctx context.Context, fn func(Posting) error) error
	// AllTerms returns the full vocabulary.
	AllTerms(ctx context.Context) ([]Term, error)
}

// GraphStore holds the similarity edge set.
type GraphStore interface {
	ForEachPosting(ctx context.Context, fn func(Posting) error) error
	// TruncateEdges clears the edge table before a rebuild.
	TruncateEdges(ctx context.Context) error
	// InsertEdges appends a batch of edges; the builder calls this on
	// every periodic flush.
	InsertEdges(ctx context.Context, edges []Edge) error
	// EdgeStats summarises the stored edge set.
	EdgeStats(ctx context.Context) (EdgeStats, error)
}

// CentralityStore reads the graph and rewrites the centrality table.
type CentralityStore interface {
	// AllDocumentIDs returns every document id, including isolated ones.
	AllDocumentIDs(ctx context.Context) ([]int64, error)
	// AllEdges returns the full edge set.
	AllEdges(ctx context.Context) ([]Edge, error)
	// ReplaceCentrality truncates and rewrites all centrality scores.
	ReplaceCentrality(ctx context.Context, scores []CentralityScore) error
}

// SearchStore serves the read-only query surface.
type SearchStore interface {
	// MatchTitles returns documents whose lowercased title contains sub.
	MatchTitles(ctx context.Context, sub string) ([]TitleRow, error)
	// ListTitles returns every (id, title) pair.
	ListTitles(ctx context.Context) ([]TitleRow, error)
	// TopTermCounts returns per-document counts for an exact top-term hit.
	TopTermCounts(ctx context.Context, term string) ([]DocCount, error)
	// PostingCounts returns per-document counts for an exact posting hit.
	PostingCounts(ctx context.Context, term string) ([]DocCount, error)
	AllTerms(ctx context.Context) ([]Term, error)
	// TopTermsByTermIDs joins a matched-term set against top terms.
	TopTermsByTermIDs(ctx context.Context, termIDs []int64) ([]TermDocCount, error)
	// PostingsByTermIDs joins a matched-term set against postings.
	PostingsByTermIDs(ctx context.Context, termIDs []int64) ([]TermDocCount, error)
	// GetDocumentsMeta returns metadata plus centrality for the given ids.
	GetDocumentsMeta(ctx context.Context, ids []int64) (map[int64]DocumentMeta, error)
	// StreamTexts invokes fn for every stored document text.
	StreamTexts(ctx context.Context, fn func(docID int64, content string) error) error
	// Neighbors returns a document's graph neighbors, most similar first.
	Neighbors(ctx context.Context, docID int64, limit int) ([]Neighbor, error)
	// TopByCentrality returns documents ranked by one centrality metric.
	TopByCentrality(ctx context.Context, metric string, limit int) ([]DocumentMeta, error)
}

// Store is the full persistence surface a backend implements.
type Store interface {
	DocumentStore
	IndexStore
	GraphStore
	CentralityStore
	SearchStore

	Ping(ctx context.Context) error
	Close() error
}
