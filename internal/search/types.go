// Package search resolves queries against the inverted index. Keyword
// queries walk three tiers of decreasing precision (title substring, exact
// top-term hit, exact posting hit); pattern queries run a compiled regular
// expression over titles and the vocabulary; content queries scan the stored
// texts. Results are hydrated with document metadata and centrality scores
// and ordered by a caller-selected sort mode.
package search

import "github.com/bibliograph/bibliograph/internal/store"

// Match tiers, lowest priority number wins during deduplication.
const (
	TierTitle    = 0
	TierTopTerms = 1
	TierPostings = 2
)

// tierName maps a priority to the source label carried on results.
func tierName(priority int) string {
	switch priority {
	case TierTitle:
		return "title"
	case TierTopTerms:
		return "top_terms"
	default:
		return "postings"
	}
}

// KeywordMatch is one keyword-mode hit. MatchCount is the term frequency
// from the winning tier; title-tier hits carry no count.
type KeywordMatch struct {
	store.DocumentMeta
	Source     string `json:"source"`
	MatchCount int    `json:"match_count"`
	Priority   int    `json:"priority"`
}

// PatternMatch is one pattern-mode hit. MatchedTerms lists the distinct
// vocabulary terms the pattern matched in this document, sorted; title-only
// hits keep an empty term set.
type PatternMatch struct {
	store.DocumentMeta
	MatchedTerms     []string `json:"matched_terms"`
	TermCount        int      `json:"term_count"`
	TotalOccurrences int      `json:"total_occurrences"`
	Priority         int      `json:"priority"`
}

// ContentMatch is one content-scan hit with its raw occurrence count.
type ContentMatch struct {
	store.DocumentMeta
	Occurrences int `json:"occurrences"`
}

// SimilarDocument is a graph neighbor hydrated with metadata.
type SimilarDocument struct {
	store.DocumentMeta
	Distance   float64 `json:"distance"`
	Similarity float64 `json:"similarity"`
}

// KeywordStats reports per-tier distinct document counts for one query.
type KeywordStats struct {
	Query        string `json:"query"`
	Token        string `json:"token"`
	TitleDocs    int    `json:"title_docs"`
	TopTermDocs  int    `json:"top_term_docs"`
	PostingDocs  int    `json:"posting_docs"`
	DistinctDocs int    `json:"distinct_docs"`
}

// PatternStats reports vocabulary coverage and per-tier document counts
// for one pattern. SampleTerms holds at most the first ten matched terms.
type PatternStats struct {
	Pattern      string   `json:"pattern"`
	MatchedTerms int      `json:"matched_terms"`
	SampleTerms  []string `json:"sample_terms"`
	TitleDocs    int      `json:"title_docs"`
	TopTermDocs  int      `json:"top_term_docs"`
	PostingDocs  int      `json:"posting_docs"`
	DistinctDocs int      `json:"distinct_docs"`
}

// TierGroups holds the keyword tiers as separate hit lists, without the
// cross-tier deduplication applied by SearchKeyword.
type TierGroups struct {
	Title    []KeywordMatch `json:"title"`
	TopTerms []KeywordMatch `json:"top_terms"`
	Postings []KeywordMatch `json:"postings"`
}
