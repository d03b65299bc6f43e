package search

import (
	"net/http"
	"sort"

	"github.com/bibliograph/bibliograph/internal/store"
	apperrors "github.com/bibliograph/bibliograph/pkg/errors"
)

// SortMode selects the ordering applied to results after retrieval.
type SortMode string

const (
	SortRelevance   SortMode = "relevance"
	SortPageRank    SortMode = "pagerank"
	SortCloseness   SortMode = "closeness"
	SortBetweenness SortMode = "betweenness"
	SortOccurrences SortMode = "occurrences"
	SortTitle       SortMode = "title"
)

// ParseSortMode validates a sort selector. The empty string means relevance.
func ParseSortMode(s string) (SortMode, error) {
	switch SortMode(s) {
	case "":
		return SortRelevance, nil
	case SortRelevance, SortPageRank, SortCloseness, SortBetweenness, SortOccurrences, SortTitle:
		return SortMode(s), nil
	}
	return "", apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "unknown sort mode %q", s)
}

// SortKeyword orders keyword matches in place. Relevance is the tier order:
// priority asc, match count desc, title asc.
func SortKeyword(matches []KeywordMatch, mode SortMode) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		switch mode {
		case SortPageRank, SortCloseness, SortBetweenness:
			if less, decided := metricLess(a.DocumentMeta, b.DocumentMeta, mode); decided {
				return less
			}
		case SortOccurrences:
			if a.MatchCount != b.MatchCount {
				return a.MatchCount > b.MatchCount
			}
		case SortTitle:
		default:
			if a.Priority != b.Priority {
				return a.Priority < b.Priority
			}
			if a.MatchCount != b.MatchCount {
				return a.MatchCount > b.MatchCount
			}
		}
		return titleLess(a.DocumentMeta, b.DocumentMeta)
	})
}

// SortPattern orders pattern matches in place. Relevance is priority asc,
// distinct matched terms desc, total occurrences desc, title asc.
func SortPattern(matches []PatternMatch, mode SortMode) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		switch mode {
		case SortPageRank, SortCloseness, SortBetweenness:
			if less, decided := metricLess(a.DocumentMeta, b.DocumentMeta, mode); decided {
				return less
			}
		case SortOccurrences:
			if a.TotalOccurrences != b.TotalOccurrences {
				return a.TotalOccurrences > b.TotalOccurrences
			}
		case SortTitle:
		default:
			if a.Priority != b.Priority {
				return a.Priority < b.Priority
			}
			if a.TermCount != b.TermCount {
				return a.TermCount > b.TermCount
			}
			if a.TotalOccurrences != b.TotalOccurrences {
				return a.TotalOccurrences > b.TotalOccurrences
			}
		}
		return titleLess(a.DocumentMeta, b.DocumentMeta)
	})
}

// metricLess compares two documents on a centrality metric. Documents
// without scores sort after scored ones. The second return reports whether
// the comparison was decisive; ties fall through to the title order.
func metricLess(a, b store.DocumentMeta, mode SortMode) (bool, bool) {
	av, aok := centralityValue(a, mode)
	bv, bok := centralityValue(b, mode)
	if aok != bok {
		return aok, true
	}
	if aok && av != bv {
		return av > bv, true
	}
	return false, false
}

func centralityValue(meta store.DocumentMeta, mode SortMode) (float64, bool) {
	if meta.Centrality == nil {
		return 0, false
	}
	switch mode {
	case SortPageRank:
		return meta.Centrality.PageRank, true
	case SortCloseness:
		return meta.Centrality.Closeness, true
	case SortBetweenness:
		return meta.Centrality.Betweenness, true
	}
	return 0, false
}

func titleLess(a, b store.DocumentMeta) bool {
	if a.Title != b.Title {
		return a.Title < b.Title
	}
	return a.ID < b.ID
}
