package search

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/bibliograph/bibliograph/internal/corpus"
	"github.com/bibliograph/bibliograph/internal/store"
	"github.com/bibliograph/bibliograph/pkg/config"
	apperrors "github.com/bibliograph/bibliograph/pkg/errors"
)

// Resolver executes queries against the search store and hydrates hits with
// document metadata and centrality scores.
type Resolver struct {
	store  store.SearchStore
	cfg    config.SearchConfig
	logger *slog.Logger
}

// NewResolver creates a Resolver backed by st.
func NewResolver(st store.SearchStore, cfg config.SearchConfig) *Resolver {
	return &Resolver{
		store:  st,
		cfg:    cfg,
		logger: slog.Default().With("component", "search-resolver"),
	}
}

// SearchKeyword resolves a keyword query through the three tiers: title
// substring on the raw query, exact top-term hit, exact posting hit. A
// document appearing in several tiers keeps its best tier; within a tier
// the higher count wins.
func (r *Resolver) SearchKeyword(ctx context.Context, query string, mode SortMode, limit int) ([]KeywordMatch, error) {
	start := time.Now()
	limit = r.clampLimit(limit)

	raw := strings.ToLower(strings.TrimSpace(query))
	if raw == "" {
		return []KeywordMatch{}, nil
	}
	token := firstToken(query)

	type tierHit struct {
		priority int
		count    int
	}
	hits := make(map[int64]tierHit)
	keep := func(docID int64, priority, count int) {
		cur, ok := hits[docID]
		if !ok || priority < cur.priority || (priority == cur.priority && count > cur.count) {
			hits[docID] = tierHit{priority: priority, count: count}
		}
	}

	titles, err := r.store.MatchTitles(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("matching titles: %w", err)
	}
	for _, t := range titles {
		keep(t.DocID, TierTitle, 0)
	}

	if token != "" {
		tops, err := r.store.TopTermCounts(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("matching top terms: %w", err)
		}
		for _, c := range tops {
			keep(c.DocID, TierTopTerms, c.Count)
		}
		posts, err := r.store.PostingCounts(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("matching postings: %w", err)
		}
		for _, c := range posts {
			keep(c.DocID, TierPostings, c.Count)
		}
	}

	if len(hits) == 0 {
		return []KeywordMatch{}, nil
	}

	ids := make([]int64, 0, len(hits))
	for id := range hits {
		ids = append(ids, id)
	}
	metas, err := r.store.GetDocumentsMeta(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrating documents: %w", err)
	}

	matches := make([]KeywordMatch, 0, len(hits))
	for id, hit := range hits {
		meta, ok := metas[id]
		if !ok {
			continue
		}
		matches = append(matches, KeywordMatch{
			DocumentMeta: meta,
			Source:       tierName(hit.priority),
			MatchCount:   hit.count,
			Priority:     hit.priority,
		})
	}
	SortKeyword(matches, mode)
	if len(matches) > limit {
		matches = matches[:limit]
	}

	r.logger.Info("keyword query resolved",
		"query", query,
		"token", token,
		"candidates", len(hits),
		"returned", len(matches),
		"took", time.Since(start),
	)
	return matches, nil
}

// SearchPattern resolves a regular-expression query. The pattern is tested
// against every title and the full vocabulary; matched term ids are joined
// back through top terms and postings. Each (term, document) pair
// contributes its occurrences once even when both joins return it.
func (r *Resolver) SearchPattern(ctx context.Context, pattern string, mode SortMode, limit int) ([]PatternMatch, error) {
	start := time.Now()
	limit = r.clampLimit(limit)

	re, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}

	type patternHit struct {
		priority int
		terms    map[string]int
	}
	hits := make(map[int64]*patternHit)
	touch := func(docID int64, priority int) *patternHit {
		h, ok := hits[docID]
		if !ok {
			h = &patternHit{priority: priority, terms: make(map[string]int)}
			hits[docID] = h
		} else if priority < h.priority {
			h.priority = priority
		}
		return h
	}

	titles, err := r.store.ListTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing titles: %w", err)
	}
	for _, t := range titles {
		if re.MatchString(t.Title) {
			touch(t.DocID, TierTitle)
		}
	}

	matched, termIDs, err := r.matchVocabulary(ctx, re)
	if err != nil {
		return nil, err
	}

	if len(termIDs) > 0 {
		tops, err := r.store.TopTermsByTermIDs(ctx, termIDs)
		if err != nil {
			return nil, fmt.Errorf("joining top terms: %w", err)
		}
		for _, row := range tops {
			h := touch(row.DocID, TierTopTerms)
			if _, seen := h.terms[matched[row.TermID]]; !seen {
				h.terms[matched[row.TermID]] = row.Count
			}
		}
		posts, err := r.store.PostingsByTermIDs(ctx, termIDs)
		if err != nil {
			return nil, fmt.Errorf("joining postings: %w", err)
		}
		for _, row := range posts {
			h := touch(row.DocID, TierPostings)
			if _, seen := h.terms[matched[row.TermID]]; !seen {
				h.terms[matched[row.TermID]] = row.Count
			}
		}
	}

	if len(hits) == 0 {
		return []PatternMatch{}, nil
	}

	ids := make([]int64, 0, len(hits))
	for id := range hits {
		ids = append(ids, id)
	}
	metas, err := r.store.GetDocumentsMeta(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrating documents: %w", err)
	}

	matches := make([]PatternMatch, 0, len(hits))
	for id, hit := range hits {
		meta, ok := metas[id]
		if !ok {
			continue
		}
		terms := make([]string, 0, len(hit.terms))
		total := 0
		for term, count := range hit.terms {
			terms = append(terms, term)
			total += count
		}
		sort.Strings(terms)
		matches = append(matches, PatternMatch{
			DocumentMeta:     meta,
			MatchedTerms:     terms,
			TermCount:        len(terms),
			TotalOccurrences: total,
			Priority:         hit.priority,
		})
	}
	SortPattern(matches, mode)
	if len(matches) > limit {
		matches = matches[:limit]
	}

	r.logger.Info("pattern query resolved",
		"pattern", pattern,
		"matched_terms", len(termIDs),
		"candidates", len(hits),
		"returned", len(matches),
		"took", time.Since(start),
	)
	return matches, nil
}

// SearchContent scans the stored document texts with the compiled pattern,
// counting every occurrence. This is the slow path; it touches each text.
func (r *Resolver) SearchContent(ctx context.Context, pattern string, limit int) ([]ContentMatch, error) {
	start := time.Now()
	limit = r.clampLimit(limit)

	re, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}

	counts := make(map[int64]int)
	scanned := 0
	err = r.store.StreamTexts(ctx, func(docID int64, content string) error {
		scanned++
		if n := len(re.FindAllStringIndex(content, -1)); n > 0 {
			counts[docID] = n
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning texts: %w", err)
	}
	if len(counts) == 0 {
		return []ContentMatch{}, nil
	}

	ids := make([]int64, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	metas, err := r.store.GetDocumentsMeta(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrating documents: %w", err)
	}

	matches := make([]ContentMatch, 0, len(counts))
	for id, n := range counts {
		meta, ok := metas[id]
		if !ok {
			continue
		}
		matches = append(matches, ContentMatch{DocumentMeta: meta, Occurrences: n})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Occurrences != matches[j].Occurrences {
			return matches[i].Occurrences > matches[j].Occurrences
		}
		return titleLess(matches[i].DocumentMeta, matches[j].DocumentMeta)
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	r.logger.Info("content scan resolved",
		"pattern", pattern,
		"scanned", scanned,
		"matched", len(counts),
		"returned", len(matches),
		"took", time.Since(start),
	)
	return matches, nil
}

// SimilarDocuments returns a document's graph neighbors, most similar
// first, hydrated with metadata. Unknown ids map to ErrDocumentNotFound.
func (r *Resolver) SimilarDocuments(ctx context.Context, docID int64, limit int) ([]SimilarDocument, error) {
	limit = r.clampLimit(limit)

	self, err := r.store.GetDocumentsMeta(ctx, []int64{docID})
	if err != nil {
		return nil, fmt.Errorf("loading document %d: %w", docID, err)
	}
	if _, ok := self[docID]; !ok {
		return nil, apperrors.Newf(apperrors.ErrDocumentNotFound, http.StatusNotFound, "document %d", docID)
	}

	neighbors, err := r.store.Neighbors(ctx, docID, limit)
	if err != nil {
		return nil, fmt.Errorf("loading neighbors of %d: %w", docID, err)
	}
	if len(neighbors) == 0 {
		return []SimilarDocument{}, nil
	}

	ids := make([]int64, 0, len(neighbors))
	for _, n := range neighbors {
		ids = append(ids, n.DocID)
	}
	metas, err := r.store.GetDocumentsMeta(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrating neighbors: %w", err)
	}

	out := make([]SimilarDocument, 0, len(neighbors))
	for _, n := range neighbors {
		meta, ok := metas[n.DocID]
		if !ok {
			continue
		}
		out = append(out, SimilarDocument{
			DocumentMeta: meta,
			Distance:     n.Distance,
			Similarity:   n.Similarity,
		})
	}
	return out, nil
}

// TopDocuments returns the centrality leaderboard for one metric. The
// empty metric defaults to pagerank.
func (r *Resolver) TopDocuments(ctx context.Context, metric string, limit int) ([]store.DocumentMeta, error) {
	limit = r.clampLimit(limit)

	switch metric {
	case "":
		metric = store.MetricPageRank
	case store.MetricPageRank, store.MetricCloseness, store.MetricBetweenness:
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "unknown centrality metric %q", metric)
	}
	return r.store.TopByCentrality(ctx, metric, limit)
}

// matchVocabulary filters the full term list through re, returning the
// id-to-text mapping and the matched ids.
func (r *Resolver) matchVocabulary(ctx context.Context, re *regexp.Regexp) (map[int64]string, []int64, error) {
	terms, err := r.store.AllTerms(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("loading vocabulary: %w", err)
	}
	matched := make(map[int64]string)
	var ids []int64
	for _, term := range terms {
		if re.MatchString(term.Text) {
			matched[term.ID] = term.Text
			ids = append(ids, term.ID)
		}
	}
	return matched, ids, nil
}

func (r *Resolver) clampLimit(limit int) int {
	if limit <= 0 {
		limit = r.cfg.DefaultLimit
	}
	if r.cfg.MaxResults > 0 && limit > r.cfg.MaxResults {
		limit = r.cfg.MaxResults
	}
	return limit
}

// firstToken reduces a keyword query to its leading index token, the same
// normalization the index applies to document text.
func firstToken(query string) string {
	if toks := corpus.Tokenize(query); len(toks) > 0 {
		return toks[0]
	}
	return ""
}

// compilePattern compiles a user pattern case-insensitively. Compile
// failures surface as ErrInvalidPattern carrying the compiler diagnostic.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, apperrors.New(apperrors.ErrInvalidPattern, http.StatusBadRequest, "empty pattern")
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrInvalidPattern, http.StatusBadRequest, err.Error())
	}
	return re, nil
}
