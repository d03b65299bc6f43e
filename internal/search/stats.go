package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

const sampleTermLimit = 10

// KeywordStats reports how many distinct documents each tier would return
// for a keyword query, plus the distinct union.
func (r *Resolver) KeywordStats(ctx context.Context, query string) (KeywordStats, error) {
	stats := KeywordStats{Query: query, Token: firstToken(query)}

	raw := strings.ToLower(strings.TrimSpace(query))
	if raw == "" {
		return stats, nil
	}

	distinct := make(map[int64]struct{})

	titles, err := r.store.MatchTitles(ctx, raw)
	if err != nil {
		return KeywordStats{}, fmt.Errorf("matching titles: %w", err)
	}
	stats.TitleDocs = len(titles)
	for _, t := range titles {
		distinct[t.DocID] = struct{}{}
	}

	if stats.Token != "" {
		tops, err := r.store.TopTermCounts(ctx, stats.Token)
		if err != nil {
			return KeywordStats{}, fmt.Errorf("matching top terms: %w", err)
		}
		stats.TopTermDocs = len(tops)
		for _, c := range tops {
			distinct[c.DocID] = struct{}{}
		}

		posts, err := r.store.PostingCounts(ctx, stats.Token)
		if err != nil {
			return KeywordStats{}, fmt.Errorf("matching postings: %w", err)
		}
		stats.PostingDocs = len(posts)
		for _, c := range posts {
			distinct[c.DocID] = struct{}{}
		}
	}

	stats.DistinctDocs = len(distinct)
	return stats, nil
}

// PatternStats reports the vocabulary coverage of a pattern and the
// per-tier distinct document counts, without materialising full results.
func (r *Resolver) PatternStats(ctx context.Context, pattern string) (PatternStats, error) {
	re, err := compilePattern(pattern)
	if err != nil {
		return PatternStats{}, err
	}
	stats := PatternStats{Pattern: pattern, SampleTerms: []string{}}

	distinct := make(map[int64]struct{})

	titles, err := r.store.ListTitles(ctx)
	if err != nil {
		return PatternStats{}, fmt.Errorf("listing titles: %w", err)
	}
	for _, t := range titles {
		if re.MatchString(t.Title) {
			stats.TitleDocs++
			distinct[t.DocID] = struct{}{}
		}
	}

	matched, termIDs, err := r.matchVocabulary(ctx, re)
	if err != nil {
		return PatternStats{}, err
	}
	stats.MatchedTerms = len(termIDs)

	samples := make([]string, 0, len(matched))
	for _, text := range matched {
		samples = append(samples, text)
	}
	sort.Strings(samples)
	if len(samples) > sampleTermLimit {
		samples = samples[:sampleTermLimit]
	}
	stats.SampleTerms = samples

	if len(termIDs) > 0 {
		tops, err := r.store.TopTermsByTermIDs(ctx, termIDs)
		if err != nil {
			return PatternStats{}, fmt.Errorf("joining top terms: %w", err)
		}
		topDocs := make(map[int64]struct{})
		for _, row := range tops {
			topDocs[row.DocID] = struct{}{}
			distinct[row.DocID] = struct{}{}
		}
		stats.TopTermDocs = len(topDocs)

		posts, err := r.store.PostingsByTermIDs(ctx, termIDs)
		if err != nil {
			return PatternStats{}, fmt.Errorf("joining postings: %w", err)
		}
		postDocs := make(map[int64]struct{})
		for _, row := range posts {
			postDocs[row.DocID] = struct{}{}
			distinct[row.DocID] = struct{}{}
		}
		stats.PostingDocs = len(postDocs)
	}

	stats.DistinctDocs = len(distinct)
	return stats, nil
}

// SearchKeywordGrouped resolves a keyword query into three separate tier
// lists, skipping the cross-tier deduplication. Each list carries at most
// limit hits in the tier's own order.
func (r *Resolver) SearchKeywordGrouped(ctx context.Context, query string, limit int) (TierGroups, error) {
	limit = r.clampLimit(limit)
	groups := TierGroups{
		Title:    []KeywordMatch{},
		TopTerms: []KeywordMatch{},
		Postings: []KeywordMatch{},
	}

	raw := strings.ToLower(strings.TrimSpace(query))
	if raw == "" {
		return groups, nil
	}
	token := firstToken(query)

	titles, err := r.store.MatchTitles(ctx, raw)
	if err != nil {
		return TierGroups{}, fmt.Errorf("matching titles: %w", err)
	}

	type tierRow struct {
		docID    int64
		priority int
		count    int
	}
	var rows []tierRow
	for _, t := range titles {
		rows = append(rows, tierRow{docID: t.DocID, priority: TierTitle})
	}
	if token != "" {
		tops, err := r.store.TopTermCounts(ctx, token)
		if err != nil {
			return TierGroups{}, fmt.Errorf("matching top terms: %w", err)
		}
		for _, c := range tops {
			rows = append(rows, tierRow{docID: c.DocID, priority: TierTopTerms, count: c.Count})
		}
		posts, err := r.store.PostingCounts(ctx, token)
		if err != nil {
			return TierGroups{}, fmt.Errorf("matching postings: %w", err)
		}
		for _, c := range posts {
			rows = append(rows, tierRow{docID: c.DocID, priority: TierPostings, count: c.Count})
		}
	}
	if len(rows) == 0 {
		return groups, nil
	}

	seen := make(map[int64]struct{})
	var ids []int64
	for _, row := range rows {
		if _, ok := seen[row.docID]; !ok {
			seen[row.docID] = struct{}{}
			ids = append(ids, row.docID)
		}
	}
	metas, err := r.store.GetDocumentsMeta(ctx, ids)
	if err != nil {
		return TierGroups{}, fmt.Errorf("hydrating documents: %w", err)
	}

	for _, row := range rows {
		meta, ok := metas[row.docID]
		if !ok {
			continue
		}
		match := KeywordMatch{
			DocumentMeta: meta,
			Source:       tierName(row.priority),
			MatchCount:   row.count,
			Priority:     row.priority,
		}
		switch row.priority {
		case TierTitle:
			groups.Title = append(groups.Title, match)
		case TierTopTerms:
			groups.TopTerms = append(groups.TopTerms, match)
		default:
			groups.Postings = append(groups.Postings, match)
		}
	}

	for _, list := range [][]KeywordMatch{groups.Title, groups.TopTerms, groups.Postings} {
		SortKeyword(list, SortRelevance)
	}
	groups.Title = capMatches(groups.Title, limit)
	groups.TopTerms = capMatches(groups.TopTerms, limit)
	groups.Postings = capMatches(groups.Postings, limit)
	return groups, nil
}

func capMatches(matches []KeywordMatch, limit int) []KeywordMatch {
	if len(matches) > limit {
		return matches[:limit]
	}
	return matches
}
