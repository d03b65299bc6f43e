package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/bibliograph/bibliograph/internal/search"
	"github.com/bibliograph/bibliograph/internal/store"
	"github.com/bibliograph/bibliograph/internal/store/memory"
	"github.com/bibliograph/bibliograph/pkg/config"
)

// Vocabulary shared by the synthetic corpus. "whale" lands in every tenth
// document's top terms so keyword lookups hit all three tiers.
var benchTerms = []string{
	"whale", "sea", "ship", "captain", "voyage", "harbor", "storm",
	"island", "winter", "garden", "letter", "house", "river", "shadow",
	"wander", "whisper", "wharf", "wheel",
}

// seedSearchCorpus loads numDocs documents with titles, postings, top terms,
// and centrality rows into a fresh in-memory store.
func seedSearchCorpus(b *testing.B, numDocs int) *memory.Memory {
	b.Helper()
	ctx := context.Background()
	st := memory.New()

	ids, err := st.UpsertTerms(ctx, benchTerms)
	if err != nil {
		b.Fatal(err)
	}

	var tops []store.TopTerm
	var scores []store.CentralityScore
	for d := 0; d < numDocs; d++ {
		docID, err := st.UpsertDocument(ctx, store.Document{
			ExternalID: int64(1000 + d),
			Title:      fmt.Sprintf("Volume %d of the %s chronicle", d, benchTerms[d%len(benchTerms)]),
			Author:     fmt.Sprintf("Author %d", d%50),
			TokenCount: 20000,
		})
		if err != nil {
			b.Fatal(err)
		}

		counts := make(map[int64]int, 6)
		for t := 0; t < 6; t++ {
			term := benchTerms[(d+t)%len(benchTerms)]
			count := 100 - t*10 + d%7
			counts[ids[term]] = count
			tops = append(tops, store.TopTerm{
				DocID: docID, TermID: ids[term], Term: term, Count: count, Rank: t + 1,
			})
		}
		if err := st.UpsertPostings(ctx, docID, counts); err != nil {
			b.Fatal(err)
		}
		scores = append(scores, store.CentralityScore{
			DocID:       docID,
			PageRank:    1.0 / float64(d+1),
			Closeness:   0.5,
			Betweenness: float64(d % 13),
		})
	}
	if err := st.ReplaceTopTerms(ctx, tops); err != nil {
		b.Fatal(err)
	}
	if err := st.ReplaceCentrality(ctx, scores); err != nil {
		b.Fatal(err)
	}
	return st
}

func benchResolver(b *testing.B, numDocs int) *search.Resolver {
	b.Helper()
	st := seedSearchCorpus(b, numDocs)
	return search.NewResolver(st, config.SearchConfig{MaxResults: 500, DefaultLimit: 50})
}

func BenchmarkSearchKeyword(b *testing.B) {
	sizes := []int{100, 1000, 10000}
	for _, numDocs := range sizes {
		b.Run(fmt.Sprintf("docs_%d", numDocs), func(b *testing.B) {
			r := benchResolver(b, numDocs)
			b.ReportAllocs()
			for b.Loop() {
				matches, err := r.SearchKeyword(context.Background(), "whale", search.SortRelevance, 50)
				if err != nil {
					b.Fatal(err)
				}
				_ = matches
			}
		})
	}
}

func BenchmarkSearchKeywordByCentrality(b *testing.B) {
	r := benchResolver(b, 1000)
	b.ReportAllocs()
	for b.Loop() {
		matches, err := r.SearchKeyword(context.Background(), "whale", search.SortPageRank, 50)
		if err != nil {
			b.Fatal(err)
		}
		_ = matches
	}
}

func BenchmarkSearchPattern(b *testing.B) {
	patterns := []struct {
		name    string
		pattern string
	}{
		{"prefix", "^wh"},
		{"suffix", "er$"},
		{"contains", "or"},
	}
	r := benchResolver(b, 1000)
	for _, p := range patterns {
		b.Run(p.name, func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				matches, err := r.SearchPattern(context.Background(), p.pattern, search.SortRelevance, 50)
				if err != nil {
					b.Fatal(err)
				}
				_ = matches
			}
		})
	}
}

func BenchmarkSearchKeywordParallel(b *testing.B) {
	r := benchResolver(b, 1000)
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			matches, err := r.SearchKeyword(context.Background(), "sea", search.SortRelevance, 50)
			if err != nil {
				b.Fatal(err)
			}
			_ = matches
		}
	})
}
