package index

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bibliograph/bibliograph/internal/store"
	"github.com/bibliograph/bibliograph/internal/store/memory"
	"github.com/bibliograph/bibliograph/pkg/config"
	"github.com/bibliograph/bibliograph/pkg/metrics"
)

func newTestBuilder(cfg config.IndexingConfig) (*Builder, *memory.Memory) {
	st := memory.New()
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	return NewBuilder(st, cfg, m), st
}

// TestCountTerms verifies frequency tallying over a normalized text.
func TestCountTerms(t *testing.T) {
	counts := CountTerms("the whale, the whale, the sea")
	want := map[string]int{"the": 3, "whale": 2, "sea": 1}
	if len(counts) != len(want) {
		t.Fatalf("distinct terms = %d, want %d (%v)", len(counts), len(want), counts)
	}
	for term, c := range want {
		if counts[term] != c {
			t.Errorf("count[%q] = %d, want %d", term, counts[term], c)
		}
	}
}

// TestIndexDocument verifies that a document lands with recomputed token
// count and one posting per distinct term.
func TestIndexDocument(t *testing.T) {
	ctx := context.Background()
	b, st := newTestBuilder(config.IndexingConfig{TopTermsK: 50})

	docID, err := b.IndexDocument(ctx, store.Document{ExternalID: 2701, Title: "Moby Dick"},
		"call me ishmael the whale the whale")
	if err != nil {
		t.Fatalf("index document: %v", err)
	}

	doc, err := st.GetDocument(ctx, docID)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	// Tokens: call, ishmael, the, whale, the, whale ("me" is too short).
	if doc.TokenCount != 6 {
		t.Errorf("token count = %d, want 6", doc.TokenCount)
	}

	got := map[string]int{}
	terms, err := st.AllTerms(ctx)
	if err != nil {
		t.Fatalf("all terms: %v", err)
	}
	byID := map[int64]string{}
	for _, term := range terms {
		byID[term.ID] = term.Text
	}
	err = st.ForEachPosting(ctx, func(p store.Posting) error {
		got[byID[p.TermID]] = p.Count
		return nil
	})
	if err != nil {
		t.Fatalf("postings: %v", err)
	}
	want := map[string]int{"call": 1, "ishmael": 1, "the": 2, "whale": 2}
	if len(got) != len(want) {
		t.Fatalf("posting count = %d, want %d (%v)", len(got), len(want), got)
	}
	for term, c := range want {
		if got[term] != c {
			t.Errorf("posting[%q] = %d, want %d", term, got[term], c)
		}
	}
}

// TestRebuildTopTerms verifies exclusion of stop words and short terms plus
// the count-then-term ranking order.
func TestRebuildTopTerms(t *testing.T) {
	ctx := context.Background()
	b, st := newTestBuilder(config.IndexingConfig{TopTermsK: 2})

	// "the" is a stop word and "oak" ties with "elm" on count.
	if _, err := b.IndexDocument(ctx, store.Document{ExternalID: 1, Title: "Trees"},
		"the the the the oak oak elm elm pine"); err != nil {
		t.Fatalf("index: %v", err)
	}
	if err := b.RebuildTopTerms(ctx); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	for _, tc := range []struct {
		term      string
		wantCount int
	}{
		{"elm", 2},
		{"oak", 2},
	} {
		counts, err := st.TopTermCounts(ctx, tc.term)
		if err != nil {
			t.Fatalf("top term counts for %q: %v", tc.term, err)
		}
		if len(counts) != 1 || counts[0].Count != tc.wantCount {
			t.Errorf("top term %q = %+v, want one row with count %d", tc.term, counts, tc.wantCount)
		}
	}

	// K=2 and the tie broke alphabetically, so "pine" fell off.
	if counts, _ := st.TopTermCounts(ctx, "pine"); len(counts) != 0 {
		t.Errorf("pine should not be a top term, got %+v", counts)
	}
	// Stop words never make the list regardless of count.
	if counts, _ := st.TopTermCounts(ctx, "the"); len(counts) != 0 {
		t.Errorf("stop word in top terms: %+v", counts)
	}
}

// TestRebuildTopTermsIdempotent verifies a second rebuild changes nothing.
func TestRebuildTopTermsIdempotent(t *testing.T) {
	ctx := context.Background()
	b, st := newTestBuilder(config.IndexingConfig{TopTermsK: 10})

	if _, err := b.IndexDocument(ctx, store.Document{ExternalID: 1, Title: "A"},
		"whale whale ship"); err != nil {
		t.Fatalf("index: %v", err)
	}
	if err := b.RebuildTopTerms(ctx); err != nil {
		t.Fatalf("first rebuild: %v", err)
	}
	if err := b.RebuildTopTerms(ctx); err != nil {
		t.Fatalf("second rebuild: %v", err)
	}

	counts, err := st.TopTermCounts(ctx, "whale")
	if err != nil {
		t.Fatalf("top term counts: %v", err)
	}
	if len(counts) != 1 || counts[0].Count != 2 {
		t.Errorf("after two rebuilds whale = %+v, want one row with count 2", counts)
	}
}

// TestIndexDirectory verifies the batch flow: acceptance gate, skip
// accounting, and the final top-terms rebuild.
func TestIndexDirectory(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	long := strings.Repeat("whale ship harpoon ocean voyage ", 4)
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("pg_1_moby_dick.txt", long)
	write("pg_2_fragment.txt", "too short")
	write("readme.txt", long)

	b, st := newTestBuilder(config.IndexingConfig{
		MinTokenCount:   10,
		TopTermsK:       50,
		CheckpointEvery: 2,
	})

	summary, err := b.IndexDirectory(ctx, dir)
	if err != nil {
		t.Fatalf("index directory: %v", err)
	}
	if summary.Files != 3 || summary.Indexed != 1 || summary.Skipped != 2 {
		t.Errorf("summary = %+v, want {Files:3 Indexed:1 Skipped:2}", summary)
	}

	rows, err := st.MatchTitles(ctx, "moby")
	if err != nil {
		t.Fatalf("match titles: %v", err)
	}
	if len(rows) != 1 || rows[0].Title != "moby dick" {
		t.Errorf("indexed document titles = %+v", rows)
	}

	counts, err := st.TopTermCounts(ctx, "whale")
	if err != nil {
		t.Fatalf("top term counts: %v", err)
	}
	if len(counts) != 1 || counts[0].Count != 4 {
		t.Errorf("top terms not rebuilt after batch: %+v", counts)
	}
}
