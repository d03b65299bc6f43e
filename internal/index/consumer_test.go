package index

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bibliograph/bibliograph/internal/ingest"
	"github.com/bibliograph/bibliograph/internal/store"
	"github.com/bibliograph/bibliograph/pkg/config"
)

func marshalDocumentEvent(t *testing.T, event ingest.DocumentEvent) []byte {
	t.Helper()
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return data
}

// TestConsumerHandle verifies an accepted document event lands in the store
// and bumps the pending rebuild counter.
func TestConsumerHandle(t *testing.T) {
	ctx := context.Background()
	b, st := newTestBuilder(config.IndexingConfig{MinTokenCount: 3, TopTermsK: 50})
	c := NewConsumer(b, nil, nil, b.metrics)

	value := marshalDocumentEvent(t, ingest.DocumentEvent{
		ExternalID: 2701,
		Title:      "Moby Dick",
		Author:     "Melville",
		Text:       "the whale the whale the sea",
		TokenCount: 7,
	})
	if err := c.Handle(ctx, []byte("2701"), value); err != nil {
		t.Fatalf("handle: %v", err)
	}

	rows, err := st.MatchTitles(ctx, "moby")
	if err != nil {
		t.Fatalf("match titles: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one indexed document, got %+v", rows)
	}
	if got := c.pending.Load(); got != 1 {
		t.Errorf("pending = %d, want 1", got)
	}
}

// TestConsumerHandleRejectsShort verifies the acceptance gate: documents under
// the minimum token count are dropped without error so the offset commits.
func TestConsumerHandleRejectsShort(t *testing.T) {
	ctx := context.Background()
	b, st := newTestBuilder(config.IndexingConfig{MinTokenCount: 100, TopTermsK: 50})
	c := NewConsumer(b, nil, nil, b.metrics)

	value := marshalDocumentEvent(t, ingest.DocumentEvent{
		ExternalID: 99,
		Title:      "Fragment",
		Text:       "too short",
		TokenCount: 2,
	})
	if err := c.Handle(ctx, []byte("99"), value); err != nil {
		t.Fatalf("rejected document must not error: %v", err)
	}

	if rows, _ := st.MatchTitles(ctx, "fragment"); len(rows) != 0 {
		t.Errorf("rejected document was stored: %+v", rows)
	}
	if got := c.pending.Load(); got != 0 {
		t.Errorf("pending = %d, want 0", got)
	}
}

// TestConsumerHandleDropsGarbage verifies a poison message is logged and
// dropped rather than retried forever.
func TestConsumerHandleDropsGarbage(t *testing.T) {
	ctx := context.Background()
	b, st := newTestBuilder(config.IndexingConfig{TopTermsK: 50})
	c := NewConsumer(b, nil, nil, b.metrics)

	if err := c.Handle(ctx, []byte("bad"), []byte("{not json")); err != nil {
		t.Fatalf("undecodable message must not error: %v", err)
	}
	if err := st.ForEachPosting(ctx, func(p store.Posting) error {
		t.Errorf("unexpected posting %+v", p)
		return nil
	}); err != nil {
		t.Fatalf("postings: %v", err)
	}
}

// TestStartRebuildLoop verifies the ticker rebuild and the final rebuild on
// shutdown.
func TestStartRebuildLoop(t *testing.T) {
	b, st := newTestBuilder(config.IndexingConfig{MinTokenCount: 1, TopTermsK: 50})
	c := NewConsumer(b, nil, nil, b.metrics)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handle := func(id int64, title, text string, tokens int) {
		t.Helper()
		value := marshalDocumentEvent(t, ingest.DocumentEvent{
			ExternalID: id, Title: title, Text: text, TokenCount: tokens,
		})
		if err := c.Handle(ctx, nil, value); err != nil {
			t.Fatalf("handle %q: %v", title, err)
		}
	}
	waitForTopTerm := func(term string, within time.Duration) bool {
		t.Helper()
		deadline := time.Now().Add(within)
		for time.Now().Before(deadline) {
			counts, err := st.TopTermCounts(context.Background(), term)
			if err != nil {
				t.Fatalf("top term counts: %v", err)
			}
			if len(counts) > 0 {
				return true
			}
			time.Sleep(5 * time.Millisecond)
		}
		return false
	}

	handle(1, "Whales", "whale whale ship", 3)
	c.StartRebuildLoop(ctx, 10*time.Millisecond)
	if !waitForTopTerm("whale", 2*time.Second) {
		t.Fatal("ticker rebuild never produced top terms")
	}

	// New work arrives, then the loop shuts down; the final rebuild must
	// cover it.
	handle(2, "Voyages", "harpoon harpoon voyage", 3)
	cancel()
	if !waitForTopTerm("harpoon", 2*time.Second) {
		t.Fatal("shutdown rebuild never ran")
	}
}
