package index

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/bibliograph/bibliograph/internal/ingest"
	apperrors "github.com/bibliograph/bibliograph/pkg/errors"
	"github.com/bibliograph/bibliograph/pkg/kafka"
	"github.com/bibliograph/bibliograph/pkg/metrics"
)

// IndexedEvent is published on the index-complete topic after a document
// lands in the store.
type IndexedEvent struct {
	DocID      int64     `json:"doc_id"`
	ExternalID int64     `json:"external_id"`
	Title      string    `json:"title"`
	TokenCount int       `json:"token_count"`
	IndexedAt  time.Time `json:"indexed_at"`
}

// InvalidateEvent tells searchers to drop cached query results, published
// after a top-terms rebuild changes what queries would return.
type InvalidateEvent struct {
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// Consumer drives the streaming topology: it decodes document events,
// indexes them through the builder, and announces completions. A background
// loop periodically rebuilds top terms when new documents have arrived.
type Consumer struct {
	builder       *Builder
	validator     ingest.Validator
	completions   *kafka.Producer
	invalidations *kafka.Producer
	metrics       *metrics.Metrics
	logger        *slog.Logger

	// Documents indexed since the last top-terms rebuild.
	pending atomic.Int64
}

// NewConsumer wires the builder to the Kafka topology. Either producer may
// be nil, which disables the corresponding announcement.
func NewConsumer(b *Builder, completions, invalidations *kafka.Producer, m *metrics.Metrics) *Consumer {
	return &Consumer{
		builder:       b,
		validator:     ingest.Validator{MinTokenCount: b.cfg.MinTokenCount},
		completions:   completions,
		invalidations: invalidations,
		metrics:       m,
		logger:        slog.Default().With("component", "index-consumer"),
	}
}

// Handle is the kafka.MessageHandler for the document-ingest topic.
// Undecodable messages are logged and dropped so one poison message cannot
// stall the partition; store failures are returned so the offset is retried.
func (c *Consumer) Handle(ctx context.Context, key []byte, value []byte) error {
	event, err := kafka.DecodeJSON[ingest.DocumentEvent](value)
	if err != nil {
		c.logger.Error("failed to decode document event",
			"error", err,
			"key", string(key),
		)
		return nil
	}

	raw := ingest.RawDocument{
		Metadata: ingest.Metadata{
			ExternalID: event.ExternalID,
			Title:      event.Title,
			Author:     event.Author,
			Language:   event.Language,
			CoverURL:   event.CoverURL,
		},
		Text:       event.Text,
		TokenCount: event.TokenCount,
	}
	if err := c.validator.Validate(raw); err != nil {
		if errors.Is(err, apperrors.ErrDocumentRejected) {
			c.metrics.DocsSkippedTotal.Inc()
			c.logger.Warn("document rejected",
				"external_id", event.ExternalID,
				"reason", err,
			)
			return nil
		}
		return err
	}

	docID, err := c.builder.IndexDocument(ctx, documentFromRaw(raw), raw.Text)
	if err != nil {
		return err
	}
	c.pending.Add(1)
	c.announceIndexed(ctx, docID, event)
	return nil
}

func (c *Consumer) announceIndexed(ctx context.Context, docID int64, event ingest.DocumentEvent) {
	if c.completions == nil {
		return
	}
	err := c.completions.Publish(ctx, kafka.Event{
		Key: strconv.FormatInt(docID, 10),
		Value: IndexedEvent{
			DocID:      docID,
			ExternalID: event.ExternalID,
			Title:      event.Title,
			TokenCount: event.TokenCount,
			IndexedAt:  time.Now().UTC(),
		},
	})
	if err != nil {
		c.logger.Error("failed to publish index completion",
			"doc_id", docID,
			"error", err,
		)
	}
}

// StartRebuildLoop rebuilds top terms every interval while documents keep
// arriving, then invalidates searcher caches. A final rebuild runs on
// shutdown when work is still pending.
func (c *Consumer) StartRebuildLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				if c.pending.Load() > 0 {
					c.rebuild(context.Background())
				}
				return
			case <-ticker.C:
				if c.pending.Load() == 0 {
					continue
				}
				c.rebuild(ctx)
			}
		}
	}()
}

func (c *Consumer) rebuild(ctx context.Context) {
	n := c.pending.Swap(0)
	if err := c.builder.RebuildTopTerms(ctx); err != nil {
		c.pending.Add(n)
		c.logger.Error("top-terms rebuild failed", "error", err)
		return
	}
	c.invalidateCaches(ctx, n)
}

func (c *Consumer) invalidateCaches(ctx context.Context, docs int64) {
	if c.invalidations == nil {
		return
	}
	err := c.invalidations.Publish(ctx, kafka.Event{
		Key: "top-terms",
		Value: InvalidateEvent{
			Reason: "top-terms rebuilt after " + strconv.FormatInt(docs, 10) + " documents",
			At:     time.Now().UTC(),
		},
	})
	if err != nil {
		c.logger.Error("failed to publish cache invalidation", "error", err)
	}
}
