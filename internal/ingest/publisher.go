package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/bibliograph/bibliograph/pkg/kafka"
	"github.com/bibliograph/bibliograph/pkg/metrics"
	"github.com/bibliograph/bibliograph/pkg/resilience"
)

// Publisher emits accepted documents to the document-ingest topic. Events
// are keyed by external id so re-ingests of the same document land on the
// same partition in order.
type Publisher struct {
	producer *kafka.Producer
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewPublisher(producer *kafka.Producer, m *metrics.Metrics) *Publisher {
	return &Publisher{
		producer: producer,
		metrics:  m,
		logger:   slog.Default().With("component", "ingest-publisher"),
	}
}

// Publish sends one document event, retrying transient broker failures.
func (p *Publisher) Publish(ctx context.Context, doc RawDocument) error {
	event := kafka.Event{
		Key: strconv.FormatInt(doc.ExternalID, 10),
		Value: DocumentEvent{
			ExternalID: doc.ExternalID,
			Title:      doc.Title,
			Author:     doc.Author,
			Language:   doc.Language,
			CoverURL:   doc.CoverURL,
			Text:       doc.Text,
			TokenCount: doc.TokenCount,
			IngestedAt: time.Now().UTC(),
		},
	}

	err := resilience.Retry(ctx, "publish-document", resilience.RetryConfig{}, func() error {
		return p.producer.Publish(ctx, event)
	})
	if err != nil {
		return fmt.Errorf("publishing document %d: %w", doc.ExternalID, err)
	}

	p.logger.Debug("document published",
		"external_id", doc.ExternalID,
		"title", doc.Title,
		"token_count", doc.TokenCount,
	)
	return nil
}

// PublishDir runs the batch gate over every corpus file under dir and
// publishes the survivors. It returns how many documents were published and
// how many were skipped.
func (p *Publisher) PublishDir(ctx context.Context, dir string, v Validator) (published, skipped int, err error) {
	files, err := ListDocumentFiles(dir)
	if err != nil {
		return 0, 0, err
	}
	p.logger.Info("scanning corpus directory", "dir", dir, "files", len(files))

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return published, skipped, err
		}

		doc, err := ReadDocument(path)
		if err == nil {
			err = v.Validate(doc)
		}
		if err != nil {
			skipped++
			p.metrics.DocsSkippedTotal.Inc()
			p.logger.Warn("document skipped", "path", path, "reason", err)
			continue
		}

		if err := p.Publish(ctx, doc); err != nil {
			return published, skipped, err
		}
		published++
	}

	p.logger.Info("corpus scan complete",
		"dir", dir,
		"published", published,
		"skipped", skipped,
	)
	return published, skipped, nil
}
