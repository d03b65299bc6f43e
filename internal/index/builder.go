// Package index builds and maintains the inverted index: one posting per
// (term, document) pair with its occurrence count, plus the per-document
// top-terms shortlist derived from the postings.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/bibliograph/bibliograph/internal/corpus"
	"github.com/bibliograph/bibliograph/internal/ingest"
	"github.com/bibliograph/bibliograph/internal/store"
	"github.com/bibliograph/bibliograph/pkg/config"
	apperrors "github.com/bibliograph/bibliograph/pkg/errors"
	"github.com/bibliograph/bibliograph/pkg/metrics"
)

// Store is the slice of the storage layer the builder writes through.
type Store interface {
	store.DocumentStore
	store.IndexStore
}

// Builder writes documents and their postings into the store and rebuilds
// the derived top-terms table. Indexing the same document twice overwrites
// its postings rather than accumulating them.
type Builder struct {
	store   Store
	cfg     config.IndexingConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewBuilder(st Store, cfg config.IndexingConfig, m *metrics.Metrics) *Builder {
	return &Builder{
		store:   st,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "index-builder"),
	}
}

// CountTerms tokenizes text and tallies the frequency of each term.
func CountTerms(text string) map[string]int {
	tokens := corpus.Tokenize(text)
	counts := make(map[string]int, len(tokens)/2+1)
	for _, tok := range tokens {
		counts[tok]++
	}
	return counts
}

// IndexDocument persists the document row, its raw text, and one posting per
// distinct term. The stored token count is recomputed from the text so it
// always agrees with the postings.
func (b *Builder) IndexDocument(ctx context.Context, doc store.Document, text string) (int64, error) {
	counts := CountTerms(text)
	total := 0
	for _, c := range counts {
		total += c
	}
	doc.TokenCount = total

	docID, err := b.store.UpsertDocument(ctx, doc)
	if err != nil {
		return 0, fmt.Errorf("upserting document %d: %w", doc.ExternalID, err)
	}
	if err := b.store.SaveText(ctx, docID, text); err != nil {
		return 0, fmt.Errorf("saving text for document %d: %w", docID, err)
	}

	terms := make([]string, 0, len(counts))
	for t := range counts {
		terms = append(terms, t)
	}
	ids, err := b.store.UpsertTerms(ctx, terms)
	if err != nil {
		return 0, fmt.Errorf("resolving %d terms: %w", len(terms), err)
	}

	byID := make(map[int64]int, len(counts))
	for t, c := range counts {
		byID[ids[t]] = c
	}
	if err := b.store.UpsertPostings(ctx, docID, byID); err != nil {
		return 0, fmt.Errorf("writing postings for document %d: %w", docID, err)
	}

	b.metrics.DocsIndexedTotal.Inc()
	b.metrics.PostingsWrittenTotal.Add(float64(len(byID)))
	b.logger.Info("document indexed",
		"doc_id", docID,
		"external_id", doc.ExternalID,
		"tokens", total,
		"unique_terms", len(counts),
	)
	return docID, nil
}

// RebuildTopTerms drops and recreates the top-terms table: for every
// document, the K highest-count postings excluding stop words and terms of
// one or two characters, ranked by count descending then term ascending.
func (b *Builder) RebuildTopTerms(ctx context.Context) error {
	start := time.Now()

	terms, err := b.store.AllTerms(ctx)
	if err != nil {
		return fmt.Errorf("loading vocabulary: %w", err)
	}
	text := make(map[int64]string, len(terms))
	for _, t := range terms {
		text[t.ID] = t.Text
	}

	perDoc := make(map[int64][]store.TopTerm)
	err = b.store.ForEachPosting(ctx, func(p store.Posting) error {
		w, ok := text[p.TermID]
		if !ok || len(w) <= 2 || corpus.IsStopWord(w) {
			return nil
		}
		perDoc[p.DocID] = append(perDoc[p.DocID], store.TopTerm{
			DocID:  p.DocID,
			TermID: p.TermID,
			Term:   w,
			Count:  p.Count,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("scanning postings: %w", err)
	}

	var rows []store.TopTerm
	for _, docTerms := range perDoc {
		sort.Slice(docTerms, func(i, j int) bool {
			if docTerms[i].Count != docTerms[j].Count {
				return docTerms[i].Count > docTerms[j].Count
			}
			return docTerms[i].Term < docTerms[j].Term
		})
		k := b.cfg.TopTermsK
		if len(docTerms) < k {
			k = len(docTerms)
		}
		for i := 0; i < k; i++ {
			docTerms[i].Rank = i + 1
			rows = append(rows, docTerms[i])
		}
	}

	if err := b.store.ReplaceTopTerms(ctx, rows); err != nil {
		return fmt.Errorf("replacing top terms: %w", err)
	}
	b.logger.Info("top terms rebuilt",
		"documents", len(perDoc),
		"rows", len(rows),
		"k", b.cfg.TopTermsK,
		"took", time.Since(start),
	)
	return nil
}

// BatchSummary reports the outcome of a directory run.
type BatchSummary struct {
	Files   int
	Indexed int
	Skipped int
}

// IndexDirectory runs the original batch flow: scan the corpus directory,
// apply the acceptance gate, index every surviving file, then rebuild top
// terms once at the end. Rejected files are logged and skipped; any other
// failure aborts the run with work up to that point already committed.
func (b *Builder) IndexDirectory(ctx context.Context, dir string) (BatchSummary, error) {
	files, err := ingest.ListDocumentFiles(dir)
	if err != nil {
		return BatchSummary{}, err
	}
	summary := BatchSummary{Files: len(files)}
	validator := ingest.Validator{MinTokenCount: b.cfg.MinTokenCount}
	b.logger.Info("batch indexing started", "dir", dir, "files", len(files))

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		raw, err := ingest.ReadDocument(path)
		if err == nil {
			err = validator.Validate(raw)
		}
		if err != nil {
			if errors.Is(err, apperrors.ErrDocumentRejected) {
				summary.Skipped++
				b.metrics.DocsSkippedTotal.Inc()
				b.logger.Warn("document skipped", "path", path, "reason", err)
				continue
			}
			return summary, err
		}

		if _, err := b.IndexDocument(ctx, documentFromRaw(raw), raw.Text); err != nil {
			return summary, err
		}
		summary.Indexed++

		if b.cfg.CheckpointEvery > 0 && (i+1)%b.cfg.CheckpointEvery == 0 {
			b.logger.Info("checkpoint",
				"processed", i+1,
				"total", len(files),
				"indexed", summary.Indexed,
				"skipped", summary.Skipped,
			)
		}
	}

	if err := b.RebuildTopTerms(ctx); err != nil {
		return summary, err
	}
	b.logger.Info("batch indexing complete",
		"files", summary.Files,
		"indexed", summary.Indexed,
		"skipped", summary.Skipped,
	)
	return summary, nil
}

func documentFromRaw(raw ingest.RawDocument) store.Document {
	return store.Document{
		ExternalID: raw.ExternalID,
		Title:      raw.Title,
		Author:     raw.Author,
		Language:   raw.Language,
		CoverURL:   raw.CoverURL,
		TokenCount: raw.TokenCount,
	}
}
