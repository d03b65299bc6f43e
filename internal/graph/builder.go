package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bibliograph/bibliograph/internal/store"
	"github.com/bibliograph/bibliograph/pkg/config"
	"github.com/bibliograph/bibliograph/pkg/metrics"
	"github.com/bibliograph/bibliograph/pkg/resilience"
	"github.com/bibliograph/bibliograph/pkg/tracing"
)

// batch carries one document's kept edges plus the number of pairs the
// worker examined to produce them.
type batch struct {
	edges []store.Edge
	pairs int
}

// Builder recomputes the similarity graph from the current postings. A
// build truncates the edge table first, so rebuilding is idempotent; edges
// are flushed periodically so an interrupted run keeps committed work.
type Builder struct {
	store   store.GraphStore
	cfg     config.GraphConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewBuilder(st store.GraphStore, cfg config.GraphConfig, m *metrics.Metrics) *Builder {
	return &Builder{
		store:   st,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "graph-builder"),
	}
}

// Build loads every document's term-count vector, scores each unordered
// document pair exactly once, and stores the edges under the distance
// threshold. Pair scoring fans out across workers; a single writer owns all
// store writes, so result order does not affect the outcome.
func (b *Builder) Build(ctx context.Context) error {
	start := time.Now()
	ctx, span := tracing.StartChildSpan(ctx, "graph.build")
	defer span.End()

	vectors, ids, err := b.loadVectors(ctx)
	if err != nil {
		return err
	}
	span.SetAttr("documents", len(ids))
	b.logger.Info("postings loaded", "documents", len(ids))

	if err := b.store.TruncateEdges(ctx); err != nil {
		return fmt.Errorf("truncating edges: %w", err)
	}

	workers := b.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	workCh := make(chan int)
	batchCh := make(chan batch, workers)

	g.Go(func() error {
		defer close(workCh)
		for i := 0; i+1 < len(ids); i++ {
			select {
			case workCh <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var workerWG sync.WaitGroup
	for w := 0; w < workers; w++ {
		workerWG.Add(1)
		g.Go(func() error {
			defer workerWG.Done()
			return b.scorePairs(gctx, ids, vectors, workCh, batchCh)
		})
	}
	go func() {
		workerWG.Wait()
		close(batchCh)
	}()

	var kept, pairs int
	g.Go(func() error {
		var err error
		kept, pairs, err = b.writeEdges(gctx, batchCh)
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}

	b.logStats(ctx, len(ids), kept, pairs, time.Since(start))
	span.SetAttr("edges", kept)
	span.SetAttr("pairs", pairs)
	return nil
}

// loadVectors bulk-reads all postings into per-document sparse vectors and
// returns the document ids in ascending order.
func (b *Builder) loadVectors(ctx context.Context) (map[int64]map[int64]int, []int64, error) {
	ctx, span := tracing.StartChildSpan(ctx, "graph.load")
	defer span.End()

	vectors := make(map[int64]map[int64]int)
	err := b.store.ForEachPosting(ctx, func(p store.Posting) error {
		vec, ok := vectors[p.DocID]
		if !ok {
			vec = make(map[int64]int)
			vectors[p.DocID] = vec
		}
		vec[p.TermID] = p.Count
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("loading postings: %w", err)
	}

	ids := make([]int64, 0, len(vectors))
	for id := range vectors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return vectors, ids, nil
}

// scorePairs processes first-index work items: for index i it scores every
// pair (ids[i], ids[j]) with j > i. Sorted ids keep DocA < DocB on every
// edge.
func (b *Builder) scorePairs(ctx context.Context, ids []int64, vectors map[int64]map[int64]int, work <-chan int, out chan<- batch) error {
	for i := range work {
		docA := ids[i]
		vecA := vectors[docA]

		var edges []store.Edge
		for j := i + 1; j < len(ids); j++ {
			docB := ids[j]
			d := WeightedJaccard(vecA, vectors[docB])
			if d < b.cfg.Threshold {
				edges = append(edges, store.Edge{
					DocA:       docA,
					DocB:       docB,
					Distance:   d,
					Similarity: 1 - d,
				})
			}
		}

		select {
		case out <- batch{edges: edges, pairs: len(ids) - i - 1}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// writeEdges is the single writer: it accumulates kept edges and flushes
// them every FlushEvery processed pairs, then once more at the end.
func (b *Builder) writeEdges(ctx context.Context, batches <-chan batch) (kept, pairs int, err error) {
	var buf []store.Edge
	sinceFlush := 0

	for bt := range batches {
		buf = append(buf, bt.edges...)
		kept += len(bt.edges)
		pairs += bt.pairs
		sinceFlush += bt.pairs

		b.metrics.SimilarityPairsTotal.Add(float64(bt.pairs))
		b.metrics.SimilarityEdgesKept.Add(float64(len(bt.edges)))

		if b.cfg.FlushEvery > 0 && sinceFlush >= b.cfg.FlushEvery {
			if err := b.flush(ctx, buf); err != nil {
				return kept, pairs, err
			}
			b.logger.Info("edges flushed",
				"pairs_processed", pairs,
				"edges_kept", kept,
			)
			buf = buf[:0]
			sinceFlush = 0
		}
	}

	if err := b.flush(ctx, buf); err != nil {
		return kept, pairs, err
	}
	return kept, pairs, nil
}

// flush writes one edge batch, retrying transient store failures.
func (b *Builder) flush(ctx context.Context, edges []store.Edge) error {
	if len(edges) == 0 {
		return nil
	}
	toWrite := make([]store.Edge, len(edges))
	copy(toWrite, edges)

	err := resilience.Retry(ctx, "insert-edges", resilience.RetryConfig{}, func() error {
		return b.store.InsertEdges(ctx, toWrite)
	})
	if err != nil {
		b.metrics.GraphFlushesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("flushing %d edges: %w", len(edges), err)
	}
	b.metrics.GraphFlushesTotal.WithLabelValues("success").Inc()
	return nil
}

// logStats reports the finished graph the way the stats tool prints it:
// edge count against the maximum possible, plus distance and similarity
// ranges.
func (b *Builder) logStats(ctx context.Context, docs, kept, pairs int, took time.Duration) {
	stats, err := b.store.EdgeStats(ctx)
	if err != nil {
		b.logger.Warn("reading edge stats failed", "error", err)
		stats = store.EdgeStats{Edges: int64(kept)}
	}
	maxEdges := docs * (docs - 1) / 2

	b.logger.Info("similarity graph built",
		"documents", docs,
		"pairs_scored", pairs,
		"edges", stats.Edges,
		"max_edges", maxEdges,
		"min_distance", stats.MinDistance,
		"avg_distance", stats.AvgDistance,
		"max_distance", stats.MaxDistance,
		"min_similarity", stats.MinSimilarity,
		"avg_similarity", stats.AvgSimilarity,
		"max_similarity", stats.MaxSimilarity,
		"took", took,
	)
}
