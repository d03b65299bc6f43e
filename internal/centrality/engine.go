package centrality

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bibliograph/bibliograph/internal/store"
	"github.com/bibliograph/bibliograph/pkg/config"
	"github.com/bibliograph/bibliograph/pkg/metrics"
	"github.com/bibliograph/bibliograph/pkg/resilience"
	"github.com/bibliograph/bibliograph/pkg/tracing"
)

// Engine orchestrates a full centrality run: load the graph, compute all
// three metrics, and replace the stored scores in one transaction.
type Engine struct {
	store   store.CentralityStore
	cfg     config.CentralityConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewEngine(st store.CentralityStore, cfg config.CentralityConfig, m *metrics.Metrics) *Engine {
	return &Engine{
		store:   st,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "centrality-engine"),
	}
}

// Run recomputes and stores every document's centrality scores. Hitting the
// PageRank iteration cap is logged, not fatal; the last iterate is used.
func (e *Engine) Run(ctx context.Context) error {
	start := time.Now()
	ctx, span := tracing.StartChildSpan(ctx, "centrality.run")
	defer span.End()

	stage := time.Now()
	g, err := Load(ctx, e.store)
	if err != nil {
		return err
	}
	e.observe("load", stage)
	span.SetAttr("documents", len(g.Nodes))
	span.SetAttr("edges", g.EdgeCount())
	e.logger.Info("graph loaded", "documents", len(g.Nodes), "edges", g.EdgeCount())

	stage = time.Now()
	pagerank, iterations, converged := PageRank(g, e.cfg.Damping, e.cfg.MaxIterations, e.cfg.Tolerance)
	e.observe("pagerank", stage)
	e.metrics.PageRankIterations.Set(float64(iterations))
	if !converged && len(g.Nodes) > 0 {
		e.logger.Warn("pagerank hit the iteration cap",
			"iterations", iterations,
			"tolerance", e.cfg.Tolerance,
		)
	}

	stage = time.Now()
	closeness, err := Closeness(ctx, g, e.cfg.Workers)
	if err != nil {
		return fmt.Errorf("computing closeness: %w", err)
	}
	e.observe("closeness", stage)

	stage = time.Now()
	betweenness, err := Betweenness(ctx, g, e.cfg.Workers)
	if err != nil {
		return fmt.Errorf("computing betweenness: %w", err)
	}
	e.observe("betweenness", stage)

	scores := make([]store.CentralityScore, 0, len(g.Nodes))
	for _, id := range g.Nodes {
		scores = append(scores, store.CentralityScore{
			DocID:       id,
			PageRank:    pagerank[id],
			Closeness:   closeness[id],
			Betweenness: betweenness[id],
		})
	}

	stage = time.Now()
	err = resilience.WithTimeout(ctx, e.cfg.WriteTimeout, "replace-centrality", func(ctx context.Context) error {
		return e.store.ReplaceCentrality(ctx, scores)
	})
	if err != nil {
		return fmt.Errorf("writing centrality scores: %w", err)
	}
	e.observe("write", stage)

	e.logger.Info("centrality computed",
		"documents", len(scores),
		"pagerank_iterations", iterations,
		"took", time.Since(start),
	)
	return nil
}

func (e *Engine) observe(stage string, start time.Time) {
	e.metrics.CentralityDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
