// Command centrality scores the similarity graph.
//
// It loads the full edge set, runs PageRank, closeness, and betweenness
// over the distance-weighted graph, and rewrites the centrality table the
// searcher uses for ranked sorts and leaderboards. It runs once and exits;
// re-run it after the graph changes.
//
// Usage:
//
//	go run ./cmd/centrality [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bibliograph/bibliograph/internal/centrality"
	"github.com/bibliograph/bibliograph/internal/store/driver"
	"github.com/bibliograph/bibliograph/pkg/config"
	"github.com/bibliograph/bibliograph/pkg/logger"
	"github.com/bibliograph/bibliograph/pkg/metrics"
	"github.com/bibliograph/bibliograph/pkg/tracing"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting centrality run",
		"driver", cfg.Storage.Driver,
		"damping", cfg.Centrality.Damping,
		"max_iterations", cfg.Centrality.MaxIterations,
		"workers", cfg.Centrality.Workers,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	st, err := driver.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	engine := centrality.NewEngine(st, cfg.Centrality, m)

	runCtx := ctx
	var span *tracing.Span
	if cfg.Tracing.Enabled {
		runCtx, span = tracing.StartSpan(ctx, "centrality")
	}
	err = engine.Run(runCtx)
	if span != nil {
		span.End()
		span.Log()
	}
	if err != nil {
		slog.Error("centrality run failed", "error", err)
		os.Exit(1)
	}

	slog.Info("centrality run finished")
}
