// Command grapher rebuilds the document similarity graph.
//
// It streams the postings table, scores every document pair by weighted
// Jaccard similarity over top-term vectors, and rewrites the edge table
// with pairs above the similarity threshold. It runs once and exits;
// re-run it after the corpus changes.
//
// Usage:
//
//	go run ./cmd/grapher [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bibliograph/bibliograph/internal/graph"
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
	slog.Info("starting graph build",
		"driver", cfg.Storage.Driver,
		"threshold", cfg.Graph.Threshold,
		"workers", cfg.Graph.Workers,
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

	builder := graph.NewBuilder(st, cfg.Graph, m)

	runCtx := ctx
	var span *tracing.Span
	if cfg.Tracing.Enabled {
		runCtx, span = tracing.StartSpan(ctx, "grapher")
	}
	err = builder.Build(runCtx)
	if span != nil {
		span.End()
		span.Log()
	}
	if err != nil {
		slog.Error("graph build failed", "error", err)
		os.Exit(1)
	}

	slog.Info("graph build finished")
}
