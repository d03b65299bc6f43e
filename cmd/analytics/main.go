// Command analytics starts the query analytics service.
//
// It consumes search query events and index-complete notifications from
// Kafka, aggregates them in memory (totals, latency percentiles, cache hit
// split, top and zero-result queries), and serves the snapshot at
// GET /api/v1/analytics.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bibliograph/bibliograph/internal/analytics"
	"github.com/bibliograph/bibliograph/pkg/config"
	"github.com/bibliograph/bibliograph/pkg/health"
	"github.com/bibliograph/bibliograph/pkg/httpserver"
	"github.com/bibliograph/bibliograph/pkg/kafka"
	"github.com/bibliograph/bibliograph/pkg/logger"
	"github.com/bibliograph/bibliograph/pkg/metrics"
	"github.com/bibliograph/bibliograph/pkg/middleware"
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
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aggregator := analytics.NewAggregator()

	queries := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents, aggregator.QueryHandler())
	defer queries.Close()
	go func() {
		if err := queries.Start(ctx); err != nil && ctx.Err() == nil {
			slog.Error("query consumer error", "error", err)
		}
	}()
	slog.Info("consuming query events", "topic", cfg.Kafka.Topics.SearchEvents)

	indexed := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete, aggregator.IndexedHandler())
	defer indexed.Close()
	go func() {
		if err := indexed.Start(ctx); err != nil && ctx.Err() == nil {
			slog.Error("index consumer error", "error", err)
		}
	}()
	slog.Info("consuming index events", "topic", cfg.Kafka.Topics.IndexComplete)

	checker := health.NewChecker()
	checker.Register("kafka", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: "consumers active"}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analytics.StatsHandler(aggregator))
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	if cfg.Metrics.Enabled {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	var chain http.Handler = mux
	chain = middleware.RequestID()(chain)

	if err := httpserver.Serve(ctx, cfg.Server, chain); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("analytics service stopped")
}
