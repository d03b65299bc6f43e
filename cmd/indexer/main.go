// Command indexer builds the inverted index.
//
// In its default streaming mode it consumes document events from Kafka,
// indexes each accepted document, publishes an index-complete event, and
// periodically rebuilds the top-terms table followed by a cache
// invalidation broadcast. With -dir it instead indexes a corpus directory
// in one batch and exits.
//
// Usage:
//
//	go run ./cmd/indexer [-config configs/development.yaml] [-dir data/corpus]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bibliograph/bibliograph/internal/index"
	"github.com/bibliograph/bibliograph/internal/store/driver"
	"github.com/bibliograph/bibliograph/pkg/config"
	"github.com/bibliograph/bibliograph/pkg/kafka"
	"github.com/bibliograph/bibliograph/pkg/logger"
	"github.com/bibliograph/bibliograph/pkg/metrics"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to config file")
	batchDir := flag.String("dir", "", "index this corpus directory and exit instead of consuming from kafka")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting indexer service",
		"driver", cfg.Storage.Driver,
		"min_token_count", cfg.Indexing.MinTokenCount,
		"top_terms_k", cfg.Indexing.TopTermsK,
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

	builder := index.NewBuilder(st, cfg.Indexing, m)

	if *batchDir != "" {
		summary, err := builder.IndexDirectory(ctx, *batchDir)
		if err != nil {
			slog.Error("batch indexing failed", "error", err)
			os.Exit(1)
		}
		slog.Info("indexer finished",
			"files", summary.Files,
			"indexed", summary.Indexed,
			"skipped", summary.Skipped,
		)
		return
	}

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}()
	}

	completions := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
	defer completions.Close()
	invalidations := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.CacheInvalidate)
	defer invalidations.Close()

	consumer := index.NewConsumer(builder, completions, invalidations, m)
	consumer.StartRebuildLoop(ctx, cfg.Indexing.RebuildInterval)

	documents := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest, consumer.Handle)
	defer documents.Close()

	slog.Info("indexer ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.DocumentIngest,
		"group", cfg.Kafka.ConsumerGroup,
		"rebuild_interval", cfg.Indexing.RebuildInterval,
	)
	if err := documents.Start(ctx); err != nil && ctx.Err() == nil {
		slog.Error("consumer error", "error", err)
		os.Exit(1)
	}

	slog.Info("indexer service stopped")
}
