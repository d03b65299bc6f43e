// Command ingestion publishes a corpus directory to Kafka.
//
// It scans the corpus layout (one directory per document holding a
// metadata.json and a text file), applies the minimum-length acceptance
// gate, and publishes each surviving document to the document-ingest topic
// for the indexer to consume. It runs once and exits.
//
// Usage:
//
//	go run ./cmd/ingestion [-config configs/development.yaml] [-dir data/corpus]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bibliograph/bibliograph/internal/ingest"
	"github.com/bibliograph/bibliograph/pkg/config"
	"github.com/bibliograph/bibliograph/pkg/kafka"
	"github.com/bibliograph/bibliograph/pkg/logger"
	"github.com/bibliograph/bibliograph/pkg/metrics"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to config file")
	dir := flag.String("dir", "", "corpus directory (defaults to indexing.dataDir)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *dir == "" {
		*dir = cfg.Indexing.DataDir
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting ingestion run",
		"dir", *dir,
		"min_token_count", cfg.Indexing.MinTokenCount,
		"topic", cfg.Kafka.Topics.DocumentIngest,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest)
	defer producer.Close()

	pub := ingest.NewPublisher(producer, m)
	validator := ingest.Validator{MinTokenCount: cfg.Indexing.MinTokenCount}

	published, skipped, err := pub.PublishDir(ctx, *dir, validator)
	if err != nil {
		slog.Error("ingestion run failed",
			"error", err,
			"published", published,
			"skipped", skipped,
		)
		os.Exit(1)
	}

	slog.Info("ingestion run finished", "published", published, "skipped", skipped)
}
