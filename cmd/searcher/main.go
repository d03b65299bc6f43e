// Command searcher starts the query service.
//
// It serves keyword, pattern, and content searches over the inverted index,
// similarity lookups over the document graph, and centrality leaderboards.
// Results are cached in Redis when available, query events are published to
// Kafka for the analytics service, and cache invalidations arriving from the
// indexer flush stale entries.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
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
	"github.com/bibliograph/bibliograph/internal/search"
	"github.com/bibliograph/bibliograph/internal/store/driver"
	"github.com/bibliograph/bibliograph/pkg/config"
	"github.com/bibliograph/bibliograph/pkg/health"
	"github.com/bibliograph/bibliograph/pkg/httpserver"
	"github.com/bibliograph/bibliograph/pkg/kafka"
	"github.com/bibliograph/bibliograph/pkg/logger"
	"github.com/bibliograph/bibliograph/pkg/metrics"
	"github.com/bibliograph/bibliograph/pkg/middleware"
	pkgredis "github.com/bibliograph/bibliograph/pkg/redis"
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
	slog.Info("starting search service", "port", cfg.Server.Port, "driver", cfg.Storage.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	st, err := driver.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()
	slog.Info("store opened", "driver", cfg.Storage.Driver)

	var queryCache *search.QueryCache
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		queryCache = search.NewQueryCache(redisClient, cfg.Redis, m)
		slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	eventsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
	defer eventsProducer.Close()
	collector := analytics.NewCollector(eventsProducer, 10000)
	collector.Start(ctx)
	defer collector.Close()
	slog.Info("query event collector started", "topic", cfg.Kafka.Topics.SearchEvents)

	if queryCache != nil {
		invalidations := kafka.NewConsumer(
			cfg.Kafka,
			cfg.Kafka.Topics.CacheInvalidate,
			queryCache.InvalidationHandler(),
		)
		defer invalidations.Close()
		go func() {
			if err := invalidations.Start(ctx); err != nil && ctx.Err() == nil {
				slog.Error("invalidation consumer error", "error", err)
			}
		}()
		slog.Info("cache invalidation consumer started", "topic", cfg.Kafka.Topics.CacheInvalidate)
	}

	resolver := search.NewResolver(st, cfg.Search)
	h := search.NewHandler(resolver, queryCache, collector, m, cfg.Search)

	checker := health.NewChecker()
	checker.Register("store", health.CheckFunc(st.Ping))
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	if cfg.Metrics.Enabled {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RequestID()(chain)

	if err := httpserver.Serve(ctx, cfg.Server, chain); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}
