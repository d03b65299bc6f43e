package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/bibliograph/bibliograph/internal/analytics"
	"github.com/bibliograph/bibliograph/internal/store"
	"github.com/bibliograph/bibliograph/pkg/config"
	apperrors "github.com/bibliograph/bibliograph/pkg/errors"
	"github.com/bibliograph/bibliograph/pkg/logger"
	"github.com/bibliograph/bibliograph/pkg/metrics"
	"github.com/bibliograph/bibliograph/pkg/middleware"
	"github.com/bibliograph/bibliograph/pkg/resilience"
)

// Handler serves the search HTTP surface. The cache and collector are
// optional; a nil cache computes every query and a nil collector skips
// event tracking.
type Handler struct {
	resolver  *Resolver
	cache     *QueryCache
	collector *analytics.Collector
	breaker   *resilience.CircuitBreaker
	metrics   *metrics.Metrics
	cfg       config.SearchConfig
	logger    *slog.Logger
}

// NewHandler wires the resolver behind a circuit breaker whose state is
// exported as a gauge.
func NewHandler(resolver *Resolver, cache *QueryCache, collector *analytics.Collector, m *metrics.Metrics, cfg config.SearchConfig) *Handler {
	breaker := resilience.NewCircuitBreaker("search-store", resilience.CircuitBreakerConfig{
		OnStateChange: func(name string, state resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
		},
	})
	return &Handler{
		resolver:  resolver,
		cache:     cache,
		collector: collector,
		breaker:   breaker,
		metrics:   m,
		cfg:       cfg,
		logger:    slog.Default().With("component", "search-handler"),
	}
}

// RegisterRoutes attaches every search endpoint to mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/search/pattern", h.SearchPattern)
	mux.HandleFunc("GET /api/v1/search/grouped", h.SearchGrouped)
	mux.HandleFunc("GET /api/v1/search/stats", h.SearchStats)
	mux.HandleFunc("GET /api/v1/search/content", h.SearchContent)
	mux.HandleFunc("GET /api/v1/documents/{id}/similar", h.SimilarDocuments)
	mux.HandleFunc("GET /api/v1/documents/top", h.TopDocuments)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

type keywordResponse struct {
	Query   string         `json:"query"`
	Sort    string         `json:"sort"`
	Total   int            `json:"total"`
	Results []KeywordMatch `json:"results"`
}

type patternResponse struct {
	Pattern string         `json:"pattern"`
	Sort    string         `json:"sort"`
	Total   int            `json:"total"`
	Results []PatternMatch `json:"results"`
}

type contentResponse struct {
	Pattern string         `json:"pattern"`
	Total   int            `json:"total"`
	Results []ContentMatch `json:"results"`
}

type groupedResponse struct {
	Query string     `json:"query"`
	Total int        `json:"total"`
	Tiers TierGroups `json:"tiers"`
}

// Search handles GET /api/v1/search?q=&sort=&limit=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required"))
		return
	}
	sortMode, err := ParseSortMode(r.URL.Query().Get("sort"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	limit, err := h.parseLimit(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var payload []byte
	var cacheHit bool
	key := CacheKey{Mode: analytics.ModeKeyword, Query: query, Sort: string(sortMode), Limit: limit}
	err = h.execute(func() error {
		var cerr error
		payload, cacheHit, cerr = h.cached(ctx, key, func() ([]byte, error) {
			matches, rerr := h.resolver.SearchKeyword(ctx, query, sortMode, limit)
			if rerr != nil {
				return nil, rerr
			}
			return json.Marshal(keywordResponse{
				Query:   query,
				Sort:    string(sortMode),
				Total:   len(matches),
				Results: matches,
			})
		})
		return cerr
	})
	hits := payloadTotal(payload)
	h.observe(hits, cacheHit, err, start)
	if err != nil {
		log.Error("keyword search failed", "query", query, "error", err)
		h.writeError(w, err)
		return
	}

	h.track(ctx, analytics.QueryEvent{
		Mode:      analytics.ModeKeyword,
		Query:     query,
		Sort:      string(sortMode),
		Hits:      hits,
		LatencyMs: time.Since(start).Milliseconds(),
		CacheHit:  cacheHit,
	})
	log.Info("keyword search served", "query", query, "hits", hits, "cache_hit", cacheHit, "took", time.Since(start))
	h.writeRaw(w, payload)
}

// SearchPattern handles GET /api/v1/search/pattern?p=&sort=&limit=.
func (h *Handler) SearchPattern(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	pattern := r.URL.Query().Get("p")
	if pattern == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'p' is required"))
		return
	}
	if _, err := compilePattern(pattern); err != nil {
		h.writeError(w, err)
		return
	}
	sortMode, err := ParseSortMode(r.URL.Query().Get("sort"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	limit, err := h.parseLimit(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var payload []byte
	var cacheHit bool
	key := CacheKey{Mode: analytics.ModePattern, Query: pattern, Sort: string(sortMode), Limit: limit}
	err = h.execute(func() error {
		var cerr error
		payload, cacheHit, cerr = h.cached(ctx, key, func() ([]byte, error) {
			matches, rerr := h.resolver.SearchPattern(ctx, pattern, sortMode, limit)
			if rerr != nil {
				return nil, rerr
			}
			return json.Marshal(patternResponse{
				Pattern: pattern,
				Sort:    string(sortMode),
				Total:   len(matches),
				Results: matches,
			})
		})
		return cerr
	})
	hits := payloadTotal(payload)
	h.observe(hits, cacheHit, err, start)
	if err != nil {
		log.Error("pattern search failed", "pattern", pattern, "error", err)
		h.writeError(w, err)
		return
	}

	h.track(ctx, analytics.QueryEvent{
		Mode:      analytics.ModePattern,
		Query:     pattern,
		Sort:      string(sortMode),
		Hits:      hits,
		LatencyMs: time.Since(start).Milliseconds(),
		CacheHit:  cacheHit,
	})
	log.Info("pattern search served", "pattern", pattern, "hits", hits, "cache_hit", cacheHit, "took", time.Since(start))
	h.writeRaw(w, payload)
}

// SearchContent handles GET /api/v1/search/content?p=&limit=.
func (h *Handler) SearchContent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	pattern := r.URL.Query().Get("p")
	if pattern == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'p' is required"))
		return
	}
	if _, err := compilePattern(pattern); err != nil {
		h.writeError(w, err)
		return
	}
	limit, err := h.parseLimit(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var payload []byte
	var cacheHit bool
	key := CacheKey{Mode: analytics.ModeContent, Query: pattern, Limit: limit}
	err = h.execute(func() error {
		var cerr error
		payload, cacheHit, cerr = h.cached(ctx, key, func() ([]byte, error) {
			matches, rerr := h.resolver.SearchContent(ctx, pattern, limit)
			if rerr != nil {
				return nil, rerr
			}
			return json.Marshal(contentResponse{
				Pattern: pattern,
				Total:   len(matches),
				Results: matches,
			})
		})
		return cerr
	})
	hits := payloadTotal(payload)
	h.observe(hits, cacheHit, err, start)
	if err != nil {
		log.Error("content search failed", "pattern", pattern, "error", err)
		h.writeError(w, err)
		return
	}

	h.track(ctx, analytics.QueryEvent{
		Mode:      analytics.ModeContent,
		Query:     pattern,
		Hits:      hits,
		LatencyMs: time.Since(start).Milliseconds(),
		CacheHit:  cacheHit,
	})
	log.Info("content search served", "pattern", pattern, "hits", hits, "cache_hit", cacheHit, "took", time.Since(start))
	h.writeRaw(w, payload)
}

// SearchGrouped handles GET /api/v1/search/grouped?q=&limit=, returning the
// keyword tiers as separate lists.
func (h *Handler) SearchGrouped(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required"))
		return
	}
	limit, err := h.parseLimit(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var payload []byte
	var cacheHit bool
	key := CacheKey{Mode: analytics.ModeGrouped, Query: query, Limit: limit}
	err = h.execute(func() error {
		var cerr error
		payload, cacheHit, cerr = h.cached(ctx, key, func() ([]byte, error) {
			groups, rerr := h.resolver.SearchKeywordGrouped(ctx, query, limit)
			if rerr != nil {
				return nil, rerr
			}
			total := len(groups.Title) + len(groups.TopTerms) + len(groups.Postings)
			return json.Marshal(groupedResponse{Query: query, Total: total, Tiers: groups})
		})
		return cerr
	})
	hits := payloadTotal(payload)
	h.observe(hits, cacheHit, err, start)
	if err != nil {
		log.Error("grouped search failed", "query", query, "error", err)
		h.writeError(w, err)
		return
	}

	h.track(ctx, analytics.QueryEvent{
		Mode:      analytics.ModeGrouped,
		Query:     query,
		Hits:      hits,
		LatencyMs: time.Since(start).Milliseconds(),
		CacheHit:  cacheHit,
	})
	log.Info("grouped search served", "query", query, "hits", hits, "took", time.Since(start))
	h.writeRaw(w, payload)
}

// SearchStats handles GET /api/v1/search/stats?q=|?p=.
func (h *Handler) SearchStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	pattern := r.URL.Query().Get("p")

	var result any
	var err error
	switch {
	case query != "":
		err = h.execute(func() error {
			var serr error
			result, serr = h.resolver.KeywordStats(ctx, query)
			return serr
		})
	case pattern != "":
		if _, cerr := compilePattern(pattern); cerr != nil {
			h.writeError(w, cerr)
			return
		}
		err = h.execute(func() error {
			var serr error
			result, serr = h.resolver.PatternStats(ctx, pattern)
			return serr
		})
	default:
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "one of 'q' or 'p' is required"))
		return
	}
	if err != nil {
		log.Error("search stats failed", "query", query, "pattern", pattern, "error", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// SimilarDocuments handles GET /api/v1/documents/{id}/similar?limit=.
func (h *Handler) SimilarDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "document id must be an integer"))
		return
	}
	limit, err := h.parseLimit(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var neighbors []SimilarDocument
	err = h.execute(func() error {
		var serr error
		neighbors, serr = h.resolver.SimilarDocuments(ctx, id, limit)
		return serr
	})
	if err != nil {
		if !errors.Is(err, apperrors.ErrDocumentNotFound) {
			log.Error("similar documents failed", "document_id", id, "error", err)
		}
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"document_id": id,
		"total":       len(neighbors),
		"neighbors":   neighbors,
	})
}

// TopDocuments handles GET /api/v1/documents/top?metric=&limit=.
func (h *Handler) TopDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	metric := r.URL.Query().Get("metric")
	limit, err := h.parseLimit(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var docs []store.DocumentMeta
	err = h.execute(func() error {
		var serr error
		docs, serr = h.resolver.TopDocuments(ctx, metric, limit)
		return serr
	})
	if err != nil {
		log.Error("centrality leaderboard failed", "metric", metric, "error", err)
		h.writeError(w, err)
		return
	}
	if metric == "" {
		metric = store.MetricPageRank
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"metric":  metric,
		"total":   len(docs),
		"results": docs,
	})
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

// CacheInvalidate handles POST /api/v1/cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// execute runs fn behind the circuit breaker. Client-level failures (4xx)
// pass through without affecting the breaker; only store-level failures
// count toward opening it.
func (h *Handler) execute(fn func() error) error {
	var clientErr error
	err := h.breaker.Execute(func() error {
		if err := fn(); err != nil {
			if apperrors.HTTPStatusCode(err) < http.StatusInternalServerError {
				clientErr = err
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	return clientErr
}

func (h *Handler) cached(ctx context.Context, key CacheKey, compute func() ([]byte, error)) ([]byte, bool, error) {
	if h.cache == nil {
		payload, err := compute()
		return payload, false, err
	}
	return h.cache.GetOrCompute(ctx, key, compute)
}

func (h *Handler) observe(hits int, cacheHit bool, err error, start time.Time) {
	status := "miss"
	if cacheHit {
		status = "hit"
	}
	h.metrics.SearchLatency.WithLabelValues(status).Observe(time.Since(start).Seconds())

	switch {
	case err == nil && hits == 0:
		h.metrics.SearchQueriesTotal.WithLabelValues("zero_result").Inc()
	case err == nil:
		h.metrics.SearchQueriesTotal.WithLabelValues("hit").Inc()
	case apperrors.HTTPStatusCode(err) >= http.StatusInternalServerError:
		h.metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
	}
	if err == nil {
		h.metrics.SearchResultsCount.WithLabelValues().Observe(float64(hits))
	}
}

func (h *Handler) track(ctx context.Context, event analytics.QueryEvent) {
	if h.collector == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	event.RequestID = middleware.GetRequestID(ctx)
	h.collector.Track(event)
}

func (h *Handler) parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return h.cfg.DefaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer")
	}
	if h.cfg.MaxResults > 0 && limit > h.cfg.MaxResults {
		limit = h.cfg.MaxResults
	}
	return limit, nil
}

func payloadTotal(payload []byte) int {
	if payload == nil {
		return 0
	}
	var envelope struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return 0
	}
	return envelope.Total
}

func (h *Handler) writeRaw(w http.ResponseWriter, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := "internal error"

	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		message = appErr.Error()
	case errors.Is(err, resilience.ErrCircuitOpen):
		status = http.StatusServiceUnavailable
		message = "search temporarily unavailable"
	case status < http.StatusInternalServerError:
		message = err.Error()
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}
