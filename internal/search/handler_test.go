package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bibliograph/bibliograph/internal/store"
	"github.com/bibliograph/bibliograph/internal/store/memory"
	"github.com/bibliograph/bibliograph/pkg/config"
	"github.com/bibliograph/bibliograph/pkg/metrics"
)

func newTestHandler(t *testing.T) (*Handler, *memory.Memory, map[string]int64) {
	t.Helper()
	st, ids := seedSearchStore(t)
	cfg := config.SearchConfig{MaxResults: 100, DefaultLimit: 50}
	resolver := NewResolver(st, cfg)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	return NewHandler(resolver, nil, nil, m, cfg), st, ids
}

func serve(t *testing.T, h *Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return out
}

// TestHandlerSearch drives the keyword endpoint end to end.
func TestHandlerSearch(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := serve(t, h, http.MethodGet, "/api/v1/search?q=whale")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	resp := decode[keywordResponse](t, rec)
	if resp.Total != 2 || len(resp.Results) != 2 {
		t.Fatalf("total = %d, results = %d", resp.Total, len(resp.Results))
	}
	if resp.Results[0].Title != "Whale Tales" || resp.Results[1].Title != "Moby Dick" {
		t.Errorf("order = %q, %q", resp.Results[0].Title, resp.Results[1].Title)
	}
}

// TestHandlerSearchValidation covers the request rejections.
func TestHandlerSearchValidation(t *testing.T) {
	h, _, _ := newTestHandler(t)

	cases := map[string]string{
		"missing query": "/api/v1/search",
		"bad limit":     "/api/v1/search?q=whale&limit=0",
		"non-numeric":   "/api/v1/search?q=whale&limit=ten",
		"bad sort":      "/api/v1/search?q=whale&sort=alphabetic",
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			rec := serve(t, h, http.MethodGet, target)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

// TestHandlerPattern drives the pattern endpoint, including the typed
// invalid-pattern rejection.
func TestHandlerPattern(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := serve(t, h, http.MethodGet, "/api/v1/search/pattern?p=%5Ewh")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decode[patternResponse](t, rec)
	if resp.Total != 2 || resp.Results[0].Title != "Whale Tales" {
		t.Errorf("results = %+v", resp.Results)
	}

	rec = serve(t, h, http.MethodGet, "/api/v1/search/pattern?p=%28")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decode[map[string]string](t, rec)
	if !strings.Contains(body["error"], "invalid pattern") {
		t.Errorf("error body = %q", body["error"])
	}
}

// TestHandlerContent drives the content-scan endpoint.
func TestHandlerContent(t *testing.T) {
	h, st, ids := newTestHandler(t)
	ctx := context.Background()

	if err := st.SaveText(ctx, ids["Whale Tales"], "whale whale whale"); err != nil {
		t.Fatalf("save text: %v", err)
	}
	if err := st.SaveText(ctx, ids["Moby Dick"], "the whale surfaces"); err != nil {
		t.Fatalf("save text: %v", err)
	}

	rec := serve(t, h, http.MethodGet, "/api/v1/search/content?p=whale")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decode[contentResponse](t, rec)
	if resp.Total != 2 || resp.Results[0].Occurrences != 3 {
		t.Errorf("results = %+v", resp.Results)
	}
}

// TestHandlerGrouped drives the grouped keyword endpoint.
func TestHandlerGrouped(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := serve(t, h, http.MethodGet, "/api/v1/search/grouped?q=sea")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decode[groupedResponse](t, rec)
	if len(resp.Tiers.Title) != 1 || len(resp.Tiers.TopTerms) != 2 || len(resp.Tiers.Postings) != 2 {
		t.Errorf("tier sizes = %d/%d/%d", len(resp.Tiers.Title), len(resp.Tiers.TopTerms), len(resp.Tiers.Postings))
	}
	if resp.Total != 5 {
		t.Errorf("total = %d, want 5", resp.Total)
	}
}

// TestHandlerStats covers both stats variants and the parameter guard.
func TestHandlerStats(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := serve(t, h, http.MethodGet, "/api/v1/search/stats?q=sea")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	kw := decode[KeywordStats](t, rec)
	if kw.TitleDocs != 1 || kw.DistinctDocs != 2 {
		t.Errorf("keyword stats = %+v", kw)
	}

	rec = serve(t, h, http.MethodGet, "/api/v1/search/stats?p=%5Ew")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	pt := decode[PatternStats](t, rec)
	if pt.MatchedTerms != 3 || pt.DistinctDocs != 4 {
		t.Errorf("pattern stats = %+v", pt)
	}

	rec = serve(t, h, http.MethodGet, "/api/v1/search/stats")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestHandlerSimilar covers neighbor lookup, bad ids, and missing documents.
func TestHandlerSimilar(t *testing.T) {
	h, st, ids := newTestHandler(t)
	ctx := context.Background()

	err := st.InsertEdges(ctx, []store.Edge{
		{DocA: ids["Moby Dick"], DocB: ids["The Sea Wolf"], Distance: 0.3, Similarity: 0.7},
	})
	if err != nil {
		t.Fatalf("insert edges: %v", err)
	}

	rec := serve(t, h, http.MethodGet, fmt.Sprintf("/api/v1/documents/%d/similar", ids["Moby Dick"]))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decode[struct {
		Total     int               `json:"total"`
		Neighbors []SimilarDocument `json:"neighbors"`
	}](t, rec)
	if resp.Total != 1 || resp.Neighbors[0].Title != "The Sea Wolf" {
		t.Errorf("neighbors = %+v", resp.Neighbors)
	}

	rec = serve(t, h, http.MethodGet, "/api/v1/documents/999/similar")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}

	rec = serve(t, h, http.MethodGet, "/api/v1/documents/abc/similar")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestHandlerTopDocuments covers the leaderboard endpoint.
func TestHandlerTopDocuments(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := serve(t, h, http.MethodGet, "/api/v1/documents/top?metric=closeness&limit=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decode[struct {
		Metric  string               `json:"metric"`
		Results []store.DocumentMeta `json:"results"`
	}](t, rec)
	if resp.Metric != "closeness" || len(resp.Results) != 2 {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Results[0].Title != "Moby Dick" {
		t.Errorf("head = %q", resp.Results[0].Title)
	}

	rec = serve(t, h, http.MethodGet, "/api/v1/documents/top?metric=degree")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestHandlerCacheEndpoints covers the disabled-cache behavior; the Redis
// paths are exercised in integration tests.
func TestHandlerCacheEndpoints(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := serve(t, h, http.MethodGet, "/api/v1/cache/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[map[string]string](t, rec)
	if body["status"] != "disabled" {
		t.Errorf("body = %v", body)
	}

	rec = serve(t, h, http.MethodPost, "/api/v1/cache/invalidate")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
