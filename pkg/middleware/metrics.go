// Package middleware provides the HTTP middleware shared by the services:
// request IDs, Prometheus instrumentation, and per-request deadlines.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bibliograph/bibliograph/pkg/metrics"
)

// Metrics returns middleware recording request count, latency, and an
// in-flight gauge for every route.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)
			observe(m, r, rec.status, time.Since(start))
		})
	}
}

func observe(m *metrics.Metrics, r *http.Request, status int, elapsed time.Duration) {
	route := normalizePath(r.URL.Path)
	m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
}

// statusRecorder captures the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wrote {
		s.status = code
		s.wrote = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wrote = true
	return s.ResponseWriter.Write(b)
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// normalizePath collapses document ids so metric labels stay bounded.
// /api/v1/documents/42/similar becomes /api/v1/documents/:id/similar.
func normalizePath(path string) string {
	parts := strings.Split(path, "/")
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == "documents" && parts[i+1] != "" && parts[i+1] != "top" {
			parts[i+1] = ":id"
		}
	}
	return strings.Join(parts, "/")
}
