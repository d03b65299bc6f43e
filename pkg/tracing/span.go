// Package tracing times the stages of batch pipeline runs. A Span measures
// one operation; spans opened through the context nest under the current one,
// and the root span logs the whole tree through slog, one line per stage.
package tracing

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"
)

type ctxKey struct{}

// Span is one timed stage of a run. Attributes and children may be added
// concurrently from worker goroutines.
type Span struct {
	Name    string
	TraceID string

	mu       sync.Mutex
	started  time.Time
	finished time.Time
	attrs    []slog.Attr
	children []*Span
}

// NewTraceID returns a random 16-character hex id for correlating a run's
// log lines.
func NewTraceID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "t" + time.Now().UTC().Format("150405.000000000")
	}
	return hex.EncodeToString(b[:])
}

// StartSpan opens a root span for a whole run and stores it in the returned
// context so nested stages attach themselves to it.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	s := &Span{Name: name, TraceID: NewTraceID(), started: time.Now()}
	return context.WithValue(ctx, ctxKey{}, s), s
}

// StartChildSpan opens a span nested under the one carried by ctx. Without a
// parent it stands alone with an empty trace id, so stage code can call it
// unconditionally.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	s := &Span{Name: name, started: time.Now()}
	if parent := SpanFromContext(ctx); parent != nil {
		s.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.children = append(parent.children, s)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, ctxKey{}, s), s
}

// SpanFromContext returns the innermost span carried by ctx, or nil.
func SpanFromContext(ctx context.Context) *Span {
	s, _ := ctx.Value(ctxKey{}).(*Span)
	return s
}

// End freezes the span's duration. Attributes added afterwards still appear
// in the logged tree.
func (s *Span) End() {
	s.mu.Lock()
	s.finished = time.Now()
	s.mu.Unlock()
}

// SetAttr records a key-value pair that is logged with the span.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.attrs = append(s.attrs, slog.Any(key, value))
	s.mu.Unlock()
}

// Duration reports how long the span ran, or the elapsed time so far when it
// has not ended yet.
func (s *Span) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.durationLocked()
}

func (s *Span) durationLocked() time.Duration {
	if s.finished.IsZero() {
		return time.Since(s.started)
	}
	return s.finished.Sub(s.started)
}

// Log emits the span and everything nested under it, parents before their
// children.
func (s *Span) Log() {
	type frame struct {
		span  *Span
		depth int
	}
	stack := []frame{{s, 0}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		sp := top.span
		sp.mu.Lock()
		args := make([]any, 0, 8+2*len(sp.attrs))
		args = append(args,
			"trace_id", sp.TraceID,
			"stage", sp.Name,
			"depth", top.depth,
			"duration_ms", sp.durationLocked().Milliseconds(),
		)
		for _, a := range sp.attrs {
			args = append(args, a.Key, a.Value.Any())
		}
		kids := make([]*Span, len(sp.children))
		copy(kids, sp.children)
		sp.mu.Unlock()

		slog.Info("trace", args...)
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, frame{kids[i], top.depth + 1})
		}
	}
}
