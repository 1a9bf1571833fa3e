// Package tracing times the stages of one request as a tree of spans and
// logs the tree through slog once the root span finishes. Spans ride on the
// context; the root takes the request ID as its trace ID.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/logger"
)

type contextKey struct{}

// Span is one timed stage. A nil *Span is valid and records nothing.
type Span struct {
	Name     string
	TraceID  string
	Start    time.Time
	Duration time.Duration

	parent   *Span
	mu       sync.Mutex
	attrs    map[string]any
	children []*Span
}

// Start opens a span under the one already in ctx, or a root span when
// there is none.
func Start(ctx context.Context, name string) (context.Context, *Span) {
	span := &Span{Name: name, Start: time.Now(), attrs: make(map[string]any)}
	if parent := FromContext(ctx); parent != nil {
		span.parent = parent
		span.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.children = append(parent.children, span)
		parent.mu.Unlock()
	} else {
		span.TraceID = logger.RequestID(ctx)
	}
	return context.WithValue(ctx, contextKey{}, span), span
}

// FromContext returns the innermost span in ctx, or nil.
func FromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(contextKey{}).(*Span)
	return span
}

// Set attaches an attribute to the span.
func (s *Span) Set(key string, value any) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.attrs[key] = value
	s.mu.Unlock()
}

// End stops the clock. Ending a root span logs the whole tree at debug level.
func (s *Span) End(ctx context.Context) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.Duration = time.Since(s.Start)
	s.mu.Unlock()
	if s.parent == nil {
		s.log(ctx, logger.FromContext(ctx), 0)
	}
}

// Children returns a copy of the direct child spans.
func (s *Span) Children() []*Span {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Span(nil), s.children...)
}

// Attr returns an attribute set with Set.
func (s *Span) Attr(key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.attrs[key]
	return v, ok
}

func (s *Span) log(ctx context.Context, log *slog.Logger, depth int) {
	if !log.Enabled(ctx, slog.LevelDebug) {
		return
	}
	s.mu.Lock()
	args := []any{
		"trace_id", s.TraceID,
		"span", s.Name,
		"duration_ms", s.Duration.Milliseconds(),
		"depth", depth,
	}
	for k, v := range s.attrs {
		args = append(args, k, v)
	}
	children := append([]*Span(nil), s.children...)
	s.mu.Unlock()

	log.DebugContext(ctx, "span", args...)
	for _, child := range children {
		child.log(ctx, log, depth+1)
	}
}
