// Package logger carries the query correlation ID into every log line. The
// same ID follows a statement from the HTTP request through the NSQ segment
// payloads to the consumer that stores it, so one grep reconstructs a whole
// ingestion or check flow.
package logger

import (
	"context"
	"log/slog"

	"doublespeak/internal/middleware"
)

// ContextHandler decorates an slog.Handler with the correlation ID carried
// in the context.
type ContextHandler struct {
	inner slog.Handler
}

func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{inner: h}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := middleware.CorrelationIDFromContext(ctx); id != "" {
		r.AddAttrs(slog.String("correlation_id", id))
	}
	return h.inner.Handle(ctx, r)
}

// WithAttrs and WithGroup re-wrap so derived loggers (slog.With) keep the
// correlation decoration.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name)}
}
