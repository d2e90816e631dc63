// Package middleware assigns each HTTP request a correlation ID. Publishers
// copy the ID into NSQ payloads and consumers restore it with
// WithCorrelationID, so the ID survives the async hop from upload or scrape
// to the segment that lands in the corpus.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type key int

const CorrelationKey key = 0

// CorrelationID honours an incoming X-Correlation-ID header and mints a
// fresh ID otherwise. The ID is echoed back on the response.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Correlation-ID")
		if id == "" {
			id = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), CorrelationKey, id)
		w.Header().Set("X-Correlation-ID", id)

		// The context handler attaches the ID; no need to repeat it here.
		slog.InfoContext(ctx, "request received", "method", r.Method, "path", r.URL.Path)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		slog.InfoContext(ctx, "request completed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// CorrelationIDFromContext returns the bare ID, empty when absent. Log
// decoration wants the empty string so it can omit the attribute.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationKey).(string); ok {
		return id
	}
	return ""
}

// GetCorrelationID is the error-envelope form: a request that somehow lost
// its ID still reports a value to the client.
func GetCorrelationID(ctx context.Context) string {
	if id := CorrelationIDFromContext(ctx); id != "" {
		return id
	}
	return "unknown"
}

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationKey, id)
}
