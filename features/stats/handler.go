// Package stats reports corpus size counters.
package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"doublespeak/internal/middleware"
)

// Counter is the corpus counting boundary.
type Counter interface {
	CountSources(ctx context.Context) (int, error)
	CountSegments(ctx context.Context) (int, error)
}

type Handler struct {
	counter Counter
}

func NewHandler(counter Counter) *Handler {
	return &Handler{counter: counter}
}

// Get handles GET /stats.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sources, err := h.counter.CountSources(r.Context())
	if err != nil {
		h.fail(r.Context(), w, err)
		return
	}
	segments, err := h.counter.CountSegments(r.Context())
	if err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": map[string]int{
			"sources":  sources,
			"segments": segments,
		},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, err error) {
	slog.ErrorContext(ctx, "stats query failed", "error", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    "INTERNAL_ERROR",
			"message": "Internal Server Error",
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
