// Package check exposes the hypocrisy check endpoint.
package check

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"doublespeak/internal/middleware"
	"doublespeak/internal/retrieval"
)

// Checker is the ranking pipeline boundary the handler consumes.
type Checker interface {
	Check(ctx context.Context, statement string, topK int) ([]retrieval.HypocrisyHit, error)
}

type Handler struct {
	checker     Checker
	defaultTopK int
}

func NewHandler(checker Checker, defaultTopK int) *Handler {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &Handler{checker: checker, defaultTopK: defaultTopK}
}

// Check handles POST /check.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Statement string `json:"statement"`
		TopK      int    `json:"top_k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}

	req.Statement = strings.TrimSpace(req.Statement)
	if req.Statement == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "statement is required", http.StatusBadRequest)
		return
	}
	if req.TopK < 0 {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "top_k must not be negative", http.StatusBadRequest)
		return
	}
	topK := req.TopK
	if topK == 0 {
		topK = h.defaultTopK
	}

	hits, err := h.checker.Check(r.Context(), req.Statement, topK)
	if err != nil {
		slog.ErrorContext(r.Context(), "check failed", "error", err)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if hits == nil {
		hits = []retrieval.HypocrisyHit{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": hits}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
