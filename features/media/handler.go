// Package media exposes clip extraction and transcription endpoints.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"doublespeak/internal/clipper"
	"doublespeak/internal/middleware"
	"doublespeak/internal/transcribe"
)

// Clipper is the clip extraction boundary.
type Clipper interface {
	BatchExtract(ctx context.Context, reqs []clipper.ClipRequest, beforeMS, afterMS int64) ([]clipper.ClipResult, error)
}

// Transcriber is the speech-to-text boundary.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]transcribe.TimedSegment, error)
}

type Handler struct {
	clipper     Clipper
	transcriber Transcriber
}

func NewHandler(c Clipper, t Transcriber) *Handler {
	return &Handler{clipper: c, transcriber: t}
}

// ExtractClips handles POST /clips.
func (h *Handler) ExtractClips(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Segments []clipper.ClipRequest `json:"segments"`
		BeforeMS int64                 `json:"before_ms"`
		AfterMS  int64                 `json:"after_ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Segments) == 0 {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "segments are required", http.StatusBadRequest)
		return
	}
	for _, seg := range req.Segments {
		if seg.MediaPath == "" {
			h.writeError(r.Context(), w, "VALIDATION_ERROR", "media_path is required", http.StatusBadRequest)
			return
		}
	}
	if req.BeforeMS == 0 {
		req.BeforeMS = clipper.DefaultBeforeMS
	}
	if req.AfterMS == 0 {
		req.AfterMS = clipper.DefaultAfterMS
	}

	results, err := h.clipper.BatchExtract(r.Context(), req.Segments, req.BeforeMS, req.AfterMS)
	if err != nil {
		slog.ErrorContext(r.Context(), "clip extraction failed", "error", err)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": results}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Transcribe handles POST /transcribe.
func (h *Handler) Transcribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "path is required", http.StatusBadRequest)
		return
	}

	segments, err := h.transcriber.Transcribe(r.Context(), req.Path)
	if err != nil {
		if errors.Is(err, transcribe.ErrDependencyMissing) {
			h.writeError(r.Context(), w, "DEPENDENCY_MISSING", err.Error(), http.StatusBadRequest)
			return
		}
		slog.ErrorContext(r.Context(), "transcription failed", "error", err, "path", req.Path)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if segments == nil {
		segments = []transcribe.TimedSegment{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": segments}); err != nil {
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
