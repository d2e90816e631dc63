package source

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"doublespeak/internal/corpus"
	"doublespeak/internal/middleware"
)

type Handler struct {
	service   *Service
	uploadDir string
}

func NewHandler(service *Service, uploadDir string) *Handler {
	if uploadDir == "" {
		uploadDir = "./uploads"
	}
	return &Handler{service: service, uploadDir: uploadDir}
}

// Create handles POST /sources.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string            `json:"title"`
		Type        string            `json:"type"`
		Locator     string            `json:"locator"`
		PublishedAt *time.Time        `json:"published_at"`
		Author      string            `json:"author"`
		Extra       map[string]string `json:"extra"`
		Text        string            `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}

	src := &corpus.Source{
		Title:       req.Title,
		Type:        req.Type,
		Locator:     req.Locator,
		PublishedAt: req.PublishedAt,
		Author:      req.Author,
		Extra:       req.Extra,
	}
	queued, err := h.service.Create(r.Context(), src, req.Text)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
			return
		}
		slog.ErrorContext(r.Context(), "create source failed", "error", err, "locator", req.Locator)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	h.encode(w, map[string]interface{}{
		"data": map[string]interface{}{
			"source":          src,
			"segments_queued": queued,
		},
	})
}

// Upload handles POST /sources/upload: a multipart transcript file plus
// source metadata fields.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 50<<20)
	if err := r.ParseMultipartForm(50 << 20); err != nil {
		h.writeError(r.Context(), w, "BAD_REQUEST", "File too large", http.StatusBadRequest)
		return
	}

	title := r.FormValue("title")
	if title == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "title is required", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(r.Context(), w, "BAD_REQUEST", "Unable to retrieve file", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	ext := filepath.Ext(header.Filename)
	validExts := map[string]bool{".srt": true, ".vtt": true, ".jsonl": true, ".txt": true}
	if !validExts[ext] {
		h.writeError(r.Context(), w, "BAD_REQUEST", "Unsupported file type", http.StatusBadRequest)
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0o750); err != nil {
		slog.ErrorContext(r.Context(), "create upload dir failed", "error", err)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Failed to create upload directory", http.StatusInternalServerError)
		return
	}
	destPath := filepath.Join(h.uploadDir, uuid.New().String()+ext)
	dest, err := os.Create(destPath) // #nosec G304 -- name is a fresh uuid under our upload dir
	if err != nil {
		slog.ErrorContext(r.Context(), "create upload file failed", "error", err)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Failed to store file", http.StatusInternalServerError)
		return
	}
	if _, err := io.Copy(dest, file); err != nil {
		_ = dest.Close()
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Failed to store file", http.StatusInternalServerError)
		return
	}
	_ = dest.Close()

	src := &corpus.Source{
		Title:   title,
		Type:    firstNonEmpty(r.FormValue("type"), "transcript"),
		Locator: firstNonEmpty(r.FormValue("locator"), destPath),
		Author:  r.FormValue("author"),
	}
	queued, err := h.service.IngestTranscript(r.Context(), src, destPath)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
			return
		}
		slog.ErrorContext(r.Context(), "transcript ingest failed", "error", err, "file", header.Filename)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	h.encode(w, map[string]interface{}{
		"data": map[string]interface{}{
			"source":          src,
			"segments_queued": queued,
		},
	})
}

// List handles GET /sources.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	sources, err := h.service.List(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "list sources failed", "error", err)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if sources == nil {
		sources = []corpus.Source{}
	}
	w.Header().Set("Content-Type", "application/json")
	h.encode(w, map[string]interface{}{"data": sources})
}

// Get handles GET /sources/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "invalid source id", http.StatusBadRequest)
		return
	}
	src, err := h.service.Get(r.Context(), id)
	if err != nil {
		slog.ErrorContext(r.Context(), "get source failed", "error", err, "id", id)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if src == nil {
		h.writeError(r.Context(), w, "NOT_FOUND", "source not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	h.encode(w, map[string]interface{}{"data": src})
}

// Delete handles DELETE /sources/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "invalid source id", http.StatusBadRequest)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "delete source failed", "error", err, "id", id)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) encode(w io.Writer, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
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

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
