package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nsqio/go-nsq"

	"doublespeak/internal/corpus"
	"doublespeak/internal/middleware"
)

// SegmentConsumer embeds one statement per message and writes the
// segment with its vector to the corpus.
type SegmentConsumer struct {
	embedder Embedder
	store    SegmentStore
}

func NewSegmentConsumer(e Embedder, s SegmentStore) *SegmentConsumer {
	return &SegmentConsumer{embedder: e, store: s}
}

func (h *SegmentConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload SegmentPayload
	if err := json.Unmarshal(m.Body, &payload); err != nil {
		// Poison pill: invalid JSON, don't retry
		slog.Error("poison pill: invalid json", "error", err)
		return nil
	}

	ctx := context.Background()
	if payload.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, payload.CorrelationID)
	}

	text := strings.TrimSpace(payload.Text)
	if payload.SourceID == 0 || text == "" {
		slog.ErrorContext(ctx, "missing required fields, dropping",
			"source_id", payload.SourceID, "doc_id", payload.DocID)
		return nil
	}

	if payload.DocID != "" {
		exists, err := h.store.SegmentExistsByDocID(ctx, payload.DocID)
		if err != nil {
			slog.ErrorContext(ctx, "doc_id lookup failed", "error", err, "doc_id", payload.DocID)
			return err // Retry
		}
		if exists {
			slog.InfoContext(ctx, "segment already ingested, skipping", "doc_id", payload.DocID)
			return nil
		}
	}

	embedCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	vector, err := h.embedder.Encode(embedCtx, text)
	if err != nil {
		slog.ErrorContext(ctx, "embedding failed", "error", err, "source_id", payload.SourceID)
		return err // Retry
	}

	seg := corpus.Segment{
		SourceID: payload.SourceID,
		Text:     text,
		TsStart:  payload.TsStart,
		TsEnd:    payload.TsEnd,
		DocID:    payload.DocID,
	}
	if err := h.store.InsertSegment(embedCtx, &seg, vector); err != nil {
		if errors.Is(err, corpus.ErrDuplicateDocID) {
			// A concurrent delivery won the insert race. Ack, don't retry.
			slog.InfoContext(ctx, "segment already ingested, skipping", "doc_id", payload.DocID)
			return nil
		}
		slog.ErrorContext(ctx, "store segment failed", "error", err, "source_id", payload.SourceID)
		return err // Retry
	}

	slog.InfoContext(ctx, "segment stored", "source_id", payload.SourceID, "segment_id", seg.ID)
	return nil
}
