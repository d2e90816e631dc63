package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nsqio/go-nsq"

	"doublespeak/internal/config"
	"doublespeak/internal/corpus"
	"doublespeak/internal/ingest"
	"doublespeak/internal/middleware"
)

// ScrapeConsumer registers a scraped document as a source, splits its
// text into sentences and fans them out on the ingest.segment topic.
type ScrapeConsumer struct {
	sources   SourceStore
	segments  SegmentStore
	publisher Publisher
}

func NewScrapeConsumer(so SourceStore, se SegmentStore, p Publisher) *ScrapeConsumer {
	return &ScrapeConsumer{sources: so, segments: se, publisher: p}
}

func (h *ScrapeConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload ScrapeResultPayload
	err := json.Unmarshal(m.Body, &payload)

	correlationID := payload.CorrelationID
	if correlationID == "" {
		correlationID = uuid.New().String()
	}
	ctx := middleware.WithCorrelationID(context.Background(), correlationID)

	if err != nil {
		slog.ErrorContext(ctx, "invalid message format", "error", err)
		return nil // Don't retry invalid messages
	}
	if payload.URL == "" || payload.Text == "" {
		slog.ErrorContext(ctx, "missing required fields, dropping",
			"provider", payload.Provider, "url", payload.URL)
		return nil
	}

	src := corpus.Source{
		Title:       payload.Title,
		Type:        "scraped:" + payload.Provider,
		Locator:     payload.URL,
		PublishedAt: payload.PublishedAt,
		Author:      payload.Author,
		Extra:       payload.Extra,
	}
	if src.Extra == nil {
		src.Extra = map[string]string{}
	}
	if payload.SourceName != "" {
		src.Extra["source_name"] = payload.SourceName
	}
	if err := h.sources.UpsertSource(ctx, &src); err != nil {
		slog.ErrorContext(ctx, "upsert source failed", "error", err, "url", payload.URL)
		return err // Retry
	}

	sentences := ingest.SplitSentences(payload.Text)
	published := 0
	for i, sentence := range sentences {
		docID := fmt.Sprintf("%s:%s:%d", payload.Provider, payload.ItemID, i)
		exists, err := h.segments.SegmentExistsByDocID(ctx, docID)
		if err != nil {
			slog.ErrorContext(ctx, "doc_id lookup failed", "error", err, "doc_id", docID)
			return err // Retry
		}
		if exists {
			continue
		}

		segPayload := SegmentPayload{
			SourceID:      src.ID,
			Text:          sentence,
			DocID:         docID,
			CorrelationID: correlationID,
		}
		body, err := json.Marshal(segPayload)
		if err != nil {
			slog.ErrorContext(ctx, "marshal segment payload failed", "error", err)
			continue
		}
		if err := h.publisher.Publish(config.TopicIngestSegment, body); err != nil {
			slog.ErrorContext(ctx, "publish segment failed", "error", err, "doc_id", docID)
			return err // Durable: fail if publish fails
		}
		published++
	}

	slog.InfoContext(ctx, "scraped document queued",
		"provider", payload.Provider, "url", payload.URL,
		"sentences", len(sentences), "published", published)
	return nil
}
