// Package worker hosts the NSQ consumers of the ingestion pipeline.
package worker

import (
	"context"
	"time"

	"doublespeak/internal/corpus"
)

// SegmentPayload travels on the ingest.segment topic: one statement to
// embed and persist.
type SegmentPayload struct {
	SourceID      int64    `json:"source_id"`
	Text          string   `json:"text"`
	TsStart       *float64 `json:"ts_start,omitempty"`
	TsEnd         *float64 `json:"ts_end,omitempty"`
	DocID         string   `json:"doc_id,omitempty"`
	CorrelationID string   `json:"correlation_id,omitempty"`
}

// ScrapeResultPayload travels on the scrape.result topic: one scraped
// document to register and split into segments.
type ScrapeResultPayload struct {
	Provider      string            `json:"provider"`
	ItemID        string            `json:"item_id"`
	URL           string            `json:"url"`
	Title         string            `json:"title"`
	Text          string            `json:"text"`
	SourceName    string            `json:"source_name"`
	PublishedAt   *time.Time        `json:"published_at,omitempty"`
	Author        string            `json:"author,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
}

type Embedder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

type SegmentStore interface {
	InsertSegment(ctx context.Context, seg *corpus.Segment, vector []float32) error
	SegmentExistsByDocID(ctx context.Context, docID string) (bool, error)
}

type SourceStore interface {
	UpsertSource(ctx context.Context, src *corpus.Source) error
}

type Publisher interface {
	Publish(topic string, body []byte) error
}
