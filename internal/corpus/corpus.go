// Package corpus persists sources, their statement segments, and one
// embedding vector per segment. The ranking pipeline only reads from it;
// all writes happen on the ingestion side.
package corpus

import "time"

// Source is a provenance record for ingested material. Locator (a URL or a
// file path) is unique: re-ingesting the same locator updates the existing
// row instead of duplicating it.
type Source struct {
	ID          int64             `json:"id"`
	Title       string            `json:"title"`
	Type        string            `json:"type"`
	Locator     string            `json:"locator"`
	PublishedAt *time.Time        `json:"published_at,omitempty"`
	Author      string            `json:"author,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
	Status      string            `json:"status,omitempty"`
}

// Segment is an atomic statement. Timestamps are seconds into the source
// media and are nil for sources without a timeline (plain text). Segments
// are immutable once created and never deleted by the pipeline.
type Segment struct {
	ID       int64    `json:"id"`
	SourceID int64    `json:"source_id"`
	Text     string   `json:"text"`
	TsStart  *float64 `json:"ts_start,omitempty"`
	TsEnd    *float64 `json:"ts_end,omitempty"`
	DocID    string   `json:"doc_id,omitempty"`
}

// SegmentVector pairs a segment with its stored embedding. A segment whose
// embedding row is missing (partial ingestion failure) carries a zero vector
// of the corpus dimensionality, which ranks it last during retrieval rather
// than failing the query.
type SegmentVector struct {
	Segment Segment
	Vector  []float32
}
