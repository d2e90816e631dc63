// Package source manages corpus sources and feeds the ingestion queue.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"doublespeak/internal/config"
	"doublespeak/internal/corpus"
	"doublespeak/internal/ingest"
	"doublespeak/internal/middleware"
	"doublespeak/internal/worker"
)

// ErrValidation marks client errors the handler maps to 400.
var ErrValidation = errors.New("validation")

// Repository is the corpus persistence boundary.
type Repository interface {
	UpsertSource(ctx context.Context, src *corpus.Source) error
	SourceByID(ctx context.Context, id int64) (*corpus.Source, error)
	ListSources(ctx context.Context) ([]corpus.Source, error)
	SoftDeleteSource(ctx context.Context, id int64) error
}

// Publisher pushes ingestion tasks onto NSQ.
type Publisher interface {
	Publish(topic string, body []byte) error
}

type Service struct {
	repo      Repository
	publisher Publisher
}

func NewService(repo Repository, publisher Publisher) *Service {
	return &Service{repo: repo, publisher: publisher}
}

// Create registers a source and, when text is supplied, queues one
// embedding task per sentence. The source row is committed even if some
// publishes fail; ingestion is at-least-once either way.
func (s *Service) Create(ctx context.Context, src *corpus.Source, text string) (int, error) {
	if src.Locator == "" {
		return 0, fmt.Errorf("%w: locator is required", ErrValidation)
	}
	if src.Title == "" {
		return 0, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if src.Type == "" {
		src.Type = "manual"
	}

	if err := s.repo.UpsertSource(ctx, src); err != nil {
		return 0, fmt.Errorf("upsert source: %w", err)
	}

	if strings.TrimSpace(text) == "" {
		return 0, nil
	}

	sentences := ingest.SplitSentences(text)
	for i, sentence := range sentences {
		docID := fmt.Sprintf("src:%d:%d", src.ID, i)
		if err := s.publishSegment(ctx, worker.SegmentPayload{
			SourceID: src.ID,
			Text:     sentence,
			DocID:    docID,
		}); err != nil {
			return i, err
		}
	}
	return len(sentences), nil
}

// IngestTranscript parses an uploaded transcript and queues one embedding
// task per cue. Plain text files fall back to sentence splitting.
func (s *Service) IngestTranscript(ctx context.Context, src *corpus.Source, path string) (int, error) {
	if err := s.repo.UpsertSource(ctx, src); err != nil {
		return 0, fmt.Errorf("upsert source: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".txt" {
		data, err := readFile(path)
		if err != nil {
			return 0, err
		}
		sentences := ingest.SplitSentences(string(data))
		for i, sentence := range sentences {
			if err := s.publishSegment(ctx, worker.SegmentPayload{
				SourceID: src.ID,
				Text:     sentence,
				DocID:    fmt.Sprintf("src:%d:%d", src.ID, i),
			}); err != nil {
				return i, err
			}
		}
		return len(sentences), nil
	}

	cues, err := ingest.ParseFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrValidation, err)
	}
	for i, cue := range cues {
		start := cue.StartSeconds()
		end := cue.EndSeconds()
		if err := s.publishSegment(ctx, worker.SegmentPayload{
			SourceID: src.ID,
			Text:     cue.Text,
			TsStart:  &start,
			TsEnd:    &end,
			DocID:    fmt.Sprintf("src:%d:%d", src.ID, i),
		}); err != nil {
			return i, err
		}
	}
	return len(cues), nil
}

func (s *Service) publishSegment(ctx context.Context, payload worker.SegmentPayload) error {
	payload.CorrelationID = middleware.CorrelationIDFromContext(ctx)
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal segment payload: %w", err)
	}
	if err := s.publisher.Publish(config.TopicIngestSegment, body); err != nil {
		slog.ErrorContext(ctx, "publish segment failed", "error", err, "doc_id", payload.DocID)
		return fmt.Errorf("publish segment: %w", err)
	}
	return nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return data, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*corpus.Source, error) {
	return s.repo.SourceByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]corpus.Source, error) {
	return s.repo.ListSources(ctx)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.SoftDeleteSource(ctx, id)
}
