package worker_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"doublespeak/internal/corpus"
)

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Encode(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockSegmentStore struct {
	mock.Mock
}

func (m *MockSegmentStore) InsertSegment(ctx context.Context, seg *corpus.Segment, vector []float32) error {
	args := m.Called(ctx, seg, vector)
	return args.Error(0)
}

func (m *MockSegmentStore) SegmentExistsByDocID(ctx context.Context, docID string) (bool, error) {
	args := m.Called(ctx, docID)
	return args.Bool(0), args.Error(1)
}

type MockSourceStore struct {
	mock.Mock
}

func (m *MockSourceStore) UpsertSource(ctx context.Context, src *corpus.Source) error {
	args := m.Called(ctx, src)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(topic string, body []byte) error {
	args := m.Called(topic, body)
	return args.Error(0)
}
