package retrieval_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"doublespeak/internal/corpus"
	"doublespeak/internal/nli"
	"doublespeak/internal/retrieval"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) SegmentsWithEmbeddings(ctx context.Context) ([]corpus.SegmentVector, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]corpus.SegmentVector), args.Error(1)
}

func (m *MockStore) SourceByID(ctx context.Context, id int64) (*corpus.Source, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*corpus.Source), args.Error(1)
}

func (m *MockStore) CountSegments(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

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

type MockScorer struct {
	mock.Mock
}

func (m *MockScorer) ScoreBatch(ctx context.Context, pairs []nli.Pair) ([]float64, error) {
	args := m.Called(ctx, pairs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float64), args.Error(1)
}

// negationBackend gives a higher contradiction logit when exactly one of
// premise and hypothesis carries a negation.
type negationBackend struct{}

func (negationBackend) Name() string            { return "stub" }
func (negationBackend) ContradictionIndex() int { return 0 }

func (negationBackend) Logits(_ context.Context, pairs []nli.Pair) ([][]float64, error) {
	out := make([][]float64, len(pairs))
	for i, p := range pairs {
		negP := strings.Contains(p.Premise, "never") || strings.Contains(p.Premise, "not")
		negH := strings.Contains(p.Hypothesis, "never") || strings.Contains(p.Hypothesis, "not")
		if negP != negH {
			out[i] = []float64{4.0, 0.0, 0.0}
		} else {
			out[i] = []float64{-2.0, 3.0, 0.0}
		}
	}
	return out, nil
}

func TestRanker_EmptyCorpus(t *testing.T) {
	store := new(MockStore)
	embedder := new(MockEmbedder)
	scorer := new(MockScorer)
	ranker := retrieval.NewRanker(store, embedder, scorer, 25, nil)

	store.On("CountSegments", mock.Anything).Return(0, nil)

	hits, err := ranker.Check(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
	embedder.AssertNotCalled(t, "Encode", mock.Anything, mock.Anything)
}

func TestRanker_TopKLargerThanCorpus(t *testing.T) {
	store := new(MockStore)
	embedder := new(MockEmbedder)
	scorer := new(MockScorer)
	ranker := retrieval.NewRanker(store, embedder, scorer, 25, nil)

	segments := []corpus.SegmentVector{
		segVec(1, "first statement", []float32{1, 0}),
		segVec(2, "second statement", []float32{0, 1}),
	}
	store.On("CountSegments", mock.Anything).Return(2, nil)
	store.On("SegmentsWithEmbeddings", mock.Anything).Return(segments, nil)
	store.On("SourceByID", mock.Anything, int64(1)).Return(&corpus.Source{ID: 1, Title: "S", Type: "manual"}, nil)
	embedder.On("Encode", mock.Anything, "query").Return([]float32{1, 0}, nil)
	scorer.On("ScoreBatch", mock.Anything, mock.Anything).Return([]float64{0.9, 0.1}, nil)

	hits, err := ranker.Check(context.Background(), "query", 3)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestRanker_NegativeTopK(t *testing.T) {
	store := new(MockStore)
	embedder := new(MockEmbedder)
	scorer := new(MockScorer)
	ranker := retrieval.NewRanker(store, embedder, scorer, 25, nil)

	segments := []corpus.SegmentVector{segVec(1, "a statement", []float32{1, 0})}
	store.On("CountSegments", mock.Anything).Return(1, nil)
	store.On("SegmentsWithEmbeddings", mock.Anything).Return(segments, nil)
	embedder.On("Encode", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)
	scorer.On("ScoreBatch", mock.Anything, mock.Anything).Return([]float64{0.7}, nil)

	hits, err := ranker.Check(context.Background(), "query", -3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRanker_DescendingScoresWithinBounds(t *testing.T) {
	store := new(MockStore)
	embedder := new(MockEmbedder)
	scorer := new(MockScorer)
	ranker := retrieval.NewRanker(store, embedder, scorer, 25, nil)

	segments := []corpus.SegmentVector{
		segVec(1, "a", []float32{1, 0}),
		segVec(2, "b", []float32{0.9, 0.1}),
		segVec(3, "c", []float32{0.8, 0.2}),
	}
	store.On("CountSegments", mock.Anything).Return(3, nil)
	store.On("SegmentsWithEmbeddings", mock.Anything).Return(segments, nil)
	store.On("SourceByID", mock.Anything, int64(1)).Return(&corpus.Source{ID: 1}, nil)
	embedder.On("Encode", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)
	scorer.On("ScoreBatch", mock.Anything, mock.Anything).Return([]float64{0.2, 0.95, 0.5}, nil)

	hits, err := ranker.Check(context.Background(), "query", 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	for i := range hits {
		assert.GreaterOrEqual(t, hits[i].Score, 0.0)
		assert.LessOrEqual(t, hits[i].Score, 1.0)
		if i > 0 {
			assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
		}
	}
	assert.Equal(t, "b", hits[0].CorpusText)
}

func TestRanker_SourceLookupMissPatched(t *testing.T) {
	store := new(MockStore)
	embedder := new(MockEmbedder)
	scorer := new(MockScorer)
	ranker := retrieval.NewRanker(store, embedder, scorer, 25, nil)

	segments := []corpus.SegmentVector{segVec(1, "orphan segment", []float32{1, 0})}
	store.On("CountSegments", mock.Anything).Return(1, nil)
	store.On("SegmentsWithEmbeddings", mock.Anything).Return(segments, nil)
	store.On("SourceByID", mock.Anything, int64(1)).Return(nil, nil) // deleted source
	embedder.On("Encode", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)
	scorer.On("ScoreBatch", mock.Anything, mock.Anything).Return([]float64{0.7}, nil)

	hits, err := ranker.Check(context.Background(), "query", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "unknown", hits[0].SourceType)
	assert.Equal(t, "Unknown", hits[0].SourceTitle)
}

func TestRanker_Idempotent(t *testing.T) {
	store := new(MockStore)
	embedder := new(MockEmbedder)
	scorer := new(MockScorer)
	ranker := retrieval.NewRanker(store, embedder, scorer, 25, nil)

	segments := []corpus.SegmentVector{
		segVec(1, "a", []float32{1, 0}),
		segVec(2, "b", []float32{0, 1}),
	}
	store.On("CountSegments", mock.Anything).Return(2, nil)
	store.On("SegmentsWithEmbeddings", mock.Anything).Return(segments, nil)
	store.On("SourceByID", mock.Anything, mock.Anything).Return(&corpus.Source{ID: 1}, nil)
	embedder.On("Encode", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)
	scorer.On("ScoreBatch", mock.Anything, mock.Anything).Return([]float64{0.8, 0.3}, nil)

	first, err := ranker.Check(context.Background(), "query", 2)
	require.NoError(t, err)
	second, err := ranker.Check(context.Background(), "query", 2)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRanker_TaxesScenario(t *testing.T) {
	scorer, err := nli.NewScorer(negationBackend{})
	require.NoError(t, err)

	store := new(MockStore)
	embedder := new(MockEmbedder)
	ranker := retrieval.NewRanker(store, embedder, scorer, 25, nil)

	segments := []corpus.SegmentVector{
		segVec(1, "I will never raise taxes on working families.", []float32{1, 0}),
		segVec(2, "The weather was pleasant at the rally.", []float32{0, 1}),
	}
	store.On("CountSegments", mock.Anything).Return(2, nil)
	store.On("SegmentsWithEmbeddings", mock.Anything).Return(segments, nil)
	store.On("SourceByID", mock.Anything, mock.Anything).Return(&corpus.Source{
		ID: 1, Title: "Campaign rally", Type: "speech", Locator: "https://example.com/rally",
	}, nil)
	embedder.On("Encode", mock.Anything, mock.Anything).Return([]float32{0.9, 0.1}, nil)

	hits, err := ranker.Check(context.Background(), "We are raising taxes next year.", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	// The negated prior statement must outrank the unrelated one.
	assert.Contains(t, hits[0].CorpusText, "never raise taxes")
	assert.Greater(t, hits[0].Score, hits[1].Score)
	assert.Greater(t, hits[0].Score, 0.9)
	assert.Equal(t, "speech", hits[0].SourceType)
	assert.Equal(t, "Campaign rally", hits[0].SourceTitle)
}
