package retrieval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doublespeak/internal/corpus"
	"doublespeak/internal/retrieval"
)

func segVec(id int64, text string, vec []float32) corpus.SegmentVector {
	return corpus.SegmentVector{
		Segment: corpus.Segment{ID: id, SourceID: 1, Text: text},
		Vector:  vec,
	}
}

func TestCosineSimilarity_SelfIsOne(t *testing.T) {
	v := []float32{0.3, -0.5, 0.8}
	assert.InDelta(t, 1.0, retrieval.CosineSimilarity(v, v), 1e-9)
}

func TestCosineSimilarity_Orthogonal(t *testing.T) {
	assert.InDelta(t, 0.0, retrieval.CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
}

func TestCosineSimilarity_Opposite(t *testing.T) {
	assert.InDelta(t, -1.0, retrieval.CosineSimilarity([]float32{1, 2}, []float32{-1, -2}), 1e-9)
}

func TestCosineSimilarity_ZeroVectorNoNaN(t *testing.T) {
	got := retrieval.CosineSimilarity([]float32{0, 0, 0}, []float32{1, 2, 3})
	assert.Equal(t, 0.0, got)
}

func TestCosineSimilarity_LengthMismatch(t *testing.T) {
	// Shorter vector treated as zero-padded
	a := []float32{1, 0, 0}
	b := []float32{1, 0}
	assert.InDelta(t, 1.0, retrieval.CosineSimilarity(a, b), 1e-9)
}

func TestTopCandidates_Ordering(t *testing.T) {
	query := []float32{1, 0}
	segments := []corpus.SegmentVector{
		segVec(1, "orthogonal", []float32{0, 1}),
		segVec(2, "aligned", []float32{2, 0}),
		segVec(3, "diagonal", []float32{1, 1}),
	}

	got := retrieval.TopCandidates(query, segments, 25)
	require.Len(t, got, 3)
	assert.Equal(t, "aligned", got[0].Text)
	assert.Equal(t, "diagonal", got[1].Text)
	assert.Equal(t, "orthogonal", got[2].Text)
}

func TestTopCandidates_LimitApplied(t *testing.T) {
	query := []float32{1, 0}
	segments := []corpus.SegmentVector{
		segVec(1, "a", []float32{1, 0}),
		segVec(2, "b", []float32{1, 0.1}),
		segVec(3, "c", []float32{1, 0.2}),
	}
	got := retrieval.TopCandidates(query, segments, 2)
	assert.Len(t, got, 2)
}

func TestTopCandidates_EmptyCorpus(t *testing.T) {
	assert.Empty(t, retrieval.TopCandidates([]float32{1, 0}, nil, 25))
}

func TestTopCandidates_ZeroVectorRanksLast(t *testing.T) {
	query := []float32{1, 0}
	segments := []corpus.SegmentVector{
		segVec(1, "missing embedding", []float32{0, 0}),
		segVec(2, "real", []float32{1, 0.5}),
	}
	got := retrieval.TopCandidates(query, segments, 25)
	require.Len(t, got, 2)
	assert.Equal(t, "real", got[0].Text)
	assert.Equal(t, "missing embedding", got[1].Text)
}

func TestTopCandidates_StableOnTies(t *testing.T) {
	query := []float32{1, 0}
	segments := []corpus.SegmentVector{
		segVec(1, "first", []float32{1, 0}),
		segVec(2, "second", []float32{1, 0}),
	}
	got := retrieval.TopCandidates(query, segments, 25)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Text)
	assert.Equal(t, "second", got[1].Text)
}
