// Package retrieval ranks corpus segments against an incoming statement:
// candidate generation by cosine similarity over the whole corpus, then
// pairwise NLI scoring, then ranked aggregation into hypocrisy hits.
package retrieval

import (
	"math"
	"sort"

	"doublespeak/internal/corpus"
)

// DefaultCandidateLimit bounds how many segments proceed to NLI scoring.
const DefaultCandidateLimit = 25

// CosineSimilarity returns dot(a, b) / (|a|·|b|). A zero norm on either
// side counts as 1.0 in the denominator, forcing degenerate vectors to
// similarity 0 instead of NaN; missing embeddings therefore rank last.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	for i := n; i < len(a); i++ {
		normA += float64(a[i]) * float64(a[i])
	}
	for i := n; i < len(b); i++ {
		normB += float64(b[i]) * float64(b[i])
	}
	denomA := math.Sqrt(normA)
	if denomA == 0 {
		denomA = 1.0
	}
	denomB := math.Sqrt(normB)
	if denomB == 0 {
		denomB = 1.0
	}
	return dot / (denomA * denomB)
}

// TopCandidates scores every corpus segment against the query vector and
// returns the `limit` most similar, best first. This is a deliberate exact
// linear scan, O(N·D) per query; no index is built. Equal similarities keep
// corpus enumeration order (stable sort). An empty corpus yields an empty
// slice, never an error.
func TopCandidates(queryVec []float32, segments []corpus.SegmentVector, limit int) []corpus.Segment {
	if len(segments) == 0 || limit <= 0 {
		return nil
	}

	type scored struct {
		segment    corpus.Segment
		similarity float64
	}
	results := make([]scored, len(segments))
	for i, sv := range segments {
		results[i] = scored{
			segment:    sv.Segment,
			similarity: CosineSimilarity(queryVec, sv.Vector),
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].similarity > results[j].similarity
	})

	if limit > len(results) {
		limit = len(results)
	}
	out := make([]corpus.Segment, limit)
	for i := 0; i < limit; i++ {
		out[i] = results[i].segment
	}
	return out
}
