// Package nli scores (premise, hypothesis) pairs for logical contradiction.
//
// A Scorer owns exactly one inference backend, chosen once at construction:
// either a locally exported model bundle served by a runtime sidecar
// (accelerated) or a hosted cross-encoder addressed by model name
// (reference). Backends return raw classifier logits; the scorer applies
// softmax and extracts the probability of the backend's declared
// contradiction class.
package nli

import (
	"context"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"
)

// ErrNoScoringBackend is returned by NewScorer when neither the accelerated
// bundle nor the hosted reference model can be used. Without a backend no
// inference is possible, so this is fatal and never retried automatically.
var ErrNoScoringBackend = errors.New("nli: no usable scoring backend")

// Pair is a premise/hypothesis input. For hypocrisy checks the premise is
// the prior corpus statement and the hypothesis is the incoming statement.
type Pair struct {
	Premise    string `json:"premise"`
	Hypothesis string `json:"hypothesis"`
}

// maxTextChars bounds request payloads. Backends additionally truncate at
// their tokenizer's max sequence length; trailing text is dropped silently.
const maxTextChars = 2000

// Backend runs the classifier forward pass. Implementations must be safe
// for concurrent calls.
type Backend interface {
	Name() string
	// Logits returns one logit row (2 or 3 classes) per pair, in input order.
	Logits(ctx context.Context, pairs []Pair) ([][]float64, error)
	// ContradictionIndex is the position of the contradiction class in the
	// model's declared label order.
	ContradictionIndex() int
}

type Scorer struct {
	backend Backend
}

// NewScorer fixes the given backend for the scorer's lifetime.
func NewScorer(backend Backend) (*Scorer, error) {
	if backend == nil {
		return nil, ErrNoScoringBackend
	}
	return &Scorer{backend: backend}, nil
}

// BackendName identifies the selected backend, for logging.
func (s *Scorer) BackendName() string {
	return s.backend.Name()
}

// ScoreBatch returns one contradiction probability in [0, 1] per pair,
// order-preserving. Pairs are scored in a single backend call.
func (s *Scorer) ScoreBatch(ctx context.Context, pairs []Pair) ([]float64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	clipped := make([]Pair, len(pairs))
	for i, p := range pairs {
		clipped[i] = Pair{
			Premise:    truncate(p.Premise),
			Hypothesis: truncate(p.Hypothesis),
		}
	}

	logits, err := s.backend.Logits(ctx, clipped)
	if err != nil {
		return nil, fmt.Errorf("nli inference (%s): %w", s.backend.Name(), err)
	}
	if len(logits) != len(pairs) {
		return nil, fmt.Errorf("nli inference (%s): expected %d logit rows, got %d",
			s.backend.Name(), len(pairs), len(logits))
	}

	idx := s.backend.ContradictionIndex()
	scores := make([]float64, len(logits))
	for i, row := range logits {
		if idx >= len(row) {
			return nil, fmt.Errorf("nli inference (%s): contradiction index %d out of range for %d classes",
				s.backend.Name(), idx, len(row))
		}
		scores[i] = clamp01(softmax(row)[idx])
	}
	return scores, nil
}

// Score is the single-pair convenience form of ScoreBatch.
func (s *Scorer) Score(ctx context.Context, premise, hypothesis string) (float64, error) {
	scores, err := s.ScoreBatch(ctx, []Pair{{Premise: premise, Hypothesis: hypothesis}})
	if err != nil {
		return 0, err
	}
	return scores[0], nil
}

func truncate(text string) string {
	if len(text) <= maxTextChars {
		return text
	}
	cut := maxTextChars
	// Back up to a rune boundary so the cut never splits a multi-byte rune.
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func softmax(logits []float64) []float64 {
	maxLogit := math.Inf(-1)
	for _, l := range logits {
		if l > maxLogit {
			maxLogit = l
		}
	}
	var sum float64
	out := make([]float64, len(logits))
	for i, l := range logits {
		out[i] = math.Exp(l - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
