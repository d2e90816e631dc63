package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"doublespeak/internal/corpus"
	"doublespeak/internal/nli"
)

// HypocrisyHit pairs an incoming statement with a prior corpus statement
// and the probability that the two contradict. Hits are built fresh per
// query and never persisted.
type HypocrisyHit struct {
	Score       float64           `json:"score"`
	CorpusText  string            `json:"corpus_text"`
	SourceType  string            `json:"source_type"`
	SourceTitle string            `json:"source_title"`
	Locator     string            `json:"locator"`
	TsStart     *float64          `json:"ts_start,omitempty"`
	TsEnd       *float64          `json:"ts_end,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Store is the read-only corpus boundary the ranker consumes.
type Store interface {
	SegmentsWithEmbeddings(ctx context.Context) ([]corpus.SegmentVector, error)
	SourceByID(ctx context.Context, id int64) (*corpus.Source, error)
	CountSegments(ctx context.Context) (int, error)
}

// Embedder encodes statement text. See internal/embed.
type Embedder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// Scorer evaluates premise/hypothesis batches. See internal/nli.
type Scorer interface {
	ScoreBatch(ctx context.Context, pairs []nli.Pair) ([]float64, error)
}

// Ranker orchestrates embed -> retrieve -> score -> rank. It keeps no state
// between queries beyond the injected store handle and model clients, so
// concurrent Check calls are safe.
type Ranker struct {
	store          Store
	embedder       Embedder
	scorer         Scorer
	candidateLimit int
	logger         *QueryLogger
}

func NewRanker(store Store, embedder Embedder, scorer Scorer, candidateLimit int, logger *QueryLogger) *Ranker {
	if candidateLimit <= 0 {
		candidateLimit = DefaultCandidateLimit
	}
	return &Ranker{
		store:          store,
		embedder:       embedder,
		scorer:         scorer,
		candidateLimit: candidateLimit,
		logger:         logger,
	}
}

// Check returns up to topK hits for the statement, best first. An empty
// corpus yields an empty result, not an error. Fewer candidates than topK
// simply yield fewer hits. Source lookup misses are patched with placeholder
// metadata instead of failing the query.
func (r *Ranker) Check(ctx context.Context, statement string, topK int) ([]HypocrisyHit, error) {
	start := time.Now()
	var hits []HypocrisyHit
	var err error

	defer func() {
		if r.logger != nil && err == nil {
			r.logger.Log(QueryLogEntry{
				Statement:  statement,
				NumResults: len(hits),
				Duration:   time.Since(start),
			})
		}
	}()

	count, err := r.store.CountSegments(ctx)
	if err != nil {
		return nil, fmt.Errorf("count segments: %w", err)
	}
	if count == 0 {
		hits = []HypocrisyHit{}
		return hits, nil
	}

	queryVec, err := r.embedder.Encode(ctx, statement)
	if err != nil {
		return nil, fmt.Errorf("embed statement: %w", err)
	}

	segments, err := r.store.SegmentsWithEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}

	candidates := TopCandidates(queryVec, segments, r.candidateLimit)
	if len(candidates) == 0 {
		hits = []HypocrisyHit{}
		return hits, nil
	}

	// One batched call: per-pair scoring would cost a backend round-trip
	// per candidate.
	pairs := make([]nli.Pair, len(candidates))
	for i, c := range candidates {
		pairs[i] = nli.Pair{Premise: c.Text, Hypothesis: statement}
	}
	scores, err := r.scorer.ScoreBatch(ctx, pairs)
	if err != nil {
		return nil, fmt.Errorf("score candidates: %w", err)
	}

	type ranked struct {
		segment corpus.Segment
		score   float64
	}
	rankedHits := make([]ranked, len(candidates))
	for i, c := range candidates {
		rankedHits[i] = ranked{segment: c, score: scores[i]}
	}
	sort.SliceStable(rankedHits, func(i, j int) bool {
		return rankedHits[i].score > rankedHits[j].score
	})

	if topK < 0 {
		topK = 0
	}
	if topK > len(rankedHits) {
		topK = len(rankedHits)
	}
	hits = make([]HypocrisyHit, 0, topK)
	for _, rh := range rankedHits[:topK] {
		hit := HypocrisyHit{
			Score:       rh.score,
			CorpusText:  rh.segment.Text,
			SourceType:  "unknown",
			SourceTitle: "Unknown",
			TsStart:     rh.segment.TsStart,
			TsEnd:       rh.segment.TsEnd,
		}
		src, lookupErr := r.store.SourceByID(ctx, rh.segment.SourceID)
		if lookupErr != nil {
			slog.WarnContext(ctx, "source lookup failed", "source_id", rh.segment.SourceID, "error", lookupErr)
		} else if src != nil {
			hit.SourceType = src.Type
			hit.SourceTitle = src.Title
			hit.Locator = src.Locator
			hit.Extra = src.Extra
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
