// Package embed maps statement text to fixed-dimensionality vectors.
package embed

import "context"

// Embedder produces one vector per input text. Implementations must be safe
// for concurrent use and deterministic for a fixed model version: the same
// text always yields the same vector.
type Embedder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
	// EncodeBatch returns vectors in input order.
	EncodeBatch(ctx context.Context, texts []string) ([][]float32, error)
}
