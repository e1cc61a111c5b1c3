// Package mock provides a deterministic embedder for tests: no network, no
// model files, stable vectors per input.
package mock

import (
	"context"
	"hash/fnv"
	"math"
)

// Embedder generates hash-seeded pseudo-random unit vectors. Identical text
// always produces the identical vector, so exact-match queries score 1.0;
// there is no real semantic similarity between different texts.
type Embedder struct {
	dimensions int
}

// New creates a mock embedder with 384 dimensions, matching
// all-MiniLM-L6-v2.
func New() *Embedder {
	return &Embedder{dimensions: 384}
}

// NewWithDimensions creates a mock embedder with a custom vector size.
func NewWithDimensions(dims int) *Embedder {
	return &Embedder{dimensions: dims}
}

// Embed creates a deterministic embedding from text.
func (m *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	embedding := make([]float32, m.dimensions)
	for i := 0; i < m.dimensions; i++ {
		// LCG keeps it dependency-free and reproducible.
		seed = seed*6364136223846793005 + 1442695040888963407
		embedding[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}
	return normalize(embedding), nil
}

// Dimensions returns the embedding size.
func (m *Embedder) Dimensions() int { return m.dimensions }

// Close is a no-op.
func (m *Embedder) Close() error { return nil }

func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = float32(math.Sqrt(float64(norm)))
	for i, v := range vec {
		vec[i] = v / norm
	}
	return vec
}
