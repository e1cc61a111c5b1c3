// Package cache wraps an embedder with a ristretto read-through cache keyed
// by content hash, so identical text embeds at most once per process. Tool
// inputs repeat often (the same query retried, the same fact re-saved), and
// an embedding round trip costs orders of magnitude more than a map lookup.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/dgraph-io/ristretto"

	"memgate/memstore"
)

// Embedder is a caching decorator around another memstore.Embedder.
type Embedder struct {
	inner memstore.Embedder
	cache *ristretto.Cache
}

// New wraps inner with a cache holding up to maxEntries vectors.
// Non-positive maxEntries picks a default of 4096.
func New(inner memstore.Embedder, maxEntries int64) (*Embedder, error) {
	if maxEntries <= 0 {
		maxEntries = 4096
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
		// Entries are Set with cost 1 so MaxCost counts vectors. Without
		// this flag ristretto also charges each item's internal overhead
		// against MaxCost and admits almost nothing.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding cache: %w", err)
	}
	return &Embedder{inner: inner, cache: c}, nil
}

// Embed returns a cached vector when the exact text was embedded before,
// otherwise delegates and caches the result. Cache admission is best effort;
// a rejected Set just means the next call embeds again.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := contentHash(text)
	if v, ok := e.cache.Get(key); ok {
		if vec, ok := v.([]float32); ok {
			return vec, nil
		}
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Set(key, vec, 1)
	return vec, nil
}

// Dimensions returns the inner embedder's vector size.
func (e *Embedder) Dimensions() int { return e.inner.Dimensions() }

// Close releases the cache and the inner embedder.
func (e *Embedder) Close() error {
	e.cache.Close()
	return e.inner.Close()
}

func contentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
