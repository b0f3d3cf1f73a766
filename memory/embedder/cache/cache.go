// Package cache wraps an Embedder with a ristretto cache so repeated texts
// skip the embedding capability. Memory reads embed the same user phrasings
// over and over; caching them is cheap and the vectors are immutable.
package cache

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"

	"github.com/mnemoai/mnemo-go-sdk/memory"
)

// Embedder is a caching decorator over another Embedder.
type Embedder struct {
	inner memory.Embedder
	cache *ristretto.Cache
}

// Config bounds the cache.
type Config struct {
	// MaxCostBytes caps the total cached vector bytes. Default: 16 MiB.
	MaxCostBytes int64
}

// New creates a caching embedder around inner.
func New(inner memory.Embedder, cfg *Config) (*Embedder, error) {
	maxCost := int64(16 << 20)
	if cfg != nil && cfg.MaxCostBytes > 0 {
		maxCost = cfg.MaxCostBytes
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 100_000,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}

	return &Embedder{inner: inner, cache: cache}, nil
}

// Embed returns the cached vector for text, or delegates and caches.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		if vec, ok := cached.([]float32); ok {
			return vec, nil
		}
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	e.cache.Set(text, vec, int64(4*len(vec)))
	return vec, nil
}

// Dimensions returns the inner embedder's vector size.
func (e *Embedder) Dimensions() int {
	return e.inner.Dimensions()
}

// Wait blocks until pending cache writes are applied. Tests use this to make
// hit behavior deterministic.
func (e *Embedder) Wait() {
	e.cache.Wait()
}

// Close releases the cache.
func (e *Embedder) Close() {
	e.cache.Close()
}

var _ memory.Embedder = (*Embedder)(nil)
