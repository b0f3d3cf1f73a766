package cache

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/mnemoai/mnemo-go-sdk/memory/embedder/mock"
)

// countingEmbedder tracks how often the inner embedder actually runs.
type countingEmbedder struct {
	inner *mock.Embedder
	calls atomic.Int64
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	return c.inner.Embed(ctx, text)
}

func (c *countingEmbedder) Dimensions() int { return c.inner.Dimensions() }

func TestCacheHit(t *testing.T) {
	inner := &countingEmbedder{inner: mock.New()}
	cached, err := New(inner, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer cached.Close()

	ctx := context.Background()
	first, err := cached.Embed(ctx, "repeated text")
	if err != nil {
		t.Fatal(err)
	}
	cached.Wait()

	second, err := cached.Embed(ctx, "repeated text")
	if err != nil {
		t.Fatal(err)
	}

	if got := inner.calls.Load(); got != 1 {
		t.Errorf("inner embedder ran %d times, want 1", got)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("cached vector differs at %d", i)
		}
	}
}

func TestCacheMiss(t *testing.T) {
	inner := &countingEmbedder{inner: mock.New()}
	cached, err := New(inner, &Config{MaxCostBytes: 1 << 20})
	if err != nil {
		t.Fatal(err)
	}
	defer cached.Close()

	ctx := context.Background()
	if _, err := cached.Embed(ctx, "alpha"); err != nil {
		t.Fatal(err)
	}
	if _, err := cached.Embed(ctx, "beta"); err != nil {
		t.Fatal(err)
	}

	if got := inner.calls.Load(); got != 2 {
		t.Errorf("inner embedder ran %d times, want 2", got)
	}
	if cached.Dimensions() != 384 {
		t.Errorf("dimensions = %d", cached.Dimensions())
	}
}
