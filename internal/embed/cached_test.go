package embed

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder wraps the static embedder and counts calls reaching it.
type countingEmbedder struct {
	*StaticEmbedder
	embedCalls int64
	batchCalls int64
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	atomic.AddInt64(&c.embedCalls, 1)
	return c.StaticEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	atomic.AddInt64(&c.batchCalls, 1)
	return c.StaticEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedder_CachesRepeatedQueries(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
	cached := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	first, err := cached.Embed(ctx, "tool calling")
	require.NoError(t, err)
	second, err := cached.Embed(ctx, "tool calling")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), atomic.LoadInt64(&inner.embedCalls))
}

func TestCachedEmbedder_BatchUsesCache(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
	cached := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	_, err := cached.Embed(ctx, "alpha")
	require.NoError(t, err)

	vecs, err := cached.EmbedBatch(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)

	// "alpha" was served from cache; only "beta" hit the inner embedder.
	assert.Equal(t, int64(1), atomic.LoadInt64(&inner.embedCalls))
	assert.Equal(t, int64(1), atomic.LoadInt64(&inner.batchCalls))

	// Fully cached batch makes no inner calls.
	_, err = cached.EmbedBatch(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), atomic.LoadInt64(&inner.batchCalls))
}

func TestCachedEmbedder_Passthrough(t *testing.T) {
	inner := NewStaticEmbedder()
	cached := NewCachedEmbedder(inner, 0) // 0 falls back to default size

	assert.Equal(t, inner.Dimensions(), cached.Dimensions())
	assert.Equal(t, inner.ModelName(), cached.ModelName())
	assert.Same(t, inner, cached.Inner())
	assert.True(t, cached.Available(context.Background()))
	assert.NoError(t, cached.Close())
}
