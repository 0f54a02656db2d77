package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func TestStaticEmbedder_Deterministic(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	a, err := e.Embed(ctx, "tool calling in agents")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "tool calling in agents")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, StaticDimensions)
	assert.InDelta(t, 1.0, vectorNorm(a), 1e-5)
}

func TestStaticEmbedder_EmptyTextIsZeroVector(t *testing.T) {
	e := NewStaticEmbedder()

	vec, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.Len(t, vec, StaticDimensions)
	assert.InDelta(t, 0.0, vectorNorm(vec), 1e-9)
}

func TestStaticEmbedder_SimilarTextsScoreHigher(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	query, err := e.Embed(ctx, "tool calling")
	require.NoError(t, err)
	related, err := e.Embed(ctx, "agents support tool calling")
	require.NoError(t, err)
	unrelated, err := e.Embed(ctx, "quarterly revenue forecast")
	require.NoError(t, err)

	assert.Greater(t, dot(query, related), dot(query, unrelated))
}

func TestStaticEmbedder_EmbedBatch(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	texts := []string{"first text", "", "third text"}
	vecs, err := e.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	single, err := e.Embed(ctx, "first text")
	require.NoError(t, err)
	assert.Equal(t, single, vecs[0])
	assert.InDelta(t, 0.0, vectorNorm(vecs[1]), 1e-9)

	empty, err := e.EmbedBatch(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStaticEmbedder_Lifecycle(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	assert.Equal(t, "static", e.ModelName())
	assert.Equal(t, StaticDimensions, e.Dimensions())
	assert.True(t, e.Available(ctx))

	require.NoError(t, e.Close())
	assert.False(t, e.Available(ctx))
	_, err := e.Embed(ctx, "text")
	assert.Error(t, err)
}
