package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVectors() ([]*Chunk, [][]float32) {
	chunks := []*Chunk{
		{ID: "doc1:0", Seq: 0},
		{ID: "doc1:20", Seq: 1},
		{ID: "doc2:0", Seq: 2},
	}
	vectors := [][]float32{
		{1, 0, 0, 0},
		{0.9, 0.1, 0, 0},
		{0, 0, 1, 0},
	}
	return chunks, vectors
}

func TestHNSWIndex_Search(t *testing.T) {
	idx := NewHNSWIndex(4)
	ctx := context.Background()

	chunks, vectors := testVectors()
	require.NoError(t, idx.Add(ctx, chunks, vectors))
	assert.Equal(t, 3, idx.Count())
	assert.Equal(t, 4, idx.Dimensions())

	results, err := idx.Search(ctx, []float32{1, 0, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "doc1:0", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, "doc1:20", results[1].ID)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Greater(t, results[1].Score, results[2].Score)
}

func TestHNSWIndex_ZeroVectorScoresZero(t *testing.T) {
	idx := NewHNSWIndex(4)
	ctx := context.Background()

	chunks := []*Chunk{
		{ID: "doc1:0", Seq: 0},
		{ID: "doc1:20", Seq: 1},
	}
	vectors := [][]float32{
		{0, 0, 0, 0}, // zero vector must stay searchable with score 0
		{0, 1, 0, 0},
	}
	require.NoError(t, idx.Add(ctx, chunks, vectors))

	results, err := idx.Search(ctx, []float32{0, 1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "doc1:20", results[0].ID)
	assert.Equal(t, "doc1:0", results[1].ID)
	assert.InDelta(t, 0.0, results[1].Score, 1e-6)
	assert.False(t, results[1].Score != results[1].Score, "score must not be NaN")
}

func TestHNSWIndex_DimensionMismatch(t *testing.T) {
	idx := NewHNSWIndex(4)
	ctx := context.Background()

	chunks, vectors := testVectors()
	require.NoError(t, idx.Add(ctx, chunks, vectors))

	_, err := idx.Search(ctx, []float32{1, 0}, 3)
	require.Error(t, err)
	assert.ErrorAs(t, err, &ErrDimensionMismatch{})

	err = idx.Add(ctx, []*Chunk{{ID: "x:0", Seq: 9}}, [][]float32{{1, 2}})
	require.Error(t, err)
}

func TestHNSWIndex_AdoptsDimensions(t *testing.T) {
	idx := NewHNSWIndex(0)
	ctx := context.Background()

	chunks, vectors := testVectors()
	require.NoError(t, idx.Add(ctx, chunks, vectors))
	assert.Equal(t, 4, idx.Dimensions())
}

func TestHNSWIndex_EmptySearch(t *testing.T) {
	idx := NewHNSWIndex(4)

	results, err := idx.Search(context.Background(), []float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHNSWIndex_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.hnsw")
	ctx := context.Background()

	idx := NewHNSWIndex(4)
	chunks, vectors := testVectors()
	require.NoError(t, idx.Add(ctx, chunks, vectors))
	require.NoError(t, idx.Save(path))

	dims, err := ReadHNSWDimensions(path)
	require.NoError(t, err)
	assert.Equal(t, 4, dims)

	loaded := NewHNSWIndex(0)
	require.NoError(t, loaded.Load(path))
	assert.Equal(t, 3, loaded.Count())
	assert.Equal(t, 4, loaded.Dimensions())

	results, err := loaded.Search(ctx, []float32{1, 0, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc1:0", results[0].ID)
}

func TestReadHNSWDimensions_MissingFile(t *testing.T) {
	dims, err := ReadHNSWDimensions(filepath.Join(t.TempDir(), "nope.hnsw"))
	require.NoError(t, err)
	assert.Equal(t, 0, dims)
}
