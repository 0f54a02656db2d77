package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKeywordIndex(t *testing.T) *BleveKeywordIndex {
	t.Helper()
	idx, err := NewKeywordIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func testChunks() []*Chunk {
	return []*Chunk{
		{ID: "doc1:0", Seq: 0, Title: "autogen", Text: "AutoGen agents support tool calling."},
		{ID: "doc1:20", Seq: 1, Title: "autogen", Text: "Tools are functions agents can invoke."},
		{ID: "doc2:0", Seq: 2, Title: "planning", Text: "Planning loops coordinate multiple steps."},
	}
}

func TestKeywordIndex_Search(t *testing.T) {
	idx := newTestKeywordIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, testChunks()))
	assert.Equal(t, 3, idx.Count())

	results, err := idx.Search(ctx, "tool calling", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	// Only the chunk containing the query terms matches; "tools" is a
	// different term than "tool" and does not.
	assert.Equal(t, "doc1:0", results[0].ID)
	assert.Equal(t, 0, results[0].Seq)
	assert.Greater(t, results[0].Score, 0.0)
	assert.Contains(t, results[0].MatchedTerms, "tool")
	assert.Contains(t, results[0].MatchedTerms, "calling")
	for _, r := range results {
		assert.NotEqual(t, "doc2:0", r.ID, "chunk without query terms must not match")
	}
}

func TestKeywordIndex_SearchTitle(t *testing.T) {
	idx := newTestKeywordIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, testChunks()))

	results, err := idx.Search(ctx, "planning", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "doc2:0", results[0].ID)
}

func TestKeywordIndex_EmptyQuery(t *testing.T) {
	idx := newTestKeywordIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, testChunks()))

	results, err := idx.Search(ctx, "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestKeywordIndex_NoMatches(t *testing.T) {
	idx := newTestKeywordIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, testChunks()))

	results, err := idx.Search(ctx, "zebra", 10)
	require.NoError(t, err)
	assert.Empty(t, results, "absent terms contribute nothing, not an error")
}

func TestKeywordIndex_TieBreakByIngestionOrder(t *testing.T) {
	idx := newTestKeywordIndex(t)
	ctx := context.Background()

	// Identical text scores identically; order must follow seq.
	chunks := []*Chunk{
		{ID: "late:0", Seq: 5, Text: "identical window of text"},
		{ID: "early:0", Seq: 2, Text: "identical window of text"},
	}
	require.NoError(t, idx.Index(ctx, chunks))

	results, err := idx.Search(ctx, "identical window", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "early:0", results[0].ID)
	assert.Equal(t, "late:0", results[1].ID)
}

func TestKeywordIndex_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyword.bleve")
	ctx := context.Background()

	idx, err := NewKeywordIndex(path)
	require.NoError(t, err)
	require.NoError(t, idx.Index(ctx, testChunks()))
	require.NoError(t, idx.Close())

	reopened, err := NewKeywordIndex(path)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, 3, reopened.Count())
	results, err := reopened.Search(ctx, "tool calling", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "doc1:0", results[0].ID)
}
