package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnefuIII/aihero/internal/search"
	"github.com/AnefuIII/aihero/internal/store"
)

func sampleResults() []*search.SearchResult {
	return []*search.SearchResult{
		{
			Chunk: &store.Chunk{
				ID:    "doc1:0",
				Path:  "docs/autogen.md",
				Title: "AutoGen Agents",
				Start: 0,
				Text:  "AutoGen agents support tool calling through registered functions.",
			},
			Score:        0.87,
			KeywordScore: 4.2,
			VectorScore:  0.91,
			Source:       search.SourceBoth,
			MatchedTerms: []string{"tool", "calling"},
		},
		{
			Chunk: &store.Chunk{
				ID:    "doc2:0",
				Path:  "docs/planning.md",
				Start: 0,
				Text:  "Agents invoke external tools when the planner selects an action.",
			},
			Score:  0.41,
			Source: search.SourceVector,
		},
	}
}

func TestSearchResults_Plain(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf)

	require.NoError(t, r.SearchResults("tool calling", sampleResults(), 12*time.Millisecond))
	out := buf.String()

	assert.Contains(t, out, "2 results for \"tool calling\"")
	assert.Contains(t, out, "1. AutoGen Agents")
	assert.Contains(t, out, "(0.870)")
	assert.Contains(t, out, "[both]")
	assert.Contains(t, out, "docs/autogen.md @0")
	assert.Contains(t, out, "matched: tool, calling")
	// A result without a title falls back to its path.
	assert.Contains(t, out, "2. docs/planning.md")
}

func TestSearchResults_Empty(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf)

	require.NoError(t, r.SearchResults("nothing", nil, time.Millisecond))
	assert.Contains(t, buf.String(), "No results")
}

func TestSearchResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, WithJSON())

	require.NoError(t, r.SearchResults("tool calling", sampleResults(), 12*time.Millisecond))

	var payload struct {
		Query   string       `json:"query"`
		Results []jsonResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &payload))
	assert.Equal(t, "tool calling", payload.Query)
	require.Len(t, payload.Results, 2)
	assert.Equal(t, "docs/autogen.md", payload.Results[0].Path)
	assert.Equal(t, "both", payload.Results[0].Source)
}

func TestBuildSummary(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf)

	require.NoError(t, r.BuildSummary(12, 87, "nomic-embed-text", 3*time.Second))
	out := buf.String()
	assert.Contains(t, out, "Index built.")
	assert.Contains(t, out, "87")
	assert.Contains(t, out, "nomic-embed-text")
}

func TestStatus(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf)

	require.NoError(t, r.Status(&search.EngineStats{
		Ready:      true,
		ChunkCount: 87,
		Dimensions: 256,
		Model:      "static",
		BuiltAt:    time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}))
	out := buf.String()
	assert.Contains(t, out, "Index ready.")
	assert.Contains(t, out, "87")
	assert.Contains(t, out, "static")
	assert.Contains(t, out, "2026-08-01T12:00:00Z")
}

func TestStatus_NotReady(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf)

	require.NoError(t, r.Status(&search.EngineStats{}))
	assert.Contains(t, buf.String(), "aihero index")
}

func TestSnippet_Truncation(t *testing.T) {
	long := strings.Repeat("word ", 100)
	s := snippet(long)
	assert.LessOrEqual(t, len([]rune(s)), resultSnippetLength+3)
	assert.True(t, strings.HasSuffix(s, "..."))

	assert.Equal(t, "a b", snippet("a\n\n  b"))
}

func TestNewRenderer_BufferIsNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf)
	r.Error("boom")
	// No ANSI escapes when the writer is not a TTY.
	assert.NotContains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), "error: boom")
}
