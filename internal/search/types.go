// Package search provides hybrid retrieval combining keyword and vector
// search. Per-source scores are min-max normalized and fused with a
// configurable weighted sum.
package search

import (
	"time"

	"github.com/AnefuIII/aihero/internal/store"
)

// Source identifies which index (or both) produced a result.
type Source string

const (
	// SourceKeyword marks results found only by the keyword index.
	SourceKeyword Source = "keyword"
	// SourceVector marks results found only by the vector index.
	SourceVector Source = "vector"
	// SourceBoth marks results found by both indexes.
	SourceBoth Source = "both"
)

// Weights configures the relative contribution of each source to the
// fused score. Explicit configuration, not hidden constants.
type Weights struct {
	// Keyword is the weight for keyword (TF-IDF) scores.
	Keyword float64

	// Vector is the weight for vector similarity scores.
	Vector float64
}

// DefaultWeights weighs both sources equally.
func DefaultWeights() Weights {
	return Weights{Keyword: 0.5, Vector: 0.5}
}

// SearchOptions configures a single query.
type SearchOptions struct {
	// Limit bounds the number of results (default: 10, max: EngineConfig.MaxLimit).
	Limit int

	// Weights overrides the engine's default fusion weights.
	Weights *Weights

	// KeywordOnly skips vector search entirely.
	KeywordOnly bool
}

// SearchResult is a single fused query result.
type SearchResult struct {
	// Chunk is the full chunk, including text, path, and start offset.
	Chunk *store.Chunk

	// Score is the fused, weighted score.
	Score float64

	// KeywordScore is the raw keyword score (0 if not found by keyword).
	KeywordScore float64

	// VectorScore is the raw vector similarity (0 if not found by vector).
	VectorScore float64

	// Source tells which index produced this result.
	Source Source

	// MatchedTerms are the analyzed query terms found by the keyword index.
	MatchedTerms []string
}

// EngineConfig configures the hybrid retriever.
type EngineConfig struct {
	// DefaultLimit is the result count when the caller does not specify one.
	DefaultLimit int

	// MaxLimit caps the result count per query.
	MaxLimit int

	// CandidateFactor multiplies the limit when querying each source so
	// fusion can re-rank without starving either index.
	CandidateFactor int

	// DefaultWeights are the fusion weights when the query sets none.
	DefaultWeights Weights

	// EmbedTimeout bounds the query-time embedding call. On timeout the
	// engine degrades to keyword-only results.
	EmbedTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() EngineConfig {
	return EngineConfig{
		DefaultLimit:    10,
		MaxLimit:        100,
		CandidateFactor: 3,
		DefaultWeights:  DefaultWeights(),
		EmbedTimeout:    5 * time.Second,
	}
}

// EngineStats summarizes the currently served snapshot.
type EngineStats struct {
	Ready      bool
	ChunkCount int
	Dimensions int
	Model      string
	BuiltAt    time.Time
}
