package search

import (
	"sort"

	"github.com/AnefuIII/aihero/internal/store"
)

// FusedResult is a single result after score fusion.
type FusedResult struct {
	ChunkID      string   // Chunk identifier
	Seq          int      // Ingestion ordinal, for deterministic tie-breaking
	Score        float64  // Weighted sum of normalized per-source scores
	KeywordScore float64  // Raw keyword score (0 if absent)
	VectorScore  float64  // Raw vector similarity (0 if absent)
	Source       Source   // keyword, vector, or both
	MatchedTerms []string // Keyword matched terms (for display)
}

// WeightedFusion combines keyword and vector results.
//
// Each source's scores are min-max normalized to [0, 1] per query, then
// combined as w.Keyword*kw + w.Vector*vec. A chunk found by both sources
// accumulates both contributions and is marked SourceBoth; a chunk found
// by one source keeps that source's single contribution.
type WeightedFusion struct {
	Weights Weights
}

// NewWeightedFusion creates a fusion with the given weights.
// Non-positive weight pairs fall back to the defaults.
func NewWeightedFusion(w Weights) *WeightedFusion {
	if w.Keyword <= 0 && w.Vector <= 0 {
		w = DefaultWeights()
	}
	return &WeightedFusion{Weights: w}
}

// Fuse merges the two candidate lists into one ranked list.
//
// Ordering: fused score descending, then SourceBoth above single-source,
// then ingestion order ascending.
func (f *WeightedFusion) Fuse(kw []*store.KeywordResult, vec []*store.VectorResult) []*FusedResult {
	if len(kw) == 0 && len(vec) == 0 {
		return []*FusedResult{}
	}

	fused := make(map[string]*FusedResult, len(kw)+len(vec))

	kwNorm := normalizeKeywordScores(kw)
	for i, r := range kw {
		fused[r.ID] = &FusedResult{
			ChunkID:      r.ID,
			Seq:          r.Seq,
			Score:        f.Weights.Keyword * kwNorm[i],
			KeywordScore: r.Score,
			Source:       SourceKeyword,
			MatchedTerms: r.MatchedTerms,
		}
	}

	vecNorm := normalizeVectorScores(vec)
	for i, r := range vec {
		if existing, ok := fused[r.ID]; ok {
			existing.Score += f.Weights.Vector * vecNorm[i]
			existing.VectorScore = r.Score
			existing.Source = SourceBoth
			continue
		}
		fused[r.ID] = &FusedResult{
			ChunkID:     r.ID,
			Seq:         r.Seq,
			Score:       f.Weights.Vector * vecNorm[i],
			VectorScore: r.Score,
			Source:      SourceVector,
		}
	}

	results := make([]*FusedResult, 0, len(fused))
	for _, r := range fused {
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if (a.Source == SourceBoth) != (b.Source == SourceBoth) {
			return a.Source == SourceBoth
		}
		return a.Seq < b.Seq
	})

	return results
}

// normalizeKeywordScores min-max normalizes keyword scores to [0, 1].
func normalizeKeywordScores(results []*store.KeywordResult) []float64 {
	scores := make([]float64, len(results))
	for i, r := range results {
		scores[i] = r.Score
	}
	return minMaxNormalize(scores)
}

// normalizeVectorScores min-max normalizes vector similarities to [0, 1].
func normalizeVectorScores(results []*store.VectorResult) []float64 {
	scores := make([]float64, len(results))
	for i, r := range results {
		scores[i] = r.Score
	}
	return minMaxNormalize(scores)
}

// minMaxNormalize maps scores to [0, 1] per query. When all scores are
// equal the spread is zero; every candidate is then an equally good best
// match for its source and gets 1.0, unless the shared score is <= 0
// (no actual signal), which normalizes to 0.
func minMaxNormalize(scores []float64) []float64 {
	if len(scores) == 0 {
		return scores
	}

	min, max := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}

	normalized := make([]float64, len(scores))
	if max == min {
		if max > 0 {
			for i := range normalized {
				normalized[i] = 1.0
			}
		}
		return normalized
	}

	spread := max - min
	for i, s := range scores {
		normalized[i] = (s - min) / spread
	}
	return normalized
}
