package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AnefuIII/aihero/internal/embed"
	aerrors "github.com/AnefuIII/aihero/internal/errors"
	"github.com/AnefuIII/aihero/internal/store"
)

// Snapshot is an immutable view of one completed index build. The engine
// serves queries from exactly one snapshot at a time; a rebuild produces a
// new snapshot and swaps the reference, so readers never observe a
// partially built index.
type Snapshot struct {
	Keyword store.KeywordIndex
	Vector  store.VectorIndex

	// Chunks maps chunk ID to the full chunk for result enrichment.
	Chunks map[string]*store.Chunk

	Model      string
	Dimensions int
	BuiltAt    time.Time
}

// ChunkCount returns the number of chunks in the snapshot.
func (s *Snapshot) ChunkCount() int {
	return len(s.Chunks)
}

// Close releases the snapshot's index resources.
func (s *Snapshot) Close() error {
	var errs []error
	if s.Keyword != nil {
		if err := s.Keyword.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.Vector != nil {
		if err := s.Vector.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Engine is the hybrid retriever. It queries the keyword and vector
// indexes of the current snapshot in parallel, fuses the scores, and
// returns a bounded ranked list.
type Engine struct {
	mu       sync.RWMutex
	snapshot *Snapshot

	embedder embed.Embedder
	config   EngineConfig
	logger   *slog.Logger
}

// NewEngine creates a hybrid search engine. The embedder is required;
// the snapshot arrives later via Swap once the first build completes.
func NewEngine(embedder embed.Embedder, config EngineConfig, logger *slog.Logger) (*Engine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = DefaultConfig().DefaultLimit
	}
	if config.MaxLimit <= 0 {
		config.MaxLimit = DefaultConfig().MaxLimit
	}
	if config.CandidateFactor < 1 {
		config.CandidateFactor = DefaultConfig().CandidateFactor
	}
	if config.DefaultWeights.Keyword <= 0 && config.DefaultWeights.Vector <= 0 {
		config.DefaultWeights = DefaultWeights()
	}
	if config.EmbedTimeout <= 0 {
		config.EmbedTimeout = DefaultConfig().EmbedTimeout
	}

	return &Engine{
		embedder: embedder,
		config:   config,
		logger:   logger,
	}, nil
}

// Swap atomically replaces the served snapshot and returns the previous
// one so the caller can close it after in-flight queries drain.
func (e *Engine) Swap(snap *Snapshot) *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	old := e.snapshot
	e.snapshot = snap
	return old
}

// Ready reports whether a successful build has been swapped in.
func (e *Engine) Ready() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot != nil
}

// current returns the snapshot serving queries right now.
func (e *Engine) current() *Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot
}

// Stats describes the currently served snapshot.
func (e *Engine) Stats() *EngineStats {
	snap := e.current()
	if snap == nil {
		return &EngineStats{}
	}
	return &EngineStats{
		Ready:      true,
		ChunkCount: snap.ChunkCount(),
		Dimensions: snap.Dimensions,
		Model:      snap.Model,
		BuiltAt:    snap.BuiltAt,
	}
}

// Search runs a hybrid query against the current snapshot.
//
// Queries issued before the first successful build fail with
// IndexNotBuiltError: "not ready" is not the same as "no matches".
// An embedding failure or timeout at query time degrades to keyword-only
// results instead of failing the query.
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) ([]*SearchResult, error) {
	start := time.Now()

	snap := e.current()
	if snap == nil {
		return nil, aerrors.IndexNotBuiltError()
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return []*SearchResult{}, nil
	}

	opts = e.applyDefaults(opts)
	candidates := opts.Limit * e.config.CandidateFactor

	kwResults, vecResults, degraded, err := e.gatherCandidates(ctx, snap, query, candidates, opts.KeywordOnly)
	if err != nil {
		return nil, err
	}

	fusion := NewWeightedFusion(*opts.Weights)
	fused := fusion.Fuse(kwResults, vecResults)
	if len(fused) > opts.Limit {
		fused = fused[:opts.Limit]
	}

	results := make([]*SearchResult, 0, len(fused))
	for _, f := range fused {
		chunk, ok := snap.Chunks[f.ChunkID]
		if !ok {
			// An index hit without chunk metadata indicates a stale
			// snapshot file; skip rather than return a hollow result.
			e.logger.Warn("chunk_missing_from_snapshot", slog.String("chunk_id", f.ChunkID))
			continue
		}
		results = append(results, &SearchResult{
			Chunk:        chunk,
			Score:        f.Score,
			KeywordScore: f.KeywordScore,
			VectorScore:  f.VectorScore,
			Source:       f.Source,
			MatchedTerms: f.MatchedTerms,
		})
	}

	e.logger.Debug("search_complete",
		slog.String("query", query),
		slog.Int("results", len(results)),
		slog.Bool("degraded", degraded),
		slog.Duration("elapsed", time.Since(start)))

	return results, nil
}

// gatherCandidates queries both indexes in parallel. The keyword search
// uses the cleaned query; the vector search embeds the original text
// under EmbedTimeout.
func (e *Engine) gatherCandidates(
	ctx context.Context,
	snap *Snapshot,
	query string,
	limit int,
	keywordOnly bool,
) (kw []*store.KeywordResult, vec []*store.VectorResult, degraded bool, err error) {
	g, gctx := errgroup.WithContext(ctx)

	var kwErr, vecErr error

	g.Go(func() error {
		kw, kwErr = snap.Keyword.Search(gctx, CleanQuery(query), limit)
		return nil
	})

	vectorAttempted := !keywordOnly && snap.Vector.Count() > 0
	if vectorAttempted {
		g.Go(func() error {
			embedCtx, cancel := context.WithTimeout(gctx, e.config.EmbedTimeout)
			defer cancel()

			vector, embedErr := e.embedder.Embed(embedCtx, query)
			if embedErr != nil {
				// Documented fallback policy: a failed or timed-out
				// query embedding degrades to keyword-only results.
				vecErr = embedErr
				return nil
			}

			vec, vecErr = snap.Vector.Search(gctx, vector, limit)
			return nil
		})
	}

	_ = g.Wait()

	if vecErr != nil {
		degraded = true
		e.logger.Warn("vector_search_degraded",
			slog.String("query", query),
			slog.String("error", vecErr.Error()))
	}
	if kwErr != nil {
		switch {
		case !vectorAttempted:
			return nil, nil, false, aerrors.New(aerrors.ErrCodeSearchFailed, "keyword search failed", kwErr)
		case vecErr != nil:
			return nil, nil, false, aerrors.New(aerrors.ErrCodeSearchFailed, "both search sources failed", errors.Join(kwErr, vecErr))
		default:
			e.logger.Warn("keyword_search_failed",
				slog.String("query", query),
				slog.String("error", kwErr.Error()))
		}
	}

	return kw, vec, degraded, nil
}

// applyDefaults fills in defaults for search options.
func (e *Engine) applyDefaults(opts SearchOptions) SearchOptions {
	if opts.Limit <= 0 {
		opts.Limit = e.config.DefaultLimit
	}
	if opts.Limit > e.config.MaxLimit {
		opts.Limit = e.config.MaxLimit
	}
	if opts.Weights == nil {
		w := e.config.DefaultWeights
		opts.Weights = &w
	}
	return opts
}

// Close closes the served snapshot, if any.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.snapshot == nil {
		return nil
	}
	err := e.snapshot.Close()
	e.snapshot = nil
	return err
}
