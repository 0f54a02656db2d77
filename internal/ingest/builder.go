// Package ingest builds the retrieval index: it loads documents, chunks
// them, embeds the chunks, and writes the keyword index, vector index,
// and metadata store. Builds are staged and swapped in atomically so a
// failed build never corrupts the serving index.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"

	"github.com/AnefuIII/aihero/internal/chunk"
	"github.com/AnefuIII/aihero/internal/config"
	"github.com/AnefuIII/aihero/internal/embed"
	aerrors "github.com/AnefuIII/aihero/internal/errors"
	"github.com/AnefuIII/aihero/internal/search"
	"github.com/AnefuIII/aihero/internal/source"
	"github.com/AnefuIII/aihero/internal/store"
)

// Builder runs full index builds for one project.
type Builder struct {
	root     string
	cfg      *config.Config
	embedder embed.Embedder
	logger   *slog.Logger
}

// BuildResult summarizes one completed build.
type BuildResult struct {
	Snapshot  *search.Snapshot
	Documents int
	Chunks    int
	Elapsed   time.Duration
}

// NewBuilder creates a builder for the given project root.
func NewBuilder(root string, cfg *config.Config, embedder embed.Embedder, logger *slog.Logger) (*Builder, error) {
	if cfg == nil {
		return nil, aerrors.ConfigError("config is required", nil)
	}
	if embedder == nil {
		return nil, aerrors.New(aerrors.ErrCodeInternal, "embedder is required", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		root:     root,
		cfg:      cfg,
		embedder: embedder,
		logger:   logger,
	}, nil
}

// Build performs a full rebuild: load, chunk, embed, index, persist.
//
// The whole pipeline is guarded by a cross-process file lock; a second
// concurrent build fails fast instead of corrupting shared files. A
// failed embedding aborts the build, leaving any previous index intact.
func (b *Builder) Build(ctx context.Context) (*BuildResult, error) {
	start := time.Now()
	paths := Paths{DataDir: config.DataDir(b.root)}

	if err := os.MkdirAll(paths.DataDir, 0o755); err != nil {
		return nil, aerrors.New(aerrors.ErrCodeBuildFailed, "create data directory", err)
	}

	lock := flock.New(paths.Lock())
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, aerrors.New(aerrors.ErrCodeBuildFailed, "acquire build lock", err)
	}
	if !acquired {
		return nil, aerrors.New(aerrors.ErrCodeIndexLocked, "another build is in progress", nil).
			WithSuggestion("wait for the running build to finish")
	}
	defer func() { _ = lock.Unlock() }()

	docs, err := source.NewLoader(b.docsRoot(), b.cfg.Docs.Exclude, b.logger).Load(ctx)
	if err != nil {
		return nil, err
	}

	chunker, err := chunk.New(b.cfg.Chunking.Size, b.cfg.Chunking.Step)
	if err != nil {
		return nil, err
	}

	var chunks []*store.Chunk
	seq := 0
	for _, doc := range docs {
		for _, c := range chunker.Split(doc) {
			seq++
			c.Seq = seq
			chunks = append(chunks, c)
		}
	}
	b.logger.Info("chunking_complete",
		slog.Int("documents", len(docs)),
		slog.Int("chunks", len(chunks)))

	reusable := b.reusableEmbeddings(ctx, paths, docs, chunks)
	vectors, err := b.embedChunks(ctx, chunks, reusable)
	if err != nil {
		// Fail-fast: a partial vector index would silently skew results.
		return nil, err
	}

	if err := b.writeIndexes(ctx, paths, chunks, vectors); err != nil {
		return nil, err
	}

	if err := b.persistMetadata(ctx, paths, docs, chunks, vectors); err != nil {
		return nil, err
	}

	snap, err := openSnapshot(paths, chunks, b.embedder.ModelName(), b.embedder.Dimensions())
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	b.logger.Info("build_complete",
		slog.Int("documents", len(docs)),
		slog.Int("chunks", len(chunks)),
		slog.Duration("elapsed", elapsed))

	return &BuildResult{
		Snapshot:  snap,
		Documents: len(docs),
		Chunks:    len(chunks),
		Elapsed:   elapsed,
	}, nil
}

func (b *Builder) docsRoot() string {
	root := b.cfg.Docs.Root
	if root == "" {
		root = "docs"
	}
	if !filepath.IsAbs(root) {
		root = filepath.Join(b.root, root)
	}
	return root
}

// reusableEmbeddings loads embeddings persisted by a previous build that
// are still valid for this one: same model, same dimensions, same chunk
// window parameters, and a parent document whose content is unchanged.
// Chunk IDs are offset-derived, so an unchanged document produces
// identical IDs across rebuilds. Any failure here just means embedding
// from scratch.
func (b *Builder) reusableEmbeddings(ctx context.Context, paths Paths, docs []*store.Document, chunks []*store.Chunk) map[string][]float32 {
	if _, err := os.Stat(paths.Metadata()); err != nil {
		return nil
	}

	meta, err := store.NewSQLiteMetadataStore(paths.Metadata())
	if err != nil {
		return nil
	}
	defer meta.Close()

	model, _ := meta.GetState(ctx, store.StateKeyModel)
	dims, _ := meta.GetState(ctx, store.StateKeyDimensions)
	size, _ := meta.GetState(ctx, store.StateKeyChunkSize)
	step, _ := meta.GetState(ctx, store.StateKeyChunkStep)
	if model != b.embedder.ModelName() ||
		dims != strconv.Itoa(b.embedder.Dimensions()) ||
		size != strconv.Itoa(b.cfg.Chunking.Size) ||
		step != strconv.Itoa(b.cfg.Chunking.Step) {
		return nil
	}

	prev, err := meta.LoadDocuments(ctx)
	if err != nil {
		return nil
	}
	prevContent := make(map[string]string, len(prev))
	for _, d := range prev {
		prevContent[d.ID] = d.Content
	}
	unchanged := make(map[string]bool, len(docs))
	for _, d := range docs {
		if content, ok := prevContent[d.ID]; ok && content == d.Content {
			unchanged[d.ID] = true
		}
	}
	if len(unchanged) == 0 {
		return nil
	}

	stored, err := meta.GetAllEmbeddings(ctx)
	if err != nil {
		return nil
	}

	reusable := make(map[string][]float32)
	for _, c := range chunks {
		if !unchanged[c.DocID] {
			continue
		}
		if vec, ok := stored[c.ID]; ok {
			reusable[c.ID] = vec
		}
	}
	return reusable
}

// embedChunks embeds every chunk not covered by a reusable embedding,
// batched by the configured batch size.
func (b *Builder) embedChunks(ctx context.Context, chunks []*store.Chunk, reusable map[string][]float32) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(chunks))
	var missing []int
	for i, c := range chunks {
		if vec, ok := reusable[c.ID]; ok {
			vectors[i] = vec
			continue
		}
		missing = append(missing, i)
	}
	if reused := len(chunks) - len(missing); reused > 0 {
		b.logger.Info("embeddings_reused",
			slog.Int("reused", reused),
			slog.Int("total", len(chunks)))
	}

	batchSize := b.cfg.Embeddings.BatchSize
	if batchSize <= 0 {
		batchSize = embed.DefaultBatchSize
	}

	for i := 0; i < len(missing); i += batchSize {
		end := i + batchSize
		if end > len(missing) {
			end = len(missing)
		}

		texts := make([]string, 0, end-i)
		for _, idx := range missing[i:end] {
			texts = append(texts, chunks[idx].Text)
		}

		batch, err := b.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, aerrors.EmbeddingError(
				fmt.Sprintf("embed chunks %d-%d of %d", i, end, len(missing)), err)
		}
		for j, idx := range missing[i:end] {
			vectors[idx] = batch[j]
		}

		b.logger.Debug("embedding_progress",
			slog.Int("done", end),
			slog.Int("total", len(missing)))
	}
	return vectors, nil
}

// writeIndexes builds both indexes in a staging directory and swaps the
// artifacts into place only after both succeed.
func (b *Builder) writeIndexes(ctx context.Context, paths Paths, chunks []*store.Chunk, vectors [][]float32) error {
	if err := os.RemoveAll(paths.Staging()); err != nil {
		return aerrors.New(aerrors.ErrCodeBuildFailed, "clear staging directory", err)
	}
	if err := os.MkdirAll(paths.Staging(), 0o755); err != nil {
		return aerrors.New(aerrors.ErrCodeBuildFailed, "create staging directory", err)
	}
	defer os.RemoveAll(paths.Staging())

	kw, err := store.NewKeywordIndex(paths.StagedKeyword())
	if err != nil {
		return err
	}
	if err := kw.Index(ctx, chunks); err != nil {
		kw.Close()
		return err
	}
	if err := kw.Close(); err != nil {
		return aerrors.New(aerrors.ErrCodeBuildFailed, "close staged keyword index", err)
	}

	vec := store.NewHNSWIndex(b.embedder.Dimensions())
	if len(chunks) > 0 {
		if err := vec.Add(ctx, chunks, vectors); err != nil {
			vec.Close()
			return err
		}
	}
	if err := vec.Save(paths.StagedVector()); err != nil {
		vec.Close()
		return err
	}
	if err := vec.Close(); err != nil {
		return aerrors.New(aerrors.ErrCodeBuildFailed, "close staged vector index", err)
	}

	swaps := [][2]string{
		{paths.StagedKeyword(), paths.Keyword()},
		{paths.StagedVector(), paths.Vector()},
		{paths.StagedVector() + ".meta", paths.Vector() + ".meta"},
	}
	for _, s := range swaps {
		if err := os.RemoveAll(s[1]); err != nil {
			return aerrors.New(aerrors.ErrCodeBuildFailed, fmt.Sprintf("remove stale artifact %s", s[1]), err)
		}
		if err := os.Rename(s[0], s[1]); err != nil {
			return aerrors.New(aerrors.ErrCodeBuildFailed, fmt.Sprintf("install artifact %s", s[1]), err)
		}
	}
	return nil
}

// persistMetadata writes documents, chunks, embeddings, and the build
// manifest to SQLite so later runs can reload without re-embedding.
func (b *Builder) persistMetadata(ctx context.Context, paths Paths, docs []*store.Document, chunks []*store.Chunk, vectors [][]float32) error {
	meta, err := store.NewSQLiteMetadataStore(paths.Metadata())
	if err != nil {
		return err
	}
	defer meta.Close()

	if err := meta.SaveDocuments(ctx, docs); err != nil {
		return err
	}
	if err := meta.SaveChunks(ctx, chunks); err != nil {
		return err
	}

	chunkIDs := make([]string, len(chunks))
	for i, c := range chunks {
		chunkIDs[i] = c.ID
	}
	if err := meta.SaveEmbeddings(ctx, chunkIDs, vectors, b.embedder.ModelName()); err != nil {
		return err
	}

	manifest := map[string]string{
		store.StateKeyModel:      b.embedder.ModelName(),
		store.StateKeyDimensions: strconv.Itoa(b.embedder.Dimensions()),
		store.StateKeyChunkSize:  strconv.Itoa(b.cfg.Chunking.Size),
		store.StateKeyChunkStep:  strconv.Itoa(b.cfg.Chunking.Step),
		store.StateKeyBuiltAt:    time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range manifest {
		if err := meta.SetState(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}

// LoadSnapshot opens a previously built index from disk. The embedder's
// dimensions must match the manifest; a mismatch means the index was
// built with a different model and must be rebuilt, not reinterpreted.
func LoadSnapshot(ctx context.Context, root string, embedder embed.Embedder, logger *slog.Logger) (*search.Snapshot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	paths := Paths{DataDir: config.DataDir(root)}

	if _, err := os.Stat(paths.Metadata()); err != nil {
		return nil, aerrors.IndexNotBuiltError()
	}

	meta, err := store.NewSQLiteMetadataStore(paths.Metadata())
	if err != nil {
		return nil, err
	}
	defer meta.Close()

	model, _ := meta.GetState(ctx, store.StateKeyModel)
	dimsStr, _ := meta.GetState(ctx, store.StateKeyDimensions)
	builtAtStr, _ := meta.GetState(ctx, store.StateKeyBuiltAt)
	if model == "" || dimsStr == "" {
		return nil, aerrors.IndexNotBuiltError()
	}

	dims, err := strconv.Atoi(dimsStr)
	if err != nil {
		return nil, aerrors.New(aerrors.ErrCodeCorruptIndex, "invalid dimension in build manifest", err)
	}
	if embedder != nil && dims != embedder.Dimensions() {
		return nil, aerrors.New(aerrors.ErrCodeDimensions,
			store.ErrDimensionMismatch{Expected: embedder.Dimensions(), Got: dims}.Error(), nil).
			WithSuggestion("run 'aihero index --force' to rebuild with the current model")
	}
	if embedder != nil && model != embedder.ModelName() {
		logger.Warn("index_model_differs",
			slog.String("index_model", model),
			slog.String("current_model", embedder.ModelName()))
	}

	chunks, err := meta.LoadChunks(ctx)
	if err != nil {
		return nil, err
	}

	snap, err := openSnapshot(paths, chunks, model, dims)
	if err != nil {
		return nil, err
	}
	if builtAt, err := time.Parse(time.RFC3339, builtAtStr); err == nil {
		snap.BuiltAt = builtAt
	}

	logger.Info("snapshot_loaded",
		slog.Int("chunks", len(chunks)),
		slog.String("model", model))
	return snap, nil
}

// openSnapshot opens the on-disk indexes and assembles a serving snapshot.
func openSnapshot(paths Paths, chunks []*store.Chunk, model string, dims int) (*search.Snapshot, error) {
	kw, err := store.NewKeywordIndex(paths.Keyword())
	if err != nil {
		return nil, err
	}

	vec := store.NewHNSWIndex(dims)
	if err := vec.Load(paths.Vector()); err != nil {
		kw.Close()
		return nil, err
	}

	byID := make(map[string]*store.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}

	return &search.Snapshot{
		Keyword:    kw,
		Vector:     vec,
		Chunks:     byID,
		Model:      model,
		Dimensions: dims,
		BuiltAt:    time.Now().UTC(),
	}, nil
}
