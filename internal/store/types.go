// Package store provides the persistence layer for indexed data: the
// keyword index (Bleve), the vector index (HNSW), and chunk metadata (SQLite).
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// State keys for the metadata store manifest.
const (
	// StateKeyModel stores the embedding model name used for the index.
	StateKeyModel = "index_embedding_model"
	// StateKeyDimensions stores the embedding dimension used for the index.
	StateKeyDimensions = "index_embedding_dimension"
	// StateKeyChunkSize stores the chunk window size the index was built with.
	StateKeyChunkSize = "index_chunk_size"
	// StateKeyChunkStep stores the chunk stride the index was built with.
	StateKeyChunkStep = "index_chunk_step"
	// StateKeyBuiltAt stores the RFC3339 timestamp of the last successful build.
	StateKeyBuiltAt = "index_built_at"
	// StateKeySchemaVersion stores the on-disk schema version.
	StateKeySchemaVersion = "schema_version"
)

// CurrentSchemaVersion is the current on-disk schema version.
const CurrentSchemaVersion = 1

// Document represents a normalized source document handed to ingestion.
type Document struct {
	ID        string            // SHA256(path), truncated
	Path      string            // Relative to the docs root
	Title     string            // First heading, or the file name
	Content   string            // Full text
	IsCode    bool              // True for source files
	Metadata  map[string]string // Custom metadata
	CreatedAt time.Time
}

// Chunk is the atomic unit of retrieval: a fixed window of a document,
// addressed by its rune offset.
type Chunk struct {
	ID       string            // DocID + ":" + start offset
	DocID    string            // Parent document ID
	Seq      int               // Global ingestion ordinal, assigned at build
	Path     string            // Parent document path
	Title    string            // Parent document title
	Start    int               // Rune offset of the window into the document
	Text     string            // Window content
	IsCode   bool              // Inherited from the parent document
	Metadata map[string]string // Inherited from the parent document
}

// DocumentID derives a stable document ID from its path.
func DocumentID(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])[:16]
}

// ChunkID derives a chunk ID from its parent document and start offset.
// The offset keeps IDs stable across rebuilds of unchanged documents.
func ChunkID(docID string, start int) string {
	return fmt.Sprintf("%s:%d", docID, start)
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	ID           string   // Chunk ID
	Seq          int      // Ingestion ordinal
	Score        float64  // Raw TF-IDF/BM25 score
	MatchedTerms []string // Analyzed query terms found in the chunk
}

// VectorResult is a single vector search hit.
type VectorResult struct {
	ID       string  // Chunk ID
	Seq      int     // Ingestion ordinal
	Score    float64 // Cosine similarity of unit vectors; 0 for zero vectors
	Distance float32 // 1 - similarity
}

// KeywordIndex provides keyword search over chunk text and titles.
type KeywordIndex interface {
	// Index adds chunks to the index.
	Index(ctx context.Context, chunks []*Chunk) error

	// Search returns chunks matching the query, scored by the index,
	// ties broken by ingestion order.
	Search(ctx context.Context, query string, limit int) ([]*KeywordResult, error)

	// Count returns the number of indexed chunks.
	Count() int

	Close() error
}

// VectorIndex provides nearest-neighbor search over chunk embeddings.
type VectorIndex interface {
	// Add inserts chunk vectors keyed by ingestion ordinal.
	Add(ctx context.Context, chunks []*Chunk, vectors [][]float32) error

	// Search finds the k nearest chunks to the query vector.
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)

	// Count returns the number of indexed vectors.
	Count() int

	// Dimensions returns the vector dimension, 0 before the first Add.
	Dimensions() int

	// Persistence
	Save(path string) error
	Load(path string) error
	Close() error
}

// StoreStats summarizes metadata store contents.
type StoreStats struct {
	Documents  int
	Chunks     int
	Embeddings int
}

// MetadataStore persists documents, chunks, and embeddings in SQLite so an
// index can be reloaded without re-reading sources or re-embedding.
type MetadataStore interface {
	SaveDocuments(ctx context.Context, docs []*Document) error
	SaveChunks(ctx context.Context, chunks []*Chunk) error
	SaveEmbeddings(ctx context.Context, chunkIDs []string, vectors [][]float32, model string) error

	LoadDocuments(ctx context.Context) ([]*Document, error)
	// LoadChunks returns all chunks ordered by ingestion ordinal.
	LoadChunks(ctx context.Context) ([]*Chunk, error)
	GetAllEmbeddings(ctx context.Context) (map[string][]float32, error)

	// State operations (key-value manifest)
	GetState(ctx context.Context, key string) (string, error)
	SetState(ctx context.Context, key, value string) error

	Stats(ctx context.Context) (*StoreStats, error)
	Close() error
}

// ErrDimensionMismatch indicates a vector dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (run 'aihero index --force')", e.Expected, e.Got)
}
