package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

// HNSWIndex implements VectorIndex using the coder/hnsw pure Go graph.
// Graph keys are ingestion ordinals, so vector hits carry the ordering
// needed for deterministic tie-breaking without a metadata lookup.
type HNSWIndex struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	dims   int
	ids    map[uint64]string // ordinal -> chunk ID
	closed bool
}

// hnswMeta stores key mappings and dimension for persistence.
type hnswMeta struct {
	IDs  map[uint64]string
	Dims int
}

// unitDotDistanceName registers the distance function so graph export and
// import can resolve it by name.
const unitDotDistanceName = "unit_dot"

func init() {
	hnsw.RegisterDistanceFunc(unitDotDistanceName, unitDotDistance)
}

// NewHNSWIndex creates an empty vector index. dims may be 0, in which case
// the dimension is adopted from the first inserted vector.
func NewHNSWIndex(dims int) *HNSWIndex {
	graph := hnsw.NewGraph[uint64]()
	// Vectors are normalized on insert, so the dot-product distance is the
	// cosine distance, and zero vectors score 0 instead of producing NaN.
	graph.Distance = unitDotDistance
	graph.M = 16
	graph.EfSearch = 64
	graph.Ml = 0.25

	return &HNSWIndex{
		graph: graph,
		dims:  dims,
		ids:   make(map[uint64]string),
	}
}

// Add inserts chunk vectors keyed by ingestion ordinal.
// Every vector must have the same dimension as the index.
func (s *HNSWIndex) Add(ctx context.Context, chunks []*Chunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("vector index is closed")
	}

	for _, v := range vectors {
		if s.dims == 0 {
			s.dims = len(v)
		}
		if len(v) != s.dims {
			return ErrDimensionMismatch{Expected: s.dims, Got: len(v)}
		}
	}

	for i, c := range chunks {
		key := uint64(c.Seq)

		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		normalizeVectorInPlace(vec)

		s.graph.Add(hnsw.MakeNode(key, vec))
		s.ids[key] = c.ID
	}

	return nil
}

// Search finds the k nearest chunks to the query vector.
// Results are ordered by similarity descending, ties by ingestion order.
func (s *HNSWIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("vector index is closed")
	}
	if s.graph.Len() == 0 {
		return []*VectorResult{}, nil
	}
	if len(query) != s.dims {
		return nil, ErrDimensionMismatch{Expected: s.dims, Got: len(query)}
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	normalizeVectorInPlace(normalized)

	nodes := s.graph.Search(normalized, k)

	results := make([]*VectorResult, 0, len(nodes))
	for _, node := range nodes {
		id, ok := s.ids[node.Key]
		if !ok {
			continue
		}
		distance := s.graph.Distance(normalized, node.Value)
		results = append(results, &VectorResult{
			ID:       id,
			Seq:      int(node.Key),
			Score:    float64(1 - distance),
			Distance: distance,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Seq < results[j].Seq
	})

	return results, nil
}

// Count returns the number of indexed vectors.
func (s *HNSWIndex) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0
	}
	return len(s.ids)
}

// Dimensions returns the vector dimension, 0 before the first Add.
func (s *HNSWIndex) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dims
}

// Save persists the graph and key mappings to disk atomically
// (temp file + rename).
func (s *HNSWIndex) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("vector index is closed")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}

	if err := s.graph.Export(file); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("export graph: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename index file: %w", err)
	}

	return s.saveMeta(path + ".meta")
}

func (s *HNSWIndex) saveMeta(path string) error {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create meta file: %w", err)
	}

	meta := hnswMeta{IDs: s.ids, Dims: s.dims}
	if err := gob.NewEncoder(file).Encode(meta); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encode meta: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close meta file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// Load restores the graph and key mappings from disk.
func (s *HNSWIndex) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("vector index is closed")
	}

	if err := s.loadMeta(path + ".meta"); err != nil {
		return fmt.Errorf("load vector meta: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer file.Close()

	// coder/hnsw Import requires an io.ByteReader.
	if err := s.graph.Import(bufio.NewReader(file)); err != nil {
		return fmt.Errorf("import graph: %w", err)
	}

	return nil
}

func (s *HNSWIndex) loadMeta(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open meta file: %w", err)
	}
	defer file.Close()

	var meta hnswMeta
	if err := gob.NewDecoder(file).Decode(&meta); err != nil {
		return fmt.Errorf("decode meta: %w", err)
	}

	s.ids = meta.IDs
	s.dims = meta.Dims
	return nil
}

// Close releases resources.
func (s *HNSWIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.graph = nil
	return nil
}

// ReadHNSWDimensions reads the dimension from an existing index's meta file.
// Returns 0 if the meta file does not exist (fresh start).
func ReadHNSWDimensions(vectorPath string) (int, error) {
	file, err := os.Open(vectorPath + ".meta")
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("open vector meta: %w", err)
	}
	defer file.Close()

	var meta hnswMeta
	if err := gob.NewDecoder(file).Decode(&meta); err != nil {
		return 0, fmt.Errorf("decode vector meta: %w", err)
	}
	return meta.Dims, nil
}

// Verify interface implementation
var _ VectorIndex = (*HNSWIndex)(nil)

// unitDotDistance is 1 - dot(a, b). For unit vectors this equals the cosine
// distance; for zero vectors it is exactly 1 (similarity 0) with no NaN.
func unitDotDistance(a, b []float32) float32 {
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return 1 - dot
}

// normalizeVectorInPlace scales a vector to unit length. Zero vectors are
// left untouched.
func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}
