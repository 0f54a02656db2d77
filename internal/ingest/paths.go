package ingest

import "path/filepath"

// Index artifact names inside the data directory.
const (
	keywordDirName   = "keyword.bleve"
	vectorFileName   = "vectors.hnsw"
	metadataFileName = "metadata.db"
	lockFileName     = ".build.lock"
	stagingDirName   = "staging.tmp"
)

// Paths resolves index artifact locations under one data directory.
type Paths struct {
	DataDir string
}

func (p Paths) Keyword() string  { return filepath.Join(p.DataDir, keywordDirName) }
func (p Paths) Vector() string   { return filepath.Join(p.DataDir, vectorFileName) }
func (p Paths) Metadata() string { return filepath.Join(p.DataDir, metadataFileName) }
func (p Paths) Lock() string     { return filepath.Join(p.DataDir, lockFileName) }
func (p Paths) Staging() string  { return filepath.Join(p.DataDir, stagingDirName) }

func (p Paths) StagedKeyword() string { return filepath.Join(p.Staging(), keywordDirName) }
func (p Paths) StagedVector() string  { return filepath.Join(p.Staging(), vectorFileName) }
