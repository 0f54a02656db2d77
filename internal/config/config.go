// Package config loads and validates aihero configuration.
//
// Configuration is resolved in priority order:
//  1. Environment variables (AIHERO_*)
//  2. Project config (.aihero.yaml in the project root)
//  3. Built-in defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	aerrors "github.com/AnefuIII/aihero/internal/errors"
)

// ConfigFileName is the project-level configuration file name.
const ConfigFileName = ".aihero.yaml"

// DataDirName is the directory holding index data, relative to the project root.
const DataDirName = ".aihero"

// Config represents the complete aihero configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Docs       DocsConfig       `yaml:"docs" json:"docs"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// DocsConfig configures the document source directory.
type DocsConfig struct {
	// Root is the directory scanned for documents (default: "docs").
	Root string `yaml:"root" json:"root"`
	// Exclude lists glob patterns never ingested.
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// ChunkingConfig configures the sliding-window chunker.
// Size and Step mirror the original corpus defaults (2000/1000 characters).
type ChunkingConfig struct {
	// Size is the window length in characters. Must be > 0.
	Size int `yaml:"size" json:"size"`
	// Step is the stride in characters. Must satisfy 0 < step <= size.
	Step int `yaml:"step" json:"step"`
}

// SearchConfig configures hybrid search and score fusion.
// Fusion weights are explicit configuration, not hidden constants.
type SearchConfig struct {
	// KeywordWeight is the fusion weight for keyword (TF-IDF) scores.
	KeywordWeight float64 `yaml:"keyword_weight" json:"keyword_weight"`

	// VectorWeight is the fusion weight for vector similarity scores.
	VectorWeight float64 `yaml:"vector_weight" json:"vector_weight"`

	// CandidateFactor multiplies top_k when querying each source so
	// fusion can re-rank without starving either index.
	CandidateFactor int `yaml:"candidate_factor" json:"candidate_factor"`

	// MaxResults caps top_k per query.
	MaxResults int `yaml:"max_results" json:"max_results"`

	// EmbedTimeout bounds the query-time embedding call. On timeout the
	// engine degrades to keyword-only results.
	EmbedTimeout time.Duration `yaml:"embed_timeout" json:"embed_timeout"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider selects the embedder: "ollama" or "static".
	// Empty tries Ollama and falls back to static.
	Provider string `yaml:"provider" json:"provider"`
	// Model is the embedding model name.
	Model string `yaml:"model" json:"model"`
	// Dimensions is the embedding dimension. 0 auto-detects.
	Dimensions int `yaml:"dimensions" json:"dimensions"`
	// BatchSize is chunks per embedding request.
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// OllamaHost is the Ollama API endpoint (default http://localhost:11434).
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
	// Timeout bounds a single embedding HTTP request.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// CacheSize is the query-embedding LRU capacity.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// LoggingConfig configures file logging.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// defaultExcludePatterns are never ingested.
var defaultExcludePatterns = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/vendor/**",
	"**/dist/**",
	"**/build/**",
}

// NewConfig creates a Config with built-in defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Docs: DocsConfig{
			Root:    "docs",
			Exclude: defaultExcludePatterns,
		},
		Chunking: ChunkingConfig{
			Size: 2000,
			Step: 1000,
		},
		Search: SearchConfig{
			KeywordWeight:   0.5,
			VectorWeight:    0.5,
			CandidateFactor: 3,
			MaxResults:      100,
			EmbedTimeout:    5 * time.Second,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "",
			Model:      "nomic-embed-text",
			Dimensions: 0,
			BatchSize:  32,
			OllamaHost: "",
			Timeout:    60 * time.Second,
			CacheSize:  1000,
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration for the given project root, applying the
// project config file and environment overrides on top of defaults.
func Load(root string) (*Config, error) {
	cfg := NewConfig()

	path := filepath.Join(root, ConfigFileName)
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, aerrors.ConfigError(fmt.Sprintf("parse %s", path), err)
		}
	} else if !os.IsNotExist(err) {
		return nil, aerrors.ConfigError(fmt.Sprintf("read %s", path), err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies AIHERO_* environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AIHERO_KEYWORD_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.KeywordWeight = f
		}
	}
	if v := os.Getenv("AIHERO_VECTOR_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.VectorWeight = f
		}
	}
	if v := os.Getenv("AIHERO_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Chunking.Size = n
		}
	}
	if v := os.Getenv("AIHERO_CHUNK_STEP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Chunking.Step = n
		}
	}
	if v := os.Getenv("AIHERO_OLLAMA_HOST"); v != "" {
		cfg.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("AIHERO_EMBED_PROVIDER"); v != "" {
		cfg.Embeddings.Provider = v
	}
	if v := os.Getenv("AIHERO_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks configuration invariants. Invalid chunking parameters
// are fatal and never silently corrected.
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return aerrors.ChunkParamsError(fmt.Sprintf("chunk size must be > 0, got %d", c.Chunking.Size))
	}
	if c.Chunking.Step <= 0 {
		return aerrors.ChunkParamsError(fmt.Sprintf("chunk step must be > 0, got %d", c.Chunking.Step))
	}
	if c.Chunking.Step > c.Chunking.Size {
		return aerrors.ChunkParamsError(fmt.Sprintf("chunk step (%d) must not exceed size (%d)", c.Chunking.Step, c.Chunking.Size))
	}
	if c.Search.KeywordWeight < 0 || c.Search.VectorWeight < 0 {
		return aerrors.ConfigError("fusion weights must be >= 0", nil)
	}
	if c.Search.KeywordWeight == 0 && c.Search.VectorWeight == 0 {
		return aerrors.ConfigError("at least one fusion weight must be > 0", nil)
	}
	if c.Search.CandidateFactor < 1 {
		return aerrors.ConfigError(fmt.Sprintf("candidate_factor must be >= 1, got %d", c.Search.CandidateFactor), nil)
	}
	if c.Search.MaxResults < 1 {
		return aerrors.ConfigError(fmt.Sprintf("max_results must be >= 1, got %d", c.Search.MaxResults), nil)
	}
	switch c.Embeddings.Provider {
	case "", "ollama", "static":
	default:
		return aerrors.ConfigError(fmt.Sprintf("unknown embeddings provider %q", c.Embeddings.Provider), nil)
	}
	return nil
}

// Save writes the configuration to the project root.
func (c *Config) Save(root string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return aerrors.ConfigError("marshal config", err)
	}
	path := filepath.Join(root, ConfigFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return aerrors.ConfigError(fmt.Sprintf("write %s", path), err)
	}
	return nil
}

// DataDir returns the index data directory for a project root.
func DataDir(root string) string {
	return filepath.Join(root, DataDirName)
}

// FindProjectRoot walks up from start looking for a .aihero.yaml, an
// existing .aihero data directory, or a .git directory. Falls back to
// start, so an un-inited tree still resolves to the working directory.
func FindProjectRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		if fileExists(filepath.Join(dir, ConfigFileName)) ||
			fileExists(filepath.Join(dir, DataDirName)) ||
			fileExists(filepath.Join(dir, ".git")) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return filepath.Abs(start)
		}
		dir = parent
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
