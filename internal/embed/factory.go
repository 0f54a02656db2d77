package embed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AnefuIII/aihero/internal/config"
	aerrors "github.com/AnefuIII/aihero/internal/errors"
)

// NewEmbedder creates an embedder from configuration.
//
// Provider selection:
//   - "ollama": Ollama only; an unreachable host is an error.
//   - "static": deterministic hash embedder, no network.
//   - "" (auto): try Ollama, fall back to static with a warning.
//
// The returned embedder is wrapped in an LRU cache.
func NewEmbedder(ctx context.Context, cfg config.EmbeddingsConfig, logger *slog.Logger) (Embedder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	inner, err := newProvider(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("embedder_ready",
		slog.String("model", inner.ModelName()),
		slog.Int("dimensions", inner.Dimensions()))

	return NewCachedEmbedder(inner, cfg.CacheSize), nil
}

func newProvider(ctx context.Context, cfg config.EmbeddingsConfig, logger *slog.Logger) (Embedder, error) {
	ollamaCfg := DefaultOllamaConfig()
	if cfg.OllamaHost != "" {
		ollamaCfg.Host = cfg.OllamaHost
	}
	if cfg.Model != "" {
		ollamaCfg.Model = cfg.Model
	}
	if cfg.Dimensions > 0 {
		ollamaCfg.Dimensions = cfg.Dimensions
	}
	if cfg.BatchSize > 0 {
		ollamaCfg.BatchSize = cfg.BatchSize
	}
	if cfg.Timeout > 0 {
		ollamaCfg.Timeout = cfg.Timeout
	}

	switch cfg.Provider {
	case "static":
		return NewStaticEmbedder(), nil

	case "ollama":
		return NewOllamaEmbedder(ctx, ollamaCfg)

	case "":
		e, err := NewOllamaEmbedder(ctx, ollamaCfg)
		if err != nil {
			logger.Warn("ollama_unavailable_using_static",
				slog.String("host", ollamaCfg.Host),
				slog.String("error", err.Error()))
			return NewStaticEmbedder(), nil
		}
		return e, nil

	default:
		return nil, aerrors.ConfigError(fmt.Sprintf("unknown embeddings provider %q", cfg.Provider), nil)
	}
}
