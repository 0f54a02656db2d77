package embed

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnefuIII/aihero/internal/config"
)

func TestNewEmbedder_Static(t *testing.T) {
	e, err := NewEmbedder(context.Background(), config.EmbeddingsConfig{Provider: "static"}, slog.Default())
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, "static", e.ModelName())
	assert.Equal(t, StaticDimensions, e.Dimensions())

	// Factory wraps providers in the query cache.
	_, ok := e.(*CachedEmbedder)
	assert.True(t, ok)
}

func TestNewEmbedder_AutoFallsBackToStatic(t *testing.T) {
	cfg := config.EmbeddingsConfig{
		Provider:   "",
		OllamaHost: "http://127.0.0.1:1", // unreachable
	}
	e, err := NewEmbedder(context.Background(), cfg, slog.Default())
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, "static", e.ModelName())
}

func TestNewEmbedder_UnknownProvider(t *testing.T) {
	_, err := NewEmbedder(context.Background(), config.EmbeddingsConfig{Provider: "openai"}, slog.Default())
	assert.Error(t, err)
}

func TestNewEmbedder_OllamaStrictFails(t *testing.T) {
	cfg := config.EmbeddingsConfig{
		Provider:   "ollama",
		OllamaHost: "http://127.0.0.1:1",
	}
	_, err := NewEmbedder(context.Background(), cfg, slog.Default())
	assert.Error(t, err)
}
