package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryAndSeverity(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		category Category
		severity Severity
		retry    bool
	}{
		{"config", ErrCodeConfigInvalid, CategoryConfig, SeverityFatal, false},
		{"chunk params", ErrCodeChunkParams, CategoryConfig, SeverityFatal, false},
		{"io", ErrCodeCorruptIndex, CategoryIO, SeverityError, false},
		{"lock", ErrCodeIndexLocked, CategoryIO, SeverityError, true},
		{"network", ErrCodeNetworkTimeout, CategoryNetwork, SeverityWarning, true},
		{"not built", ErrCodeIndexNotBuilt, CategoryValidation, SeverityError, false},
		{"embedding", ErrCodeEmbeddingFailed, CategoryInternal, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "boom", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
			assert.Equal(t, tt.retry, err.Retryable)
		})
	}
}

func TestError_Format(t *testing.T) {
	err := New(ErrCodeIndexNotBuilt, "index has not been built", nil)
	assert.Equal(t, "[ERR_404_INDEX_NOT_BUILT] index has not been built", err.Error())
}

func TestError_UnwrapChain(t *testing.T) {
	cause := errors.New("connection refused")
	err := EmbeddingError("embed request failed", cause)

	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("search: %w", err)
	var e *Error
	require.True(t, errors.As(wrapped, &e))
	assert.Equal(t, ErrCodeEmbeddingFailed, e.Code)
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := IndexNotBuiltError()
	assert.ErrorIs(t, err, IndexNotBuiltError())
	assert.NotErrorIs(t, err, ConfigError("nope", nil))
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", ChunkParamsError("step must be > 0"))
	assert.True(t, IsCode(err, ErrCodeChunkParams))
	assert.False(t, IsCode(err, ErrCodeConfigInvalid))
	assert.False(t, IsCode(errors.New("plain"), ErrCodeChunkParams))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(ErrCodeNetworkUnavailable, "down", nil)))
	assert.False(t, IsRetryable(IndexNotBuiltError()))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestWithSuggestion(t *testing.T) {
	err := IndexNotBuiltError()
	assert.Contains(t, err.Suggestion, "aihero index")
}
