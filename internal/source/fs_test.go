package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aerrors "github.com/AnefuIII/aihero/internal/errors"
)

func writeDoc(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "intro.md", "# Getting Started\n\nInstall the binary.")
	writeDoc(t, root, "guides/tools.md", "# Tool Calling\n\nRegister functions with the agent.")
	writeDoc(t, root, "examples/agent.py", "def run_agent():\n    pass\n")
	writeDoc(t, root, "logo.png", "\x89PNG binary bytes")
	writeDoc(t, root, "drafts/wip.md", "# WIP")

	l := NewLoader(root, []string{"drafts/"}, nil)
	docs, err := l.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, docs, 3)
	// Ordered by path for stable ingestion ordinals.
	assert.Equal(t, "examples/agent.py", docs[0].Path)
	assert.Equal(t, "guides/tools.md", docs[1].Path)
	assert.Equal(t, "intro.md", docs[2].Path)

	assert.True(t, docs[0].IsCode)
	assert.False(t, docs[1].IsCode)
	assert.Equal(t, "Tool Calling", docs[1].Title)
	assert.Equal(t, "Getting Started", docs[2].Title)
	assert.NotEmpty(t, docs[2].ID)
}

func TestLoad_GitignoreRespected(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, ".gitignore", "generated/\n*.bak.md\n")
	writeDoc(t, root, "keep.md", "# Keep")
	writeDoc(t, root, "old.bak.md", "# Old")
	writeDoc(t, root, "generated/api.md", "# API")

	l := NewLoader(root, nil, nil)
	docs, err := l.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, docs, 1)
	assert.Equal(t, "keep.md", docs[0].Path)
}

func TestLoad_HiddenDirsSkipped(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, ".cache/notes.md", "# Hidden")
	writeDoc(t, root, "visible.md", "# Visible")

	l := NewLoader(root, nil, nil)
	docs, err := l.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, docs, 1)
	assert.Equal(t, "visible.md", docs[0].Path)
}

func TestLoad_MissingRoot(t *testing.T) {
	l := NewLoader(filepath.Join(t.TempDir(), "nope"), nil, nil)
	_, err := l.Load(context.Background())
	require.Error(t, err)
	assert.True(t, aerrors.IsCode(err, aerrors.ErrCodeFileNotFound))
}

func TestLoad_EmptyRoot(t *testing.T) {
	l := NewLoader(t.TempDir(), nil, nil)
	docs, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
		path    string
		want    string
	}{
		{"h1 heading", "# AutoGen Agents\n\nBody.", "a.md", "AutoGen Agents"},
		{"h2 first", "intro\n\n## Section Two\n", "a.md", "Section Two"},
		{"no heading", "plain text only", "guides/setup.md", "setup"},
		{"empty heading falls through", "#\n# Real Title", "a.md", "Real Title"},
		{"code file", "package main", "cmd/main.go", "main"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTitle(tt.content, tt.path))
		})
	}
}
