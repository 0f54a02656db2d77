package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		path     string
		isDir    bool
		want     bool
	}{
		{
			name:     "double star directory glob",
			patterns: []string{"**/node_modules/**"},
			path:     "api/node_modules/left-pad/index.js",
			want:     true,
		},
		{
			name:     "bare name matches at any depth",
			patterns: []string{"drafts"},
			path:     "guides/drafts/wip.md",
			want:     true,
		},
		{
			name:     "extension glob",
			patterns: []string{"*.tmp"},
			path:     "notes/scratch.tmp",
			want:     true,
		},
		{
			name:     "star does not cross directories",
			patterns: []string{"guides/*.md"},
			path:     "guides/nested/deep.md",
			want:     false,
		},
		{
			name:     "anchored path",
			patterns: []string{"guides/internal.md"},
			path:     "guides/internal.md",
			want:     true,
		},
		{
			name:     "anchored path elsewhere",
			patterns: []string{"guides/internal.md"},
			path:     "other/guides/internal.md",
			want:     false,
		},
		{
			name:     "dir-only pattern excludes contents",
			patterns: []string{"build/"},
			path:     "build/out.txt",
			want:     true,
		},
		{
			name:     "dir-only pattern does not match plain file",
			patterns: []string{"build/"},
			path:     "build",
			isDir:    false,
			want:     false,
		},
		{
			name:     "negation re-includes",
			patterns: []string{"*.log", "!keep.log"},
			path:     "keep.log",
			want:     false,
		},
		{
			name:     "no patterns",
			patterns: nil,
			path:     "anything.md",
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewWithPatterns(tt.patterns)
			assert.Equal(t, tt.want, m.Match(tt.path, tt.isDir))
		})
	}
}

func TestAddFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".gitignore")
	content := "# generated\n*.bak\n\nbuild/\n!important.bak\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m := New()
	require.NoError(t, m.AddFile(path))

	assert.True(t, m.Match("old.bak", false))
	assert.False(t, m.Match("important.bak", false))
	assert.True(t, m.Match("build/a.txt", false))
	assert.False(t, m.Match("src/main.go", false))
}

func TestAddFile_Missing(t *testing.T) {
	m := New()
	assert.Error(t, m.AddFile(filepath.Join(t.TempDir(), "nope")))
}
