package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnefuIII/aihero/internal/config"
)

// runCLI executes the root command with args inside dir.
func runCLI(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	execErr := cmd.ExecuteContext(context.Background())
	return out.String(), execErr
}

func setupProject(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir()) // keep log files out of the real home
	t.Setenv("AIHERO_EMBED_PROVIDER", "static")

	dir := t.TempDir()
	docs := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(docs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "autogen.md"),
		[]byte("# AutoGen Agents\n\nAutoGen agents support tool calling through registered functions."), 0o644))
	return dir
}

func TestInitCmd(t *testing.T) {
	dir := setupProject(t)

	out, err := runCLI(t, dir, "init")
	require.NoError(t, err)
	assert.Contains(t, out, config.ConfigFileName)
	assert.FileExists(t, filepath.Join(dir, config.ConfigFileName))

	// Refuses to clobber without --force.
	_, err = runCLI(t, dir, "init")
	require.Error(t, err)

	_, err = runCLI(t, dir, "init", "--force")
	assert.NoError(t, err)
}

func TestIndexSearchStatus(t *testing.T) {
	dir := setupProject(t)

	_, err := runCLI(t, dir, "init")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "index", "--offline", "--json")
	require.NoError(t, err)

	var build struct {
		Documents int    `json:"documents"`
		Chunks    int    `json:"chunks"`
		Model     string `json:"model"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &build))
	assert.Equal(t, 1, build.Documents)
	assert.Greater(t, build.Chunks, 0)
	assert.Equal(t, "static", build.Model)

	out, err = runCLI(t, dir, "search", "tool", "calling", "--json")
	require.NoError(t, err)

	var payload struct {
		Query   string `json:"query"`
		Results []struct {
			Path   string `json:"path"`
			Source string `json:"source"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, "tool calling", payload.Query)
	require.NotEmpty(t, payload.Results)
	assert.Equal(t, "docs/autogen.md", payload.Results[0].Path)

	out, err = runCLI(t, dir, "status", "--json")
	require.NoError(t, err)
	var stats struct {
		Ready      bool `json:"Ready"`
		ChunkCount int  `json:"ChunkCount"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.True(t, stats.Ready)
	assert.Equal(t, build.Chunks, stats.ChunkCount)
}

func TestSearchBeforeIndex(t *testing.T) {
	dir := setupProject(t)

	_, err := runCLI(t, dir, "search", "anything", "--json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index has not been built")
}

func TestStatusBeforeIndex(t *testing.T) {
	dir := setupProject(t)

	out, err := runCLI(t, dir, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "aihero index")
}

func TestVersionCmd(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "aihero")
}
