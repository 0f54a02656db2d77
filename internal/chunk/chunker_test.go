package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aerrors "github.com/AnefuIII/aihero/internal/errors"
	"github.com/AnefuIII/aihero/internal/store"
)

func doc(content string) *store.Document {
	return &store.Document{
		ID:      store.DocumentID("guide.md"),
		Path:    "guide.md",
		Title:   "Guide",
		Content: content,
	}
}

func TestNew_InvalidParams(t *testing.T) {
	tests := []struct {
		name string
		size int
		step int
	}{
		{"zero size", 0, 10},
		{"negative size", -1, 10},
		{"zero step", 10, 0},
		{"negative step", 10, -2},
		{"step exceeds size", 10, 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.size, tt.step)
			require.Error(t, err)
			assert.True(t, aerrors.IsCode(err, aerrors.ErrCodeChunkParams))
		})
	}
}

func TestSplit_SlidingWindow(t *testing.T) {
	content := "AutoGen agents support tool calling. Tools are functions agents can invoke."
	c, err := New(40, 20)
	require.NoError(t, err)

	chunks := c.Split(doc(content))
	require.Len(t, chunks, 3)

	runes := []rune(content)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, string(runes[0:40]), chunks[0].Text)
	assert.Equal(t, 20, chunks[1].Start)
	assert.Equal(t, string(runes[20:60]), chunks[1].Text)
	assert.Equal(t, 40, chunks[2].Start)
	assert.Equal(t, string(runes[40:]), chunks[2].Text)

	// Consecutive windows overlap by size-step characters.
	assert.Equal(t, string([]rune(chunks[0].Text)[20:]), string([]rune(chunks[1].Text)[:20]))
}

func TestSplit_Reconstruction(t *testing.T) {
	// Dropping the overlapping size-step prefix of every chunk after the
	// first must reconstruct the document exactly.
	tests := []struct {
		name    string
		content string
		size    int
		step    int
	}{
		{"even split", strings.Repeat("abcdefghij", 10), 40, 20},
		{"uneven tail", strings.Repeat("x", 97), 40, 20},
		{"step equals size", strings.Repeat("y", 85), 30, 30},
		{"multibyte runes", strings.Repeat("héllo wörld ", 20), 25, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.size, tt.step)
			require.NoError(t, err)

			chunks := c.Split(doc(tt.content))
			require.NotEmpty(t, chunks)

			var b strings.Builder
			for i, ch := range chunks {
				text := []rune(ch.Text)
				if i == 0 {
					b.WriteString(ch.Text)
					continue
				}
				overlap := tt.size - tt.step
				require.Greater(t, len(text), overlap, "chunk %d shorter than overlap", i)
				b.WriteString(string(text[overlap:]))
			}
			assert.Equal(t, tt.content, b.String())
		})
	}
}

func TestSplit_ShortDocument(t *testing.T) {
	c, err := New(40, 20)
	require.NoError(t, err)

	chunks := c.Split(doc("short text"))
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, "short text", chunks[0].Text)
}

func TestSplit_ExactWindow(t *testing.T) {
	c, err := New(10, 5)
	require.NoError(t, err)

	chunks := c.Split(doc("0123456789"))
	require.Len(t, chunks, 1, "window reaching the end stops emission")
	assert.Equal(t, "0123456789", chunks[0].Text)
}

func TestSplit_EmptyDocument(t *testing.T) {
	c, err := New(40, 20)
	require.NoError(t, err)

	chunks := c.Split(doc(""))
	assert.Empty(t, chunks)
	assert.NotNil(t, chunks)
}

func TestSplit_InheritsMetadata(t *testing.T) {
	c, err := New(5, 5)
	require.NoError(t, err)

	d := doc("hello world")
	d.IsCode = true
	d.Metadata = map[string]string{"lang": "en"}

	chunks := c.Split(d)
	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		assert.Equal(t, d.ID, ch.DocID)
		assert.Equal(t, d.Path, ch.Path)
		assert.Equal(t, d.Title, ch.Title)
		assert.True(t, ch.IsCode)
		assert.Equal(t, d.Metadata, ch.Metadata)
		assert.Equal(t, store.ChunkID(d.ID, ch.Start), ch.ID)
	}
}

func TestSplit_RuneOffsets(t *testing.T) {
	// Offsets count runes, so multibyte content never splits mid-character.
	content := "日本語のドキュメントです。検索のテスト。"
	c, err := New(10, 5)
	require.NoError(t, err)

	chunks := c.Split(doc(content))
	runes := []rune(content)
	for _, ch := range chunks {
		text := []rune(ch.Text)
		assert.Equal(t, string(runes[ch.Start:ch.Start+len(text)]), ch.Text)
	}
}
