// Package chunk splits documents into fixed sliding windows for indexing.
//
// Offsets are counted in runes, not bytes, so multi-byte text never splits
// inside a character and offsets stay meaningful to callers slicing the
// original document.
package chunk

import (
	"fmt"

	aerrors "github.com/AnefuIII/aihero/internal/errors"
	"github.com/AnefuIII/aihero/internal/store"
)

// Chunker splits document content into overlapping windows.
type Chunker struct {
	size int // window length in runes
	step int // stride in runes
}

// New creates a Chunker. size must be > 0 and step must satisfy
// 0 < step <= size; anything else is a configuration error, never
// silently corrected.
func New(size, step int) (*Chunker, error) {
	if size <= 0 {
		return nil, aerrors.ChunkParamsError(fmt.Sprintf("chunk size must be > 0, got %d", size))
	}
	if step <= 0 {
		return nil, aerrors.ChunkParamsError(fmt.Sprintf("chunk step must be > 0, got %d", step))
	}
	if step > size {
		return nil, aerrors.ChunkParamsError(fmt.Sprintf("chunk step (%d) must not exceed size (%d)", step, size))
	}
	return &Chunker{size: size, step: step}, nil
}

// Size returns the window length in runes.
func (c *Chunker) Size() int { return c.size }

// Step returns the stride in runes.
func (c *Chunker) Step() int { return c.step }

// Split produces the chunks of a document. Windows start at offsets
// 0, step, 2*step, ... and the final window is truncated at the end of
// the document rather than padded. An empty document yields no chunks;
// a document no longer than one window yields exactly one chunk holding
// the entire content.
//
// Seq is left zero; the ingestion pipeline assigns global ordinals after
// concatenating all documents.
func (c *Chunker) Split(doc *store.Document) []*store.Chunk {
	runes := []rune(doc.Content)
	if len(runes) == 0 {
		return []*store.Chunk{}
	}

	var chunks []*store.Chunk
	for start := 0; ; start += c.step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}

		chunks = append(chunks, &store.Chunk{
			ID:       store.ChunkID(doc.ID, start),
			DocID:    doc.ID,
			Path:     doc.Path,
			Title:    doc.Title,
			Start:    start,
			Text:     string(runes[start:end]),
			IsCode:   doc.IsCode,
			Metadata: doc.Metadata,
		})

		if end == len(runes) {
			break
		}
	}

	return chunks
}
