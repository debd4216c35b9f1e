// Package chunker splits normalized text into overlapping fixed-size
// fragments for vector indexing.
package chunker

import (
	"strings"

	"github.com/knowara/kbsync/internal/core/ports/driven"
)

// minFragmentSize is the floor applied to MaxSize. Fragments below this
// carry too little context to embed usefully.
const minFragmentSize = 100

// Verify interface compliance
var _ driven.Chunker = (*Chunker)(nil)

// Chunker implements driven.Chunker with deterministic overlapping windows.
// Chunking the same text with the same options always yields the same
// fragments, which is what makes chunk ids reproducible across runs.
type Chunker struct{}

// New creates a new Chunker.
func New() *Chunker {
	return &Chunker{}
}

// Chunk splits text into ordered fragments of at most MaxSize characters,
// each overlapping the previous one by Overlap characters. MaxSize is
// clamped to a minimum of 100 and Overlap to at most half the effective
// size, so the window always advances. Fragments that are blank after
// trimming are dropped.
func (c *Chunker) Chunk(text string, opts driven.ChunkOptions) []string {
	if text == "" {
		return nil
	}

	effectiveMax := opts.MaxSize
	if effectiveMax < minFragmentSize {
		effectiveMax = minFragmentSize
	}

	overlap := opts.Overlap
	if overlap > effectiveMax/2 {
		overlap = effectiveMax / 2
	}
	if overlap < 0 {
		overlap = 0
	}

	var fragments []string
	start := 0
	for start < len(text) {
		end := start + effectiveMax
		if end > len(text) {
			end = len(text)
		}

		fragment := text[start:end]
		if strings.TrimSpace(fragment) != "" {
			fragments = append(fragments, fragment)
		}

		if end >= len(text) {
			break
		}

		start = end - overlap
		if start < 0 {
			start = 0
		}
	}

	return fragments
}
