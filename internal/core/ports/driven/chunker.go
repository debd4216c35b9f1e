package driven

// Chunker splits normalized text into overlapping fixed-size fragments.
type Chunker interface {
	// Chunk splits text into ordered fragments. Empty text yields an
	// empty sequence.
	Chunk(text string, opts ChunkOptions) []string
}

// ChunkOptions configures chunking behavior.
type ChunkOptions struct {
	MaxSize int // Maximum characters per fragment
	Overlap int // Character overlap between consecutive fragments
}

// DefaultChunkOptions returns sensible defaults.
func DefaultChunkOptions() ChunkOptions {
	return ChunkOptions{
		MaxSize: 1500,
		Overlap: 200,
	}
}
