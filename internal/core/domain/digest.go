package domain

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// Digest returns the SHA3-256 hex fingerprint of text. Equal digests mean
// content is unchanged and re-chunking can be skipped entirely.
func Digest(text string) string {
	sum := sha3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ChunkID derives the deterministic id for a single-page source's chunk.
func ChunkID(sourceID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", sourceID, index)
}

// PageBaseID derives the id prefix shared by all chunks of one page within
// a multi-page source. Because the page URL is digested into the prefix,
// the ids belonging to a page can be recovered from the vector store alone
// by prefix match.
func PageBaseID(sourceID, pageURL string) string {
	return fmt.Sprintf("%s_%s", sourceID, Digest(pageURL))
}

// PageChunkID derives the id for one chunk of a page.
func PageChunkID(pageBaseID string, index int) string {
	return fmt.Sprintf("%s_%d", pageBaseID, index)
}
