package domain

import (
	"strings"
	"time"
)

// Chunk is a bounded fragment of source text, the atomic unit stored in
// the vector index.
type Chunk struct {
	ID       string        `json:"id"`
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// ChunkMetadata describes the provenance of a chunk. It is stored as flat
// vector-record metadata so chunks can be filtered by source without any
// auxiliary index.
type ChunkMetadata struct {
	SourceID     string    `json:"source_id"`
	SourceURL    string    `json:"source_url"`
	PageURL      string    `json:"page_url,omitempty"` // multi-page sources only
	Title        string    `json:"title,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

// VectorEntry is the wire representation the vector store accepts: an id,
// the raw document text and flat primitive metadata.
type VectorEntry struct {
	ID       string         `json:"id"`
	Document string         `json:"document"`
	Metadata map[string]any `json:"metadata"`
}

// MetadataKeySourceID is the metadata field used to list a source's ids.
const MetadataKeySourceID = "source_id"

// Entry converts the chunk into its vector-store representation.
func (c *Chunk) Entry() VectorEntry {
	meta := map[string]any{
		MetadataKeySourceID: c.Metadata.SourceID,
		"source_url":        c.Metadata.SourceURL,
		"registered_at":     c.Metadata.RegisteredAt.UTC().Format(time.RFC3339),
	}
	if c.Metadata.PageURL != "" {
		meta["page_url"] = c.Metadata.PageURL
	}
	if c.Metadata.Title != "" {
		meta["title"] = c.Metadata.Title
	}
	if len(c.Metadata.Tags) > 0 {
		meta["tags"] = strings.Join(c.Metadata.Tags, ",")
	}
	return VectorEntry{
		ID:       c.ID,
		Document: c.Text,
		Metadata: meta,
	}
}
