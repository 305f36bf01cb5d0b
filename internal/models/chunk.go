// Package models defines core data structures for chunks, search results, and snapshot metadata.
package models

import "fmt"

// ChunkIDSeparator joins a source name and chunk index into a chunk ID.
const ChunkIDSeparator = "_"

// Chunk is a contiguous, token-bounded slice of a source document.
// Chunks are created once during ingestion and are immutable afterward.
type Chunk struct {
	ChunkID    string `json:"chunk_id"`
	Source     string `json:"source"`
	Text       string `json:"text"`
	TokenCount int    `json:"token_count"`
	ChunkIndex int    `json:"chunk_index"`
}

// NewChunk builds a validated Chunk. The chunk ID is derived from source
// and index, so it is deterministic for a given (source, index) pair.
func NewChunk(source, text string, tokenCount, chunkIndex int) (Chunk, error) {
	if source == "" {
		return Chunk{}, fmt.Errorf("chunk source cannot be empty")
	}
	if text == "" {
		return Chunk{}, fmt.Errorf("chunk text cannot be empty")
	}
	if tokenCount < 0 {
		return Chunk{}, fmt.Errorf("chunk token count cannot be negative: %d", tokenCount)
	}
	if chunkIndex < 0 {
		return Chunk{}, fmt.Errorf("chunk index cannot be negative: %d", chunkIndex)
	}
	return Chunk{
		ChunkID:    ChunkID(source, chunkIndex),
		Source:     source,
		Text:       text,
		TokenCount: tokenCount,
		ChunkIndex: chunkIndex,
	}, nil
}

// ChunkID returns the deterministic chunk ID for a source and chunk index.
func ChunkID(source string, index int) string {
	return fmt.Sprintf("%s%s%d", source, ChunkIDSeparator, index)
}

// Validate checks the chunk invariants on an already-constructed value
// (e.g. one decoded from persisted metadata).
func (c *Chunk) Validate() error {
	if c.Source == "" {
		return fmt.Errorf("chunk %q: empty source", c.ChunkID)
	}
	if c.Text == "" {
		return fmt.Errorf("chunk %q: empty text", c.ChunkID)
	}
	if c.TokenCount < 0 {
		return fmt.Errorf("chunk %q: negative token count %d", c.ChunkID, c.TokenCount)
	}
	if c.ChunkIndex < 0 {
		return fmt.Errorf("chunk %q: negative chunk index %d", c.ChunkID, c.ChunkIndex)
	}
	if want := ChunkID(c.Source, c.ChunkIndex); c.ChunkID != want {
		return fmt.Errorf("chunk %q: ID does not match source and index (want %q)", c.ChunkID, want)
	}
	return nil
}
