package models

import (
	"fmt"
	"time"
)

// SnapshotInfo is the summary record persisted alongside an index
// snapshot. It describes what the other three artifacts must agree on.
type SnapshotInfo struct {
	Encoder    string    `json:"encoder"`
	Dimension  int       `json:"dimension"`
	ChunkCount int       `json:"chunk_count"`
	IndexKind  string    `json:"index_kind"`
	BuildID    string    `json:"build_id"`
	BuiltAt    time.Time `json:"built_at"`
}

// Validate checks that the summary record is internally plausible.
func (s *SnapshotInfo) Validate() error {
	if s.Encoder == "" {
		return fmt.Errorf("snapshot info: empty encoder name")
	}
	if s.Dimension <= 0 {
		return fmt.Errorf("snapshot info: non-positive dimension %d", s.Dimension)
	}
	if s.ChunkCount < 0 {
		return fmt.Errorf("snapshot info: negative chunk count %d", s.ChunkCount)
	}
	if s.IndexKind == "" {
		return fmt.Errorf("snapshot info: empty index kind")
	}
	return nil
}
