// Package snapshot persists and loads the index snapshot: the vector
// index, the aligned chunk metadata, the encoder state, and the summary
// info, written and read as one atomic unit.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/encoder"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/retriever"
	"github.com/hyperjump/tansaku/internal/vector"
)

// Artifact file names inside a snapshot directory. All four are
// required together; a directory missing any of them does not load.
const (
	IndexFile   = "index.bin"
	ChunksFile  = "chunks.json"
	EncoderFile = "encoder.json"
	InfoFile    = "info.json"
)

// LoadError reports a snapshot that is missing, unreadable, or
// internally inconsistent. It is fatal to serving; a broken snapshot
// never degrades to an empty index.
type LoadError struct {
	Dir string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load snapshot %s: %v", e.Dir, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Snapshot is the in-memory form of the four persisted artifacts.
// Chunks[i] corresponds to index id i; Save refuses misaligned input.
type Snapshot struct {
	Encoder *encoder.TFIDF
	Index   *vector.FlatIndex
	Chunks  []models.Chunk
	Info    models.SnapshotInfo
}

// Save writes the snapshot into dir. The four artifacts go to a staging
// directory first and are renamed into place in one step, so a
// concurrent reader observes either the previous complete snapshot or
// the new one, never a partial set.
func Save(dir string, snap *Snapshot) error {
	if err := checkConsistent(snap.Encoder, snap.Index, snap.Chunks, snap.Info); err != nil {
		return fmt.Errorf("refusing to save inconsistent snapshot: %w", err)
	}

	staging := fmt.Sprintf("%s.staging-%s", dir, uuid.New().String()[:8])
	if err := os.MkdirAll(staging, 0755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(staging) }

	state, err := snap.Encoder.State()
	if err != nil {
		cleanup()
		return fmt.Errorf("export encoder state: %w", err)
	}
	if err := writeJSON(filepath.Join(staging, EncoderFile), state); err != nil {
		cleanup()
		return err
	}
	if err := writeJSON(filepath.Join(staging, ChunksFile), snap.Chunks); err != nil {
		cleanup()
		return err
	}
	if err := writeJSON(filepath.Join(staging, InfoFile), snap.Info); err != nil {
		cleanup()
		return err
	}
	if err := snap.Index.Save(filepath.Join(staging, IndexFile)); err != nil {
		cleanup()
		return fmt.Errorf("save index: %w", err)
	}

	// Swap the staging directory into place. An existing snapshot is
	// moved aside first so the final rename is a single step.
	if _, err := os.Stat(dir); err == nil {
		old := fmt.Sprintf("%s.old-%s", dir, uuid.New().String()[:8])
		if err := os.Rename(dir, old); err != nil {
			cleanup()
			return fmt.Errorf("move previous snapshot aside: %w", err)
		}
		if err := os.Rename(staging, dir); err != nil {
			// Put the previous snapshot back; readers keep working.
			_ = os.Rename(old, dir)
			cleanup()
			return fmt.Errorf("activate snapshot: %w", err)
		}
		_ = os.RemoveAll(old)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
		cleanup()
		return fmt.Errorf("create snapshot parent dir: %w", err)
	}
	if err := os.Rename(staging, dir); err != nil {
		cleanup()
		return fmt.Errorf("activate snapshot: %w", err)
	}
	return nil
}

// Load reads the four artifacts from dir, verifies their mutual
// consistency, and assembles a ready Retriever.
func Load(dir string, gateCfg config.GateConfig, opts ...retriever.Option) (*retriever.Retriever, error) {
	var info models.SnapshotInfo
	if err := readJSON(filepath.Join(dir, InfoFile), &info); err != nil {
		return nil, &LoadError{Dir: dir, Err: err}
	}
	if err := info.Validate(); err != nil {
		return nil, &LoadError{Dir: dir, Err: err}
	}

	var state encoder.State
	if err := readJSON(filepath.Join(dir, EncoderFile), &state); err != nil {
		return nil, &LoadError{Dir: dir, Err: err}
	}
	enc, err := encoder.FromState(&state)
	if err != nil {
		return nil, &LoadError{Dir: dir, Err: err}
	}

	var chunks []models.Chunk
	if err := readJSON(filepath.Join(dir, ChunksFile), &chunks); err != nil {
		return nil, &LoadError{Dir: dir, Err: err}
	}
	for i := range chunks {
		if err := chunks[i].Validate(); err != nil {
			return nil, &LoadError{Dir: dir, Err: fmt.Errorf("chunk %d: %w", i, err)}
		}
	}

	ix, err := vector.Load(filepath.Join(dir, IndexFile))
	if err != nil {
		return nil, &LoadError{Dir: dir, Err: err}
	}

	if err := checkConsistent(enc, ix, chunks, info); err != nil {
		return nil, &LoadError{Dir: dir, Err: err}
	}

	r, err := retriever.New(enc, ix, chunks, info, gateCfg, opts...)
	if err != nil {
		return nil, &LoadError{Dir: dir, Err: err}
	}
	return r, nil
}

// checkConsistent verifies the cross-artifact invariants: one vector per
// chunk, one dimension everywhere, and summary info agreeing with both.
func checkConsistent(enc *encoder.TFIDF, ix *vector.FlatIndex, chunks []models.Chunk, info models.SnapshotInfo) error {
	if ix.Size() != len(chunks) {
		return fmt.Errorf("index has %d vectors but %d chunks", ix.Size(), len(chunks))
	}
	if enc.Dimension() != ix.Dimensions() {
		return fmt.Errorf("encoder dimension %d != index dimension %d", enc.Dimension(), ix.Dimensions())
	}
	if info.ChunkCount != len(chunks) {
		return fmt.Errorf("info records %d chunks but %d are present", info.ChunkCount, len(chunks))
	}
	if info.Dimension != ix.Dimensions() {
		return fmt.Errorf("info records dimension %d but index has %d", info.Dimension, ix.Dimensions())
	}
	if info.Encoder != enc.Name() {
		return fmt.Errorf("info records encoder %q but state is %q", info.Encoder, enc.Name())
	}
	if info.IndexKind != ix.Kind() {
		return fmt.Errorf("info records index kind %q but index is %q", info.IndexKind, ix.Kind())
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
