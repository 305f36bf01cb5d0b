package snapshot

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/encoder"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/vector"
)

var snapTexts = []struct {
	source string
	text   string
}{
	{"hydration", "Drink water regularly to avoid dehydration."},
	{"hydration", "Oral rehydration solutions restore lost salts."},
	{"sleep", "A regular sleep schedule improves rest quality."},
}

func buildSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	chunks := make([]models.Chunk, 0, len(snapTexts))
	perSource := map[string]int{}
	texts := make([]string, 0, len(snapTexts))
	for _, f := range snapTexts {
		c, err := models.NewChunk(f.source, f.text, len(strings.Fields(f.text)), perSource[f.source])
		if err != nil {
			t.Fatal(err)
		}
		perSource[f.source]++
		chunks = append(chunks, c)
		texts = append(texts, f.text)
	}
	enc := encoder.New(1000)
	if err := enc.Fit(texts); err != nil {
		t.Fatal(err)
	}
	ix, err := vector.NewFlatIndex(enc.Dimension())
	if err != nil {
		t.Fatal(err)
	}
	for _, text := range texts {
		v, err := enc.Transform(text)
		if err != nil {
			t.Fatal(err)
		}
		if err := ix.Add([][]float32{v}); err != nil {
			t.Fatal(err)
		}
	}
	return &Snapshot{
		Encoder: enc,
		Index:   ix,
		Chunks:  chunks,
		Info: models.SnapshotInfo{
			Encoder:    enc.Name(),
			Dimension:  enc.Dimension(),
			ChunkCount: len(chunks),
			IndexKind:  ix.Kind(),
			BuildID:    "test-build",
		},
	}
}

func TestSaveLoadRoundTripSearch(t *testing.T) {
	snap := buildSnapshot(t)
	dir := filepath.Join(t.TempDir(), "index")
	if err := Save(dir, snap); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	r, err := Load(dir, config.Default().Gate)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	queries := []string{
		"water for dehydration",
		"sleep schedule",
		snapTexts[1].text,
	}
	ctx := context.Background()
	for _, q := range queries {
		qvec, err := snap.Encoder.Transform(q)
		if err != nil {
			t.Fatal(err)
		}
		direct, err := snap.Index.Search(ctx, qvec, 3)
		if err != nil {
			t.Fatal(err)
		}
		loaded, err := r.Search(ctx, q, 3, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(direct) != len(loaded) {
			t.Fatalf("query %q: %d direct vs %d loaded results", q, len(direct), len(loaded))
		}
		for i := range direct {
			if snap.Chunks[direct[i].ID].ChunkID != loaded[i].ChunkID {
				t.Errorf("query %q result %d: id differs", q, i)
			}
			if math.Abs(direct[i].Score-loaded[i].Score) > 1e-6 {
				t.Errorf("query %q result %d: score %f vs %f", q, i, direct[i].Score, loaded[i].Score)
			}
		}
	}
}

func TestSaveLeavesNoStagingBehind(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "index")
	if err := Save(dir, buildSnapshot(t)); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "index" {
			t.Errorf("stray entry after save: %s", e.Name())
		}
	}
}

func TestSaveReplacesExistingSnapshot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	snap := buildSnapshot(t)
	if err := Save(dir, snap); err != nil {
		t.Fatal(err)
	}
	snap.Info.BuildID = "second-build"
	if err := Save(dir, snap); err != nil {
		t.Fatalf("overwrite save error: %v", err)
	}
	r, err := Load(dir, config.Default().Gate)
	if err != nil {
		t.Fatal(err)
	}
	if r.Info().BuildID != "second-build" {
		t.Errorf("BuildID = %s, want second-build", r.Info().BuildID)
	}
}

func TestLoadMissingArtifact(t *testing.T) {
	for _, missing := range []string{IndexFile, ChunksFile, EncoderFile, InfoFile} {
		t.Run(missing, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "index")
			if err := Save(dir, buildSnapshot(t)); err != nil {
				t.Fatal(err)
			}
			if err := os.Remove(filepath.Join(dir, missing)); err != nil {
				t.Fatal(err)
			}
			_, err := Load(dir, config.Default().Gate)
			var loadErr *LoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("expected *LoadError, got %T (%v)", err, err)
			}
		})
	}
}

func TestLoadDetectsCountMismatch(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	snap := buildSnapshot(t)
	if err := Save(dir, snap); err != nil {
		t.Fatal(err)
	}
	// Drop one chunk from the metadata so chunk count != vector count.
	truncated := snap.Chunks[:len(snap.Chunks)-1]
	if err := writeJSON(filepath.Join(dir, ChunksFile), truncated); err != nil {
		t.Fatal(err)
	}
	_, err := Load(dir, config.Default().Gate)
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected *LoadError for count mismatch, got %v", err)
	}
}

func TestLoadMissingDir(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent"), config.Default().Gate)
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected *LoadError, got %T", err)
	}
}

func TestSaveRejectsMisalignedSnapshot(t *testing.T) {
	snap := buildSnapshot(t)
	snap.Chunks = snap.Chunks[:1]
	if err := Save(filepath.Join(t.TempDir(), "index"), snap); err == nil {
		t.Error("misaligned snapshot must not be saved")
	}
}

func TestHolderSwap(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	if err := Save(dir, buildSnapshot(t)); err != nil {
		t.Fatal(err)
	}
	r1, err := Load(dir, config.Default().Gate)
	if err != nil {
		t.Fatal(err)
	}
	h := NewHolder(nil)
	if h.Get() != nil {
		t.Error("empty holder should return nil")
	}
	h.Swap(r1)
	if h.Get() != r1 {
		t.Error("holder should return the swapped retriever")
	}
	r2, err := Load(dir, config.Default().Gate)
	if err != nil {
		t.Fatal(err)
	}
	h.Swap(r2)
	if h.Get() != r2 {
		t.Error("holder should return the latest retriever")
	}
}
