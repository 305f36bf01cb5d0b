package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/tansaku/internal/ingest"
	"github.com/hyperjump/tansaku/internal/models"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := OpenCatalog(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRecordAndLatestBuild(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	info := models.SnapshotInfo{
		Encoder:    "tfidf",
		Dimension:  128,
		ChunkCount: 9,
		IndexKind:  "flat_ip",
		BuildID:    "build-1",
		BuiltAt:    time.Now().UTC(),
	}
	results := []ingest.SourceResult{
		{Source: "fever", Path: "/docs/fever.txt", ChunkCount: 5, TokenCount: 900},
		{Source: "broken", Path: "/docs/broken.txt", Err: fmt.Errorf("no text content")},
		{Source: "burns", Path: "/docs/burns.txt", ChunkCount: 4, TokenCount: 640},
	}
	if err := c.RecordBuild(ctx, info, results); err != nil {
		t.Fatalf("RecordBuild error: %v", err)
	}

	build, sources, err := c.LatestBuild(ctx)
	if err != nil {
		t.Fatalf("LatestBuild error: %v", err)
	}
	if build.ID != "build-1" || build.ChunkCount != 9 || build.Dimension != 128 {
		t.Errorf("build = %+v", build)
	}
	if len(sources) != 3 {
		t.Fatalf("got %d sources", len(sources))
	}
	// Sources come back sorted by name.
	if sources[0].Source != "broken" || sources[1].Source != "burns" || sources[2].Source != "fever" {
		t.Errorf("source order: %v", []string{sources[0].Source, sources[1].Source, sources[2].Source})
	}
	if sources[0].OK || sources[0].Error == "" {
		t.Errorf("failed source record = %+v", sources[0])
	}
	if !sources[2].OK || sources[2].ChunkCount != 5 {
		t.Errorf("ok source record = %+v", sources[2])
	}
}

func TestLatestBuildPicksNewest(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()
	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		info := models.SnapshotInfo{
			Encoder: "tfidf", Dimension: 8, ChunkCount: i, IndexKind: "flat_ip",
			BuildID: fmt.Sprintf("build-%d", i),
			BuiltAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := c.RecordBuild(ctx, info, nil); err != nil {
			t.Fatal(err)
		}
	}
	build, _, err := c.LatestBuild(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if build.ID != "build-2" {
		t.Errorf("latest build = %s", build.ID)
	}
	n, err := c.CountBuilds(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("build count = %d", n)
	}
}

func TestLatestBuildEmpty(t *testing.T) {
	c := openTestCatalog(t)
	_, _, err := c.LatestBuild(context.Background())
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}
