// Package builder runs the offline build pipeline: ingest documents,
// fit the encoder, index the chunk vectors, and persist the snapshot.
package builder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/encoder"
	"github.com/hyperjump/tansaku/internal/ingest"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/snapshot"
	"github.com/hyperjump/tansaku/internal/storage"
	"github.com/hyperjump/tansaku/internal/vector"
)

// Builder composes the ingestion processor, the encoder, and the index
// into a single-writer batch build. It must not run concurrently with
// itself against the same output directory.
type Builder struct {
	cfg       *config.Config
	processor *ingest.Processor
	catalog   *storage.Catalog
	logger    *zap.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets a logger for build progress.
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// WithCatalog sets an ingestion catalog to record build provenance.
// Catalog failures are logged, never fatal to a build whose snapshot
// already activated.
func WithCatalog(c *storage.Catalog) Option {
	return func(b *Builder) { b.catalog = c }
}

// New creates a builder from the configuration.
func New(cfg *config.Config, opts ...Option) *Builder {
	b := &Builder{cfg: cfg}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	b.processor = ingest.NewProcessor(
		cfg.Chunking.ChunkSize,
		cfg.Chunking.OverlapSize,
		ingest.WithLogger(b.logger),
	)
	return b
}

// BuildAndSave ingests every document in docsDir, builds the snapshot,
// and atomically activates it at outDir. Per-document ingestion
// failures are isolated and logged; a corpus producing zero chunks is
// fatal and reported as encoder.ErrEmptyCorpus.
func (b *Builder) BuildAndSave(ctx context.Context, docsDir, outDir string) (*models.SnapshotInfo, error) {
	start := time.Now()
	chunks, results, err := b.processor.ProcessDirectory(docsDir)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no chunks from %s: %w", docsDir, encoder.ErrEmptyCorpus)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	enc := encoder.New(b.cfg.Encoder.MaxFeatures)
	if err := enc.Fit(texts); err != nil {
		return nil, fmt.Errorf("fit encoder: %w", err)
	}
	b.logger.Info("encoder fitted",
		zap.Int("chunks", len(chunks)),
		zap.Int("dimension", enc.Dimension()),
	)

	ix, err := vector.NewFlatIndex(enc.Dimension())
	if err != nil {
		return nil, err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := enc.Transform(text)
		if err != nil {
			return nil, fmt.Errorf("encode chunk %s: %w", chunks[i].ChunkID, err)
		}
		vectors[i] = v
	}
	if err := ix.Add(vectors); err != nil {
		return nil, fmt.Errorf("index vectors: %w", err)
	}

	info := models.SnapshotInfo{
		Encoder:    enc.Name(),
		Dimension:  enc.Dimension(),
		ChunkCount: len(chunks),
		IndexKind:  ix.Kind(),
		BuildID:    uuid.New().String(),
		BuiltAt:    time.Now().UTC(),
	}
	snap := &snapshot.Snapshot{Encoder: enc, Index: ix, Chunks: chunks, Info: info}
	if err := snapshot.Save(outDir, snap); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	b.logger.Info("snapshot saved",
		zap.String("dir", outDir),
		zap.String("build_id", info.BuildID),
		zap.Int("chunks", info.ChunkCount),
		zap.Int("dimension", info.Dimension),
		zap.Duration("elapsed", time.Since(start)),
	)

	if b.catalog != nil {
		if err := b.catalog.RecordBuild(ctx, info, results); err != nil {
			b.logger.Warn("catalog record failed", zap.Error(err))
		}
	}
	return &info, nil
}
