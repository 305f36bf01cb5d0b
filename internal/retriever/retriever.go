// Package retriever answers queries against a loaded index snapshot.
package retriever

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/encoder"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/vector"
)

// Retriever owns a read-only in-memory snapshot: the vector index, the
// aligned chunk list, and the frozen encoder. All methods are safe for
// concurrent use; every search allocates its own working vector and
// results are copies of the stored chunks.
type Retriever struct {
	enc    *encoder.TFIDF
	index  vector.Index
	chunks []models.Chunk
	byID   map[string]int
	gate   *Gate
	info   models.SnapshotInfo
	logger *zap.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLogger sets a logger for query events.
func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

// New assembles a retriever and verifies the alignment invariant:
// index position i must correspond to chunk i, so the index size, the
// chunk count, and the encoder/index dimensions all have to agree.
func New(enc *encoder.TFIDF, index vector.Index, chunks []models.Chunk, info models.SnapshotInfo, gateCfg config.GateConfig, opts ...Option) (*Retriever, error) {
	if !enc.Fitted() {
		return nil, encoder.ErrNotFitted
	}
	if index.Size() != len(chunks) {
		return nil, fmt.Errorf("index has %d vectors but %d chunks", index.Size(), len(chunks))
	}
	if enc.Dimension() != index.Dimensions() {
		return nil, fmt.Errorf("encoder dimension %d does not match index dimension %d", enc.Dimension(), index.Dimensions())
	}
	byID := make(map[string]int, len(chunks))
	for i, c := range chunks {
		byID[c.ChunkID] = i
	}
	r := &Retriever{
		enc:    enc,
		index:  index,
		chunks: chunks,
		byID:   byID,
		gate:   NewGate(gateCfg),
		info:   info,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r, nil
}

// Search encodes the query through the frozen encoder, runs top-k index
// search, drops hits scoring below minScore, and renumbers the
// survivors' ranks from 1. An empty result slice is a successful
// outcome meaning nothing relevant was found.
func (r *Retriever) Search(ctx context.Context, query string, k int, minScore float64) ([]models.ScoredChunk, error) {
	qvec, err := r.enc.Transform(query)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	hits, err := r.index.Search(ctx, qvec, k)
	if err != nil {
		return nil, err
	}
	results := make([]models.ScoredChunk, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < minScore {
			continue
		}
		if hit.ID < 0 || hit.ID >= len(r.chunks) {
			return nil, fmt.Errorf("index returned id %d outside chunk list of %d", hit.ID, len(r.chunks))
		}
		results = append(results, models.ScoredChunk{
			Chunk: r.chunks[hit.ID],
			Score: hit.Score,
			Rank:  len(results) + 1,
		})
	}
	r.logger.Debug("search",
		zap.String("query", query),
		zap.Int("k", k),
		zap.Float64("min_score", minScore),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// ValidateQuery runs the relevance gate.
func (r *Retriever) ValidateQuery(query string) models.Validation {
	return r.gate.Validate(query)
}

// GetChunkByID returns a copy of the chunk with the given ID.
func (r *Retriever) GetChunkByID(chunkID string) (models.Chunk, bool) {
	i, ok := r.byID[chunkID]
	if !ok {
		return models.Chunk{}, false
	}
	return r.chunks[i], true
}

// GetChunksBySource returns copies of all chunks of one source, in
// chunk-index order.
func (r *Retriever) GetChunksBySource(source string) []models.Chunk {
	var out []models.Chunk
	for _, c := range r.chunks {
		if c.Source == source {
			out = append(out, c)
		}
	}
	return out
}

// GetAvailableSources returns the sorted distinct source names.
func (r *Retriever) GetAvailableSources() []string {
	seen := make(map[string]struct{})
	for _, c := range r.chunks {
		seen[c.Source] = struct{}{}
	}
	sources := make([]string, 0, len(seen))
	for s := range seen {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	return sources
}

// ChunkCount returns the number of chunks in the snapshot.
func (r *Retriever) ChunkCount() int { return len(r.chunks) }

// Info returns the snapshot summary metadata.
func (r *Retriever) Info() models.SnapshotInfo { return r.info }
