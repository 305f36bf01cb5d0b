package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/models"
)

// DocumentError is a per-document ingestion failure. It isolates one
// unreadable or empty source so the rest of the corpus keeps processing.
type DocumentError struct {
	Path string
	Err  error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("ingest %s: %v", e.Path, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

// SourceResult records the outcome of ingesting one source file.
type SourceResult struct {
	Source     string
	Path       string
	ChunkCount int
	TokenCount int
	Err        error
}

// Processor ingests plain-text documents into chunks.
type Processor struct {
	chunker *Chunker
	logger  *zap.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithLogger sets a logger for per-file ingestion events.
func WithLogger(l *zap.Logger) ProcessorOption {
	return func(p *Processor) { p.logger = l }
}

// NewProcessor creates a processor with the given chunk and overlap
// token budgets. Options (e.g. WithLogger) can be passed for logging.
func NewProcessor(chunkSize, overlapSize int, opts ...ProcessorOption) *Processor {
	p := &Processor{chunker: NewChunker(chunkSize, overlapSize)}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	return p
}

// ProcessFile reads, cleans, and chunks one document. The file base name
// (without extension) becomes the chunk source. Files that are not valid
// UTF-8 are decoded once more as Latin-1 before giving up.
func (p *Processor) ProcessFile(path string) ([]models.Chunk, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &DocumentError{Path: path, Err: err}
	}
	text := decodeText(raw)
	cleaned := Clean(text)
	if cleaned == "" {
		return nil, &DocumentError{Path: path, Err: fmt.Errorf("no text content after cleaning")}
	}
	source := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	chunks, err := p.chunker.Chunk(cleaned, source)
	if err != nil {
		return nil, &DocumentError{Path: path, Err: err}
	}
	return chunks, nil
}

// ProcessDirectory ingests every *.txt file in dir (non-recursive).
// Per-document failures are recorded in the returned results and logged,
// and processing continues for the remaining files. The returned chunk
// slice concatenates per-source chunks in sorted file order.
func (p *Processor) ProcessDirectory(dir string) ([]models.Chunk, []SourceResult, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, nil, fmt.Errorf("list documents in %s: %w", dir, err)
	}
	if _, statErr := os.Stat(dir); statErr != nil {
		return nil, nil, fmt.Errorf("documents directory: %w", statErr)
	}
	sort.Strings(paths)

	var all []models.Chunk
	results := make([]SourceResult, 0, len(paths))
	for _, path := range paths {
		source := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		chunks, err := p.ProcessFile(path)
		if err != nil {
			p.logger.Warn("document skipped",
				zap.String("path", path),
				zap.Error(err),
			)
			results = append(results, SourceResult{Source: source, Path: path, Err: err})
			continue
		}
		tokens := 0
		for _, c := range chunks {
			tokens += c.TokenCount
		}
		p.logger.Info("document ingested",
			zap.String("source", source),
			zap.Int("chunks", len(chunks)),
			zap.Int("tokens", tokens),
		)
		results = append(results, SourceResult{
			Source:     source,
			Path:       path,
			ChunkCount: len(chunks),
			TokenCount: tokens,
		})
		all = append(all, chunks...)
	}
	return all, results, nil
}

// decodeText returns raw as a string, decoding as Latin-1 when the bytes
// are not valid UTF-8. Latin-1 maps every byte to the rune of the same
// value, so the fallback cannot fail.
func decodeText(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	var b strings.Builder
	b.Grow(len(raw))
	for _, c := range raw {
		b.WriteRune(rune(c))
	}
	return b.String()
}
