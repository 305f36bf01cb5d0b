// Package storage provides the SQLite ingestion catalog. The catalog
// records build provenance (which sources went into a snapshot, with
// what outcome) for the status command; it is not part of the snapshot
// itself.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/tansaku/internal/ingest"
	"github.com/hyperjump/tansaku/internal/models"
)

// Catalog stores build and per-source ingestion records in SQLite.
type Catalog struct {
	db *sql.DB
}

// BuildRecord is one recorded index build.
type BuildRecord struct {
	ID         string
	BuiltAt    time.Time
	ChunkCount int
	Dimension  int
}

// SourceRecord is the recorded outcome for one source in a build.
type SourceRecord struct {
	Source     string
	Path       string
	ChunkCount int
	TokenCount int
	OK         bool
	Error      string
}

// OpenCatalog opens or creates the catalog database at dbPath and
// initializes the schema. Parent directories are created if needed.
func OpenCatalog(dbPath string) (*Catalog, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		built_at TIMESTAMP NOT NULL,
		chunk_count INTEGER NOT NULL,
		dimension INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS build_sources (
		build_id TEXT NOT NULL,
		source TEXT NOT NULL,
		path TEXT NOT NULL,
		chunk_count INTEGER NOT NULL,
		token_count INTEGER NOT NULL,
		ok INTEGER NOT NULL,
		error TEXT,
		PRIMARY KEY (build_id, source),
		FOREIGN KEY (build_id) REFERENCES builds(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_build_sources_build ON build_sources(build_id);
	`
	_, err := db.Exec(schema)
	return err
}

// RecordBuild stores one build and its per-source outcomes in a single
// transaction.
func (c *Catalog) RecordBuild(ctx context.Context, info models.SnapshotInfo, results []ingest.SourceResult) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO builds (id, built_at, chunk_count, dimension) VALUES (?, ?, ?, ?)`,
		info.BuildID, info.BuiltAt, info.ChunkCount, info.Dimension,
	); err != nil {
		return fmt.Errorf("insert build: %w", err)
	}
	for _, r := range results {
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO build_sources (build_id, source, path, chunk_count, token_count, ok, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			info.BuildID, r.Source, r.Path, r.ChunkCount, r.TokenCount, r.Err == nil, errText,
		); err != nil {
			return fmt.Errorf("insert source %s: %w", r.Source, err)
		}
	}
	return tx.Commit()
}

// LatestBuild returns the most recent build and its source records, or
// sql.ErrNoRows when no build has been recorded yet.
func (c *Catalog) LatestBuild(ctx context.Context) (*BuildRecord, []SourceRecord, error) {
	var b BuildRecord
	err := c.db.QueryRowContext(ctx,
		`SELECT id, built_at, chunk_count, dimension FROM builds ORDER BY built_at DESC, id DESC LIMIT 1`,
	).Scan(&b.ID, &b.BuiltAt, &b.ChunkCount, &b.Dimension)
	if err != nil {
		return nil, nil, err
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT source, path, chunk_count, token_count, ok, error
		 FROM build_sources WHERE build_id = ? ORDER BY source`, b.ID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var sources []SourceRecord
	for rows.Next() {
		var s SourceRecord
		var errText sql.NullString
		if err := rows.Scan(&s.Source, &s.Path, &s.ChunkCount, &s.TokenCount, &s.OK, &errText); err != nil {
			return nil, nil, err
		}
		s.Error = errText.String
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return &b, sources, nil
}

// CountBuilds returns the number of recorded builds.
func (c *Catalog) CountBuilds(ctx context.Context) (int64, error) {
	var n int64
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM builds`).Scan(&n)
	return n, err
}

// Close closes the catalog database.
func (c *Catalog) Close() error {
	return c.db.Close()
}
