// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/loglens-dev/loglens/internal/store"
	llerr "github.com/loglens-dev/loglens/pkg/errors"
)

func init() {
	sqlite_vec.Auto()
}

// Compile-time interface check.
var _ store.VectorIndex = (*VectorIndex)(nil)

// VectorIndex implements store.VectorIndex backed by SQLite with sqlite-vec.
// The vec0 table holds the embeddings; a companion table carries the
// ingestion timestamp used for the recency tie-break.
type VectorIndex struct {
	db         *sql.DB
	dimensions int
}

// NewVectorIndex opens (or creates) a SQLite database at dbPath and
// initialises the vec0 virtual table with cosine distance at the given
// vector width.
func NewVectorIndex(dbPath string, dimensions int) (*VectorIndex, error) {
	if dimensions <= 0 {
		return nil, llerr.Errorf(llerr.CodeVectorDimensionMismatch, "vector dimensions must be positive, got %d", dimensions)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, llerr.Errorf(llerr.CodeStoreDatabaseFailure, "opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, llerr.Errorf(llerr.CodeStoreDatabaseFailure, "pinging sqlite db: %w", err)
	}

	if err := migrateVector(db, dimensions); err != nil {
		_ = db.Close()
		return nil, llerr.Errorf(llerr.CodeStoreDatabaseFailure, "migrating vector tables: %w", err)
	}

	return &VectorIndex{db: db, dimensions: dimensions}, nil
}

func migrateVector(db *sql.DB, dimensions int) error {
	vecDDL := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vectors USING vec0(id TEXT PRIMARY KEY, embedding float[%d] distance_metric=cosine)`,
		dimensions,
	)
	if _, err := db.Exec(vecDDL); err != nil {
		return fmt.Errorf("creating vectors virtual table: %w", err)
	}

	const metaDDL = `
CREATE TABLE IF NOT EXISTS vector_meta (
	id          TEXT PRIMARY KEY,
	ingested_at TEXT NOT NULL
)`
	if _, err := db.Exec(metaDDL); err != nil {
		return fmt.Errorf("creating vector_meta table: %w", err)
	}

	return nil
}

// Dimensions returns the configured vector width.
func (v *VectorIndex) Dimensions() int {
	return v.dimensions
}

// Store indexes an embedding under the record's fingerprint. A mismatched
// vector width is a hard failure, never silently truncated.
func (v *VectorIndex) Store(ctx context.Context, fingerprint string, embedding []float32) error {
	if len(embedding) != v.dimensions {
		return llerr.New(llerr.CodeVectorDimensionMismatch,
			fmt.Sprintf("embedding has %d dimensions, index expects %d", len(embedding), v.dimensions),
			llerr.FieldFingerprint(fingerprint))
	}

	blob, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return llerr.Errorf(llerr.CodeStoreDatabaseFailure, "serializing embedding: %w", err)
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return llerr.Errorf(llerr.CodeStoreDatabaseFailure, "beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// vec0 does not support ON CONFLICT; delete first for upsert.
	if _, err := tx.ExecContext(ctx, `DELETE FROM vectors WHERE id = ?`, fingerprint); err != nil {
		return llerr.Errorf(llerr.CodeStoreDatabaseFailure, "deleting existing vector %s: %w", fingerprint, err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO vectors(id, embedding) VALUES (?, ?)`, fingerprint, blob); err != nil {
		return llerr.Errorf(llerr.CodeStoreDatabaseFailure, "inserting vector %s: %w", fingerprint, err)
	}

	const metaQ = `INSERT INTO vector_meta(id, ingested_at) VALUES (?, ?)
ON CONFLICT(id) DO UPDATE SET ingested_at = excluded.ingested_at`
	if _, err := tx.ExecContext(ctx, metaQ, fingerprint, formatTime(time.Now())); err != nil {
		return llerr.Errorf(llerr.CodeStoreDatabaseFailure, "upserting vector meta %s: %w", fingerprint, err)
	}

	if err := tx.Commit(); err != nil {
		return llerr.Errorf(llerr.CodeStoreDatabaseFailure, "committing vector store: %w", err)
	}
	return nil
}

// Search performs a k-nearest-neighbor query. Results are strictly
// descending by cosine similarity in [0, 1]; equal similarities order by
// most-recent ingestion first.
func (v *VectorIndex) Search(ctx context.Context, query []float32, k int) ([]store.VectorHit, error) {
	if len(query) != v.dimensions {
		return nil, llerr.New(llerr.CodeVectorDimensionMismatch,
			fmt.Sprintf("query has %d dimensions, index expects %d", len(query), v.dimensions))
	}
	if k <= 0 {
		return nil, nil
	}

	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, llerr.Errorf(llerr.CodeStoreDatabaseFailure, "serializing query vector: %w", err)
	}

	const q = `SELECT v.id, v.distance, COALESCE(m.ingested_at, '')
FROM vectors v
LEFT JOIN vector_meta m ON m.id = v.id
WHERE v.embedding MATCH ? AND k = ?
ORDER BY v.distance ASC, m.ingested_at DESC`

	rows, err := v.db.QueryContext(ctx, q, blob, k)
	if err != nil {
		return nil, llerr.Errorf(llerr.CodeStoreDatabaseFailure, "searching vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var hits []store.VectorHit
	for rows.Next() {
		var (
			hit        store.VectorHit
			distance   float64
			ingestedAt string
		)

		if err := rows.Scan(&hit.Fingerprint, &distance, &ingestedAt); err != nil {
			return nil, llerr.Errorf(llerr.CodeStoreDatabaseFailure, "scanning vector hit: %w", err)
		}

		// Cosine distance is 1 - cosine similarity; clamp for negative
		// similarities so the contract range holds.
		hit.Similarity = 1 - distance
		if hit.Similarity < 0 {
			hit.Similarity = 0
		}
		if hit.Similarity > 1 {
			hit.Similarity = 1
		}

		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, llerr.Errorf(llerr.CodeStoreDatabaseFailure, "iterating vector hits: %w", err)
	}

	return hits, nil
}

// Close closes the underlying database connection.
func (v *VectorIndex) Close() error {
	return v.db.Close()
}
