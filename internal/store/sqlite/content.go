// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/loglens-dev/loglens/internal/store"
	llerr "github.com/loglens-dev/loglens/pkg/errors"
)

// Compile-time interface check.
var _ store.ContentStore = (*ContentStore)(nil)

// ContentStore implements store.ContentStore backed by SQLite. The
// fingerprint primary key is what enforces the one-record-per-payload
// invariant: duplicate detection happens inside the INSERT, not as a
// read-then-write in Go.
type ContentStore struct {
	db *sql.DB
}

// NewContentStore opens (or creates) a SQLite database at dbPath and
// initialises the incidents table.
func NewContentStore(dbPath string) (*ContentStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, llerr.Errorf(llerr.CodeStoreDatabaseFailure, "opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, llerr.Errorf(llerr.CodeStoreDatabaseFailure, "pinging sqlite db: %w", err)
	}

	if err := migrateContent(db); err != nil {
		_ = db.Close()
		return nil, llerr.Errorf(llerr.CodeStoreDatabaseFailure, "migrating content tables: %w", err)
	}

	return &ContentStore{db: db}, nil
}

func migrateContent(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS incidents (
	fingerprint     TEXT PRIMARY KEY,
	ticket_ref      TEXT NOT NULL,
	category        TEXT NOT NULL,
	flow_code       TEXT NOT NULL DEFAULT '',
	trigger_type    TEXT NOT NULL DEFAULT '',
	endpoint        TEXT NOT NULL DEFAULT '',
	error_code      TEXT NOT NULL DEFAULT '',
	error_summary   TEXT NOT NULL DEFAULT '',
	root_cause      TEXT NOT NULL DEFAULT '',
	semantic_text   TEXT NOT NULL,
	embedding       TEXT NOT NULL,
	raw_json        BLOB NOT NULL,
	normalized_json TEXT NOT NULL,
	created_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_incidents_ticket ON incidents(ticket_ref);
`
	_, err := db.Exec(ddl)
	return err
}

// Put stores the record. A fingerprint collision surfaces as a
// duplicate-coded error so callers can treat it as the expected
// already-ingested outcome.
func (c *ContentStore) Put(ctx context.Context, rec *store.IncidentRecord) error {
	embJSON, err := json.Marshal(rec.Embedding)
	if err != nil {
		return llerr.Errorf(llerr.CodeStoreDatabaseFailure, "marshalling embedding: %w", err)
	}

	normJSON, err := json.Marshal(rec.Normalized)
	if err != nil {
		return llerr.Errorf(llerr.CodeStoreDatabaseFailure, "marshalling normalized payload: %w", err)
	}

	const q = `INSERT INTO incidents (
	fingerprint, ticket_ref, category,
	flow_code, trigger_type, endpoint, error_code, error_summary, root_cause,
	semantic_text, embedding, raw_json, normalized_json, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = c.db.ExecContext(ctx, q,
		rec.Fingerprint, rec.TicketRef, string(rec.Category),
		rec.FlowCode, rec.TriggerType, rec.Endpoint, rec.ErrorCode, rec.ErrorSummary, rec.RootCause,
		rec.SemanticText, string(embJSON), rec.RawPayload, string(normJSON),
		formatTime(rec.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return llerr.Wrap(err, llerr.CodeContentPutDuplicate,
				"incident already ingested", llerr.FieldFingerprint(rec.Fingerprint))
		}
		return llerr.Errorf(llerr.CodeStoreDatabaseFailure, "inserting incident: %w", err)
	}

	return nil
}

// Get retrieves a record by fingerprint.
func (c *ContentStore) Get(ctx context.Context, fingerprint string) (*store.IncidentRecord, error) {
	return c.getWhere(ctx, "fingerprint = ?", fingerprint)
}

// GetByTicket retrieves the record associated with a ticket reference.
func (c *ContentStore) GetByTicket(ctx context.Context, ticketRef string) (*store.IncidentRecord, error) {
	return c.getWhere(ctx, "ticket_ref = ?", ticketRef)
}

func (c *ContentStore) getWhere(ctx context.Context, where string, arg any) (*store.IncidentRecord, error) {
	q := `SELECT fingerprint, ticket_ref, category,
	flow_code, trigger_type, endpoint, error_code, error_summary, root_cause,
	semantic_text, embedding, raw_json, normalized_json, created_at
FROM incidents WHERE ` + where + ` LIMIT 1`

	var (
		rec                         store.IncidentRecord
		category, embJSON, normJSON string
		createdAt                   string
	)

	err := c.db.QueryRowContext(ctx, q, arg).Scan(
		&rec.Fingerprint, &rec.TicketRef, &category,
		&rec.FlowCode, &rec.TriggerType, &rec.Endpoint, &rec.ErrorCode, &rec.ErrorSummary, &rec.RootCause,
		&rec.SemanticText, &embJSON, &rec.RawPayload, &normJSON, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, llerr.New(llerr.CodeContentGetNotFound, "incident not found")
	}
	if err != nil {
		return nil, llerr.Errorf(llerr.CodeStoreDatabaseFailure, "querying incident: %w", err)
	}

	rec.Category = store.Category(category)

	if err := json.Unmarshal([]byte(embJSON), &rec.Embedding); err != nil {
		return nil, llerr.Errorf(llerr.CodeStoreDatabaseFailure, "unmarshalling embedding: %w", err)
	}
	if err := json.Unmarshal([]byte(normJSON), &rec.Normalized); err != nil {
		return nil, llerr.Errorf(llerr.CodeStoreDatabaseFailure, "unmarshalling normalized payload: %w", err)
	}

	rec.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, llerr.Errorf(llerr.CodeStoreDatabaseFailure, "parsing created_at: %w", err)
	}

	return &rec, nil
}

// Close closes the underlying database connection.
func (c *ContentStore) Close() error {
	return c.db.Close()
}

// isUniqueViolation reports whether err is a SQLite uniqueness constraint
// failure (primary key or unique index).
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == sqlite3.ErrConstraint
}

// timeLayout is fixed-width: RFC3339Nano trims trailing fractional zeros,
// so its strings do not sort in time order ("...00Z" > "...00.5Z"). The
// created_at ORDER BY clauses compare these strings directly.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
