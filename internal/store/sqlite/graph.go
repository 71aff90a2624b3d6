// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/loglens-dev/loglens/internal/store"
	llerr "github.com/loglens-dev/loglens/pkg/errors"
)

// Compile-time interface check.
var _ store.GraphStore = (*GraphStore)(nil)

// GraphStore implements store.GraphStore backed by SQLite.
//
// Node identity is (type, value), enforced by a unique index with
// INSERT OR IGNORE semantics so concurrent ingestions converge without a
// read-modify-write. Structural edges are deduplicated the same way via a
// partial unique index; reasoner edges fall outside that index and append.
type GraphStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewGraphStore opens (or creates) a SQLite database at dbPath and
// initialises the node and edge tables.
func NewGraphStore(dbPath string) (*GraphStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, llerr.Errorf(llerr.CodeStoreDatabaseFailure, "opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, llerr.Errorf(llerr.CodeStoreDatabaseFailure, "pinging sqlite db: %w", err)
	}

	if err := migrateGraph(db); err != nil {
		_ = db.Close()
		return nil, llerr.Errorf(llerr.CodeStoreDatabaseFailure, "migrating graph tables: %w", err)
	}

	return &GraphStore{db: db, logger: slog.Default()}, nil
}

func migrateGraph(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS nodes (
	node_id    TEXT PRIMARY KEY,
	node_type  TEXT NOT NULL,
	node_value TEXT NOT NULL,
	properties TEXT,
	created_at TEXT NOT NULL,
	UNIQUE(node_type, node_value)
);

CREATE TABLE IF NOT EXISTS edges (
	edge_id    TEXT PRIMARY KEY,
	from_node  TEXT NOT NULL,
	to_node    TEXT NOT NULL,
	edge_type  TEXT NOT NULL,
	properties TEXT,
	created_at TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_edges_structural
	ON edges(from_node, to_node, edge_type)
	WHERE edge_type IN ('PRODUCED', 'OCCURRED_ON', 'CAUSED_BY', 'TRACKED_IN');

CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_node, edge_type);
CREATE INDEX IF NOT EXISTS idx_edges_to   ON edges(to_node, edge_type);
`
	_, err := db.Exec(ddl)
	return err
}

// NodeID builds the deterministic node identifier for a (type, value) pair.
func NodeID(nt store.NodeType, value string) string {
	id := string(nt) + ":" + value
	if len(id) > 200 {
		id = id[:200]
	}
	return id
}

// UpsertNode creates the node if absent. The insert is conflict-as-success:
// a concurrent writer winning the race is indistinguishable from this call
// succeeding, and the returned id is deterministic either way.
func (g *GraphStore) UpsertNode(ctx context.Context, nt store.NodeType, value string, props map[string]any) (string, error) {
	nodeID := NodeID(nt, value)

	var propsJSON any
	if len(props) > 0 {
		b, err := json.Marshal(props)
		if err != nil {
			return "", llerr.Errorf(llerr.CodeStoreDatabaseFailure, "marshalling node properties: %w", err)
		}
		propsJSON = string(b)
	}

	const q = `INSERT INTO nodes (node_id, node_type, node_value, properties, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(node_id) DO NOTHING`

	if _, err := g.db.ExecContext(ctx, q, nodeID, string(nt), value, propsJSON, formatTime(time.Now())); err != nil {
		return "", llerr.Errorf(llerr.CodeStoreDatabaseFailure, "upserting node %s: %w", nodeID, err)
	}

	return nodeID, nil
}

// UpsertEdge writes a structural edge, deduplicated on (from, to, type).
func (g *GraphStore) UpsertEdge(ctx context.Context, from, to string, et store.EdgeType) error {
	if !et.Structural() {
		return llerr.Errorf(llerr.CodeGraphQueryFailure, "edge type %s is not structural; use AppendEdge", et)
	}

	const q = `INSERT OR IGNORE INTO edges (edge_id, from_node, to_node, edge_type, properties, created_at)
VALUES (?, ?, ?, ?, NULL, ?)`

	if _, err := g.db.ExecContext(ctx, q, uuid.NewString(), from, to, string(et), formatTime(time.Now())); err != nil {
		return llerr.Errorf(llerr.CodeStoreDatabaseFailure, "upserting edge %s-[%s]->%s: %w", from, et, to, err)
	}

	return nil
}

// AppendEdge writes a reasoner-classified edge with its attribution. Each
// call appends a new row; prior classifications are never overwritten.
func (g *GraphStore) AppendEdge(ctx context.Context, from, to string, et store.EdgeType, props store.EdgeProps) error {
	if et.Structural() {
		return llerr.Errorf(llerr.CodeGraphQueryFailure, "edge type %s is structural; use UpsertEdge", et)
	}

	propsJSON, err := json.Marshal(props)
	if err != nil {
		return llerr.Errorf(llerr.CodeStoreDatabaseFailure, "marshalling edge properties: %w", err)
	}

	const q = `INSERT INTO edges (edge_id, from_node, to_node, edge_type, properties, created_at)
VALUES (?, ?, ?, ?, ?, ?)`

	if _, err := g.db.ExecContext(ctx, q, uuid.NewString(), from, to, string(et), string(propsJSON), formatTime(time.Now())); err != nil {
		return llerr.Errorf(llerr.CodeStoreDatabaseFailure, "appending edge %s-[%s]->%s: %w", from, et, to, err)
	}

	g.logger.Debug("reasoner edge appended",
		slog.String("from", from),
		slog.String("to", to),
		slog.String("edge_type", string(et)),
		slog.Int("confidence", props.Confidence),
	)

	return nil
}

// RootCauseOf follows the direct Ticket→RootCause edge. It deliberately
// never traverses via the shared Error node: two tickets with the same
// error code but different causes must each report their own.
func (g *GraphStore) RootCauseOf(ctx context.Context, ticketRef string) (string, error) {
	const q = `SELECT n.node_value
FROM edges e
JOIN nodes n ON n.node_id = e.to_node
WHERE e.from_node = ? AND e.edge_type = 'CAUSED_BY' AND n.node_type = 'RootCause'
ORDER BY e.created_at DESC
LIMIT 1`

	var rootCause string
	err := g.db.QueryRowContext(ctx, q, NodeID(store.NodeTicket, ticketRef)).Scan(&rootCause)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", llerr.Errorf(llerr.CodeGraphQueryFailure, "querying root cause of %s: %w", ticketRef, err)
	}

	return rootCause, nil
}

// EndpointsOf follows the direct Ticket→Endpoint edges.
func (g *GraphStore) EndpointsOf(ctx context.Context, ticketRef string) ([]string, error) {
	const q = `SELECT DISTINCT n.node_value
FROM edges e
JOIN nodes n ON n.node_id = e.to_node
WHERE e.from_node = ? AND e.edge_type = 'OCCURRED_ON' AND n.node_type = 'Endpoint'
ORDER BY n.node_value`

	rows, err := g.db.QueryContext(ctx, q, NodeID(store.NodeTicket, ticketRef))
	if err != nil {
		return nil, llerr.Errorf(llerr.CodeGraphQueryFailure, "querying endpoints of %s: %w", ticketRef, err)
	}
	defer func() { _ = rows.Close() }()

	var endpoints []string
	for rows.Next() {
		var ep string
		if err := rows.Scan(&ep); err != nil {
			return nil, llerr.Errorf(llerr.CodeGraphQueryFailure, "scanning endpoint: %w", err)
		}
		endpoints = append(endpoints, ep)
	}
	if err := rows.Err(); err != nil {
		return nil, llerr.Errorf(llerr.CodeGraphQueryFailure, "iterating endpoints: %w", err)
	}

	return endpoints, nil
}

// Recurrence counts distinct tickets that are TRACKED_IN the flow and have
// a direct PRODUCED edge to the error. The two-hop join is scoped to the
// specific (flow, error) pair: counting raw edges on the shared FlowCode or
// Error node would under-count (one shared edge regardless of ticket count)
// or over-count (tickets from unrelated flows sharing the error).
func (g *GraphStore) Recurrence(ctx context.Context, flowCode, errorCode string) (int, error) {
	const q = `SELECT COUNT(DISTINCT e1.to_node)
FROM edges e1
JOIN edges e2 ON e2.from_node = e1.to_node
            AND e2.edge_type = 'PRODUCED'
            AND e2.to_node   = ?
WHERE e1.from_node = ?
  AND e1.edge_type = 'TRACKED_IN'`

	var count int
	err := g.db.QueryRowContext(ctx, q,
		NodeID(store.NodeError, errorCode),
		NodeID(store.NodeFlowCode, flowCode),
	).Scan(&count)
	if err != nil {
		return 0, llerr.Errorf(llerr.CodeGraphQueryFailure, "querying recurrence of (%s, %s): %w", flowCode, errorCode, err)
	}

	return count, nil
}

// RelatedTickets returns the tickets one DUPLICATE_OF or RELATED_TO edge
// away, in either direction, most-recent-first, without repeats.
func (g *GraphStore) RelatedTickets(ctx context.Context, ticketRef string) ([]string, error) {
	const q = `SELECT
	CASE WHEN e.from_node = ? THEN tn.node_value ELSE fn.node_value END AS related,
	MAX(e.created_at) AS latest
FROM edges e
JOIN nodes fn ON fn.node_id = e.from_node
JOIN nodes tn ON tn.node_id = e.to_node
WHERE (e.from_node = ? OR e.to_node = ?)
  AND e.edge_type IN ('DUPLICATE_OF', 'RELATED_TO')
GROUP BY related
ORDER BY latest DESC`

	ticketNode := NodeID(store.NodeTicket, ticketRef)

	rows, err := g.db.QueryContext(ctx, q, ticketNode, ticketNode, ticketNode)
	if err != nil {
		return nil, llerr.Errorf(llerr.CodeGraphQueryFailure, "querying related tickets of %s: %w", ticketRef, err)
	}
	defer func() { _ = rows.Close() }()

	var related []string
	for rows.Next() {
		var ref, latest string
		if err := rows.Scan(&ref, &latest); err != nil {
			return nil, llerr.Errorf(llerr.CodeGraphQueryFailure, "scanning related ticket: %w", err)
		}
		if ref != ticketRef {
			related = append(related, ref)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, llerr.Errorf(llerr.CodeGraphQueryFailure, "iterating related tickets: %w", err)
	}

	return related, nil
}

// HasTicket reports whether the ticket node exists.
func (g *GraphStore) HasTicket(ctx context.Context, ticketRef string) (bool, error) {
	const q = `SELECT COUNT(*) FROM nodes WHERE node_id = ?`

	var count int
	if err := g.db.QueryRowContext(ctx, q, NodeID(store.NodeTicket, ticketRef)).Scan(&count); err != nil {
		return false, llerr.Errorf(llerr.CodeGraphQueryFailure, "checking ticket node %s: %w", ticketRef, err)
	}

	return count > 0, nil
}

// Close closes the underlying database connection.
func (g *GraphStore) Close() error {
	return g.db.Close()
}
