// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package store

import "context"

// ContentStore persists one record per distinct incident. Uniqueness is
// enforced by the storage layer on the fingerprint, not by a
// check-then-write in the caller: concurrent Puts of the same fingerprint
// store exactly one record, all other callers observing the duplicate error.
type ContentStore interface {
	// Put stores the record, or fails with a duplicate-coded error
	// (errors.IsDuplicate) when the fingerprint already exists. The caller
	// must treat the duplicate as an expected outcome, not a system failure.
	Put(ctx context.Context, rec *IncidentRecord) error

	// Get retrieves a record by fingerprint, or a not-found-coded error.
	Get(ctx context.Context, fingerprint string) (*IncidentRecord, error)

	// GetByTicket retrieves the record associated with a ticket reference.
	GetByTicket(ctx context.Context, ticketRef string) (*IncidentRecord, error)

	Close() error
}

// GraphStore is the typed relationship store. Node and structural-edge
// writes are idempotent conflict-as-success upserts so concurrent
// ingestions referencing the same (type, value) converge to one node
// without read-modify-write races.
//
// All scoped queries enter the graph at the Ticket node and follow only
// edges whose source is that exact node. Traversing via a shared Error node
// would bleed facts between sibling tickets that share an error code.
type GraphStore interface {
	// UpsertNode creates the node for (nt, value) if absent and returns its
	// id. Concurrent calls for the same pair converge to one node.
	UpsertNode(ctx context.Context, nt NodeType, value string, props map[string]any) (string, error)

	// UpsertEdge writes a structural edge, deduplicated on (from, to, type).
	UpsertEdge(ctx context.Context, from, to string, et EdgeType) error

	// AppendEdge writes a reasoner-classified edge. Never deduplicated,
	// never overwritten: each classification is a new append with its own
	// confidence and rationale.
	AppendEdge(ctx context.Context, from, to string, et EdgeType, props EdgeProps) error

	// RootCauseOf follows the direct Ticket→RootCause edge for this ticket.
	// Returns "" when none is recorded.
	RootCauseOf(ctx context.Context, ticketRef string) (string, error)

	// EndpointsOf follows the direct Ticket→Endpoint edges for this ticket.
	EndpointsOf(ctx context.Context, ticketRef string) ([]string, error)

	// Recurrence counts distinct tickets T with flow --TRACKED_IN--> T and
	// T --PRODUCED--> error, scoped to the specific (flow, error) pair.
	Recurrence(ctx context.Context, flowCode, errorCode string) (int, error)

	// RelatedTickets returns tickets one DUPLICATE_OF or RELATED_TO edge
	// away from this ticket, in either direction, most-recent-first.
	RelatedTickets(ctx context.Context, ticketRef string) ([]string, error)

	// HasTicket reports whether the ticket has any graph representation.
	HasTicket(ctx context.Context, ticketRef string) (bool, error)

	Close() error
}

// VectorIndex is the nearest-neighbor primitive over incident embeddings.
type VectorIndex interface {
	// Store indexes an embedding under the record's fingerprint.
	Store(ctx context.Context, fingerprint string, embedding []float32) error

	// Search returns the k nearest fingerprints by cosine similarity,
	// strictly descending, ties broken by most-recent ingestion first.
	// The querying record itself is not excluded here; self-suppression is
	// caller policy.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Dimensions returns the configured vector width.
	Dimensions() int

	Close() error
}
