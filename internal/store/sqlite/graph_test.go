// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package sqlite_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loglens-dev/loglens/internal/store"
	"github.com/loglens-dev/loglens/internal/store/sqlite"
)

// writeTicketGraph writes the full ingestion-shaped subgraph for one
// ticket: flow-level edges plus the direct per-ticket copies.
func writeTicketGraph(t *testing.T, g *sqlite.GraphStore, ticket, flow, errorCode, endpoint, rootCause string) {
	t.Helper()
	ctx := context.Background()

	flowNode, err := g.UpsertNode(ctx, store.NodeFlowCode, flow, nil)
	require.NoError(t, err)
	errorNode, err := g.UpsertNode(ctx, store.NodeError, errorCode, nil)
	require.NoError(t, err)
	epNode, err := g.UpsertNode(ctx, store.NodeEndpoint, endpoint, nil)
	require.NoError(t, err)
	rcNode, err := g.UpsertNode(ctx, store.NodeRootCause, rootCause, nil)
	require.NoError(t, err)
	ticketNode, err := g.UpsertNode(ctx, store.NodeTicket, ticket, nil)
	require.NoError(t, err)

	require.NoError(t, g.UpsertEdge(ctx, flowNode, errorNode, store.EdgeProduced))
	require.NoError(t, g.UpsertEdge(ctx, errorNode, epNode, store.EdgeOccurredOn))
	require.NoError(t, g.UpsertEdge(ctx, errorNode, rcNode, store.EdgeCausedBy))
	require.NoError(t, g.UpsertEdge(ctx, flowNode, ticketNode, store.EdgeTrackedIn))

	require.NoError(t, g.UpsertEdge(ctx, ticketNode, errorNode, store.EdgeProduced))
	require.NoError(t, g.UpsertEdge(ctx, ticketNode, epNode, store.EdgeOccurredOn))
	require.NoError(t, g.UpsertEdge(ctx, ticketNode, rcNode, store.EdgeCausedBy))
}

func TestGraphStore_ConcurrentNodeUpsertConverges(t *testing.T) {
	ctx := context.Background()
	g, err := sqlite.NewGraphStore(testDBPath(t, "graph-race"))
	require.NoError(t, err)
	defer func() { _ = g.Close() }()

	const writers = 8
	ids := make([]string, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := g.UpsertNode(ctx, store.NodeError, "ORA-00942", nil)
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestGraphStore_StructuralEdgeIdempotent(t *testing.T) {
	ctx := context.Background()
	g, err := sqlite.NewGraphStore(testDBPath(t, "graph-edges"))
	require.NoError(t, err)
	defer func() { _ = g.Close() }()

	writeTicketGraph(t, g, "LLT-1", "F1", "E1", "OrdersAPI", "Not Found")
	// Re-ingesting the same facts must not multiply recurrence.
	writeTicketGraph(t, g, "LLT-1", "F1", "E1", "OrdersAPI", "Not Found")

	n, err := g.Recurrence(ctx, "F1", "E1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGraphStore_EdgeTypeRouting(t *testing.T) {
	ctx := context.Background()
	g, err := sqlite.NewGraphStore(testDBPath(t, "graph-routing"))
	require.NoError(t, err)
	defer func() { _ = g.Close() }()

	a := sqlite.NodeID(store.NodeTicket, "LLT-1")
	b := sqlite.NodeID(store.NodeTicket, "LLT-2")

	assert.Error(t, g.UpsertEdge(ctx, a, b, store.EdgeDuplicateOf))
	assert.Error(t, g.AppendEdge(ctx, a, b, store.EdgeTrackedIn, store.EdgeProps{}))
}

func TestGraphStore_RootCauseIsolation(t *testing.T) {
	// Two tickets share the Error node but have different causes. Each must
	// report its own ingested value, never the sibling's.
	ctx := context.Background()
	g, err := sqlite.NewGraphStore(testDBPath(t, "graph-isolation"))
	require.NoError(t, err)
	defer func() { _ = g.Close() }()

	writeTicketGraph(t, g, "LLT-1", "F1", "E1", "OrdersAPI", "Not Found")
	writeTicketGraph(t, g, "LLT-2", "F2", "E1", "BillingAPI", "Connection refused")

	rc1, err := g.RootCauseOf(ctx, "LLT-1")
	require.NoError(t, err)
	rc2, err := g.RootCauseOf(ctx, "LLT-2")
	require.NoError(t, err)

	assert.Equal(t, "Not Found", rc1)
	assert.Equal(t, "Connection refused", rc2)
	assert.NotEqual(t, rc1, rc2)

	eps1, err := g.EndpointsOf(ctx, "LLT-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"OrdersAPI"}, eps1)
}

func TestGraphStore_RecurrenceMonotonic(t *testing.T) {
	ctx := context.Background()
	g, err := sqlite.NewGraphStore(testDBPath(t, "graph-recurrence"))
	require.NoError(t, err)
	defer func() { _ = g.Close() }()

	const n = 4
	for i := 1; i <= n; i++ {
		writeTicketGraph(t, g, fmt.Sprintf("LLT-%d", i), "F1", "E1", "OrdersAPI", "Not Found")

		count, err := g.Recurrence(ctx, "F1", "E1")
		require.NoError(t, err)
		assert.Equal(t, i, count)
	}

	// A unique (flow, error) pair is novel.
	writeTicketGraph(t, g, "LLT-solo", "F9", "E9", "OrdersAPI", "Timeout")
	count, err := g.Recurrence(ctx, "F9", "E9")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Same error in an unrelated flow must not inflate F1's count.
	writeTicketGraph(t, g, "LLT-other", "F2", "E1", "OrdersAPI", "Not Found")
	count, err = g.Recurrence(ctx, "F1", "E1")
	require.NoError(t, err)
	assert.Equal(t, n, count)
}

func TestGraphStore_RelatedTickets(t *testing.T) {
	ctx := context.Background()
	g, err := sqlite.NewGraphStore(testDBPath(t, "graph-related"))
	require.NoError(t, err)
	defer func() { _ = g.Close() }()

	for _, ref := range []string{"LLT-1", "LLT-2", "LLT-3"} {
		_, err := g.UpsertNode(ctx, store.NodeTicket, ref, nil)
		require.NoError(t, err)
	}

	t1 := sqlite.NodeID(store.NodeTicket, "LLT-1")
	t2 := sqlite.NodeID(store.NodeTicket, "LLT-2")
	t3 := sqlite.NodeID(store.NodeTicket, "LLT-3")

	// Empty before any classification touches the ticket.
	related, err := g.RelatedTickets(ctx, "LLT-1")
	require.NoError(t, err)
	assert.Empty(t, related)

	require.NoError(t, g.AppendEdge(ctx, t1, t2, store.EdgeDuplicateOf,
		store.EdgeProps{Confidence: 95, Source: "reasoner"}))
	time.Sleep(5 * time.Millisecond) // distinct created_at for recency ordering
	require.NoError(t, g.AppendEdge(ctx, t3, t1, store.EdgeRelatedTo,
		store.EdgeProps{Confidence: 72, Source: "reasoner"}))

	// Both directions visible, most recent first.
	related, err = g.RelatedTickets(ctx, "LLT-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"LLT-3", "LLT-2"}, related)
}

func TestGraphStore_ReasonerEdgesAppendOnly(t *testing.T) {
	ctx := context.Background()
	g, err := sqlite.NewGraphStore(testDBPath(t, "graph-append"))
	require.NoError(t, err)
	defer func() { _ = g.Close() }()

	t1, err := g.UpsertNode(ctx, store.NodeTicket, "LLT-1", nil)
	require.NoError(t, err)
	t2, err := g.UpsertNode(ctx, store.NodeTicket, "LLT-2", nil)
	require.NoError(t, err)

	// Repeated searches may reinforce a relationship with new rationales;
	// neither append fails or overwrites the other.
	require.NoError(t, g.AppendEdge(ctx, t1, t2, store.EdgeRelatedTo,
		store.EdgeProps{Confidence: 70, Rationale: "same endpoint", Source: "reasoner"}))
	require.NoError(t, g.AppendEdge(ctx, t1, t2, store.EdgeRelatedTo,
		store.EdgeProps{Confidence: 85, Rationale: "same root cause", Source: "reasoner"}))

	related, err := g.RelatedTickets(ctx, "LLT-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"LLT-2"}, related)
}

func TestGraphStore_HasTicket(t *testing.T) {
	ctx := context.Background()
	g, err := sqlite.NewGraphStore(testDBPath(t, "graph-has"))
	require.NoError(t, err)
	defer func() { _ = g.Close() }()

	ok, err := g.HasTicket(ctx, "LLT-1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = g.UpsertNode(ctx, store.NodeTicket, "LLT-1", map[string]any{"source": "ingest"})
	require.NoError(t, err)

	ok, err = g.HasTicket(ctx, "LLT-1")
	require.NoError(t, err)
	assert.True(t, ok)
}
