// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

// Package enrich derives per-ticket graph context for search candidates:
// root cause, touched endpoints, recurrence count, and previously classified
// related tickets.
package enrich

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/loglens-dev/loglens/internal/store"
	llerr "github.com/loglens-dev/loglens/pkg/errors"
)

// defaultConcurrency bounds parallel graph lookups during batch enrichment.
const defaultConcurrency = 8

// Request identifies one ticket to enrich. FlowCode and ErrorCode scope the
// recurrence count to the exact (flow, error) pair the candidate represents.
type Request struct {
	TicketRef string
	FlowCode  string
	ErrorCode string
}

// Enricher answers insight queries against the relationship graph.
type Enricher struct {
	graph  store.GraphStore
	logger *slog.Logger
}

// New creates an Enricher over the given graph store.
func New(graph store.GraphStore, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{graph: graph, logger: logger}
}

// Insights gathers the graph context for a single ticket. A ticket with no
// graph representation yields Known=false with zero-valued fields rather than
// an error; only storage failures are errors.
func (e *Enricher) Insights(ctx context.Context, req Request) (store.TicketInsights, error) {
	out := store.TicketInsights{TicketRef: req.TicketRef}

	known, err := e.graph.HasTicket(ctx, req.TicketRef)
	if err != nil {
		return out, llerr.Wrapf(err, llerr.CodeGraphQueryFailure, "checking ticket %s", req.TicketRef)
	}
	if !known {
		return out, nil
	}
	out.Known = true

	if out.RootCause, err = e.graph.RootCauseOf(ctx, req.TicketRef); err != nil {
		return out, llerr.Wrapf(err, llerr.CodeGraphQueryFailure, "root cause of %s", req.TicketRef)
	}
	if out.Endpoints, err = e.graph.EndpointsOf(ctx, req.TicketRef); err != nil {
		return out, llerr.Wrapf(err, llerr.CodeGraphQueryFailure, "endpoints of %s", req.TicketRef)
	}
	if out.RelatedTickets, err = e.graph.RelatedTickets(ctx, req.TicketRef); err != nil {
		return out, llerr.Wrapf(err, llerr.CodeGraphQueryFailure, "related tickets of %s", req.TicketRef)
	}

	if req.FlowCode != "" && req.ErrorCode != "" {
		if out.Recurrence, err = e.graph.Recurrence(ctx, req.FlowCode, req.ErrorCode); err != nil {
			return out, llerr.Wrapf(err, llerr.CodeGraphQueryFailure, "recurrence of (%s, %s)", req.FlowCode, req.ErrorCode)
		}
	}

	return out, nil
}

// InsightsBatch enriches every request concurrently, preserving request
// order in the result. A ticket whose enrichment fails contributes a
// Known=false placeholder instead of sinking the batch; the returned error is
// then partial-coded (errors.IsPartial) so the caller can degrade gracefully.
func (e *Enricher) InsightsBatch(ctx context.Context, reqs []Request) ([]store.TicketInsights, error) {
	results := make([]store.TicketInsights, len(reqs))

	var (
		mu     sync.Mutex
		failed []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultConcurrency)

	for i, req := range reqs {
		g.Go(func() error {
			ins, err := e.Insights(gctx, req)
			if err != nil {
				e.logger.Warn("ticket enrichment failed",
					"ticket_ref", req.TicketRef,
					"error", err,
				)
				mu.Lock()
				failed = append(failed, req.TicketRef)
				mu.Unlock()
				ins = store.TicketInsights{TicketRef: req.TicketRef}
			}
			results[i] = ins
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, llerr.Wrapf(err, llerr.CodeGraphQueryFailure, "enriching candidate batch")
	}

	if len(failed) > 0 {
		return results, llerr.Errorf(llerr.CodeEnrichmentPartial, "enrichment incomplete for %d of %d tickets: %v", len(failed), len(reqs), failed)
	}
	return results, nil
}
