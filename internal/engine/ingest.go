// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package engine

import (
	"context"
	"time"

	"github.com/loglens-dev/loglens/internal/store"
	llerr "github.com/loglens-dev/loglens/pkg/errors"
)

// IngestResult reports the outcome of one ingestion.
type IngestResult struct {
	Fingerprint string         `json:"fingerprint"`
	TicketRef   string         `json:"ticket_ref"`
	Category    store.Category `json:"category"`

	// Duplicate is true when identical content was already ingested; the
	// remaining fields then describe the existing record.
	Duplicate bool `json:"duplicate"`
}

// Ingest runs the full ingestion pipeline for one raw payload. Identical
// content is detected before any provider call and reported as a duplicate
// outcome, not an error.
func (e *Engine) Ingest(ctx context.Context, rawPayload []byte) (*IngestResult, error) {
	if len(rawPayload) == 0 {
		return nil, llerr.New(llerr.CodeIngestInputInvalid, "empty payload")
	}

	fingerprint, err := Fingerprint(rawPayload)
	if err != nil {
		return nil, err
	}

	// Duplicate fast path: identical content costs no provider calls.
	if existing, err := e.lookupRecord(ctx, fingerprint); err == nil {
		e.logger.Info("duplicate content rejected",
			"fingerprint", fingerprint,
			"ticket_ref", existing.TicketRef,
		)
		return duplicateResult(existing), nil
	} else if !llerr.IsNotFound(err) {
		return nil, err
	}

	normalized, err := e.normalize(ctx, rawPayload)
	if err != nil {
		return nil, err
	}

	ticketRef := store.Deref(normalized.TicketRef)
	if ticketRef == "" {
		ticketRef = GenerateTicketRef(fingerprint)
		normalized.TicketRef = &ticketRef
	}

	semanticText := normalized.SemanticText()
	if semanticText == "" {
		return nil, llerr.New(llerr.CodeIngestInputInvalid, "payload normalized to no semantic content", llerr.FieldFingerprint(fingerprint))
	}

	embedding, err := e.embed(ctx, semanticText)
	if err != nil {
		return nil, err
	}

	rec := buildRecord(fingerprint, ticketRef, semanticText, embedding, rawPayload, normalized)

	// The content store's fingerprint uniqueness is the authoritative
	// duplicate check; the fast path above is only an optimization. A
	// concurrent ingestion of the same content loses here and reports the
	// winner's record.
	if err := e.content.Put(ctx, rec); err != nil {
		if llerr.IsDuplicate(err) {
			existing, getErr := e.lookupRecord(ctx, fingerprint)
			if getErr != nil {
				return nil, getErr
			}
			return duplicateResult(existing), nil
		}
		return nil, err
	}

	if err := e.vectors.Store(ctx, fingerprint, embedding); err != nil {
		return nil, err
	}

	if err := e.writeGraph(ctx, rec); err != nil {
		return nil, err
	}

	e.caches.Records.Put(fingerprint, rec)

	e.logger.Info("incident ingested",
		"fingerprint", fingerprint,
		"ticket_ref", ticketRef,
		"category", rec.Category,
		"flow_code", rec.FlowCode,
	)

	return &IngestResult{
		Fingerprint: fingerprint,
		TicketRef:   ticketRef,
		Category:    rec.Category,
	}, nil
}

func duplicateResult(rec *store.IncidentRecord) *IngestResult {
	return &IngestResult{
		Fingerprint: rec.Fingerprint,
		TicketRef:   rec.TicketRef,
		Category:    rec.Category,
		Duplicate:   true,
	}
}

// lookupRecord fetches an ingested record through the record cache.
func (e *Engine) lookupRecord(ctx context.Context, fingerprint string) (*store.IncidentRecord, error) {
	if rec, ok := e.caches.Records.Get(fingerprint); ok {
		return rec, nil
	}

	rec, err := e.content.Get(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	e.caches.Records.Put(fingerprint, rec)
	return rec, nil
}

func (e *Engine) normalize(ctx context.Context, rawPayload []byte) (*store.NormalizedIncident, error) {
	var normalized *store.NormalizedIncident
	err := e.retry(ctx, func() error {
		var nerr error
		normalized, nerr = e.normalizer.Normalize(ctx, rawPayload)
		return nerr
	})
	if err != nil {
		return nil, llerr.Wrapf(err, llerr.CodeProviderUpstreamFailure, "normalizing payload")
	}
	return normalized, nil
}

func (e *Engine) embed(ctx context.Context, text string) ([]float32, error) {
	var embedding []float32
	err := e.retry(ctx, func() error {
		var eerr error
		embedding, eerr = e.embedder.Embed(ctx, text)
		return eerr
	})
	if err != nil {
		return nil, llerr.Wrapf(err, llerr.CodeProviderUpstreamFailure, "embedding semantic text")
	}

	if want := e.vectors.Dimensions(); len(embedding) != want {
		return nil, llerr.Errorf(llerr.CodeVectorDimensionMismatch, "embedder returned %d dimensions, index expects %d", len(embedding), want)
	}
	return embedding, nil
}

func buildRecord(fingerprint, ticketRef, semanticText string, embedding []float32, rawPayload []byte, n *store.NormalizedIncident) *store.IncidentRecord {
	rec := &store.IncidentRecord{
		Fingerprint:  fingerprint,
		TicketRef:    ticketRef,
		Category:     n.Category,
		FlowCode:     store.Deref(n.Flow.Code),
		TriggerType:  store.Deref(n.Flow.TriggerType),
		SemanticText: semanticText,
		Embedding:    embedding,
		RawPayload:   rawPayload,
		Normalized:   *n,
		CreatedAt:    time.Now().UTC(),
	}
	if n.Error != nil {
		rec.Endpoint = store.Deref(n.Error.Endpoint)
		rec.ErrorCode = store.Deref(n.Error.Code)
		rec.ErrorSummary = store.Deref(n.Error.Summary)
		rec.RootCause = store.Deref(n.Error.RootCause)
	}
	return rec
}

// writeGraph projects the record into the relationship graph. Beyond the
// flow-centric edges, each fact is also linked directly from the Ticket node:
// shared Error nodes would otherwise let one ticket's root cause or endpoint
// surface in another ticket's insights.
func (e *Engine) writeGraph(ctx context.Context, rec *store.IncidentRecord) error {
	ticketID, err := e.graph.UpsertNode(ctx, store.NodeTicket, rec.TicketRef, nil)
	if err != nil {
		return err
	}

	var flowID string
	if rec.FlowCode != "" {
		props := map[string]any{}
		if rec.TriggerType != "" {
			props["trigger_type"] = rec.TriggerType
		}
		if flowID, err = e.graph.UpsertNode(ctx, store.NodeFlowCode, rec.FlowCode, props); err != nil {
			return err
		}
		if err = e.graph.UpsertEdge(ctx, flowID, ticketID, store.EdgeTrackedIn); err != nil {
			return err
		}
	}

	if rec.Category != store.CategoryError || rec.ErrorCode == "" {
		return nil
	}

	errID, err := e.graph.UpsertNode(ctx, store.NodeError, rec.ErrorCode, map[string]any{"summary": rec.ErrorSummary})
	if err != nil {
		return err
	}
	if flowID != "" {
		if err = e.graph.UpsertEdge(ctx, flowID, errID, store.EdgeProduced); err != nil {
			return err
		}
	}
	if err = e.graph.UpsertEdge(ctx, ticketID, errID, store.EdgeProduced); err != nil {
		return err
	}

	if rec.Endpoint != "" {
		epID, err := e.graph.UpsertNode(ctx, store.NodeEndpoint, rec.Endpoint, nil)
		if err != nil {
			return err
		}
		if err = e.graph.UpsertEdge(ctx, errID, epID, store.EdgeOccurredOn); err != nil {
			return err
		}
		if err = e.graph.UpsertEdge(ctx, ticketID, epID, store.EdgeOccurredOn); err != nil {
			return err
		}
	}

	if rec.RootCause != "" {
		rcID, err := e.graph.UpsertNode(ctx, store.NodeRootCause, rec.RootCause, nil)
		if err != nil {
			return err
		}
		if err = e.graph.UpsertEdge(ctx, errID, rcID, store.EdgeCausedBy); err != nil {
			return err
		}
		if err = e.graph.UpsertEdge(ctx, ticketID, rcID, store.EdgeCausedBy); err != nil {
			return err
		}
	}

	return nil
}
