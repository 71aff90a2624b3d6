// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package engine

import (
	"context"
	"fmt"

	"github.com/loglens-dev/loglens/internal/enrich"
	"github.com/loglens-dev/loglens/internal/provider"
	"github.com/loglens-dev/loglens/internal/store"
	llerr "github.com/loglens-dev/loglens/pkg/errors"
)

// SearchRequest describes one similarity query.
type SearchRequest struct {
	// RawPayload is the incident being investigated. It does not need to
	// have been ingested.
	RawPayload []byte

	// TopN overrides the engine's default candidate count when positive.
	TopN int
}

// Classification is the reasoner's annotation on one match.
type Classification struct {
	Band              provider.Band `json:"classification"`
	Confidence        int           `json:"confidence"`
	Rationale         string        `json:"reasoning,omitempty"`
	ConfidenceClamped bool          `json:"confidence_clamped,omitempty"`
}

// Match is one search candidate. Matches are ordered by vector similarity;
// the classification annotates but never reorders.
type Match struct {
	TicketRef      string               `json:"ticket_ref"`
	Fingerprint    string               `json:"fingerprint"`
	Similarity     float64              `json:"similarity"`
	FlowCode       string               `json:"flow_code,omitempty"`
	ErrorCode      string               `json:"error_code,omitempty"`
	ErrorSummary   string               `json:"error_summary,omitempty"`
	RootCause      string               `json:"root_cause,omitempty"`
	Insights       store.TicketInsights `json:"insights"`
	Classification *Classification      `json:"classification,omitempty"`
}

// SearchResponse is the full result of one similarity query.
type SearchResponse struct {
	QueryFingerprint string  `json:"query_fingerprint"`
	QueryTicketRef   string  `json:"query_ticket_ref,omitempty"`
	Matches          []Match `json:"matches"`

	// Degraded is true when the reasoner was unavailable or returned an
	// unusable response: matches then carry vector similarity and graph
	// insights but no classification.
	Degraded bool `json:"degraded,omitempty"`
}

// edgeForBand maps a classification band to the relationship edge written
// back to the graph. NOT_RELATED writes nothing.
func edgeForBand(b provider.Band) (store.EdgeType, bool) {
	switch b {
	case provider.BandExactDuplicate:
		return store.EdgeDuplicateOf, true
	case provider.BandSimilarRootCause, provider.BandRelated:
		return store.EdgeRelatedTo, true
	}
	return "", false
}

// Search runs the similarity pipeline: resolve the query to a normalized
// incident and embedding, fetch nearest neighbors, enrich each candidate
// from the graph, classify the batch, and write qualifying relationships
// back. Reasoner failure degrades the response instead of failing it.
func (e *Engine) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if len(req.RawPayload) == 0 {
		return nil, llerr.New(llerr.CodeSearchInputInvalid, "empty payload")
	}

	topN := req.TopN
	if topN <= 0 {
		topN = e.cfg.TopN
	}

	fingerprint, err := Fingerprint(req.RawPayload)
	if err != nil {
		return nil, llerr.Wrapf(err, llerr.CodeSearchInputInvalid, "fingerprinting query payload")
	}

	cacheKey := fmt.Sprintf("%s:%d", fingerprint, topN)
	if resp, ok := e.caches.Searches.Get(cacheKey); ok {
		return resp, nil
	}

	normalized, embedding, queryTicketRef, ingested, err := e.resolveQuery(ctx, fingerprint, req.RawPayload)
	if err != nil {
		return nil, err
	}

	matches, err := e.gatherCandidates(ctx, fingerprint, embedding, topN, ingested)
	if err != nil {
		return nil, err
	}

	resp := &SearchResponse{
		QueryFingerprint: fingerprint,
		QueryTicketRef:   queryTicketRef,
		Matches:          matches,
	}

	if len(matches) > 0 {
		resp.Degraded = !e.classify(ctx, *normalized, resp)
		if !resp.Degraded && ingested {
			e.writeBack(ctx, queryTicketRef, resp.Matches)
		}
	}

	e.caches.Searches.Put(cacheKey, resp)
	return resp, nil
}

// resolveQuery turns the query payload into a normalized incident and
// embedding, reusing the ingested record when one exists so repeat searches
// cost no provider calls.
func (e *Engine) resolveQuery(ctx context.Context, fingerprint string, rawPayload []byte) (*store.NormalizedIncident, []float32, string, bool, error) {
	rec, err := e.lookupRecord(ctx, fingerprint)
	switch {
	case err == nil:
		return &rec.Normalized, rec.Embedding, rec.TicketRef, true, nil
	case !llerr.IsNotFound(err):
		return nil, nil, "", false, err
	}

	normalized, err := e.normalize(ctx, rawPayload)
	if err != nil {
		return nil, nil, "", false, err
	}

	text := normalized.SemanticText()
	if text == "" {
		return nil, nil, "", false, llerr.New(llerr.CodeSearchInputInvalid, "payload normalized to no semantic content", llerr.FieldFingerprint(fingerprint))
	}

	embedding, err := e.embed(ctx, text)
	if err != nil {
		return nil, nil, "", false, err
	}

	return normalized, embedding, store.Deref(normalized.TicketRef), false, nil
}

// gatherCandidates fetches nearest neighbors, suppresses the query's own
// record when configured, and enriches each candidate from the graph.
func (e *Engine) gatherCandidates(ctx context.Context, queryFingerprint string, embedding []float32, topN int, ingested bool) ([]Match, error) {
	k := topN
	if !e.cfg.IncludeSelf && ingested {
		k++
	}

	hits, err := e.vectors.Search(ctx, embedding, k)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(hits))
	for _, hit := range hits {
		if !e.cfg.IncludeSelf && hit.Fingerprint == queryFingerprint {
			continue
		}
		if len(matches) == topN {
			break
		}

		rec, err := e.lookupRecord(ctx, hit.Fingerprint)
		if err != nil {
			// An indexed vector without a content record means the two
			// stores diverged; skip it rather than fail the search.
			e.logger.Warn("vector hit has no content record", "fingerprint", hit.Fingerprint, "error", err)
			continue
		}

		matches = append(matches, Match{
			TicketRef:    rec.TicketRef,
			Fingerprint:  rec.Fingerprint,
			Similarity:   hit.Similarity,
			FlowCode:     rec.FlowCode,
			ErrorCode:    rec.ErrorCode,
			ErrorSummary: rec.ErrorSummary,
			RootCause:    rec.RootCause,
		})
	}

	if len(matches) == 0 {
		return matches, nil
	}

	reqs := make([]enrich.Request, len(matches))
	for i, m := range matches {
		reqs[i] = enrich.Request{TicketRef: m.TicketRef, FlowCode: m.FlowCode, ErrorCode: m.ErrorCode}
	}

	insights, err := e.enricher.InsightsBatch(ctx, reqs)
	if err != nil && !llerr.IsPartial(err) {
		return nil, err
	}
	if llerr.IsPartial(err) {
		e.logger.Warn("candidate enrichment incomplete", "error", err)
	}
	for i := range matches {
		matches[i].Insights = insights[i]
	}

	return matches, nil
}

// classify asks the reasoner to band every match and attaches the verdicts.
// Returns false when the reasoner could not produce usable verdicts; the
// matches then stand on vector similarity alone.
func (e *Engine) classify(ctx context.Context, query store.NormalizedIncident, resp *SearchResponse) bool {
	if e.reasoner == nil {
		return false
	}

	candidates := make([]provider.CandidateSummary, len(resp.Matches))
	for i, m := range resp.Matches {
		candidates[i] = provider.CandidateSummary{
			TicketRef:    m.TicketRef,
			Similarity:   m.Similarity,
			FlowCode:     m.FlowCode,
			ErrorCode:    m.ErrorCode,
			ErrorSummary: m.ErrorSummary,
			RootCause:    m.RootCause,
		}
	}

	var verdicts []provider.Verdict
	err := e.retry(ctx, func() error {
		var cerr error
		verdicts, cerr = e.reasoner.Classify(ctx, query, candidates)
		return cerr
	})
	if err != nil {
		e.logger.Warn("reasoner unavailable, returning unclassified results",
			"error", llerr.Wrapf(err, llerr.CodeReasonerDegraded, "classifying candidates"),
		)
		return false
	}

	byTicket := make(map[string]provider.Verdict, len(verdicts))
	for _, v := range verdicts {
		byTicket[v.TicketRef] = v
	}

	for i := range resp.Matches {
		v, ok := byTicket[resp.Matches[i].TicketRef]
		if !ok {
			continue
		}
		confidence, clamped := v.Band.Clamp(v.Confidence)
		if clamped {
			e.logger.Debug("classification confidence clamped to band range",
				"ticket_ref", v.TicketRef,
				"classification", v.Band,
				"reported", v.Confidence,
				"clamped", confidence,
			)
		}
		resp.Matches[i].Classification = &Classification{
			Band:              v.Band,
			Confidence:        confidence,
			Rationale:         v.Rationale,
			ConfidenceClamped: clamped,
		}
	}

	return true
}

// writeBack persists qualifying classifications as ticket-to-ticket edges.
// Write-back failures are logged, never surfaced: the search response is
// already correct without them.
func (e *Engine) writeBack(ctx context.Context, queryTicketRef string, matches []Match) {
	if queryTicketRef == "" {
		return
	}

	fromID, err := e.graph.UpsertNode(ctx, store.NodeTicket, queryTicketRef, nil)
	if err != nil {
		e.logger.Warn("relationship write-back skipped", "ticket_ref", queryTicketRef, "error", err)
		return
	}

	for _, m := range matches {
		c := m.Classification
		if c == nil || c.Confidence < e.cfg.WriteBackThreshold {
			continue
		}
		et, ok := edgeForBand(c.Band)
		if !ok {
			continue
		}
		if m.TicketRef == queryTicketRef {
			continue
		}

		toID, err := e.graph.UpsertNode(ctx, store.NodeTicket, m.TicketRef, nil)
		if err != nil {
			e.logger.Warn("relationship write-back failed", "ticket_ref", m.TicketRef, "error", err)
			continue
		}

		props := store.EdgeProps{
			Confidence: c.Confidence,
			Rationale:  c.Rationale,
			Source:     "reasoner",
		}
		if err := e.graph.AppendEdge(ctx, fromID, toID, et, props); err != nil {
			e.logger.Warn("relationship write-back failed",
				"from", queryTicketRef,
				"to", m.TicketRef,
				"edge_type", et,
				"error", err,
			)
		}
	}
}

// Insights returns the graph context for one ticket, independent of any
// search. Unknown tickets report Known=false rather than an error.
func (e *Engine) Insights(ctx context.Context, ticketRef string) (store.TicketInsights, error) {
	if ticketRef == "" {
		return store.TicketInsights{}, llerr.New(llerr.CodeSearchInputInvalid, "empty ticket reference")
	}

	if ins, ok := e.caches.Insights.Get(ticketRef); ok {
		return ins, nil
	}

	req := enrich.Request{TicketRef: ticketRef}
	if rec, err := e.content.GetByTicket(ctx, ticketRef); err == nil {
		req.FlowCode = rec.FlowCode
		req.ErrorCode = rec.ErrorCode
	} else if !llerr.IsNotFound(err) {
		return store.TicketInsights{}, err
	}

	ins, err := e.enricher.Insights(ctx, req)
	if err != nil {
		return store.TicketInsights{}, err
	}

	e.caches.Insights.Put(ticketRef, ins)
	return ins, nil
}
