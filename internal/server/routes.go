// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/loglens-dev/loglens/internal/cache"
	"github.com/loglens-dev/loglens/internal/engine"
	"github.com/loglens-dev/loglens/internal/store"
	llerr "github.com/loglens-dev/loglens/pkg/errors"
)

// Engine is the slice of the deduplication engine the API surface needs.
type Engine interface {
	Ingest(ctx context.Context, rawPayload []byte) (*engine.IngestResult, error)
	Search(ctx context.Context, req engine.SearchRequest) (*engine.SearchResponse, error)
	Insights(ctx context.Context, ticketRef string) (store.TicketInsights, error)
	CacheStats() map[string]cache.Stats
	PurgeCaches()
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "ingest-incident",
		Method:      http.MethodPost,
		Path:        "/api/v1/ingest",
		Summary:     "Ingest a raw incident payload",
		Tags:        []string{"incidents"},
	}, s.handleIngest)

	huma.Register(s.api, huma.Operation{
		OperationID: "search-incidents",
		Method:      http.MethodPost,
		Path:        "/api/v1/search",
		Summary:     "Find and classify similar incidents",
		Tags:        []string{"incidents"},
	}, s.handleSearch)

	huma.Register(s.api, huma.Operation{
		OperationID: "ticket-insights",
		Method:      http.MethodGet,
		Path:        "/api/v1/tickets/{ref}/insights",
		Summary:     "Graph insights for a ticket",
		Tags:        []string{"tickets"},
	}, s.handleInsights)

	huma.Register(s.api, huma.Operation{
		OperationID: "cache-stats",
		Method:      http.MethodGet,
		Path:        "/api/v1/cache/stats",
		Summary:     "Cache hit/miss counters",
		Tags:        []string{"system"},
	}, s.handleCacheStats)

	huma.Register(s.api, huma.Operation{
		OperationID: "cache-purge",
		Method:      http.MethodPost,
		Path:        "/api/v1/cache/purge",
		Summary:     "Drop all cached entries",
		Tags:        []string{"system"},
	}, s.handleCachePurge)
}

// --- Request/Response types for huma ---

type ingestInput struct {
	Body struct {
		Payload json.RawMessage `json:"payload" doc:"Raw incident payload as emitted by the integration platform"`
	}
}
type ingestOutput struct {
	Body engine.IngestResult
}

type searchInput struct {
	Body struct {
		Payload json.RawMessage `json:"payload" doc:"Incident payload to match against the corpus"`
		TopN    int             `json:"top_n,omitempty" minimum:"0" maximum:"50" doc:"Candidate count override"`
	}
}
type searchOutput struct {
	Body engine.SearchResponse
}

type insightsInput struct {
	Ref string `path:"ref" doc:"Ticket reference"`
}
type insightsOutput struct {
	Body store.TicketInsights
}

type cacheStatsOutput struct {
	Body map[string]cache.Stats
}

type cachePurgeOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

// --- Handlers ---

func (s *Server) handleIngest(ctx context.Context, input *ingestInput) (*ingestOutput, error) {
	res, err := s.engine.Ingest(ctx, input.Body.Payload)
	if err != nil {
		return nil, s.apiError(err, "ingesting incident")
	}
	return &ingestOutput{Body: *res}, nil
}

func (s *Server) handleSearch(ctx context.Context, input *searchInput) (*searchOutput, error) {
	resp, err := s.engine.Search(ctx, engine.SearchRequest{
		RawPayload: input.Body.Payload,
		TopN:       input.Body.TopN,
	})
	if err != nil {
		return nil, s.apiError(err, "searching incidents")
	}
	return &searchOutput{Body: *resp}, nil
}

func (s *Server) handleInsights(ctx context.Context, input *insightsInput) (*insightsOutput, error) {
	ins, err := s.engine.Insights(ctx, input.Ref)
	if err != nil {
		return nil, s.apiError(err, "fetching ticket insights")
	}
	return &insightsOutput{Body: ins}, nil
}

func (s *Server) handleCacheStats(_ context.Context, _ *struct{}) (*cacheStatsOutput, error) {
	return &cacheStatsOutput{Body: s.engine.CacheStats()}, nil
}

func (s *Server) handleCachePurge(_ context.Context, _ *struct{}) (*cachePurgeOutput, error) {
	s.engine.PurgeCaches()
	out := &cachePurgeOutput{}
	out.Body.Status = "purged"
	return out, nil
}

// apiError converts an engine error into the huma error for its mapped
// status. Internal failures log the full chain and expose only the action.
func (s *Server) apiError(err error, action string) error {
	status := llerr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(action, "error", err, "code", llerr.CodeOf(err))
		return huma.NewError(status, action+" failed")
	}
	return huma.NewError(status, err.Error())
}
