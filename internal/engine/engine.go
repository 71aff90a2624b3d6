// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

// Package engine implements the deduplication pipeline over the stores and
// providers: ingestion (fingerprint, normalize, embed, persist, graph write)
// and search (vector candidates, graph enrichment, reasoner classification,
// relationship write-back).
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/loglens-dev/loglens/internal/cache"
	"github.com/loglens-dev/loglens/internal/enrich"
	"github.com/loglens-dev/loglens/internal/provider"
	"github.com/loglens-dev/loglens/internal/store"
	llerr "github.com/loglens-dev/loglens/pkg/errors"
)

// Config holds the engine's behavioral knobs.
type Config struct {
	// TopN is the default number of candidates a search returns.
	TopN int

	// WriteBackThreshold is the minimum classification confidence at which
	// a search result is persisted as a graph relationship.
	WriteBackThreshold int

	// IncludeSelf keeps the query's own record in its search results when
	// the query payload was previously ingested. Off by default: a record is
	// trivially its own best match.
	IncludeSelf bool

	// RetryAttempts bounds retries of transient provider failures.
	RetryAttempts int
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() Config {
	return Config{
		TopN:               5,
		WriteBackThreshold: 70,
		RetryAttempts:      3,
	}
}

// Caches bundles the engine's three result caches. Any of them may be nil,
// which disables that cache without changing behavior.
type Caches struct {
	Records  *cache.Cache[*store.IncidentRecord]
	Searches *cache.Cache[*SearchResponse]
	Insights *cache.Cache[store.TicketInsights]
}

// Deps bundles the engine's constructor dependencies.
type Deps struct {
	Content    store.ContentStore
	Graph      store.GraphStore
	Vectors    store.VectorIndex
	Normalizer provider.Normalizer
	Embedder   provider.Embedder
	Reasoner   provider.Reasoner
	Caches     Caches
	Logger     *slog.Logger
}

// Engine is the deduplication pipeline.
type Engine struct {
	content    store.ContentStore
	graph      store.GraphStore
	vectors    store.VectorIndex
	normalizer provider.Normalizer
	embedder   provider.Embedder
	reasoner   provider.Reasoner
	enricher   *enrich.Enricher
	caches     Caches
	cfg        Config
	logger     *slog.Logger
}

// New creates an Engine. Zero-valued config fields fall back to defaults.
func New(deps Deps, cfg Config) (*Engine, error) {
	if deps.Content == nil || deps.Graph == nil || deps.Vectors == nil {
		return nil, llerr.New(llerr.CodeConfigValidateInvalidValue, "engine requires content, graph, and vector stores")
	}
	if deps.Normalizer == nil || deps.Embedder == nil {
		return nil, llerr.New(llerr.CodeConfigValidateInvalidValue, "engine requires a normalizer and an embedder")
	}

	def := DefaultConfig()
	if cfg.TopN <= 0 {
		cfg.TopN = def.TopN
	}
	if cfg.WriteBackThreshold <= 0 {
		cfg.WriteBackThreshold = def.WriteBackThreshold
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = def.RetryAttempts
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		content:    deps.Content,
		graph:      deps.Graph,
		vectors:    deps.Vectors,
		normalizer: deps.Normalizer,
		embedder:   deps.Embedder,
		reasoner:   deps.Reasoner,
		enricher:   enrich.New(deps.Graph, logger),
		caches:     deps.Caches,
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// CacheStats reports per-cache counters.
func (e *Engine) CacheStats() map[string]cache.Stats {
	return map[string]cache.Stats{
		"records":  e.caches.Records.Stats(),
		"searches": e.caches.Searches.Stats(),
		"insights": e.caches.Insights.Stats(),
	}
}

// PurgeCaches drops every cached entry across all three caches.
func (e *Engine) PurgeCaches() {
	e.caches.Records.Purge()
	e.caches.Searches.Purge()
	e.caches.Insights.Purge()
}

// Close releases the underlying stores.
func (e *Engine) Close() error {
	var firstErr error
	for _, c := range []interface{ Close() error }{e.content, e.graph, e.vectors} {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// retry runs op with exponential backoff, bounded by RetryAttempts. Invalid
// input never retries; transient upstream failures do.
func (e *Engine) retry(ctx context.Context, op func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(newBackOff(), uint64(e.cfg.RetryAttempts)),
		ctx,
	)

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if llerr.IsInvalidInput(err) || llerr.HasCode(err, llerr.CodeProviderRequestInvalid) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	return b
}
