// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/loglens-dev/loglens/internal/cache"
	"github.com/loglens-dev/loglens/internal/config"
	"github.com/loglens-dev/loglens/internal/engine"
	"github.com/loglens-dev/loglens/internal/provider"
	anthropicprov "github.com/loglens-dev/loglens/internal/provider/anthropic"
	googleprov "github.com/loglens-dev/loglens/internal/provider/google"
	openaiprov "github.com/loglens-dev/loglens/internal/provider/openai"
	"github.com/loglens-dev/loglens/internal/server"
	"github.com/loglens-dev/loglens/internal/store"
	"github.com/loglens-dev/loglens/internal/store/sqlite"
	llerr "github.com/loglens-dev/loglens/pkg/errors"
)

// App holds the wired subsystems and manages their lifecycle.
type App struct {
	Engine *engine.Engine
	Server *server.Server
}

// WireApp opens the stores, registers the configured providers, and builds
// the engine and HTTP server.
func WireApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
		return nil, llerr.Errorf(llerr.CodeCLISetupFailure, "creating storage directory: %w", err)
	}

	content, err := sqlite.NewContentStore(filepath.Join(cfg.Storage.Dir, "content.db"))
	if err != nil {
		return nil, llerr.Wrapf(err, llerr.CodeCLISetupFailure, "opening content store")
	}
	graph, err := sqlite.NewGraphStore(filepath.Join(cfg.Storage.Dir, "graph.db"))
	if err != nil {
		_ = content.Close()
		return nil, llerr.Wrapf(err, llerr.CodeCLISetupFailure, "opening graph store")
	}
	vectors, err := sqlite.NewVectorIndex(filepath.Join(cfg.Storage.Dir, "vectors.db"), cfg.Storage.VectorDimensions)
	if err != nil {
		_ = content.Close()
		_ = graph.Close()
		return nil, llerr.Wrapf(err, llerr.CodeCLISetupFailure, "opening vector index")
	}

	closeStores := func() {
		_ = content.Close()
		_ = graph.Close()
		_ = vectors.Close()
	}

	reg := provider.NewRegistry()
	registerProviders(ctx, cfg, reg)

	normalizer, err := reg.Normalizer(cfg.Roles.Normalizer.Provider)
	if err != nil {
		closeStores()
		return nil, llerr.Wrapf(err, llerr.CodeCLISetupFailure, "resolving normalizer role")
	}
	embedder, err := reg.Embedder(cfg.Roles.Embedder.Provider)
	if err != nil {
		closeStores()
		return nil, llerr.Wrapf(err, llerr.CodeCLISetupFailure, "resolving embedder role")
	}

	var reasoner provider.Reasoner
	if cfg.Roles.Reasoner.Provider != "" {
		if reasoner, err = reg.Reasoner(cfg.Roles.Reasoner.Provider); err != nil {
			closeStores()
			return nil, llerr.Wrapf(err, llerr.CodeCLISetupFailure, "resolving reasoner role")
		}
	} else {
		slog.Warn("no reasoner configured: search results will carry no classification")
	}

	eng, err := engine.New(engine.Deps{
		Content:    content,
		Graph:      graph,
		Vectors:    vectors,
		Normalizer: normalizer,
		Embedder:   embedder,
		Reasoner:   reasoner,
		Caches: engine.Caches{
			Records:  cache.New[*store.IncidentRecord](cfg.Caches.Records.Capacity, cfg.Caches.Records.TTL),
			Searches: cache.New[*engine.SearchResponse](cfg.Caches.Searches.Capacity, cfg.Caches.Searches.TTL),
			Insights: cache.New[store.TicketInsights](cfg.Caches.Insights.Capacity, cfg.Caches.Insights.TTL),
		},
	}, engine.Config{
		TopN:               cfg.Search.TopN,
		WriteBackThreshold: cfg.Search.WriteBackThreshold,
		IncludeSelf:        cfg.Search.IncludeSelf,
		RetryAttempts:      cfg.Pipeline.RetryAttempts,
	})
	if err != nil {
		closeStores()
		return nil, llerr.Wrapf(err, llerr.CodeCLISetupFailure, "creating engine")
	}

	srv, err := server.New(server.Config{
		ListenAddr:   cfg.Server.Listen,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}, eng, slog.Default())
	if err != nil {
		_ = eng.Close()
		return nil, llerr.Wrapf(err, llerr.CodeCLISetupFailure, "creating server")
	}

	return &App{Engine: eng, Server: srv}, nil
}

// Close releases all resources held by the app.
func (a *App) Close() error {
	var errs []error
	if a.Engine != nil {
		errs = append(errs, a.Engine.Close())
	}
	return errors.Join(errs...)
}

// registerProviders creates a vendor adapter for every configured provider
// and registers it under each role it supports. Unknown names or empty API
// keys are logged and skipped; role resolution fails later if a required
// role ends up unserved.
func registerProviders(ctx context.Context, cfg *config.Config, reg *provider.Registry) {
	for name, pc := range cfg.Providers {
		if pc.APIKey == "" {
			slog.Warn("skipping provider with empty API key", "provider", name)
			continue
		}

		switch name {
		case "google":
			p, err := googleprov.New(ctx, googleprov.Config{
				APIKey:         pc.APIKey,
				NormalizeModel: cfg.Roles.Normalizer.Model,
				EmbedModel:     cfg.Roles.Embedder.Model,
				ReasonModel:    cfg.Roles.Reasoner.Model,
			})
			if err != nil {
				slog.Warn("failed to create provider", "provider", name, "error", err)
				continue
			}
			reg.RegisterNormalizer(name, p)
			reg.RegisterEmbedder(name, p)
			reg.RegisterReasoner(name, p)

		case "openai":
			p, err := openaiprov.New(openaiprov.Config{
				APIKey:      pc.APIKey,
				BaseURL:     pc.BaseURL,
				EmbedModel:  cfg.Roles.Embedder.Model,
				ReasonModel: cfg.Roles.Reasoner.Model,
			})
			if err != nil {
				slog.Warn("failed to create provider", "provider", name, "error", err)
				continue
			}
			reg.RegisterEmbedder(name, p)
			reg.RegisterReasoner(name, p)

		case "anthropic":
			p, err := anthropicprov.New(anthropicprov.Config{
				APIKey:         pc.APIKey,
				BaseURL:        pc.BaseURL,
				NormalizeModel: cfg.Roles.Normalizer.Model,
				ReasonModel:    cfg.Roles.Reasoner.Model,
			})
			if err != nil {
				slog.Warn("failed to create provider", "provider", name, "error", err)
				continue
			}
			reg.RegisterNormalizer(name, p)
			reg.RegisterReasoner(name, p)

		default:
			slog.Warn("unknown provider in config, skipping", "provider", name)
			continue
		}

		slog.Info("registered provider", "provider", name)
	}
}
