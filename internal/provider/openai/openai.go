// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

// Package openai implements the embedder and reasoner roles on the OpenAI
// API. Embeddings use the Embeddings endpoint; classification uses Chat
// Completions with a JSON response format.
package openai

import (
	"context"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/loglens-dev/loglens/internal/provider"
	"github.com/loglens-dev/loglens/internal/store"
	llerr "github.com/loglens-dev/loglens/pkg/errors"
)

// Config holds OpenAI provider configuration.
type Config struct {
	APIKey      string
	BaseURL     string // optional, useful for testing against a mock server
	EmbedModel  string
	ReasonModel string
}

// Provider implements provider.Embedder and provider.Reasoner using the
// OpenAI API.
type Provider struct {
	client openaisdk.Client
	config Config
}

var (
	_ provider.Embedder = (*Provider)(nil)
	_ provider.Reasoner = (*Provider)(nil)
)

// New creates a new OpenAI provider. Returns an error if the API key is missing.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, llerr.New(llerr.CodeProviderRequestInvalid, "openai: missing api_key in config", llerr.FieldProvider("openai"))
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := openaisdk.NewClient(opts...)
	return &Provider{client: client, config: cfg}, nil
}

func (p *Provider) Name() string { return "openai" }

// Embed converts semantic text into an embedding vector.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
		Model: openaisdk.EmbeddingModel(p.config.EmbedModel),
	})
	if err != nil {
		return nil, llerr.Wrap(err, llerr.CodeProviderUpstreamFailure, "openai: embedding text", llerr.FieldProvider("openai"))
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, llerr.New(llerr.CodeProviderResponseInvalid, "openai: embedding response contained no vector", llerr.FieldProvider("openai"))
	}

	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Classify submits the query and candidate batch to the reasoner model.
func (p *Provider) Classify(ctx context.Context, query store.NormalizedIncident, candidates []provider.CandidateSummary) ([]provider.Verdict, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: shared.ChatModel(p.config.ReasonModel),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(provider.ClassifySystemPrompt),
			openaisdk.UserMessage(provider.ClassifyUserPrompt(query, candidates)),
		},
	})
	if err != nil {
		return nil, llerr.Wrap(err, llerr.CodeProviderUpstreamFailure, "openai: classifying candidates", llerr.FieldProvider("openai"))
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, llerr.New(llerr.CodeProviderResponseInvalid, "openai: model returned no text", llerr.FieldProvider("openai"))
	}

	return provider.ParseVerdicts(resp.Choices[0].Message.Content)
}
