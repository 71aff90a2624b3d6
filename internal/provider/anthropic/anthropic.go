// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

// Package anthropic implements the normalizer and reasoner roles on the
// Anthropic Messages API. Anthropic exposes no embedding endpoint, so the
// embedder role must come from another vendor.
package anthropic

import (
	"context"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/loglens-dev/loglens/internal/provider"
	"github.com/loglens-dev/loglens/internal/store"
	llerr "github.com/loglens-dev/loglens/pkg/errors"
)

// Config holds Anthropic provider configuration.
type Config struct {
	APIKey         string
	BaseURL        string // optional, useful for testing against a mock server
	NormalizeModel string
	ReasonModel    string
	MaxTokens      int64
}

// defaultMaxTokens bounds response size when the config leaves it unset.
const defaultMaxTokens = 4096

// Provider implements provider.Normalizer and provider.Reasoner using the
// Anthropic Messages API.
type Provider struct {
	client anthropicsdk.Client
	config Config
}

var (
	_ provider.Normalizer = (*Provider)(nil)
	_ provider.Reasoner   = (*Provider)(nil)
)

// New creates a new Anthropic provider. Returns an error if the API key is missing.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, llerr.New(llerr.CodeProviderRequestInvalid, "anthropic: missing api_key in config", llerr.FieldProvider("anthropic"))
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := anthropicsdk.NewClient(opts...)
	return &Provider{client: client, config: cfg}, nil
}

func (p *Provider) Name() string { return "anthropic" }

// Normalize converts a raw incident payload into the normalized record.
func (p *Provider) Normalize(ctx context.Context, rawPayload []byte) (*store.NormalizedIncident, error) {
	text, err := p.complete(ctx, p.config.NormalizeModel, "", provider.NormalizationPrompt(rawPayload))
	if err != nil {
		return nil, llerr.Wrapf(err, llerr.CodeProviderUpstreamFailure, "anthropic: normalizing payload")
	}
	return provider.ParseNormalized(text)
}

// Classify submits the query and candidate batch to the reasoner model.
func (p *Provider) Classify(ctx context.Context, query store.NormalizedIncident, candidates []provider.CandidateSummary) ([]provider.Verdict, error) {
	text, err := p.complete(ctx, p.config.ReasonModel, provider.ClassifySystemPrompt, provider.ClassifyUserPrompt(query, candidates))
	if err != nil {
		return nil, llerr.Wrapf(err, llerr.CodeProviderUpstreamFailure, "anthropic: classifying candidates")
	}
	return provider.ParseVerdicts(text)
}

func (p *Provider) complete(ctx context.Context, model, system, user string) (string, error) {
	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(model),
		MaxTokens: p.config.MaxTokens,
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(user)),
		},
	}
	if system != "" {
		params.System = []anthropicsdk.TextBlockParam{
			{Text: system},
		}
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", llerr.New(llerr.CodeProviderResponseInvalid, "anthropic: model returned no text", llerr.FieldProvider("anthropic"))
	}
	return b.String(), nil
}
