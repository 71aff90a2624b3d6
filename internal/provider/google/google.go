// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

// Package google implements all three provider roles on the Gemini API:
// normalization and classification via generateContent with a JSON response
// MIME type, and embedding via embedContent.
package google

import (
	"context"

	"google.golang.org/genai"

	"github.com/loglens-dev/loglens/internal/provider"
	"github.com/loglens-dev/loglens/internal/store"
	llerr "github.com/loglens-dev/loglens/pkg/errors"
)

// Config holds Google provider configuration.
type Config struct {
	APIKey         string
	NormalizeModel string
	EmbedModel     string
	ReasonModel    string
}

// Provider implements provider.Normalizer, provider.Embedder, and
// provider.Reasoner using the Google Gemini API.
type Provider struct {
	client *genai.Client
	config Config
}

var (
	_ provider.Normalizer = (*Provider)(nil)
	_ provider.Embedder   = (*Provider)(nil)
	_ provider.Reasoner   = (*Provider)(nil)
)

// New creates a new Google provider. Returns an error if the API key is missing.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, llerr.New(llerr.CodeProviderRequestInvalid, "google: missing api_key in config", llerr.FieldProvider("google"))
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, llerr.Wrapf(err, llerr.CodeProviderUpstreamFailure, "google: creating client")
	}

	return &Provider{client: client, config: cfg}, nil
}

func (p *Provider) Name() string { return "google" }

// Normalize converts a raw incident payload into the normalized record.
func (p *Provider) Normalize(ctx context.Context, rawPayload []byte) (*store.NormalizedIncident, error) {
	text, err := p.generateJSON(ctx, p.config.NormalizeModel, provider.NormalizationPrompt(rawPayload), "")
	if err != nil {
		return nil, llerr.Wrapf(err, llerr.CodeProviderUpstreamFailure, "google: normalizing payload")
	}
	return provider.ParseNormalized(text)
}

// Embed converts semantic text into an embedding vector.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.Models.EmbedContent(ctx, p.config.EmbedModel, genai.Text(text), nil)
	if err != nil {
		return nil, llerr.Wrap(err, llerr.CodeProviderUpstreamFailure, "google: embedding text", llerr.FieldProvider("google"))
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, llerr.New(llerr.CodeProviderResponseInvalid, "google: embedding response contained no vector", llerr.FieldProvider("google"))
	}
	return resp.Embeddings[0].Values, nil
}

// Classify submits the query and candidate batch to the reasoner model.
func (p *Provider) Classify(ctx context.Context, query store.NormalizedIncident, candidates []provider.CandidateSummary) ([]provider.Verdict, error) {
	text, err := p.generateJSON(ctx, p.config.ReasonModel, provider.ClassifyUserPrompt(query, candidates), provider.ClassifySystemPrompt)
	if err != nil {
		return nil, llerr.Wrapf(err, llerr.CodeProviderUpstreamFailure, "google: classifying candidates")
	}
	return provider.ParseVerdicts(text)
}

func (p *Provider) generateJSON(ctx context.Context, model, prompt, system string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{
				{Text: system},
			},
		}
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
	if err != nil {
		return "", err
	}

	text := resp.Text()
	if text == "" {
		return "", llerr.New(llerr.CodeProviderResponseInvalid, "google: model returned no text", llerr.FieldProvider("google"))
	}
	return text, nil
}
