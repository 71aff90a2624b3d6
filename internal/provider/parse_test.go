// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package provider_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loglens-dev/loglens/internal/provider"
	"github.com/loglens-dev/loglens/internal/store"
	llerr "github.com/loglens-dev/loglens/pkg/errors"
)

func TestStripFences(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"{\"a\":1}", "{\"a\":1}"},
		{"```json\n{\"a\":1}\n```", "{\"a\":1}"},
		{"```\n{\"a\":1}\n```", "{\"a\":1}"},
		{"  \n```json\n{\"a\":1}\n```\n  ", "{\"a\":1}"},
		{"no fences\nhere", "no fences\nhere"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, provider.StripFences(tc.in))
	}
}

func TestParseNormalized(t *testing.T) {
	raw := `{
		"category": "error",
		"ticket_ref": null,
		"flow": {"code": "F1", "version": null, "trigger_type": "rest", "operation": null, "timestamp": null},
		"error": {"code": "E1", "summary": "boom", "endpoint_name": "OrdersAPI", "endpoint_type": null,
		          "root_cause": "Not Found", "error_description": null, "http_status": 404}
	}`

	n, err := provider.ParseNormalized(raw)
	require.NoError(t, err)
	assert.Equal(t, store.CategoryError, n.Category)
	assert.Nil(t, n.TicketRef)
	assert.Equal(t, "F1", *n.Flow.Code)
	assert.Equal(t, "Not Found", *n.Error.RootCause)
	assert.Equal(t, 404, *n.Error.HTTPStatus)
}

func TestParseNormalized_Informational(t *testing.T) {
	raw := "```json\n" + `{
		"category": "informational",
		"ticket_ref": null,
		"flow": {"code": "F1", "version": null, "trigger_type": "scheduled", "operation": null, "timestamp": null},
		"error": null
	}` + "\n```"

	n, err := provider.ParseNormalized(raw)
	require.NoError(t, err)
	assert.Equal(t, store.CategoryInformational, n.Category)
	assert.Nil(t, n.Error)
}

func TestParseNormalized_Invalid(t *testing.T) {
	_, err := provider.ParseNormalized("not json")
	require.Error(t, err)
	assert.True(t, llerr.HasCode(err, llerr.CodeProviderResponseInvalid))

	_, err = provider.ParseNormalized(`{"category": "mystery", "flow": {}, "error": null}`)
	require.Error(t, err)
	assert.True(t, llerr.HasCode(err, llerr.CodeProviderResponseInvalid))
}

func TestParseVerdicts(t *testing.T) {
	raw := `{"results": [
		{"ticket_ref": "LLT-1", "classification": "EXACT_DUPLICATE", "confidence": 95, "reasoning": "same fault"},
		{"ticket_ref": "LLT-2", "classification": "NOT_RELATED", "confidence": 10, "reasoning": "different flow"}
	]}`

	verdicts, err := provider.ParseVerdicts(raw)
	require.NoError(t, err)
	require.Len(t, verdicts, 2)
	assert.Equal(t, provider.BandExactDuplicate, verdicts[0].Band)
	assert.Equal(t, 95, verdicts[0].Confidence)
}

func TestParseVerdicts_UnknownBand(t *testing.T) {
	_, err := provider.ParseVerdicts(`{"results": [{"ticket_ref": "LLT-1", "classification": "MAYBE", "confidence": 50, "reasoning": "?"}]}`)
	require.Error(t, err)
	assert.True(t, llerr.HasCode(err, llerr.CodeProviderResponseInvalid))
}

func TestBandClamp(t *testing.T) {
	cases := []struct {
		band        provider.Band
		in, want    int
		wantClamped bool
	}{
		{provider.BandExactDuplicate, 95, 95, false},
		{provider.BandExactDuplicate, 80, 90, true},
		{provider.BandExactDuplicate, 120, 100, true},
		{provider.BandSimilarRootCause, 70, 70, false},
		{provider.BandSimilarRootCause, 95, 89, true},
		{provider.BandRelated, 50, 50, false},
		{provider.BandNotRelated, -3, 0, true},
		{provider.BandNotRelated, 49, 49, false},
	}

	for _, tc := range cases {
		got, clamped := tc.band.Clamp(tc.in)
		assert.Equal(t, tc.want, got, "band %s in %d", tc.band, tc.in)
		assert.Equal(t, tc.wantClamped, clamped, "band %s in %d", tc.band, tc.in)
	}
}

type stubNormalizer struct{}

func (stubNormalizer) Normalize(_ context.Context, _ []byte) (*store.NormalizedIncident, error) {
	return &store.NormalizedIncident{Category: store.CategoryInformational}, nil
}

func TestRegistry(t *testing.T) {
	r := provider.NewRegistry()

	_, err := r.Normalizer("google")
	require.Error(t, err)
	assert.True(t, llerr.HasCode(err, llerr.CodeProviderNotFound))

	r.RegisterNormalizer("google", stubNormalizer{})
	n, err := r.Normalizer("google")
	require.NoError(t, err)
	assert.NotNil(t, n)

	_, err = r.Embedder("google")
	assert.True(t, llerr.HasCode(err, llerr.CodeProviderNotFound))
	_, err = r.Reasoner("google")
	assert.True(t, llerr.HasCode(err, llerr.CodeProviderNotFound))
}
