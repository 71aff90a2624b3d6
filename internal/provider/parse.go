// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package provider

import (
	"encoding/json"
	"strings"

	"github.com/loglens-dev/loglens/internal/store"
	llerr "github.com/loglens-dev/loglens/pkg/errors"
)

// StripFences removes a surrounding markdown code fence from an LLM
// response. Models occasionally wrap JSON in ```json blocks despite being
// told not to.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	lines := strings.Split(s, "\n")
	if strings.HasPrefix(lines[0], "```") {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// ParseNormalized decodes a normalizer response into the fixed-shape
// record. The category must be present and recognized; everything else may
// legitimately be null.
func ParseNormalized(raw string) (*store.NormalizedIncident, error) {
	var n store.NormalizedIncident
	if err := json.Unmarshal([]byte(StripFences(raw)), &n); err != nil {
		return nil, llerr.Errorf(llerr.CodeProviderResponseInvalid, "normalizer did not return valid JSON: %w", err)
	}

	switch n.Category {
	case store.CategoryError, store.CategoryInformational:
	default:
		return nil, llerr.Errorf(llerr.CodeProviderResponseInvalid, "normalizer returned unknown category %q", n.Category)
	}

	return &n, nil
}

// verdictEnvelope matches the reasoner's declared response shape.
type verdictEnvelope struct {
	Results []Verdict `json:"results"`
}

// ParseVerdicts decodes a reasoner response. Unknown bands make the whole
// response invalid; the engine treats that as reasoner degradation rather
// than failing the query.
func ParseVerdicts(raw string) ([]Verdict, error) {
	var env verdictEnvelope
	if err := json.Unmarshal([]byte(StripFences(raw)), &env); err != nil {
		return nil, llerr.Errorf(llerr.CodeProviderResponseInvalid, "reasoner did not return valid JSON: %w", err)
	}

	for _, v := range env.Results {
		if !v.Band.Valid() {
			return nil, llerr.Errorf(llerr.CodeProviderResponseInvalid, "reasoner returned unknown classification %q for %s", v.Band, v.TicketRef)
		}
	}

	return env.Results, nil
}
