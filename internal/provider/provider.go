// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

// Package provider defines the contracts for the three external reasoning
// services the engine consumes: the normalizer that turns raw payloads into
// fixed-shape records, the embedder that turns semantic text into vectors,
// and the reasoner that classifies candidate matches. Implementations live
// in the per-vendor subpackages.
package provider

import (
	"context"

	"github.com/loglens-dev/loglens/internal/store"
)

// Normalizer converts a raw incident payload into the fixed-shape
// normalized record. Every schema field is present in the result; absent
// data is an explicit nil, never a missing key.
type Normalizer interface {
	Normalize(ctx context.Context, rawPayload []byte) (*store.NormalizedIncident, error)
}

// Embedder converts semantic text into a fixed-dimension vector. The
// dimension must match the vector index's configured width; a mismatch is a
// hard ingestion failure, checked by the caller.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Reasoner classifies a batch of candidates against a query incident in a
// single call.
type Reasoner interface {
	Classify(ctx context.Context, query store.NormalizedIncident, candidates []CandidateSummary) ([]Verdict, error)
}

// CandidateSummary is the condensed view of one vector-search candidate
// submitted to the reasoner.
type CandidateSummary struct {
	TicketRef    string
	Similarity   float64
	FlowCode     string
	TriggerType  string
	ErrorCode    string
	ErrorSummary string
	RootCause    string
}

// Verdict is the reasoner's classification of one candidate.
type Verdict struct {
	TicketRef  string `json:"ticket_ref"`
	Band       Band   `json:"classification"`
	Confidence int    `json:"confidence"`
	Rationale  string `json:"reasoning"`
}

// Band is one of the four ordered classification categories. Each band
// declares a closed confidence range; the ranges do not overlap.
type Band string

const (
	BandExactDuplicate   Band = "EXACT_DUPLICATE"    // [90, 100]
	BandSimilarRootCause Band = "SIMILAR_ROOT_CAUSE" // [70, 89]
	BandRelated          Band = "RELATED"            // [50, 69]
	BandNotRelated       Band = "NOT_RELATED"        // [0, 49]
)

// Valid reports whether b is one of the four declared bands.
func (b Band) Valid() bool {
	switch b {
	case BandExactDuplicate, BandSimilarRootCause, BandRelated, BandNotRelated:
		return true
	}
	return false
}

// Range returns the band's declared confidence interval, inclusive.
func (b Band) Range() (lo, hi int) {
	switch b {
	case BandExactDuplicate:
		return 90, 100
	case BandSimilarRootCause:
		return 70, 89
	case BandRelated:
		return 50, 69
	default:
		return 0, 49
	}
}

// Clamp forces confidence into the band's declared range. The second return
// reports whether clamping occurred, which the engine surfaces as a
// confidence_clamped annotation instead of failing the request.
func (b Band) Clamp(confidence int) (int, bool) {
	lo, hi := b.Range()
	if confidence < lo {
		return lo, true
	}
	if confidence > hi {
		return hi, true
	}
	return confidence, false
}
