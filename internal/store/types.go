// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package store

import (
	"strings"
	"time"
)

// Category classifies an incident payload.
type Category string

const (
	CategoryError         Category = "error"
	CategoryInformational Category = "informational"
)

// IncidentRecord is one distinct ingested incident. Fingerprint is the
// SHA-256 of the canonicalized raw payload and is globally unique;
// re-submitting identical content is rejected, not re-stored.
type IncidentRecord struct {
	Fingerprint  string
	TicketRef    string
	Category     Category
	FlowCode     string
	TriggerType  string
	Endpoint     string
	ErrorCode    string
	ErrorSummary string
	RootCause    string
	SemanticText string
	Embedding    []float32
	RawPayload   []byte
	Normalized   NormalizedIncident
	CreatedAt    time.Time
}

// NormalizedIncident is the fixed-shape output of the normalization
// boundary. Every field is always present; absent data is an explicit nil,
// never a missing key. The error block as a whole is nil for
// informational incidents.
type NormalizedIncident struct {
	Category  Category   `json:"category"`
	TicketRef *string    `json:"ticket_ref"`
	Flow      FlowInfo   `json:"flow"`
	Error     *ErrorInfo `json:"error"`
}

// FlowInfo describes the integration flow an incident belongs to.
type FlowInfo struct {
	Code        *string `json:"code"`
	Version     *string `json:"version"`
	TriggerType *string `json:"trigger_type"`
	Operation   *string `json:"operation"`
	Timestamp   *string `json:"timestamp"`
}

// ErrorInfo describes the failure captured in an error incident.
type ErrorInfo struct {
	Code         *string `json:"code"`
	Summary      *string `json:"summary"`
	Endpoint     *string `json:"endpoint_name"`
	EndpointType *string `json:"endpoint_type"`
	RootCause    *string `json:"root_cause"`
	Description  *string `json:"error_description"`
	HTTPStatus   *int    `json:"http_status"`
}

// SemanticText concatenates the semantically meaningful fields of the
// incident into the text the embedder consumes. Field order is fixed so the
// same incident always embeds identically.
func (n NormalizedIncident) SemanticText() string {
	var parts []string

	add := func(s *string) {
		if s != nil && *s != "" {
			parts = append(parts, *s)
		}
	}

	add(n.Flow.Code)
	add(n.Flow.TriggerType)
	if n.Error != nil {
		add(n.Error.Code)
		add(n.Error.Summary)
		add(n.Error.Endpoint)
		add(n.Error.EndpointType)
		add(n.Error.RootCause)
		add(n.Error.Description)
	}

	return strings.Join(parts, " ")
}

// Deref returns the value of an optional string field, or "" when nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// NodeType identifies a graph node kind. Node identity is the
// (type, value) pair regardless of how many incidents reference it.
type NodeType string

const (
	NodeFlowCode  NodeType = "FlowCode"
	NodeError     NodeType = "Error"
	NodeEndpoint  NodeType = "Endpoint"
	NodeRootCause NodeType = "RootCause"
	NodeTicket    NodeType = "Ticket"
)

// EdgeType identifies a directed graph relation.
type EdgeType string

const (
	// Structural edges, written at ingestion, idempotent.
	EdgeProduced   EdgeType = "PRODUCED"    // flow→error, and the direct ticket→error copy
	EdgeOccurredOn EdgeType = "OCCURRED_ON" // error→endpoint, and the direct ticket→endpoint copy
	EdgeCausedBy   EdgeType = "CAUSED_BY"   // error→root cause, and the direct ticket→root-cause copy
	EdgeTrackedIn  EdgeType = "TRACKED_IN"  // flow→ticket

	// Reasoner edges, written back from search classifications, append-only.
	EdgeDuplicateOf EdgeType = "DUPLICATE_OF" // ticket→ticket
	EdgeRelatedTo   EdgeType = "RELATED_TO"   // ticket→ticket
)

// Structural reports whether the edge type is deduplicated on
// (from, to, type). Reasoner edges are never deduplicated: repeated searches
// legitimately reinforce a relationship with a new rationale.
func (e EdgeType) Structural() bool {
	switch e {
	case EdgeProduced, EdgeOccurredOn, EdgeCausedBy, EdgeTrackedIn:
		return true
	}
	return false
}

// EdgeProps carries reasoner attribution on DUPLICATE_OF / RELATED_TO edges.
type EdgeProps struct {
	Confidence int    `json:"confidence"`
	Rationale  string `json:"rationale,omitempty"`
	Source     string `json:"source,omitempty"`
}

// TicketInsights is the enrichment result for one candidate ticket.
// Known is false when the ticket has no graph representation; the remaining
// fields then hold their unknown sentinels (empty / zero).
type TicketInsights struct {
	TicketRef      string   `json:"ticket_ref"`
	RootCause      string   `json:"root_cause,omitempty"`
	Endpoints      []string `json:"endpoints,omitempty"`
	Recurrence     int      `json:"recurrence"`
	RelatedTickets []string `json:"related_tickets,omitempty"`
	Known          bool     `json:"known"`
}

// VectorHit is one nearest-neighbor result. Similarity is cosine similarity
// in [0, 1], 1.0 meaning an exact match.
type VectorHit struct {
	Fingerprint string
	Similarity  float64
}
