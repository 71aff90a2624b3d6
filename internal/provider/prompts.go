// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package provider

import (
	"fmt"
	"strings"

	"github.com/loglens-dev/loglens/internal/store"
)

// normalizedSchema is the exact JSON shape every normalizer must return.
// Every field is always present; absent data is an explicit null. For
// informational incidents the entire "error" block is null.
const normalizedSchema = `{
  "category": "error | informational",
  "ticket_ref": "string | null",
  "flow": {
    "code":         "string | null",
    "version":      "string | null",
    "trigger_type": "rest | soap | scheduled | null",
    "operation":    "string | null",
    "timestamp":    "ISO 8601 string | null"
  },
  "error": {
    "code":              "string | null",
    "summary":           "string | null",
    "endpoint_name":     "string | null",
    "endpoint_type":     "string | null",
    "root_cause":        "string | null",
    "error_description": "string | null",
    "http_status":       "number | null"
  }
}`

const normalizationRules = `RULES:
1. Read the entire payload and understand the full execution story of the workflow.
2. Classify the incident as "error" or "informational":
   - "error"         : if any object contains an error code, error message, or error state
   - "informational" : if no error indicators are present
3. If the payload references an external tracking ticket, extract it into ticket_ref; otherwise return null.
4. The error message often contains raw XML or stack traces. Extract http_status, root_cause, and a clean error_description from it. Do not include raw XML in the output.
5. Convert epoch-millisecond timestamps to ISO 8601.
6. For informational incidents, return the entire "error" block as null.
7. Never add fields that are not in the output schema.
8. Never omit fields. Always return every field in the schema, use null if no data exists.
9. Return only valid JSON. No explanation, no markdown, no code fences.`

// NormalizationPrompt builds the prompt that converts a raw incident
// payload into the normalized schema.
func NormalizationPrompt(rawPayload []byte) string {
	return fmt.Sprintf(`You are a normalization engine for operational incident reports from integration platforms.

Your job is to read a raw incident payload and extract a normalized JSON object that strictly follows the output schema below.

OUTPUT SCHEMA:
%s

%s

RAW PAYLOAD:
%s

Return only the normalized JSON object. No explanation. No markdown. No code fences.`,
		normalizedSchema, normalizationRules, rawPayload)
}

// ClassifySystemPrompt is the reasoner's standing instruction set.
const ClassifySystemPrompt = `You are an expert at analyzing operational error reports and determining if errors are duplicates or related issues.

Your task is to analyze a query incident and a list of candidate similar incidents, then classify each candidate and provide reasoning.

Classification categories:
- EXACT_DUPLICATE (90-100% match): Same root cause, same error, same fix applicable
- SIMILAR_ROOT_CAUSE (70-89% match): Same underlying issue, solution likely transferable
- RELATED (50-69% match): Some overlap, may provide useful context
- NOT_RELATED (0-49% match): Different issues, not helpful

Focus on:
1. Root cause analysis, not just error codes
2. Error patterns and chains
3. Business context: workflow, endpoint, integration
4. Whether the same fix would apply

Return your analysis as JSON only, no markdown, no preamble.`

// summaryLimit truncates long error summaries in reasoner prompts.
const summaryLimit = 200

// ClassifyUserPrompt formats the query incident and candidate batch into
// the reasoner's user message.
func ClassifyUserPrompt(query store.NormalizedIncident, candidates []CandidateSummary) string {
	var b strings.Builder

	b.WriteString("Query Incident (New Error):\n")
	writeIncidentSummary(&b, query)

	b.WriteString("\nCandidate Similar Incidents:\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, `
Candidate %d:
  Ticket: %s
  Similarity: %.0f%%
  Flow: %s
  Trigger: %s
  Error Code: %s
  Error Summary: %s
  Root Cause: %s
`,
			i+1, c.TicketRef, c.Similarity*100,
			orNA(c.FlowCode), orNA(c.TriggerType), orNA(c.ErrorCode),
			orNA(truncate(c.ErrorSummary, summaryLimit)), orNA(c.RootCause))
	}

	b.WriteString(`
Analyze each candidate and return a JSON object with this structure:
{
  "results": [
    {
      "ticket_ref": "LLT-XXX",
      "classification": "EXACT_DUPLICATE",
      "confidence": 95,
      "reasoning": "Brief explanation why"
    }
  ]
}

Include all candidates. Classification must be one of: EXACT_DUPLICATE, SIMILAR_ROOT_CAUSE, RELATED, NOT_RELATED.
The confidence must fall inside the declared range of the chosen classification.`)

	return b.String()
}

func writeIncidentSummary(b *strings.Builder, n store.NormalizedIncident) {
	fmt.Fprintf(b, "Flow: %s\n", orNA(store.Deref(n.Flow.Code)))
	fmt.Fprintf(b, "Trigger: %s\n", orNA(store.Deref(n.Flow.TriggerType)))

	if n.Error != nil {
		fmt.Fprintf(b, "Error Code: %s\n", orNA(store.Deref(n.Error.Code)))
		fmt.Fprintf(b, "Error Summary: %s\n", orNA(truncate(store.Deref(n.Error.Summary), summaryLimit)))
		fmt.Fprintf(b, "Root Cause: %s\n", orNA(store.Deref(n.Error.RootCause)))
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
