// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package sqlite_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/loglens-dev/loglens/internal/store"
)

// testDBPath returns a temp SQLite database path.
func testDBPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name+".db")
}

func strPtr(s string) *string { return &s }

// testRecord builds a minimal error incident for store tests.
func testRecord(fingerprint, ticketRef, flowCode, errorCode, rootCause string) *store.IncidentRecord {
	return &store.IncidentRecord{
		Fingerprint:  fingerprint,
		TicketRef:    ticketRef,
		Category:     store.CategoryError,
		FlowCode:     flowCode,
		TriggerType:  "rest",
		Endpoint:     "OrdersAPI",
		ErrorCode:    errorCode,
		ErrorSummary: "invocation failed",
		RootCause:    rootCause,
		SemanticText: flowCode + " rest " + errorCode + " " + rootCause,
		Embedding:    []float32{0.1, 0.2, 0.3},
		RawPayload:   []byte(`[{"flowCode":"` + flowCode + `"}]`),
		Normalized: store.NormalizedIncident{
			Category: store.CategoryError,
			Flow:     store.FlowInfo{Code: strPtr(flowCode), TriggerType: strPtr("rest")},
			Error: &store.ErrorInfo{
				Code:      strPtr(errorCode),
				Endpoint:  strPtr("OrdersAPI"),
				RootCause: strPtr(rootCause),
			},
		},
		CreatedAt: time.Now(),
	}
}
