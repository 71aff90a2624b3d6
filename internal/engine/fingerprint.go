// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	llerr "github.com/loglens-dev/loglens/pkg/errors"
)

// Fingerprint computes the content identity of a raw incident payload: the
// SHA-256 of its canonical JSON form. Canonicalization decodes and re-encodes
// the payload so key order and insignificant whitespace never change the
// identity of otherwise identical content.
func Fingerprint(rawPayload []byte) (string, error) {
	var decoded any
	if err := json.Unmarshal(rawPayload, &decoded); err != nil {
		return "", llerr.Wrapf(err, llerr.CodeIngestInputInvalid, "payload is not valid JSON")
	}

	// encoding/json writes map keys in sorted order, which is exactly the
	// canonical form we need.
	canonical, err := json.Marshal(decoded)
	if err != nil {
		return "", llerr.Wrapf(err, llerr.CodeIngestInputInvalid, "canonicalizing payload")
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// ticketRefPrefix marks ticket references generated by this system, as
// opposed to references extracted from an external tracker.
const ticketRefPrefix = "LLT-"

// GenerateTicketRef derives a stable ticket reference from a fingerprint.
// The same payload always generates the same reference.
func GenerateTicketRef(fingerprint string) string {
	return ticketRefPrefix + strings.ToUpper(fingerprint[:8])
}
