// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package errors_test

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	llerr "github.com/loglens-dev/loglens/pkg/errors"
)

func TestCodeOf(t *testing.T) {
	err := llerr.New(llerr.CodeContentPutDuplicate, "already ingested")
	assert.Equal(t, llerr.CodeContentPutDuplicate, llerr.CodeOf(err))
	assert.Equal(t, llerr.Code(""), llerr.CodeOf(stderrors.New("plain")))
	assert.Equal(t, llerr.Code(""), llerr.CodeOf(nil))
}

func TestWrapPreservesCode(t *testing.T) {
	inner := stderrors.New("unique constraint failed")
	err := llerr.Wrap(inner, llerr.CodeContentPutDuplicate, "putting incident")

	assert.True(t, llerr.IsDuplicate(err))
	assert.ErrorIs(t, err, inner)
	assert.Nil(t, llerr.Wrap(nil, llerr.CodeStoreDatabaseFailure, "noop"))
}

func TestClassifiers(t *testing.T) {
	assert.True(t, llerr.IsDuplicate(llerr.New(llerr.CodeContentPutDuplicate, "dup")))
	assert.True(t, llerr.IsNotFound(llerr.New(llerr.CodeContentGetNotFound, "missing")))
	assert.True(t, llerr.IsUpstreamFailure(llerr.New(llerr.CodeProviderUpstreamFailure, "timeout")))
	assert.True(t, llerr.IsDegraded(llerr.New(llerr.CodeReasonerDegraded, "malformed verdict")))
	assert.True(t, llerr.IsPartial(llerr.New(llerr.CodeEnrichmentPartial, "no graph data")))
	assert.False(t, llerr.IsDuplicate(llerr.New(llerr.CodeStoreDatabaseFailure, "io")))
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{llerr.New(llerr.CodeContentPutDuplicate, "dup"), http.StatusConflict},
		{llerr.New(llerr.CodeContentGetNotFound, "missing"), http.StatusNotFound},
		{llerr.New(llerr.CodeServerRequestInvalid, "bad body"), http.StatusBadRequest},
		{llerr.New(llerr.CodeProviderUpstreamFailure, "unreachable"), http.StatusBadGateway},
		{llerr.New(llerr.CodeStoreDatabaseFailure, "io"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, llerr.HTTPStatus(tc.err))
	}
}

func TestFields(t *testing.T) {
	err := llerr.New(llerr.CodeContentPutDuplicate, "dup",
		llerr.FieldFingerprint("abc123"),
		llerr.FieldTicket("LLT-1"),
	)

	fields := llerr.FieldsOf(err)
	assert.Equal(t, "abc123", fields["fingerprint"])
	assert.Equal(t, "LLT-1", fields["ticket_ref"])
}
