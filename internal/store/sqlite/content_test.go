// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package sqlite_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loglens-dev/loglens/internal/store/sqlite"
	llerr "github.com/loglens-dev/loglens/pkg/errors"
)

func TestContentStore_PutGet(t *testing.T) {
	ctx := context.Background()
	cs, err := sqlite.NewContentStore(testDBPath(t, "content"))
	require.NoError(t, err)
	defer func() { _ = cs.Close() }()

	rec := testRecord("fp-1", "LLT-1", "F1", "E1", "Not Found")
	require.NoError(t, cs.Put(ctx, rec))

	got, err := cs.Get(ctx, "fp-1")
	require.NoError(t, err)
	assert.Equal(t, "LLT-1", got.TicketRef)
	assert.Equal(t, "F1", got.FlowCode)
	assert.Equal(t, "Not Found", got.RootCause)
	assert.Equal(t, rec.Embedding, got.Embedding)
	assert.Equal(t, "E1", *got.Normalized.Error.Code)

	byTicket, err := cs.GetByTicket(ctx, "LLT-1")
	require.NoError(t, err)
	assert.Equal(t, "fp-1", byTicket.Fingerprint)
}

func TestContentStore_DuplicateFingerprint(t *testing.T) {
	ctx := context.Background()
	cs, err := sqlite.NewContentStore(testDBPath(t, "content-dup"))
	require.NoError(t, err)
	defer func() { _ = cs.Close() }()

	require.NoError(t, cs.Put(ctx, testRecord("fp-1", "LLT-1", "F1", "E1", "Not Found")))

	// Identical content re-submitted: a distinct, expected outcome — not a
	// generic failure.
	err = cs.Put(ctx, testRecord("fp-1", "LLT-2", "F1", "E1", "Not Found"))
	require.Error(t, err)
	assert.True(t, llerr.IsDuplicate(err))

	// Exactly one record stored, the original.
	got, err := cs.Get(ctx, "fp-1")
	require.NoError(t, err)
	assert.Equal(t, "LLT-1", got.TicketRef)
}

func TestContentStore_ConcurrentPutSameFingerprint(t *testing.T) {
	ctx := context.Background()
	cs, err := sqlite.NewContentStore(testDBPath(t, "content-race"))
	require.NoError(t, err)
	defer func() { _ = cs.Close() }()

	const writers = 8

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		created    int
		duplicates int
	)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := cs.Put(ctx, testRecord("fp-shared", fmt.Sprintf("LLT-%d", i), "F1", "E1", "Not Found"))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case llerr.IsDuplicate(err):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, writers-1, duplicates)
}

func TestContentStore_GetNotFound(t *testing.T) {
	ctx := context.Background()
	cs, err := sqlite.NewContentStore(testDBPath(t, "content-miss"))
	require.NoError(t, err)
	defer func() { _ = cs.Close() }()

	_, err = cs.Get(ctx, "nope")
	require.Error(t, err)
	assert.True(t, llerr.IsNotFound(err))

	_, err = cs.GetByTicket(ctx, "LLT-nope")
	require.Error(t, err)
	assert.True(t, llerr.IsNotFound(err))
}
