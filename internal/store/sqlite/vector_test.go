// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loglens-dev/loglens/internal/store/sqlite"
	llerr "github.com/loglens-dev/loglens/pkg/errors"
)

func TestVectorIndex_SelfSimilarity(t *testing.T) {
	ctx := context.Background()
	vi, err := sqlite.NewVectorIndex(testDBPath(t, "vec-self"), 3)
	require.NoError(t, err)
	defer func() { _ = vi.Close() }()

	emb := []float32{0.6, 0.8, 0}
	require.NoError(t, vi.Store(ctx, "fp-1", emb))

	// Querying with a record's own embedding returns it at similarity 1.0;
	// suppressing the self-match is the caller's policy, not the index's.
	hits, err := vi.Search(ctx, emb, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "fp-1", hits[0].Fingerprint)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-4)
}

func TestVectorIndex_DescendingOrder(t *testing.T) {
	ctx := context.Background()
	vi, err := sqlite.NewVectorIndex(testDBPath(t, "vec-order"), 3)
	require.NoError(t, err)
	defer func() { _ = vi.Close() }()

	require.NoError(t, vi.Store(ctx, "fp-exact", []float32{1, 0, 0}))
	require.NoError(t, vi.Store(ctx, "fp-close", []float32{0.9, 0.1, 0}))
	require.NoError(t, vi.Store(ctx, "fp-far", []float32{0, 0, 1}))

	hits, err := vi.Search(ctx, []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, "fp-exact", hits[0].Fingerprint)
	assert.Equal(t, "fp-close", hits[1].Fingerprint)
	assert.Equal(t, "fp-far", hits[2].Fingerprint)

	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Similarity, hits[i].Similarity)
	}
	for _, h := range hits {
		assert.GreaterOrEqual(t, h.Similarity, 0.0)
		assert.LessOrEqual(t, h.Similarity, 1.0)
	}
}

func TestVectorIndex_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	vi, err := sqlite.NewVectorIndex(testDBPath(t, "vec-dim"), 3)
	require.NoError(t, err)
	defer func() { _ = vi.Close() }()

	assert.Equal(t, 3, vi.Dimensions())

	err = vi.Store(ctx, "fp-1", []float32{1, 0})
	require.Error(t, err)
	assert.True(t, llerr.HasCode(err, llerr.CodeVectorDimensionMismatch))

	_, err = vi.Search(ctx, []float32{1, 0, 0, 0}, 1)
	require.Error(t, err)
	assert.True(t, llerr.HasCode(err, llerr.CodeVectorDimensionMismatch))
}

func TestVectorIndex_StoreIsUpsert(t *testing.T) {
	ctx := context.Background()
	vi, err := sqlite.NewVectorIndex(testDBPath(t, "vec-upsert"), 3)
	require.NoError(t, err)
	defer func() { _ = vi.Close() }()

	require.NoError(t, vi.Store(ctx, "fp-1", []float32{1, 0, 0}))
	require.NoError(t, vi.Store(ctx, "fp-1", []float32{0, 1, 0}))

	hits, err := vi.Search(ctx, []float32{0, 1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-4)
}

func TestVectorIndex_TopNLimit(t *testing.T) {
	ctx := context.Background()
	vi, err := sqlite.NewVectorIndex(testDBPath(t, "vec-topn"), 3)
	require.NoError(t, err)
	defer func() { _ = vi.Close() }()

	for i, emb := range [][]float32{{1, 0, 0}, {0.9, 0.1, 0}, {0.8, 0.2, 0}, {0, 1, 0}} {
		require.NoError(t, vi.Store(ctx, string(rune('a'+i)), emb))
	}

	hits, err := vi.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = vi.Search(ctx, []float32{1, 0, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
