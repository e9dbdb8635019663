// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package sqlite_test

import (
	"context"
	"testing"

	"github.com/atelier-dev/atelier/internal/embedding"
	"github.com/atelier-dev/atelier/internal/store"
	"github.com/atelier-dev/atelier/internal/store/sqlite"
	aterr "github.com/atelier-dev/atelier/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSink_Nearest(t *testing.T) {
	ctx := context.Background()
	sink, err := sqlite.NewSink(testDBPath(t, "nearest"))
	require.NoError(t, err)
	defer func() { _ = sink.Close() }()

	require.NoError(t, sink.Save(ctx, snapshotOf(3,
		record("v1", store.RecordTypeRecommendation, 1, 0, 0),
		record("v2", store.RecordTypeRecommendation, 0, 1, 0),
		record("v3", store.RecordTypeRecommendation, 0.9, 0.1, 0),
	)))

	results, err := sink.Nearest(ctx, embedding.New(1, 0, 0), 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "v1", results[0].ID) // exact match first
	assert.InDelta(t, 0.0, results[0].Distance, 1e-6)
	assert.Equal(t, "v3", results[1].ID)
}

func TestSink_NearestBeforeSave(t *testing.T) {
	sink, err := sqlite.NewSink(testDBPath(t, "nearest-empty"))
	require.NoError(t, err)
	defer func() { _ = sink.Close() }()

	results, err := sink.Nearest(context.Background(), embedding.New(1, 0, 0), 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSink_NearestDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	sink, err := sqlite.NewSink(testDBPath(t, "nearest-dims"))
	require.NoError(t, err)
	defer func() { _ = sink.Close() }()

	require.NoError(t, sink.Save(ctx, snapshotOf(3, record("v1", store.RecordTypeRecommendation, 1, 0, 0))))

	_, err = sink.Nearest(ctx, embedding.New(1, 0), 1)
	assert.True(t, aterr.IsInvalidEmbedding(err))
}
