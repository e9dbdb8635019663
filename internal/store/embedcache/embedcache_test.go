// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package embedcache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/atelier-dev/atelier/internal/embedding"
	"github.com/atelier-dev/atelier/internal/store/embedcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls int
	fail  bool
}

func (c *countingEmbedder) Embed(_ context.Context, text string) (embedding.Vector, error) {
	c.calls++
	if c.fail {
		return nil, errors.New("upstream down")
	}
	return embedding.New(float32(len(text)), 1, 0), nil
}

func TestWrap_CachesByText(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{}
	e := embedcache.Wrap(inner, 8, time.Minute)

	first, err := e.Embed(ctx, "oak table")
	require.NoError(t, err)
	second, err := e.Embed(ctx, "oak table")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.True(t, first.Equal(second))

	_, err = e.Embed(ctx, "steel chair")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 2, e.(*embedcache.Embedder).Len())
}

func TestWrap_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	e := embedcache.Wrap(&countingEmbedder{}, 8, time.Minute)

	v, err := e.Embed(ctx, "lamp")
	require.NoError(t, err)
	v[0] = -99

	again, err := e.Embed(ctx, "lamp")
	require.NoError(t, err)
	assert.Equal(t, float32(4), again[0])
}

func TestWrap_DoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{fail: true}
	e := embedcache.Wrap(inner, 8, time.Minute)

	_, err := e.Embed(ctx, "rug")
	require.Error(t, err)

	inner.fail = false
	_, err = e.Embed(ctx, "rug")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestWrap_Disabled(t *testing.T) {
	inner := &countingEmbedder{}
	assert.Same(t, inner, embedcache.Wrap(inner, 0, time.Minute))
	assert.Same(t, inner, embedcache.Wrap(inner, 8, 0))
	assert.Nil(t, embedcache.Wrap(nil, 8, time.Minute))
}

func TestWrap_Expiry(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{}
	e := embedcache.Wrap(inner, 8, 20*time.Millisecond)

	_, err := e.Embed(ctx, "sofa")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, err := e.Embed(ctx, "sofa")
		return err == nil && inner.calls > 1
	}, time.Second, 10*time.Millisecond)
}
