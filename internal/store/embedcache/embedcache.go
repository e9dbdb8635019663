// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

// Package embedcache memoizes query-text embeddings in front of a
// store.TextEmbedder.
package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/atelier-dev/atelier/internal/embedding"
	"github.com/atelier-dev/atelier/internal/store"
)

// Embedder is a store.TextEmbedder backed by an expiring LRU cache.
type Embedder struct {
	next  store.TextEmbedder
	cache *expirable.LRU[string, embedding.Vector]
}

var _ store.TextEmbedder = (*Embedder)(nil)

// Wrap returns e behind a cache of at most size entries that live for ttl.
// A non-positive size or ttl disables caching and returns e unchanged.
func Wrap(e store.TextEmbedder, size int, ttl time.Duration) store.TextEmbedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	return &Embedder{
		next:  e,
		cache: expirable.NewLRU[string, embedding.Vector](size, nil, ttl),
	}
}

// Embed returns a cached vector for text when one is present, and otherwise
// asks the wrapped embedder. Errors are never cached.
func (c *Embedder) Embed(ctx context.Context, text string) (embedding.Vector, error) {
	key := cacheKey(text)
	if cached, ok := c.cache.Get(key); ok {
		slog.Debug("embedding cache hit", "key", key[:12])
		return cached.Clone(), nil
	}

	v, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, v.Clone())
	return v, nil
}

// Len reports the number of live cache entries.
func (c *Embedder) Len() int {
	return c.cache.Len()
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
