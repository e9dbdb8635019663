// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package provider_test

import (
	"context"
	"sync"

	"github.com/atelier-dev/atelier/internal/embedding"
)

// mockEmbedder returns vec or err and counts calls.
type mockEmbedder struct {
	mu     sync.Mutex
	vec    embedding.Vector
	err    error
	calls  int
	closed bool
}

func (m *mockEmbedder) Name() string { return "mock" }

func (m *mockEmbedder) Available(context.Context) bool { return true }

func (m *mockEmbedder) Embed(context.Context, string) (embedding.Vector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.vec.Clone(), nil
}

func (m *mockEmbedder) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *mockEmbedder) set(vec embedding.Vector, err error) {
	m.mu.Lock()
	m.vec, m.err = vec, err
	m.mu.Unlock()
}

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
