// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/atelier-dev/atelier/internal/embedding"
	"github.com/atelier-dev/atelier/internal/store"
	"github.com/atelier-dev/atelier/internal/store/memory"
)

const testDim = 3

var baseTime = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

// newTestStore returns a 3-dimensional store with a fixed clock.
func newTestStore(t *testing.T, opts ...memory.Option) *memory.Store {
	t.Helper()
	opts = append([]memory.Option{memory.WithClock(func() time.Time { return baseTime })}, opts...)
	return memory.New(testDim, opts...)
}

func rec(id string, typ store.RecordType, project string, ts time.Time, vec ...float32) store.Record {
	return store.Record{
		ID:          id,
		Type:        typ,
		Title:       "title " + id,
		Description: "description " + id,
		Embedding:   embedding.New(vec...),
		Metadata:    map[string]string{"source": "test"},
		Timestamp:   ts,
		ProjectID:   project,
	}
}

func ids(res *store.QueryResult) []string {
	out := make([]string, 0, len(res.Records))
	for _, r := range res.Records {
		out = append(out, r.ID)
	}
	return out
}

// fakeEmbedder maps known strings to fixed vectors and counts calls.
type fakeEmbedder struct {
	vectors map[string]embedding.Vector
	calls   int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) (embedding.Vector, error) {
	f.calls++
	v, ok := f.vectors[text]
	if !ok {
		return nil, errors.New("unknown text")
	}
	return v.Clone(), nil
}
