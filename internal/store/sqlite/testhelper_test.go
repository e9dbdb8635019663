// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package sqlite_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/atelier-dev/atelier/internal/embedding"
	"github.com/atelier-dev/atelier/internal/store"
	"github.com/stretchr/testify/require"
)

// testDir creates a temp directory for a test and removes it on cleanup.
func testDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "atelier-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// testDBPath returns a temp SQLite database path.
func testDBPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(testDir(t), name+".db")
}

var snapTime = time.Date(2026, 4, 9, 15, 4, 5, 987654321, time.UTC)

func snapshotOf(dim int, recs ...store.Record) *store.Snapshot {
	return &store.Snapshot{
		Version:   store.SnapshotVersion,
		Dimension: dim,
		TakenAt:   snapTime,
		Records:   recs,
	}
}

func record(id string, typ store.RecordType, vec ...float32) store.Record {
	return store.Record{
		ID:        id,
		Type:      typ,
		Title:     "title " + id,
		Embedding: embedding.New(vec...),
		Timestamp: snapTime.Add(-time.Hour),
	}
}
