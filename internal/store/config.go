// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package store

// StorageConfig controls which backend the store factory uses.
type StorageConfig struct {
	Backend   string       // "memory" is the only context store backend for now.
	Dimension int          // Embedding dimension; 0 uses the default (512).
	Embedder  TextEmbedder // Optional; enables text-only queries.
}

// SnapshotConfig controls which sink persists store snapshots.
type SnapshotConfig struct {
	Backend string // "file", "sqlite", or "none".
	Path    string
}
