// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package store

import (
	"context"

	"github.com/atelier-dev/atelier/internal/embedding"
)

// ContextStore holds context records and answers similarity queries.
// Implementations must be safe for concurrent use and linearizable: every
// operation observes the effects of every operation that completed before it.
type ContextStore interface {
	// Put inserts or overwrites a record and returns its ID. An empty ID is
	// replaced with a generated one and a zero Timestamp with the current time.
	Put(ctx context.Context, rec Record) (string, error)
	// PutBatch stores every record or none of them.
	PutBatch(ctx context.Context, recs []Record) ([]string, error)
	Get(ctx context.Context, id string) (*Record, error)
	// Update fully replaces the record stored under id.
	Update(ctx context.Context, id string, rec Record) error
	Delete(ctx context.Context, id string) error
	// DeleteByProject removes every record of the project and returns how
	// many were removed.
	DeleteByProject(ctx context.Context, projectID string) (int, error)

	Query(ctx context.Context, q Query) (*QueryResult, error)
	Stats(ctx context.Context) (Stats, error)

	// Dimension is the embedding size every record must have.
	Dimension() int
	Close() error
}

// Querier is the read-only slice of ContextStore used by the analysis engines.
type Querier interface {
	Query(ctx context.Context, q Query) (*QueryResult, error)
}

// Snapshotter is implemented by stores that can hand their full contents to
// a persistence layer and reload them later.
type Snapshotter interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
	LoadSnapshot(ctx context.Context, snap *Snapshot) error
	// Version increases on every successful mutation.
	Version() uint64
}

// SnapshotSink persists snapshots outside the process.
type SnapshotSink interface {
	Save(ctx context.Context, snap *Snapshot) error
	// Load returns the last saved snapshot. It fails with a not-found error
	// when nothing has been saved yet.
	Load(ctx context.Context) (*Snapshot, error)
	Close() error
}

// TextEmbedder turns free-form query text into an embedding. Stores call it
// only for queries that carry text and no embedding.
type TextEmbedder interface {
	Embed(ctx context.Context, text string) (embedding.Vector, error)
}
