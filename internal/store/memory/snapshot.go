// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package memory

import (
	"context"
	"sort"

	"github.com/atelier-dev/atelier/internal/store"
	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

// Snapshot copies every record under the lock. Records are ordered by
// timestamp, then ID, so equal stores produce equal snapshots.
func (s *Store) Snapshot(_ context.Context) (*store.Snapshot, error) {
	s.mu.Lock()
	recs := make([]store.Record, 0, len(s.records))
	for _, rec := range s.records {
		recs = append(recs, rec.Clone())
	}
	s.mu.Unlock()

	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].Timestamp.Equal(recs[j].Timestamp) {
			return recs[i].Timestamp.Before(recs[j].Timestamp)
		}
		return recs[i].ID < recs[j].ID
	})

	return &store.Snapshot{
		Version:   store.SnapshotVersion,
		Dimension: s.dim,
		TakenAt:   s.now().Round(0),
		Records:   recs,
	}, nil
}

// LoadSnapshot replaces the entire contents of the store with snap. The
// snapshot is validated before anything changes.
func (s *Store) LoadSnapshot(_ context.Context, snap *store.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	if snap.Dimension != s.dim {
		return aterr.New(aterr.CodeEmbeddingDimensionMismatch, "snapshot dimension does not match store",
			aterr.FieldDimension(s.dim, snap.Dimension))
	}

	next := make(map[string]store.Record, len(snap.Records))
	for _, rec := range snap.Records {
		next[rec.ID] = rec.Clone()
	}

	s.mu.Lock()
	s.records = next
	s.version++
	s.mu.Unlock()

	s.logger.Debug("loaded context snapshot", "records", len(next))
	return nil
}

// Serialize returns the full record set in the store's wire format.
func (s *Store) Serialize(ctx context.Context) ([]byte, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return store.Serialize(snap)
}

// Restore replaces the store contents with data produced by Serialize.
func (s *Store) Restore(ctx context.Context, data []byte) error {
	snap, err := store.Deserialize(data)
	if err != nil {
		return err
	}
	return s.LoadSnapshot(ctx, snap)
}
