// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package store

import (
	"maps"

	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

// Clone returns a deep copy of r. Nil and empty metadata maps are preserved
// as they are.
func (r Record) Clone() Record {
	out := r
	out.Embedding = r.Embedding.Clone()
	if r.Metadata != nil {
		out.Metadata = maps.Clone(r.Metadata)
	}
	return out
}

// Validate checks that the record has a known type and an embedding of the
// given dimension with finite components.
func (r Record) Validate(dim int) error {
	if !r.Type.Valid() {
		return aterr.New(aterr.CodeStoreRecordInvalid, "record: invalid type",
			aterr.FieldRecordID(r.ID), aterr.Field("type", string(r.Type)))
	}
	if err := r.Embedding.Validate(dim); err != nil {
		return aterr.With(err, aterr.FieldRecordID(r.ID))
	}
	return nil
}

// Validate checks the snapshot header and every record in it.
func (s *Snapshot) Validate() error {
	if s == nil {
		return aterr.New(aterr.CodeStoreSnapshotInvalid, "snapshot: nil")
	}
	if s.Version != SnapshotVersion {
		return aterr.Errorf(aterr.CodeStoreSnapshotInvalid, "snapshot: unsupported version %d", s.Version)
	}
	if s.Dimension <= 0 {
		return aterr.Errorf(aterr.CodeStoreSnapshotInvalid, "snapshot: dimension must be > 0, got %d", s.Dimension)
	}
	seen := make(map[string]struct{}, len(s.Records))
	for i := range s.Records {
		rec := &s.Records[i]
		if rec.ID == "" {
			return aterr.Errorf(aterr.CodeStoreSnapshotInvalid, "snapshot: record %d has no ID", i)
		}
		if _, dup := seen[rec.ID]; dup {
			return aterr.New(aterr.CodeStoreSnapshotInvalid, "snapshot: duplicate record ID", aterr.FieldRecordID(rec.ID))
		}
		seen[rec.ID] = struct{}{}
		if err := rec.Validate(s.Dimension); err != nil {
			return err
		}
	}
	return nil
}
