// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package store

import (
	"encoding/json"
	"time"

	"github.com/atelier-dev/atelier/internal/embedding"
	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

// wireSnapshot is the JSON form of a Snapshot. Embeddings travel as base64
// little-endian float32 blobs so every component survives bit for bit.
type wireSnapshot struct {
	Version   int          `json:"version"`
	Dimension int          `json:"dimension"`
	TakenAt   time.Time    `json:"taken_at"`
	Records   []wireRecord `json:"records"`
}

type wireRecord struct {
	ID          string            `json:"id"`
	Type        RecordType        `json:"type"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Embedding   []byte            `json:"embedding"`
	Metadata    map[string]string `json:"metadata"`
	Timestamp   time.Time         `json:"timestamp"`
	ProjectID   string            `json:"project_id,omitempty"`
}

// Serialize encodes a snapshot into its versioned JSON wire form.
func Serialize(snap *Snapshot) ([]byte, error) {
	if snap == nil {
		return nil, aterr.New(aterr.CodeStoreSnapshotInvalid, "snapshot: nil")
	}

	w := wireSnapshot{
		Version:   snap.Version,
		Dimension: snap.Dimension,
		TakenAt:   snap.TakenAt,
		Records:   make([]wireRecord, len(snap.Records)),
	}
	for i, r := range snap.Records {
		w.Records[i] = wireRecord{
			ID:          r.ID,
			Type:        r.Type,
			Title:       r.Title,
			Description: r.Description,
			Embedding:   embedding.Encode(r.Embedding),
			Metadata:    r.Metadata,
			Timestamp:   r.Timestamp,
			ProjectID:   r.ProjectID,
		}
	}

	data, err := json.Marshal(w)
	if err != nil {
		return nil, aterr.Errorf(aterr.CodeStoreSnapshotInvalid, "marshalling snapshot: %w", err)
	}
	return data, nil
}

// Deserialize decodes data produced by Serialize and validates the result.
func Deserialize(data []byte) (*Snapshot, error) {
	var w wireSnapshot
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, aterr.Errorf(aterr.CodeStoreSnapshotInvalid, "unmarshalling snapshot: %w", err)
	}

	snap := &Snapshot{
		Version:   w.Version,
		Dimension: w.Dimension,
		TakenAt:   w.TakenAt,
		Records:   make([]Record, len(w.Records)),
	}
	for i, r := range w.Records {
		vec, err := embedding.Decode(r.Embedding)
		if err != nil {
			return nil, aterr.With(err, aterr.FieldRecordID(r.ID))
		}
		snap.Records[i] = Record{
			ID:          r.ID,
			Type:        r.Type,
			Title:       r.Title,
			Description: r.Description,
			Embedding:   vec,
			Metadata:    r.Metadata,
			Timestamp:   r.Timestamp,
			ProjectID:   r.ProjectID,
		}
	}

	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}
