// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package store_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/atelier-dev/atelier/internal/embedding"
	"github.com/atelier-dev/atelier/internal/store"
	aterr "github.com/atelier-dev/atelier/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() *store.Snapshot {
	ts := time.Date(2026, 5, 1, 12, 30, 0, 123456789, time.UTC)
	return &store.Snapshot{
		Version:   store.SnapshotVersion,
		Dimension: 3,
		TakenAt:   ts,
		Records: []store.Record{
			{
				ID:          "goal-1",
				Type:        store.RecordTypeDesignGoal,
				Title:       "Scandinavian minimalism",
				Description: "light woods, clean lines",
				// Values without a short decimal form must survive bit for bit.
				Embedding: embedding.New(0.1, float32(math.SmallestNonzeroFloat32), -1.0/3.0),
				Metadata:  map[string]string{"room": "living"},
				Timestamp: ts,
				ProjectID: "flat-42",
			},
			{
				ID:        "pref-1",
				Type:      store.RecordTypeUserPreference,
				Embedding: embedding.New(0, 0, 0),
				Metadata:  map[string]string{},
				Timestamp: ts.Add(time.Second),
			},
		},
	}
}

func TestSerialize_RoundTrip(t *testing.T) {
	snap := sampleSnapshot()

	data, err := store.Serialize(snap)
	require.NoError(t, err)

	got, err := store.Deserialize(data)
	require.NoError(t, err)

	assert.Equal(t, snap.Version, got.Version)
	assert.Equal(t, snap.Dimension, got.Dimension)
	assert.True(t, snap.TakenAt.Equal(got.TakenAt))
	require.Len(t, got.Records, 2)
	for i := range snap.Records {
		want, have := snap.Records[i], got.Records[i]
		assert.True(t, want.Embedding.Equal(have.Embedding), want.ID)
		assert.True(t, want.Timestamp.Equal(have.Timestamp), want.ID)
		assert.Equal(t, want.Metadata, have.Metadata)
		assert.Equal(t, want.ProjectID, have.ProjectID)
		assert.Equal(t, want.Type, have.Type)
		assert.Equal(t, want.Title, have.Title)
		assert.Equal(t, want.Description, have.Description)
	}
}

func TestSerialize_WireShape(t *testing.T) {
	data, err := store.Serialize(sampleSnapshot())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.EqualValues(t, 1, raw["version"])
	assert.EqualValues(t, 3, raw["dimension"])

	records := raw["records"].([]any)
	first := records[0].(map[string]any)
	assert.Equal(t, "DesignGoal", first["type"])
	assert.IsType(t, "", first["embedding"], "embeddings travel as base64 strings")

	second := records[1].(map[string]any)
	_, hasProject := second["project_id"]
	assert.False(t, hasProject)
}

func TestSerialize_Nil(t *testing.T) {
	_, err := store.Serialize(nil)
	assert.True(t, aterr.HasCode(err, aterr.CodeStoreSnapshotInvalid))
}

func TestDeserialize_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		code aterr.Code
	}{
		{"malformed", `not json`, aterr.CodeStoreSnapshotInvalid},
		{"future version", `{"version":2,"dimension":3,"records":[]}`, aterr.CodeStoreSnapshotInvalid},
		{"missing id", `{"version":1,"dimension":1,"records":[{"type":"DesignGoal","embedding":"AACAPw=="}]}`, aterr.CodeStoreSnapshotInvalid},
		{"duplicate id", `{"version":1,"dimension":1,"records":[` +
			`{"id":"a","type":"DesignGoal","embedding":"AACAPw=="},` +
			`{"id":"a","type":"DesignGoal","embedding":"AACAPw=="}]}`, aterr.CodeStoreSnapshotInvalid},
		{"unknown type", `{"version":1,"dimension":1,"records":[{"id":"a","type":"Mood","embedding":"AACAPw=="}]}`, aterr.CodeStoreRecordInvalid},
		{"wrong dimension", `{"version":1,"dimension":2,"records":[{"id":"a","type":"DesignGoal","embedding":"AACAPw=="}]}`, aterr.CodeEmbeddingDimensionMismatch},
		{"truncated blob", `{"version":1,"dimension":1,"records":[{"id":"a","type":"DesignGoal","embedding":"AACA"}]}`, aterr.CodeEmbeddingEncodingInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Deserialize([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, aterr.HasCode(err, tt.code), "got code %q", aterr.CodeOf(err))
		})
	}
}
