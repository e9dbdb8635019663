// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package coherence_test

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/atelier-dev/atelier/internal/alignment"
	"github.com/atelier-dev/atelier/internal/coherence"
	"github.com/atelier-dev/atelier/internal/embedding"
	"github.com/atelier-dev/atelier/internal/store"
	"github.com/atelier-dev/atelier/internal/store/memory"
	aterr "github.com/atelier-dev/atelier/pkg/errors"
	"github.com/atelier-dev/atelier/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func record(id string, typ store.RecordType, project string, offset int, vec ...float32) store.Record {
	return store.Record{
		ID:        id,
		Type:      typ,
		Title:     "title " + id,
		Embedding: embedding.New(vec...),
		Timestamp: t0.Add(time.Duration(offset) * time.Minute),
		ProjectID: project,
	}
}

func newAnalyzer(t *testing.T, s *memory.Store) *coherence.Analyzer {
	t.Helper()
	a, err := coherence.NewAnalyzer(s, coherence.DefaultConfig(), nil)
	require.NoError(t, err)
	return a
}

func seed(t *testing.T, recs ...store.Record) *memory.Store {
	t.Helper()
	s := memory.New(3)
	if len(recs) > 0 {
		_, err := s.PutBatch(context.Background(), recs)
		require.NoError(t, err)
	}
	return s
}

func TestValidateContextCoherence_EmptyProject(t *testing.T) {
	report, err := newAnalyzer(t, seed(t)).ValidateContextCoherence(context.Background(), "nothing-here")
	require.NoError(t, err)

	assert.Empty(t, report.Conflicts)
	assert.Equal(t, 0.5, report.AlignmentScore)
	assert.Equal(t, 0.5, report.CoherenceScore)
	assert.Equal(t, []string{coherence.RecommendationReviewGoals}, report.Recommendations)
}

func TestValidateContextCoherence_GoalsWithoutRecommendations(t *testing.T) {
	s := seed(t, record("g", store.RecordTypeDesignGoal, "P", 0, 1, 0, 0))
	report, err := newAnalyzer(t, s).ValidateContextCoherence(context.Background(), "P")
	require.NoError(t, err)
	assert.Equal(t, 0.5, report.AlignmentScore)
}

func TestValidateContextCoherence_ConflictThreshold(t *testing.T) {
	tests := []struct {
		name      string
		cos       float64
		conflicts int
	}{
		{"dissimilar pair conflicts", 0.1, 1},
		{"similar pair does not", 0.9, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := seed(t,
				record("r1", store.RecordTypeRecommendation, "P", 0, 1, 0, 0),
				record("r2", store.RecordTypeRecommendation, "P", 1, float32(tt.cos), float32(math.Sqrt(1-tt.cos*tt.cos)), 0),
			)
			report, err := newAnalyzer(t, s).ValidateContextCoherence(context.Background(), "P")
			require.NoError(t, err)
			require.Len(t, report.Conflicts, tt.conflicts)
			if tt.conflicts == 1 {
				c := report.Conflicts[0]
				assert.Equal(t, "r1", c.RecordA)
				assert.Equal(t, "r2", c.RecordB)
				assert.Equal(t, types.SeverityMedium, c.Severity)
				assert.InDelta(t, tt.cos, c.Similarity, 1e-6)
				assert.Contains(t, c.Description, "title r1")
			}
		})
	}
}

func TestValidateContextCoherence_OnlyRecommendationsConflict(t *testing.T) {
	s := seed(t,
		record("g1", store.RecordTypeDesignGoal, "P", 0, 1, 0, 0),
		record("g2", store.RecordTypeDesignGoal, "P", 1, 0, 1, 0),
		record("scan", store.RecordTypeScanContext, "P", 2, 0, 0, 1),
		record("r", store.RecordTypeRecommendation, "P", 3, 1, 0, 0),
	)
	report, err := newAnalyzer(t, s).ValidateContextCoherence(context.Background(), "P")
	require.NoError(t, err)
	assert.Empty(t, report.Conflicts)
	assert.InDelta(t, 0.5, report.AlignmentScore, 1e-9, "mean of 1.0 and 0.0")
}

func TestValidateContextCoherence_PenaltyIsCapped(t *testing.T) {
	// Six mutually orthogonal-or-opposite recommendations yield more than
	// four conflicts; the penalty stops at 0.4.
	s := seed(t,
		record("g", store.RecordTypeDesignGoal, "P", 0, 1, 1, 1),
		record("r1", store.RecordTypeRecommendation, "P", 1, 1, 0, 0),
		record("r2", store.RecordTypeRecommendation, "P", 2, 0, 1, 0),
		record("r3", store.RecordTypeRecommendation, "P", 3, 0, 0, 1),
		record("r4", store.RecordTypeRecommendation, "P", 4, -1, 0, 0),
	)
	report, err := newAnalyzer(t, s).ValidateContextCoherence(context.Background(), "P")
	require.NoError(t, err)
	assert.Len(t, report.Conflicts, 6)
	assert.InDelta(t, math.Max(report.AlignmentScore-0.4, 0), report.CoherenceScore, 1e-9)
	assert.Contains(t, report.Recommendations, "resolve 6 conflicting recommendations")
}

func TestValidateContextCoherence_Coherent(t *testing.T) {
	s := seed(t,
		record("g", store.RecordTypeDesignGoal, "P", 0, 1, 0, 0),
		record("r1", store.RecordTypeRecommendation, "P", 1, 1, 0.1, 0),
		record("r2", store.RecordTypeRecommendation, "P", 2, 1, 0, 0.1),
	)
	report, err := newAnalyzer(t, s).ValidateContextCoherence(context.Background(), "P")
	require.NoError(t, err)
	assert.Empty(t, report.Conflicts)
	assert.Greater(t, report.AlignmentScore, 0.9)
	assert.Equal(t, report.AlignmentScore, report.CoherenceScore)
	assert.Equal(t, []string{coherence.RecommendationCoherent}, report.Recommendations)
}

func TestValidateContextCoherence_StableConflictOrder(t *testing.T) {
	// Insertion order differs from chronological order.
	s := seed(t,
		record("late", store.RecordTypeRecommendation, "P", 5, 0, 1, 0),
		record("early", store.RecordTypeRecommendation, "P", 1, 1, 0, 0),
		record("mid", store.RecordTypeRecommendation, "P", 3, 0, 0, 1),
	)
	report, err := newAnalyzer(t, s).ValidateContextCoherence(context.Background(), "P")
	require.NoError(t, err)
	require.Len(t, report.Conflicts, 3)

	pairs := make([]string, len(report.Conflicts))
	for i, c := range report.Conflicts {
		pairs[i] = c.RecordA + "/" + c.RecordB
	}
	assert.Equal(t, []string{"early/mid", "early/late", "mid/late"}, pairs)
}

func TestValidateContextCoherence_PropagatesStoreErrors(t *testing.T) {
	boom := aterr.New(aterr.CodeStoreRecordNotFound, "gone")
	a, err := coherence.NewAnalyzer(failingQuerier{err: boom}, coherence.DefaultConfig(), nil)
	require.NoError(t, err)

	_, err = a.ValidateContextCoherence(context.Background(), "P")
	assert.ErrorIs(t, err, boom)
}

type failingQuerier struct{ err error }

func (f failingQuerier) Query(context.Context, store.Query) (*store.QueryResult, error) {
	return nil, f.err
}

// TestEndToEnd covers a goal, a recommendation close to it and one
// orthogonal to it, checked through both engines.
func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	s := memory.New(3)
	goalVec := embedding.New(1, 0, 0)
	_, err := s.PutBatch(ctx, []store.Record{
		{ID: "G", Type: store.RecordTypeDesignGoal, Title: "Light Scandinavian", Embedding: goalVec, ProjectID: "P"},
		{ID: "R1", Type: store.RecordTypeRecommendation, Title: "Birch shelving", Embedding: embedding.New(0.95, 0.3122, 0), ProjectID: "P"},
		{ID: "R2", Type: store.RecordTypeRecommendation, Title: "Chrome bar cart", Embedding: embedding.New(0, 0, 1), ProjectID: "P"},
	})
	require.NoError(t, err)

	engine, err := alignment.NewEngine(s, alignment.DefaultConfig(), nil)
	require.NoError(t, err)
	aligned, err := engine.ValidateDesignAlignment(ctx, goalVec, "P")
	require.NoError(t, err)
	assert.True(t, aligned.IsAligned)
	assert.GreaterOrEqual(t, aligned.Score, 0.7)

	report, err := newAnalyzer(t, s).ValidateContextCoherence(ctx, "P")
	require.NoError(t, err)
	require.Len(t, report.Conflicts, 1)
	c := report.Conflicts[0]
	assert.ElementsMatch(t, []string{"R1", "R2"}, []string{c.RecordA, c.RecordB})
	assert.InDelta(t, 0.0, c.Similarity, 1e-6)
	assert.InDelta(t, 0.475, report.AlignmentScore, 1e-3)
	assert.InDelta(t, 0.375, report.CoherenceScore, 1e-3)
	assert.Equal(t, []string{
		"resolve 1 conflicting recommendations",
		coherence.RecommendationReviewGoals,
	}, report.Recommendations)
}

func TestValidateContextCoherence_AtScale(t *testing.T) {
	if testing.Short() {
		t.Skip("scale test")
	}
	ctx := context.Background()
	const dim, goals, recs = 64, 5, 200
	s := memory.New(dim)
	rng := rand.New(rand.NewSource(3))

	batch := make([]store.Record, 0, goals+recs)
	for i := 0; i < goals+recs; i++ {
		vec := make(embedding.Vector, dim)
		for j := range vec {
			vec[j] = rng.Float32()
		}
		typ := store.RecordTypeRecommendation
		if i < goals {
			typ = store.RecordTypeDesignGoal
		}
		batch = append(batch, store.Record{ID: fmt.Sprintf("r%03d", i), Type: typ, Embedding: vec, ProjectID: "P"})
	}
	_, err := s.PutBatch(ctx, batch)
	require.NoError(t, err)

	report, err := newAnalyzer(t, s).ValidateContextCoherence(ctx, "P")
	require.NoError(t, err)
	// Same-signed components keep every pair well above the conflict threshold.
	assert.Empty(t, report.Conflicts)
	assert.Greater(t, report.AlignmentScore, 0.6)
	assert.GreaterOrEqual(t, report.CoherenceScore, 0.0)
	assert.LessOrEqual(t, report.CoherenceScore, 1.0)
}

func BenchmarkValidateContextCoherence200(b *testing.B) {
	ctx := context.Background()
	const dim, n = 512, 200
	s := memory.New(dim)
	rng := rand.New(rand.NewSource(9))
	batch := make([]store.Record, n)
	for i := range batch {
		vec := make(embedding.Vector, dim)
		for j := range vec {
			vec[j] = rng.Float32()*2 - 1
		}
		batch[i] = store.Record{ID: fmt.Sprintf("r%03d", i), Type: store.RecordTypeRecommendation, Embedding: vec, ProjectID: "P"}
	}
	if _, err := s.PutBatch(ctx, batch); err != nil {
		b.Fatal(err)
	}
	a, err := coherence.NewAnalyzer(s, coherence.DefaultConfig(), nil)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := a.ValidateContextCoherence(ctx, "P"); err != nil {
			b.Fatal(err)
		}
	}
}
