// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

// Package coherence checks that the recommendations recorded for a project
// agree with each other and with the project's design goals.
//
// Conflict detection compares every pair of recommendations, which is
// quadratic in their number. Projects produce tens of recommendations, so
// this is deliberate; Config.MaxRecommendations marks where it stops being
// reasonable.
package coherence

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/atelier-dev/atelier/internal/embedding"
	"github.com/atelier-dev/atelier/internal/store"
	aterr "github.com/atelier-dev/atelier/pkg/errors"
	"github.com/atelier-dev/atelier/pkg/types"
)

// Recommendation messages returned in Report.Recommendations.
const (
	RecommendationReviewGoals = "review design goals for consistency"
	RecommendationCoherent    = "context remains coherent."
)

// Conflict is a pair of recommendations pointing in different directions.
type Conflict struct {
	RecordA     string
	RecordB     string
	TitleA      string
	TitleB      string
	Similarity  float64
	Severity    types.Severity
	Description string
}

// Report is the outcome of ValidateContextCoherence.
type Report struct {
	CoherenceScore  float64
	Conflicts       []Conflict
	AlignmentScore  float64
	Recommendations []string
}

// Analyzer computes coherence reports from store contents. It is stateless
// and safe for concurrent use.
type Analyzer struct {
	store  store.Querier
	cfg    Config
	logger *slog.Logger
}

// NewAnalyzer creates an analyzer reading from q.
func NewAnalyzer(q store.Querier, cfg Config, logger *slog.Logger) (*Analyzer, error) {
	if q == nil {
		return nil, aterr.New(aterr.CodeConfigValidateInvalidValue, "coherence: store is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{store: q, cfg: cfg, logger: logger}, nil
}

// Config returns the parameters the analyzer was built with.
func (a *Analyzer) Config() Config { return a.cfg }

// ValidateContextCoherence analyzes every record of projectID. An empty
// projectID analyzes the whole store. A project with no data yields a
// successful report built from the default alignment.
func (a *Analyzer) ValidateContextCoherence(ctx context.Context, projectID string) (*Report, error) {
	res, err := a.store.Query(ctx, store.Query{
		ProjectID: projectID,
		Limit:     store.Unlimited,
		Threshold: -1,
	})
	if err != nil {
		return nil, err
	}

	var goals, recs []store.Record
	for _, r := range res.Records {
		switch r.Type {
		case store.RecordTypeDesignGoal:
			goals = append(goals, r.Record)
		case store.RecordTypeRecommendation:
			recs = append(recs, r.Record)
		}
	}
	sortChronologically(goals)
	sortChronologically(recs)

	if len(recs) > a.cfg.MaxRecommendations {
		a.logger.Warn("recommendation count exceeds pairwise analysis limit",
			"project_id", projectID, "recommendations", len(recs), "limit", a.cfg.MaxRecommendations)
	}

	conflicts, err := a.detectConflicts(recs)
	if err != nil {
		return nil, err
	}
	alignment, err := a.alignmentScore(goals, recs)
	if err != nil {
		return nil, err
	}

	penalty := math.Min(float64(len(conflicts))*a.cfg.ConflictPenalty, a.cfg.MaxConflictPenalty)
	report := &Report{
		CoherenceScore:  math.Max(alignment-penalty, 0),
		Conflicts:       conflicts,
		AlignmentScore:  alignment,
		Recommendations: a.recommendations(len(conflicts), alignment),
	}

	a.logger.Debug("context coherence scored",
		"project_id", projectID,
		"goals", len(goals),
		"recommendations", len(recs),
		"conflicts", len(conflicts),
		"alignment", alignment,
		"coherence", report.CoherenceScore,
	)
	return report, nil
}

func (a *Analyzer) detectConflicts(recs []store.Record) ([]Conflict, error) {
	conflicts := []Conflict{}
	for i := 0; i < len(recs); i++ {
		for j := i + 1; j < len(recs); j++ {
			sim, err := embedding.CosineSimilarity(recs[i].Embedding, recs[j].Embedding)
			if err != nil {
				return nil, aterr.With(err, aterr.FieldRecordID(recs[i].ID), aterr.Field("other_record_id", recs[j].ID))
			}
			if sim >= a.cfg.ConflictThreshold {
				continue
			}
			desc := fmt.Sprintf("recommendations %q and %q diverge (similarity %.2f)", recs[i].Title, recs[j].Title, sim)
			conflicts = append(conflicts, Conflict{
				RecordA:     recs[i].ID,
				RecordB:     recs[j].ID,
				TitleA:      recs[i].Title,
				TitleB:      recs[j].Title,
				Similarity:  sim,
				Severity:    types.SeverityMedium,
				Description: desc,
			})
		}
	}
	return conflicts, nil
}

// alignmentScore is the mean similarity over every goal/recommendation pair.
// With no goals, or goals but no recommendations, it is the configured
// default.
func (a *Analyzer) alignmentScore(goals, recs []store.Record) (float64, error) {
	if len(goals) == 0 || len(recs) == 0 {
		return a.cfg.DefaultAlignment, nil
	}

	var sum float64
	for _, g := range goals {
		for _, r := range recs {
			sim, err := embedding.CosineSimilarity(g.Embedding, r.Embedding)
			if err != nil {
				return 0, aterr.With(err, aterr.FieldRecordID(g.ID), aterr.Field("other_record_id", r.ID))
			}
			sum += sim
		}
	}
	return sum / float64(len(goals)*len(recs)), nil
}

func (a *Analyzer) recommendations(conflicts int, alignment float64) []string {
	var out []string
	if conflicts > 0 {
		out = append(out, fmt.Sprintf("resolve %d conflicting recommendations", conflicts))
	}
	if alignment < a.cfg.ReviewThreshold {
		out = append(out, RecommendationReviewGoals)
	}
	if len(out) == 0 {
		out = append(out, RecommendationCoherent)
	}
	return out
}

func sortChronologically(recs []store.Record) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].Timestamp.Equal(recs[j].Timestamp) {
			return recs[i].Timestamp.Before(recs[j].Timestamp)
		}
		return recs[i].ID < recs[j].ID
	})
}
