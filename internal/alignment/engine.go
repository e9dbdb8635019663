// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

// Package alignment scores a current design state against the design goals
// recorded for its project.
package alignment

import (
	"context"
	"log/slog"

	"github.com/atelier-dev/atelier/internal/embedding"
	"github.com/atelier-dev/atelier/internal/store"
	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

// Adjustment messages returned in Result.Adjustments.
const (
	AdjustmentNoGoals   = "no design goals recorded for this project"
	AdjustmentAligned   = "aligned with project goals"
	adjustmentDeviation = "significant deviation from project goals, review "
	adjustmentPartial   = "partially aligned, consider incorporating "
)

// Result is the outcome of ValidateDesignAlignment.
type Result struct {
	IsAligned   bool
	Score       float64
	Adjustments []string
	// MatchedGoal is the best-ranked goal, or nil when the project has no
	// goal above the goal threshold.
	MatchedGoal *store.ScoredRecord
}

// Engine answers alignment questions by querying a store. It holds no state
// of its own and is safe for concurrent use.
type Engine struct {
	store  store.Querier
	cfg    Config
	logger *slog.Logger
}

// NewEngine creates an engine reading from q.
func NewEngine(q store.Querier, cfg Config, logger *slog.Logger) (*Engine, error) {
	if q == nil {
		return nil, aterr.New(aterr.CodeConfigValidateInvalidValue, "alignment: store is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: q, cfg: cfg, logger: logger}, nil
}

// Config returns the thresholds the engine was built with.
func (e *Engine) Config() Config { return e.cfg }

// ValidateDesignAlignment compares current with the goals of projectID and
// reports how well it matches the best one. A project without goals is a
// successful, unaligned result. Store errors are returned unchanged.
func (e *Engine) ValidateDesignAlignment(ctx context.Context, current embedding.Vector, projectID string) (*Result, error) {
	if len(current) == 0 {
		return nil, aterr.New(aterr.CodeEmbeddingDimensionMismatch, "current design embedding is empty",
			aterr.FieldProjectID(projectID))
	}

	res, err := e.store.Query(ctx, store.Query{
		Embedding: current,
		Types:     []store.RecordType{store.RecordTypeDesignGoal},
		ProjectID: projectID,
		Limit:     e.cfg.GoalLimit,
		Threshold: e.cfg.GoalThreshold,
	})
	if err != nil {
		return nil, err
	}

	top, ok := res.Top()
	if !ok {
		e.logger.Debug("no design goals matched", "project_id", projectID)
		return &Result{Adjustments: []string{AdjustmentNoGoals}}, nil
	}

	out := &Result{
		IsAligned:   top.RelevanceScore >= e.cfg.AlignedThreshold,
		Score:       top.RelevanceScore,
		Adjustments: []string{e.adjustment(top)},
		MatchedGoal: &top,
	}
	e.logger.Debug("design alignment scored",
		"project_id", projectID, "goal_id", top.ID, "score", top.RelevanceScore, "aligned", out.IsAligned)
	return out, nil
}

func (e *Engine) adjustment(goal store.ScoredRecord) string {
	switch {
	case goal.RelevanceScore < e.cfg.PartialThreshold:
		return adjustmentDeviation + goal.Title
	case goal.RelevanceScore < e.cfg.AlignedThreshold:
		return adjustmentPartial + goal.Title
	default:
		return AdjustmentAligned
	}
}

// FindSimilarDesigns returns earlier design states and scans that resemble
// emb, best first. An empty projectID searches every project.
func (e *Engine) FindSimilarDesigns(ctx context.Context, emb embedding.Vector, projectID string) ([]store.ScoredRecord, error) {
	if len(emb) == 0 {
		return nil, aterr.New(aterr.CodeEmbeddingDimensionMismatch, "design embedding is empty")
	}

	res, err := e.store.Query(ctx, store.Query{
		Embedding: emb,
		Types:     []store.RecordType{store.RecordTypeDesignEvolution, store.RecordTypeScanContext},
		ProjectID: projectID,
		Limit:     e.cfg.SimilarLimit,
		Threshold: e.cfg.SimilarThreshold,
	})
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}
