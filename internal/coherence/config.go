// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package coherence

import (
	"errors"
	"fmt"

	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

// Config holds the conflict and scoring parameters used by Analyzer.
type Config struct {
	// ConflictThreshold marks a recommendation pair as conflicting when its
	// similarity is strictly below it.
	ConflictThreshold  float64
	ConflictPenalty    float64
	MaxConflictPenalty float64
	// DefaultAlignment is reported when there is nothing to compare.
	DefaultAlignment float64
	ReviewThreshold  float64
	// MaxRecommendations is the recommendation count above which the
	// pairwise pass is logged as exceeding its intended scale. Analysis
	// still runs.
	MaxRecommendations int
}

// DefaultConfig returns the standard parameters.
func DefaultConfig() Config {
	return Config{
		ConflictThreshold:  0.3,
		ConflictPenalty:    0.1,
		MaxConflictPenalty: 0.4,
		DefaultAlignment:   0.5,
		ReviewThreshold:    0.6,
		MaxRecommendations: 500,
	}
}

// Validate reports every out-of-range parameter at once.
func (c Config) Validate() error {
	var errs []error

	if c.ConflictThreshold < -1 || c.ConflictThreshold > 1 {
		errs = append(errs, fmt.Errorf("coherence.conflict_threshold must be in [-1, 1], got %g", c.ConflictThreshold))
	}
	if c.ConflictPenalty < 0 {
		errs = append(errs, fmt.Errorf("coherence.conflict_penalty must be >= 0, got %g", c.ConflictPenalty))
	}
	if c.MaxConflictPenalty < 0 {
		errs = append(errs, fmt.Errorf("coherence.max_conflict_penalty must be >= 0, got %g", c.MaxConflictPenalty))
	}
	if c.DefaultAlignment < -1 || c.DefaultAlignment > 1 {
		errs = append(errs, fmt.Errorf("coherence.default_alignment must be in [-1, 1], got %g", c.DefaultAlignment))
	}
	if c.ReviewThreshold < -1 || c.ReviewThreshold > 1 {
		errs = append(errs, fmt.Errorf("coherence.review_threshold must be in [-1, 1], got %g", c.ReviewThreshold))
	}
	if c.MaxRecommendations <= 0 {
		errs = append(errs, fmt.Errorf("coherence.max_recommendations must be > 0, got %d", c.MaxRecommendations))
	}

	if len(errs) > 0 {
		return aterr.Errorf(aterr.CodeConfigValidateInvalidValue, "invalid coherence config: %w", errors.Join(errs...))
	}
	return nil
}
