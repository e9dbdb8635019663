// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package alignment

import (
	"errors"
	"fmt"

	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

// Config holds the score bands and query sizes used by Engine.
type Config struct {
	// GoalThreshold is the minimum similarity for a goal to be considered.
	GoalThreshold float64
	GoalLimit     int
	// PartialThreshold and AlignedThreshold split matched goals into the
	// deviation, partial, and aligned bands.
	PartialThreshold float64
	AlignedThreshold float64

	SimilarThreshold float64
	SimilarLimit     int
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		GoalThreshold:    0.3,
		GoalLimit:        10,
		PartialThreshold: 0.5,
		AlignedThreshold: 0.7,
		SimilarThreshold: 0.5,
		SimilarLimit:     5,
	}
}

// Validate checks that thresholds are cosine values and limits are positive.
// All problems are reported at once.
func (c Config) Validate() error {
	var errs []error

	for name, v := range map[string]float64{
		"goal_threshold":    c.GoalThreshold,
		"partial_threshold": c.PartialThreshold,
		"aligned_threshold": c.AlignedThreshold,
		"similar_threshold": c.SimilarThreshold,
	} {
		if v < -1 || v > 1 {
			errs = append(errs, fmt.Errorf("alignment.%s must be in [-1, 1], got %g", name, v))
		}
	}
	if c.PartialThreshold > c.AlignedThreshold {
		errs = append(errs, fmt.Errorf("alignment.partial_threshold (%g) must not exceed alignment.aligned_threshold (%g)",
			c.PartialThreshold, c.AlignedThreshold))
	}
	if c.GoalLimit <= 0 {
		errs = append(errs, fmt.Errorf("alignment.goal_limit must be > 0, got %d", c.GoalLimit))
	}
	if c.SimilarLimit <= 0 {
		errs = append(errs, fmt.Errorf("alignment.similar_limit must be > 0, got %d", c.SimilarLimit))
	}

	if len(errs) > 0 {
		return aterr.Errorf(aterr.CodeConfigValidateInvalidValue, "invalid alignment config: %w", errors.Join(errs...))
	}
	return nil
}
