// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package types

// Severity grades a detected conflict between two recommendations.
type Severity string

const (
	// SeverityLow is reserved for advisory conflicts.
	SeverityLow Severity = "low"
	// SeverityMedium is assigned to every pairwise recommendation conflict.
	SeverityMedium Severity = "medium"
	// SeverityHigh is reserved for conflicts that block a design.
	SeverityHigh Severity = "high"
)

// Valid reports whether the severity is a known grade.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	default:
		return false
	}
}
