// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package types

import (
	"strings"

	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

// RecordType classifies a context record by what produced it.
type RecordType string

const (
	RecordTypeDesignGoal         RecordType = "DesignGoal"
	RecordTypeScanContext        RecordType = "ScanContext"
	RecordTypeRecommendation     RecordType = "Recommendation"
	RecordTypeFurniturePlacement RecordType = "FurniturePlacement"
	RecordTypeUserPreference     RecordType = "UserPreference"
	RecordTypeDesignEvolution    RecordType = "DesignEvolution"
)

// RecordTypes lists every known record type in declaration order.
func RecordTypes() []RecordType {
	return []RecordType{
		RecordTypeDesignGoal,
		RecordTypeScanContext,
		RecordTypeRecommendation,
		RecordTypeFurniturePlacement,
		RecordTypeUserPreference,
		RecordTypeDesignEvolution,
	}
}

// Valid reports whether t is a recognized record type.
func (t RecordType) Valid() bool {
	switch t {
	case RecordTypeDesignGoal, RecordTypeScanContext, RecordTypeRecommendation,
		RecordTypeFurniturePlacement, RecordTypeUserPreference, RecordTypeDesignEvolution:
		return true
	default:
		return false
	}
}

// ParseRecordType parses a case-insensitive string into a RecordType.
// Both "DesignGoal" and "design_goal" spellings are accepted.
func ParseRecordType(s string) (RecordType, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
	for _, t := range RecordTypes() {
		if strings.ToLower(string(t)) == norm {
			return t, nil
		}
	}
	return "", aterr.Errorf(aterr.CodeStoreRecordInvalid, "invalid record type: %q", s)
}
