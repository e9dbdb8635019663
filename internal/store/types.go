// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package store

import (
	"time"

	"github.com/atelier-dev/atelier/internal/embedding"
	"github.com/atelier-dev/atelier/pkg/types"
)

// --- Record types ---

// RecordType classifies a context record.
// Aliased from pkg/types so callers outside internal/ share one definition.
type RecordType = types.RecordType

const (
	RecordTypeDesignGoal         = types.RecordTypeDesignGoal
	RecordTypeScanContext        = types.RecordTypeScanContext
	RecordTypeRecommendation     = types.RecordTypeRecommendation
	RecordTypeFurniturePlacement = types.RecordTypeFurniturePlacement
	RecordTypeUserPreference     = types.RecordTypeUserPreference
	RecordTypeDesignEvolution    = types.RecordTypeDesignEvolution
)

// Record is one stored unit of project history: a goal, a scan summary, a
// detection summary, a recommendation, a placement, or an evolution snapshot.
//
// Stores hand out deep copies, so a Record obtained from Get or Query can be
// modified freely without affecting stored state. The only way to change a
// stored record is a full replace through Update.
type Record struct {
	ID          string
	Type        RecordType
	Title       string
	Description string
	Embedding   embedding.Vector
	Metadata    map[string]string
	// Timestamp is the creation time. Put fills it with the current time
	// when it is zero.
	Timestamp time.Time
	// ProjectID groups records belonging to one design project. Empty means
	// the record is not grouped.
	ProjectID string
}

// ScoredRecord is a Record returned from a query together with its
// query-time relevance. The score is never stored.
type ScoredRecord struct {
	Record
	RelevanceScore float64
}

// --- Query types ---

// DefaultQueryLimit applies when Query.Limit is not positive.
const DefaultQueryLimit = 10

// Unlimited asks Query for every matching record.
const Unlimited = int(^uint(0) >> 1)

// Query describes a thresholded similarity lookup.
type Query struct {
	// Text is embedded by the store's TextEmbedder when Embedding is empty.
	Text string
	// Embedding is compared against each candidate. When it is empty every
	// candidate scores 0.
	Embedding embedding.Vector
	// Types restricts candidates to the listed record types. Empty means all.
	Types []RecordType
	// ProjectID restricts candidates to one project. Empty means all.
	ProjectID string
	Limit     int
	// Threshold drops candidates scoring strictly below it. Use -1 to keep
	// every candidate.
	Threshold float64
}

// QueryResult is the ranked output of a Query.
type QueryResult struct {
	Records []ScoredRecord
	// TotalMatches counts candidates that passed the threshold before the
	// result was truncated to the limit.
	TotalMatches int
	Elapsed      time.Duration
}

// Top returns the best-ranked record, or false when the result is empty.
func (r *QueryResult) Top() (ScoredRecord, bool) {
	if r == nil || len(r.Records) == 0 {
		return ScoredRecord{}, false
	}
	return r.Records[0], true
}

// Stats summarizes store contents.
type Stats struct {
	Total     int
	Projects  int
	Dimension int
	ByType    map[RecordType]int
}

// --- Snapshot types ---

// SnapshotVersion is the current snapshot format version.
const SnapshotVersion = 1

// Snapshot is a point-in-time copy of every record in a store, used by the
// persistence side channel.
type Snapshot struct {
	Version   int
	Dimension int
	TakenAt   time.Time
	Records   []Record
}
