// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package server

import (
	"time"

	"github.com/atelier-dev/atelier/internal/alignment"
	"github.com/atelier-dev/atelier/internal/coherence"
	"github.com/atelier-dev/atelier/internal/embedding"
	"github.com/atelier-dev/atelier/internal/store"
	"github.com/atelier-dev/atelier/pkg/types"
)

// RecordBody is the wire form of a context record.
type RecordBody struct {
	ID          string            `json:"id,omitempty" doc:"Record ID, generated when empty"`
	Type        string            `json:"type" example:"DesignGoal" doc:"Record type; DesignGoal and design_goal are both accepted"`
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description,omitempty"`
	Embedding   []float32         `json:"embedding" doc:"Embedding with the store's dimension"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Timestamp   time.Time         `json:"timestamp,omitempty" doc:"Creation time, defaults to now"`
	ProjectID   string            `json:"project_id,omitempty"`
}

// ScoredRecordBody is a record with its query-time relevance.
type ScoredRecordBody struct {
	Record RecordBody `json:"record"`
	Score  float64    `json:"score" doc:"Cosine similarity to the request embedding"`
}

// ConflictBody describes two recommendations that point in different directions.
type ConflictBody struct {
	RecordA     string  `json:"record_a"`
	RecordB     string  `json:"record_b"`
	TitleA      string  `json:"title_a"`
	TitleB      string  `json:"title_b"`
	Similarity  float64 `json:"similarity"`
	Severity    string  `json:"severity" enum:"low,medium,high"`
	Description string  `json:"description"`
}

// StatsBody summarizes store contents.
type StatsBody struct {
	Total     int            `json:"total"`
	Projects  int            `json:"projects"`
	Dimension int            `json:"dimension"`
	ByType    map[string]int `json:"by_type"`
}

func (b RecordBody) toRecord() (store.Record, error) {
	typ, err := types.ParseRecordType(b.Type)
	if err != nil {
		return store.Record{}, err
	}
	return store.Record{
		ID:          b.ID,
		Type:        typ,
		Title:       b.Title,
		Description: b.Description,
		Embedding:   embedding.New(b.Embedding...),
		Metadata:    b.Metadata,
		Timestamp:   b.Timestamp,
		ProjectID:   b.ProjectID,
	}, nil
}

func recordBody(r store.Record) RecordBody {
	return RecordBody{
		ID:          r.ID,
		Type:        string(r.Type),
		Title:       r.Title,
		Description: r.Description,
		Embedding:   []float32(r.Embedding),
		Metadata:    r.Metadata,
		Timestamp:   r.Timestamp,
		ProjectID:   r.ProjectID,
	}
}

func scoredBodies(recs []store.ScoredRecord) []ScoredRecordBody {
	out := make([]ScoredRecordBody, len(recs))
	for i, r := range recs {
		out[i] = ScoredRecordBody{Record: recordBody(r.Record), Score: r.RelevanceScore}
	}
	return out
}

func alignmentBody(res *alignment.Result) AlignBody {
	out := AlignBody{
		Aligned:     res.IsAligned,
		Score:       res.Score,
		Adjustments: res.Adjustments,
	}
	if res.MatchedGoal != nil {
		g := scoredBodies([]store.ScoredRecord{*res.MatchedGoal})[0]
		out.MatchedGoal = &g
	}
	return out
}

func coherenceBody(rep *coherence.Report) CoherenceBody {
	out := CoherenceBody{
		CoherenceScore:  rep.CoherenceScore,
		AlignmentScore:  rep.AlignmentScore,
		Conflicts:       make([]ConflictBody, len(rep.Conflicts)),
		Recommendations: rep.Recommendations,
	}
	for i, c := range rep.Conflicts {
		out.Conflicts[i] = ConflictBody{
			RecordA:     c.RecordA,
			RecordB:     c.RecordB,
			TitleA:      c.TitleA,
			TitleB:      c.TitleB,
			Similarity:  c.Similarity,
			Severity:    string(c.Severity),
			Description: c.Description,
		}
	}
	return out
}

func statsBody(st store.Stats) StatsBody {
	out := StatsBody{
		Total:     st.Total,
		Projects:  st.Projects,
		Dimension: st.Dimension,
		ByType:    make(map[string]int, len(st.ByType)),
	}
	for t, n := range st.ByType {
		out.ByType[string(t)] = n
	}
	return out
}
