// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/atelier-dev/atelier/internal/embedding"
	"github.com/atelier-dev/atelier/internal/store"
	aterr "github.com/atelier-dev/atelier/pkg/errors"
	"github.com/atelier-dev/atelier/pkg/types"
)

func (s *Server) registerRoutes() {
	// Record endpoints
	huma.Register(s.api, huma.Operation{
		OperationID:   "put-record",
		Method:        http.MethodPost,
		Path:          "/api/v1/records",
		Summary:       "Store a record",
		Tags:          []string{"records"},
		DefaultStatus: http.StatusCreated,
	}, s.handlePutRecord)

	huma.Register(s.api, huma.Operation{
		OperationID:   "put-records",
		Method:        http.MethodPost,
		Path:          "/api/v1/records/batch",
		Summary:       "Store several records atomically",
		Tags:          []string{"records"},
		DefaultStatus: http.StatusCreated,
	}, s.handlePutBatch)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-record",
		Method:      http.MethodGet,
		Path:        "/api/v1/records/{id}",
		Summary:     "Get a record",
		Tags:        []string{"records"},
	}, s.handleGetRecord)

	huma.Register(s.api, huma.Operation{
		OperationID: "update-record",
		Method:      http.MethodPut,
		Path:        "/api/v1/records/{id}",
		Summary:     "Replace a record",
		Tags:        []string{"records"},
	}, s.handleUpdateRecord)

	huma.Register(s.api, huma.Operation{
		OperationID:   "delete-record",
		Method:        http.MethodDelete,
		Path:          "/api/v1/records/{id}",
		Summary:       "Delete a record",
		Tags:          []string{"records"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteRecord)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-project-records",
		Method:      http.MethodDelete,
		Path:        "/api/v1/projects/{project}/records",
		Summary:     "Delete every record of a project",
		Tags:        []string{"records"},
	}, s.handleDeleteProject)

	// Analysis endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "query-records",
		Method:      http.MethodPost,
		Path:        "/api/v1/query",
		Summary:     "Rank records by similarity",
		Tags:        []string{"analysis"},
	}, s.handleQuery)

	huma.Register(s.api, huma.Operation{
		OperationID: "validate-alignment",
		Method:      http.MethodPost,
		Path:        "/api/v1/align",
		Summary:     "Check a design against its project's goals",
		Tags:        []string{"analysis"},
	}, s.handleAlign)

	huma.Register(s.api, huma.Operation{
		OperationID: "find-similar-designs",
		Method:      http.MethodPost,
		Path:        "/api/v1/similar",
		Summary:     "Find earlier design states and scans similar to a design",
		Tags:        []string{"analysis"},
	}, s.handleSimilar)

	huma.Register(s.api, huma.Operation{
		OperationID: "validate-coherence",
		Method:      http.MethodGet,
		Path:        "/api/v1/coherence",
		Summary:     "Score how consistent a project's recommendations are",
		Tags:        []string{"analysis"},
	}, s.handleCoherence)

	huma.Register(s.api, huma.Operation{
		OperationID: "store-stats",
		Method:      http.MethodGet,
		Path:        "/api/v1/stats",
		Summary:     "Record counts by type",
		Tags:        []string{"system"},
	}, s.handleStats)
}

// --- Request/Response types for huma ---

type putRecordInput struct {
	Body RecordBody
}
type putRecordOutput struct {
	Body struct {
		ID string `json:"id" doc:"Stored record ID"`
	}
}

type putBatchInput struct {
	Body struct {
		Records []RecordBody `json:"records" minItems:"1"`
	}
}
type putBatchOutput struct {
	Body struct {
		IDs []string `json:"ids"`
	}
}

type recordIDInput struct {
	ID string `path:"id"`
}
type recordOutput struct {
	Body RecordBody
}

type updateRecordInput struct {
	ID   string `path:"id"`
	Body RecordBody
}

type projectInput struct {
	Project string `path:"project"`
}
type deleteProjectOutput struct {
	Body struct {
		Deleted int `json:"deleted"`
	}
}

type queryInput struct {
	Body struct {
		Text      string    `json:"text,omitempty" doc:"Free text, embedded by the configured provider"`
		Embedding []float32 `json:"embedding,omitempty"`
		Types     []string  `json:"types,omitempty" doc:"Restrict to these record types"`
		ProjectID string    `json:"project_id,omitempty"`
		Limit     int       `json:"limit,omitempty" minimum:"0" doc:"Defaults to 10"`
		Threshold float64   `json:"threshold,omitempty" minimum:"-1" maximum:"1" doc:"Minimum similarity, -1 keeps everything"`
	}
}
type queryOutput struct {
	Body struct {
		Records      []ScoredRecordBody `json:"records"`
		TotalMatches int                `json:"total_matches"`
		ElapsedMS    float64            `json:"elapsed_ms"`
	}
}

type designInput struct {
	Body struct {
		Embedding []float32 `json:"embedding,omitempty"`
		Text      string    `json:"text,omitempty" doc:"Used when embedding is empty"`
		ProjectID string    `json:"project_id,omitempty"`
	}
}

// AlignBody is the outcome of an alignment check.
type AlignBody struct {
	Aligned     bool              `json:"aligned"`
	Score       float64           `json:"score"`
	Adjustments []string          `json:"adjustments"`
	MatchedGoal *ScoredRecordBody `json:"matched_goal,omitempty"`
}
type alignOutput struct {
	Body AlignBody
}

type similarOutput struct {
	Body struct {
		Records []ScoredRecordBody `json:"records"`
	}
}

type coherenceInput struct {
	Project string `query:"project" doc:"Project to analyze, all records when empty"`
}

// CoherenceBody is the outcome of a coherence check.
type CoherenceBody struct {
	CoherenceScore  float64        `json:"coherence_score"`
	AlignmentScore  float64        `json:"alignment_score"`
	Conflicts       []ConflictBody `json:"conflicts"`
	Recommendations []string       `json:"recommendations"`
}
type coherenceOutput struct {
	Body CoherenceBody
}

type statsOutput struct {
	Body StatsBody
}

// --- Handlers ---

func (s *Server) handlePutRecord(ctx context.Context, input *putRecordInput) (*putRecordOutput, error) {
	rec, err := input.Body.toRecord()
	if err != nil {
		return nil, httpError("decoding record", err)
	}
	id, err := s.services.store.Put(ctx, rec)
	if err != nil {
		return nil, httpError("storing record", err)
	}
	out := &putRecordOutput{}
	out.Body.ID = id
	return out, nil
}

func (s *Server) handlePutBatch(ctx context.Context, input *putBatchInput) (*putBatchOutput, error) {
	recs := make([]store.Record, len(input.Body.Records))
	for i, b := range input.Body.Records {
		rec, err := b.toRecord()
		if err != nil {
			return nil, httpError("decoding records", aterr.Wrapf(err, aterr.CodeStoreRecordInvalid, "record %d", i))
		}
		recs[i] = rec
	}
	ids, err := s.services.store.PutBatch(ctx, recs)
	if err != nil {
		return nil, httpError("storing records", err)
	}
	out := &putBatchOutput{}
	out.Body.IDs = ids
	return out, nil
}

func (s *Server) handleGetRecord(ctx context.Context, input *recordIDInput) (*recordOutput, error) {
	rec, err := s.services.store.Get(ctx, input.ID)
	if err != nil {
		return nil, httpError("getting record", err)
	}
	return &recordOutput{Body: recordBody(*rec)}, nil
}

func (s *Server) handleUpdateRecord(ctx context.Context, input *updateRecordInput) (*recordOutput, error) {
	rec, err := input.Body.toRecord()
	if err != nil {
		return nil, httpError("decoding record", err)
	}
	if err := s.services.store.Update(ctx, input.ID, rec); err != nil {
		return nil, httpError("updating record", err)
	}
	stored, err := s.services.store.Get(ctx, input.ID)
	if err != nil {
		return nil, httpError("reading updated record", err)
	}
	return &recordOutput{Body: recordBody(*stored)}, nil
}

func (s *Server) handleDeleteRecord(ctx context.Context, input *recordIDInput) (*struct{}, error) {
	if err := s.services.store.Delete(ctx, input.ID); err != nil {
		return nil, httpError("deleting record", err)
	}
	return nil, nil
}

func (s *Server) handleDeleteProject(ctx context.Context, input *projectInput) (*deleteProjectOutput, error) {
	n, err := s.services.store.DeleteByProject(ctx, input.Project)
	if err != nil {
		return nil, httpError("deleting project records", err)
	}
	out := &deleteProjectOutput{}
	out.Body.Deleted = n
	return out, nil
}

func (s *Server) handleQuery(ctx context.Context, input *queryInput) (*queryOutput, error) {
	recordTypes := make([]store.RecordType, 0, len(input.Body.Types))
	var errs []error
	for _, raw := range input.Body.Types {
		t, err := types.ParseRecordType(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		recordTypes = append(recordTypes, t)
	}
	if len(errs) > 0 {
		return nil, httpError("parsing types", aterr.Errorf(aterr.CodeStoreQueryInvalid, "invalid types: %w", errors.Join(errs...)))
	}

	vec := embedding.New(input.Body.Embedding...)
	if len(vec) == 0 && input.Body.Text != "" {
		if s.services.embedder == nil {
			return nil, huma.Error400BadRequest("text queries require an embedding provider")
		}
		var err error
		if vec, err = s.services.embedder.Embed(ctx, input.Body.Text); err != nil {
			return nil, httpError("embedding query text", err)
		}
	}

	res, err := s.services.store.Query(ctx, store.Query{
		Embedding: vec,
		Types:     recordTypes,
		ProjectID: input.Body.ProjectID,
		Limit:     input.Body.Limit,
		Threshold: input.Body.Threshold,
	})
	if err != nil {
		return nil, httpError("querying records", err)
	}
	out := &queryOutput{}
	out.Body.Records = scoredBodies(res.Records)
	out.Body.TotalMatches = res.TotalMatches
	out.Body.ElapsedMS = float64(res.Elapsed.Microseconds()) / 1000
	return out, nil
}

// designVector returns the request embedding, or embeds its text.
func (s *Server) designVector(ctx context.Context, input *designInput) (embedding.Vector, error) {
	if len(input.Body.Embedding) > 0 {
		return embedding.New(input.Body.Embedding...), nil
	}
	if input.Body.Text == "" {
		return nil, huma.Error400BadRequest("embedding or text is required")
	}
	if s.services.embedder == nil {
		return nil, huma.Error400BadRequest("text requests require an embedding provider")
	}
	vec, err := s.services.embedder.Embed(ctx, input.Body.Text)
	if err != nil {
		return nil, httpError("embedding design text", err)
	}
	return vec, nil
}

func (s *Server) handleAlign(ctx context.Context, input *designInput) (*alignOutput, error) {
	vec, err := s.designVector(ctx, input)
	if err != nil {
		return nil, err
	}
	res, err := s.services.alignment.ValidateDesignAlignment(ctx, vec, input.Body.ProjectID)
	if err != nil {
		return nil, httpError("validating alignment", err)
	}
	return &alignOutput{Body: alignmentBody(res)}, nil
}

func (s *Server) handleSimilar(ctx context.Context, input *designInput) (*similarOutput, error) {
	vec, err := s.designVector(ctx, input)
	if err != nil {
		return nil, err
	}
	recs, err := s.services.alignment.FindSimilarDesigns(ctx, vec, input.Body.ProjectID)
	if err != nil {
		return nil, httpError("finding similar designs", err)
	}
	out := &similarOutput{}
	out.Body.Records = scoredBodies(recs)
	return out, nil
}

func (s *Server) handleCoherence(ctx context.Context, input *coherenceInput) (*coherenceOutput, error) {
	rep, err := s.services.coherence.ValidateContextCoherence(ctx, input.Project)
	if err != nil {
		return nil, httpError("validating coherence", err)
	}
	return &coherenceOutput{Body: coherenceBody(rep)}, nil
}

func (s *Server) handleStats(ctx context.Context, _ *struct{}) (*statsOutput, error) {
	st, err := s.services.store.Stats(ctx)
	if err != nil {
		return nil, httpError("reading stats", err)
	}
	return &statsOutput{Body: statsBody(st)}, nil
}
