// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

// Package memory implements store.ContextStore as a mutex-guarded map.
//
// Every operation, including the snapshot-score-sort path of Query, runs
// inside a single critical section per Store, which makes the store
// linearizable. Queries are a linear scan over all records; that is valid
// while projects hold hundreds to low thousands of records. Past that, an
// approximate index (LSH or HNSW) behind store.ContextStore is the upgrade
// path.
package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atelier-dev/atelier/internal/embedding"
	"github.com/atelier-dev/atelier/internal/store"
	aterr "github.com/atelier-dev/atelier/pkg/errors"
	"github.com/atelier-dev/atelier/pkg/types"
)

func init() {
	store.RegisterBackend("memory", func(cfg *store.StorageConfig) (store.ContextStore, error) {
		return New(cfg.Dimension, WithEmbedder(cfg.Embedder)), nil
	})
}

// Compile-time interface checks.
var (
	_ store.ContextStore = (*Store)(nil)
	_ store.Snapshotter  = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithEmbedder enables text-only queries.
func WithEmbedder(e store.TextEmbedder) Option {
	return func(s *Store) { s.embedder = e }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used to stamp new records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is an in-memory context store.
type Store struct {
	mu      sync.Mutex
	records map[string]store.Record
	version uint64

	dim      int
	embedder store.TextEmbedder
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an empty store accepting embeddings of dimension dim. A
// non-positive dim selects embedding.DefaultDimension.
func New(dim int, opts ...Option) *Store {
	if dim <= 0 {
		dim = embedding.DefaultDimension
	}
	s := &Store{
		records: make(map[string]store.Record),
		dim:     dim,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dimension returns the embedding size every record must have.
func (s *Store) Dimension() int { return s.dim }

// prepare fills defaults, deep-copies and validates rec. It runs outside the
// critical section.
func (s *Store) prepare(rec store.Record) (store.Record, error) {
	out := rec.Clone()
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	if out.Timestamp.IsZero() {
		out.Timestamp = s.now().Round(0)
	}
	if err := out.Validate(s.dim); err != nil {
		return store.Record{}, err
	}
	return out, nil
}

// Put inserts or overwrites rec and returns its ID.
func (s *Store) Put(_ context.Context, rec store.Record) (string, error) {
	prepared, err := s.prepare(rec)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.records[prepared.ID] = prepared
	s.version++
	s.mu.Unlock()

	s.logger.Debug("stored context record",
		"record_id", prepared.ID, "type", prepared.Type, "project_id", prepared.ProjectID)
	return prepared.ID, nil
}

// PutBatch validates every record first and then applies all of them inside
// one critical-section entry, so readers see either none or all of them.
func (s *Store) PutBatch(_ context.Context, recs []store.Record) ([]string, error) {
	if len(recs) == 0 {
		return nil, nil
	}

	prepared := make([]store.Record, len(recs))
	ids := make([]string, len(recs))
	for i, rec := range recs {
		p, err := s.prepare(rec)
		if err != nil {
			return nil, aterr.With(err, aterr.Field("batch_index", i))
		}
		prepared[i] = p
		ids[i] = p.ID
	}

	s.mu.Lock()
	for _, p := range prepared {
		s.records[p.ID] = p
	}
	s.version++
	s.mu.Unlock()

	s.logger.Debug("stored context record batch", "count", len(prepared))
	return ids, nil
}

// Get returns a copy of the record stored under id.
func (s *Store) Get(_ context.Context, id string) (*store.Record, error) {
	s.mu.Lock()
	rec, ok := s.records[id]
	s.mu.Unlock()

	if !ok {
		return nil, notFound(id)
	}
	out := rec.Clone()
	return &out, nil
}

// Update fully replaces the record stored under id. A zero Timestamp keeps
// the original creation time.
func (s *Store) Update(_ context.Context, id string, rec store.Record) error {
	if rec.ID != "" && rec.ID != id {
		return aterr.New(aterr.CodeStoreRecordInvalid, "record: ID does not match update target",
			aterr.FieldRecordID(id), aterr.Field("record_id_in_body", rec.ID))
	}
	rec.ID = id

	replacement := rec.Clone()
	if err := replacement.Validate(s.dim); err != nil {
		return err
	}

	s.mu.Lock()
	existing, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return notFound(id)
	}
	if replacement.Timestamp.IsZero() {
		replacement.Timestamp = existing.Timestamp
	}
	s.records[id] = replacement
	s.version++
	s.mu.Unlock()

	s.logger.Debug("replaced context record", "record_id", id, "type", replacement.Type)
	return nil
}

// Delete removes the record stored under id.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.records[id]; !ok {
		s.mu.Unlock()
		return notFound(id)
	}
	delete(s.records, id)
	s.version++
	s.mu.Unlock()

	s.logger.Debug("deleted context record", "record_id", id)
	return nil
}

// DeleteByProject removes every record whose ProjectID equals projectID.
// An empty projectID matches ungrouped records.
func (s *Store) DeleteByProject(_ context.Context, projectID string) (int, error) {
	s.mu.Lock()
	removed := 0
	for id, rec := range s.records {
		if rec.ProjectID == projectID {
			delete(s.records, id)
			removed++
		}
	}
	if removed > 0 {
		s.version++
	}
	s.mu.Unlock()

	s.logger.Debug("deleted project records", "project_id", projectID, "count", removed)
	return removed, nil
}

// Query filters, scores, thresholds, sorts and truncates in one pass over
// the store. Ties on score are broken by newer timestamp first, then by ID.
func (s *Store) Query(ctx context.Context, q store.Query) (*store.QueryResult, error) {
	start := time.Now()

	qvec, err := s.queryVector(ctx, q)
	if err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = store.DefaultQueryLimit
	}

	var typeSet map[types.RecordType]struct{}
	if len(q.Types) > 0 {
		typeSet = make(map[types.RecordType]struct{}, len(q.Types))
		for _, t := range q.Types {
			typeSet[t] = struct{}{}
		}
	}

	s.mu.Lock()
	matches := make([]store.ScoredRecord, 0, len(s.records))
	for _, rec := range s.records {
		if typeSet != nil {
			if _, ok := typeSet[rec.Type]; !ok {
				continue
			}
		}
		if q.ProjectID != "" && rec.ProjectID != q.ProjectID {
			continue
		}

		var score float64
		if len(qvec) > 0 {
			// Dimensions were validated on the way in.
			score, _ = embedding.CosineSimilarity(rec.Embedding, qvec)
		}
		if score < q.Threshold {
			continue
		}
		matches = append(matches, store.ScoredRecord{Record: rec, RelevanceScore: score})
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.RelevanceScore != b.RelevanceScore {
			return a.RelevanceScore > b.RelevanceScore
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.ID < b.ID
	})

	total := len(matches)
	if limit < total {
		matches = matches[:limit]
	}
	for i := range matches {
		matches[i].Record = matches[i].Record.Clone()
	}
	s.mu.Unlock()

	return &store.QueryResult{
		Records:      matches,
		TotalMatches: total,
		Elapsed:      time.Since(start),
	}, nil
}

// queryVector resolves the vector a query is scored against, embedding the
// query text when no vector was supplied. It runs outside the critical
// section because the embedder may perform I/O.
func (s *Store) queryVector(ctx context.Context, q store.Query) (embedding.Vector, error) {
	qvec := q.Embedding
	if len(qvec) == 0 && q.Text != "" && s.embedder != nil {
		v, err := s.embedder.Embed(ctx, q.Text)
		if err != nil {
			return nil, aterr.Wrap(err, aterr.CodeEmbedderUpstreamFailure, "embedding query text")
		}
		qvec = v
	}
	if len(qvec) == 0 {
		return nil, nil
	}
	if err := qvec.Validate(s.dim); err != nil {
		return nil, err
	}
	return qvec, nil
}

// Stats returns record counts grouped by type. Every known type is present
// in ByType, with zero when the store holds none of it.
func (s *Store) Stats(_ context.Context) (store.Stats, error) {
	st := store.Stats{
		Dimension: s.dim,
		ByType:    make(map[types.RecordType]int, len(types.RecordTypes())),
	}
	for _, t := range types.RecordTypes() {
		st.ByType[t] = 0
	}

	projects := make(map[string]struct{})
	s.mu.Lock()
	for _, rec := range s.records {
		st.ByType[rec.Type]++
		if rec.ProjectID != "" {
			projects[rec.ProjectID] = struct{}{}
		}
	}
	st.Total = len(s.records)
	s.mu.Unlock()

	st.Projects = len(projects)
	return st, nil
}

// Version increases on every successful mutation.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

func notFound(id string) error {
	return aterr.New(aterr.CodeStoreRecordNotFound, "context record not found", aterr.FieldRecordID(id))
}
