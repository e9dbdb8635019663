// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package server

import (
	"github.com/atelier-dev/atelier/internal/alignment"
	"github.com/atelier-dev/atelier/internal/coherence"
	"github.com/atelier-dev/atelier/internal/store"
	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

// Services holds the dependencies injected into route handlers. Use
// NewServices to ensure every required one is present.
type Services struct {
	store     store.ContextStore
	alignment *alignment.Engine
	coherence *coherence.Analyzer
	embedder  store.TextEmbedder // optional; nil = text requests are rejected
}

// NewServices creates a Services instance with validation. The optional
// embedder turns request text into embeddings for align and similar.
func NewServices(st store.ContextStore, al *alignment.Engine, co *coherence.Analyzer, embedder ...store.TextEmbedder) (*Services, error) {
	if st == nil {
		return nil, aterr.New(aterr.CodeServerConfigInvalid, "context store is required")
	}
	if al == nil {
		return nil, aterr.New(aterr.CodeServerConfigInvalid, "alignment engine is required")
	}
	if co == nil {
		return nil, aterr.New(aterr.CodeServerConfigInvalid, "coherence analyzer is required")
	}
	if len(embedder) > 1 {
		return nil, aterr.New(aterr.CodeServerConfigInvalid, "at most one embedder may be supplied")
	}
	s := &Services{store: st, alignment: al, coherence: co}
	if len(embedder) == 1 && embedder[0] != nil {
		s.embedder = embedder[0]
	}
	return s, nil
}

func (s *Services) Store() store.ContextStore      { return s.store }
func (s *Services) Alignment() *alignment.Engine   { return s.alignment }
func (s *Services) Coherence() *coherence.Analyzer { return s.coherence }
