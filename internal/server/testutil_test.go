// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atelier-dev/atelier/internal/alignment"
	"github.com/atelier-dev/atelier/internal/coherence"
	"github.com/atelier-dev/atelier/internal/embedding"
	"github.com/atelier-dev/atelier/internal/server"
	"github.com/atelier-dev/atelier/internal/store"
	"github.com/atelier-dev/atelier/internal/store/memory"
	aterr "github.com/atelier-dev/atelier/pkg/errors"
	"github.com/stretchr/testify/require"
)

// stubEmbedder maps fixed phrases onto vectors.
type stubEmbedder map[string]embedding.Vector

func (s stubEmbedder) Embed(_ context.Context, text string) (embedding.Vector, error) {
	if v, ok := s[text]; ok {
		return v, nil
	}
	return nil, aterr.New(aterr.CodeEmbedderUpstreamFailure, "unknown phrase")
}

func newServices(t *testing.T, st store.ContextStore, embedder store.TextEmbedder) *server.Services {
	t.Helper()
	al, err := alignment.NewEngine(st, alignment.DefaultConfig(), nil)
	require.NoError(t, err)
	co, err := coherence.NewAnalyzer(st, coherence.DefaultConfig(), nil)
	require.NoError(t, err)
	svc, err := server.NewServices(st, al, co, embedder)
	require.NoError(t, err)
	return svc
}

func newTestServerWith(t *testing.T, cfg server.Config, embedder store.TextEmbedder) (*server.Server, *memory.Store) {
	t.Helper()
	st := memory.New(3)
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "127.0.0.1:0"
	}
	srv, err := server.New(cfg, newServices(t, st, embedder))
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv, st
}

func newTestServer(t *testing.T) (*server.Server, *memory.Store) {
	t.Helper()
	return newTestServerWith(t, server.Config{}, stubEmbedder{
		"scandinavian": embedding.New(1, 0, 0),
		"industrial":   embedding.New(0, 0, 1),
	})
}

// do sends a JSON request and decodes the JSON response into out when out
// is non-nil.
func do(t *testing.T, srv *server.Server, method, path string, body, out any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if out != nil && w.Code < 300 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w
}

func record(id, typ, project string, vec ...float32) server.RecordBody {
	return server.RecordBody{ID: id, Type: typ, Title: id + " title", Embedding: vec, ProjectID: project}
}

// seedScenario stores one goal and two recommendations, one of which pulls
// away from the goal.
func seedScenario(t *testing.T, srv *server.Server) {
	t.Helper()
	w := do(t, srv, http.MethodPost, "/api/v1/records/batch", map[string]any{
		"records": []server.RecordBody{
			record("G", "DesignGoal", "P", 1, 0, 0),
			record("R1", "recommendation", "P", 0.95, 0.3122, 0),
			record("R2", "Recommendation", "P", 0, 0, 1),
		},
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}
