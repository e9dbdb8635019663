// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/atelier-dev/atelier/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockedBuffer lets the test read command output while serve is running.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// startServe runs `atelier serve` on an ephemeral port and returns its base
// URL and a channel carrying the command's result.
func startServe(ctx context.Context, t *testing.T, e *cliEnv) (string, <-chan error) {
	t.Helper()

	out := new(lockedBuffer)
	root := NewRootCmd()
	root.SetOut(out)
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"--config", e.cfgPath, "--data-dir", e.dataDir, "serve", "--listen", "127.0.0.1:0"})

	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	var baseURL string
	require.Eventually(t, func() bool {
		_, addr, ok := strings.Cut(out.String(), "listening on ")
		if !ok || !strings.HasSuffix(addr, "\n") {
			return false
		}
		baseURL = strings.TrimSpace(addr)
		return true
	}, 10*time.Second, 10*time.Millisecond, "serve never reported its address")
	return baseURL, done
}

func waitServe(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}

func TestServeCommand_FlushesOnShutdown(t *testing.T) {
	for _, backend := range []string{"file", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			e := newCLIEnv(t, "")
			cfg := "store:\n  dimension: 3\nsnapshot:\n  backend: " + backend + "\n  interval: 1h\n"
			require.NoError(t, os.WriteFile(e.cfgPath, []byte(cfg), 0o600))

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			baseURL, done := startServe(ctx, t, e)

			resp, err := http.Post(baseURL+"/api/v1/records", "application/json",
				strings.NewReader(`{"id":"loft","type":"DesignGoal","title":"Warm loft","embedding":[0,1,0],"project_id":"P"}`))
			require.NoError(t, err)
			_ = resp.Body.Close()
			require.Equal(t, http.StatusCreated, resp.StatusCode)

			cancel()
			waitServe(t, done)

			var st store.Stats
			require.NoError(t, json.Unmarshal([]byte(e.mustRun("stats", "--json")), &st))
			assert.Equal(t, 1, st.Total)
			assert.Contains(t, e.mustRun("query", "--embedding", "0,1,0"), "loft")
		})
	}
}

func TestServeCommand_SavesWhileRunning(t *testing.T) {
	e := newCLIEnv(t, "")
	cfg := "store:\n  dimension: 3\nsnapshot:\n  backend: file\n  interval: 20ms\n"
	require.NoError(t, os.WriteFile(e.cfgPath, []byte(cfg), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	baseURL, done := startServe(ctx, t, e)

	resp, err := http.Post(baseURL+"/api/v1/records", "application/json",
		strings.NewReader(`{"id":"loft","type":"DesignGoal","embedding":[0,1,0]}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	snapshotPath := filepath.Join(e.dataDir, "context.json")
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(snapshotPath)
		if err != nil {
			return false
		}
		snap, err := store.Deserialize(data)
		return err == nil && len(snap.Records) == 1
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	waitServe(t, done)
}

func TestNewServer_ServesImportedRecords(t *testing.T) {
	e := newCLIEnv(t, "")
	e.mustRun("import", e.writeFile("records.yaml", recordsYAML))

	ctx := context.Background()
	cfg := testConfig(t, "file")
	cfg.DataDir = e.dataDir
	cfg.Snapshot.Path = e.dataDir + "/context.json"

	app, err := WireApp(ctx, cfg, nil)
	require.NoError(t, err)
	defer func() { require.NoError(t, app.Close(ctx)) }()

	srv, err := newServer(app)
	require.NoError(t, err)
	defer func() { _ = srv.Close() }()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/align",
		strings.NewReader(`{"embedding":[1,0,0],"project_id":"P"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Aligned bool `json:"aligned"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.True(t, out.Aligned)
}
