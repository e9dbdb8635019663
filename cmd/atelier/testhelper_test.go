// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func init() {
	keyring.MockInit()
}

const recordsYAML = `
records:
  - id: G
    type: design_goal
    title: Light Scandinavian living room
    embedding: [1, 0, 0]
    project: P
    timestamp: 2026-05-01T09:00:00Z
  - id: R1
    type: Recommendation
    title: Birch shelving
    embedding: [0.95, 0.3122, 0]
    project: P
    timestamp: 2026-05-01T10:00:00Z
  - id: R2
    type: recommendation
    title: Chrome bar cart
    embedding: [0, 0, 1]
    project: P
    timestamp: 2026-05-01T11:00:00Z
`

// cliEnv is an isolated home, data dir and config for one test.
type cliEnv struct {
	t       *testing.T
	home    string
	dataDir string
	cfgPath string
	stdin   string
}

func newCLIEnv(t *testing.T, extraConfig string) *cliEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)

	e := &cliEnv{
		t:       t,
		home:    home,
		dataDir: filepath.Join(home, "data"),
		cfgPath: filepath.Join(home, "atelier.yaml"),
	}
	cfg := "store:\n  dimension: 3\nsnapshot:\n  backend: file\n" + extraConfig
	require.NoError(t, os.WriteFile(e.cfgPath, []byte(cfg), 0o600))
	return e
}

func (e *cliEnv) writeFile(name, content string) string {
	e.t.Helper()
	path := filepath.Join(e.home, name)
	require.NoError(e.t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// run executes one CLI invocation and returns its stdout.
func (e *cliEnv) run(args ...string) (string, error) {
	e.t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(e.stdin))
	root.SetArgs(append([]string{"--config", e.cfgPath, "--data-dir", e.dataDir}, args...))
	err := root.Execute()
	return out.String(), err
}

func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, "atelier %v", args)
	return out
}
