// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/atelier-dev/atelier/internal/alignment"
	"github.com/atelier-dev/atelier/internal/coherence"
	"github.com/atelier-dev/atelier/internal/config"
	aterr "github.com/atelier-dev/atelier/pkg/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "atelier.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 512, cfg.Store.Dimension)
	assert.Equal(t, "file", cfg.Snapshot.Backend)
	assert.Equal(t, 30*time.Second, cfg.Snapshot.Interval)
	assert.Equal(t, "none", cfg.Embedder.Provider)
	assert.Equal(t, 256, cfg.Embedder.CacheSize)
	assert.Equal(t, 10*time.Minute, cfg.Embedder.CacheTTL)
	assert.Equal(t, "info", cfg.Log.Level)

	assert.Equal(t, alignment.DefaultConfig(), cfg.Alignment.Engine())
	assert.Equal(t, coherence.DefaultConfig(), cfg.Coherence.Analyzer())

	assert.Equal(t, filepath.Join(os.Getenv("HOME"), ".local", "share", "atelier"), cfg.DataDir)
	assert.Equal(t, filepath.Join(cfg.DataDir, "context.json"), cfg.Snapshot.Path)
}

func TestLoad_DefaultConfigFileMatchesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	fromFile, err := config.Load(writeConfig(t, string(config.DefaultConfigYAML)))
	require.NoError(t, err)
	fromDefaults, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, fromDefaults, fromFile)
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
data_dir: /srv/atelier
store:
  dimension: 768
snapshot:
  backend: sqlite
  interval: 5s
alignment:
  aligned_threshold: 0.8
coherence:
  max_recommendations: 50
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 768, cfg.Store.Dimension)
	assert.Equal(t, "/srv/atelier/context.db", cfg.Snapshot.Path)
	assert.Equal(t, 5*time.Second, cfg.Snapshot.Interval)
	assert.Equal(t, 0.8, cfg.Alignment.AlignedThreshold)
	assert.Equal(t, 0.7, alignment.DefaultConfig().AlignedThreshold, "defaults untouched")
	assert.Equal(t, 50, cfg.Coherence.MaxRecommendations)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("ATELIER_STORE_DIMENSION", "64")
	t.Setenv("ATELIER_DATA_DIR", "/tmp/atelier-env")
	t.Setenv("ATELIER_SNAPSHOT_PATH", "/tmp/elsewhere.json")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Store.Dimension)
	assert.Equal(t, "/tmp/atelier-env", cfg.DataDir)
	assert.Equal(t, "/tmp/elsewhere.json", cfg.Snapshot.Path)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, aterr.HasCode(err, aterr.CodeConfigLoadReadFailure))
}

func TestLoad_CollectsValidationErrors(t *testing.T) {
	path := writeConfig(t, `
data_dir: /tmp/x
store:
  backend: redis
  dimension: 0
snapshot:
  backend: s3
embedder:
  provider: openai
alignment:
  goal_limit: 0
coherence:
  conflict_threshold: 4
log:
  level: loud
`)

	_, err := config.Load(path)
	require.Error(t, err)
	assert.True(t, aterr.HasCode(err, aterr.CodeConfigValidateInvalidValue))
	for _, want := range []string{
		"store.backend",
		"store.dimension",
		"snapshot.backend",
		"embedder.api_key",
		"goal_limit",
		"conflict_threshold",
		"log.level",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestFromViper_EmbedderSection(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	v.Set("data_dir", "/tmp/x")
	v.Set("embedder.provider", "google")
	v.Set("embedder.api_key", "k")
	v.Set("embedder.cooldown", "1m")

	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "google", cfg.Embedder.Provider)
	assert.Equal(t, time.Minute, cfg.Embedder.Cooldown)
	assert.Equal(t, 2, cfg.Embedder.MaxRetries)
}

func TestSnapshotNoneHasNoPath(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	v.Set("data_dir", "/tmp/x")
	v.Set("snapshot.backend", "none")

	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	assert.Empty(t, cfg.Snapshot.Path)
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "atelier.yaml")

	wrote, err := config.WriteDefault(path, false)
	require.NoError(t, err)
	assert.True(t, wrote)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	wrote, err = config.WriteDefault(path, false)
	require.NoError(t, err)
	assert.False(t, wrote, "existing file is left alone")

	wrote, err = config.WriteDefault(path, true)
	require.NoError(t, err)
	assert.True(t, wrote)
}

func TestFromViper_ServerSection(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	v.Set("data_dir", "/tmp/x")

	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8420", cfg.Server.ListenAddr)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Zero(t, cfg.Server.RateLimit.RequestsPerSecond)

	v.Set("server.rate_limit.requests_per_second", 5)
	v.Set("server.listen_addr", "")
	_, err = config.FromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.listen_addr")
	assert.Contains(t, err.Error(), "server.rate_limit.burst")
}
