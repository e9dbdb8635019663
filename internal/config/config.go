// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/atelier-dev/atelier/internal/alignment"
	"github.com/atelier-dev/atelier/internal/coherence"
	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

// EnvPrefix prefixes every environment override, e.g. ATELIER_STORE_DIMENSION.
const EnvPrefix = "ATELIER"

// Config is the top-level atelier configuration.
type Config struct {
	DataDir   string          `mapstructure:"data_dir"`
	Store     StoreConfig     `mapstructure:"store"`
	Snapshot  SnapshotConfig  `mapstructure:"snapshot"`
	Embedder  EmbedderConfig  `mapstructure:"embedder"`
	Alignment AlignmentConfig `mapstructure:"alignment"`
	Coherence CoherenceConfig `mapstructure:"coherence"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
}

type StoreConfig struct {
	Backend   string `mapstructure:"backend"`
	Dimension int    `mapstructure:"dimension"`
}

// SnapshotConfig selects where store snapshots are persisted.
type SnapshotConfig struct {
	Backend  string        `mapstructure:"backend"`
	Path     string        `mapstructure:"path"`
	Interval time.Duration `mapstructure:"interval"`
}

// EmbedderConfig enables text queries through a hosted embedding model.
// APIKey may be a keyring://service/key reference.
type EmbedderConfig struct {
	Provider   string        `mapstructure:"provider"`
	Model      string        `mapstructure:"model"`
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	MaxRetries int           `mapstructure:"max_retries"`
	Cooldown   time.Duration `mapstructure:"cooldown"`
	CacheSize  int           `mapstructure:"cache_size"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
}

type AlignmentConfig struct {
	GoalThreshold    float64 `mapstructure:"goal_threshold"`
	GoalLimit        int     `mapstructure:"goal_limit"`
	PartialThreshold float64 `mapstructure:"partial_threshold"`
	AlignedThreshold float64 `mapstructure:"aligned_threshold"`
	SimilarThreshold float64 `mapstructure:"similar_threshold"`
	SimilarLimit     int     `mapstructure:"similar_limit"`
}

type CoherenceConfig struct {
	ConflictThreshold  float64 `mapstructure:"conflict_threshold"`
	ConflictPenalty    float64 `mapstructure:"conflict_penalty"`
	MaxConflictPenalty float64 `mapstructure:"max_conflict_penalty"`
	DefaultAlignment   float64 `mapstructure:"default_alignment"`
	ReviewThreshold    float64 `mapstructure:"review_threshold"`
	MaxRecommendations int     `mapstructure:"max_recommendations"`
}

// ServerConfig configures the HTTP API started by `atelier serve`.
type ServerConfig struct {
	ListenAddr   string          `mapstructure:"listen_addr"`
	CORSOrigins  []string        `mapstructure:"cors_origins"`
	ReadTimeout  time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout time.Duration   `mapstructure:"write_timeout"`
	RateLimit    RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig limits requests per client IP. A zero rate disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
	MaxVisitors       int     `mapstructure:"max_visitors"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Engine converts the section into the alignment engine's parameters.
func (c AlignmentConfig) Engine() alignment.Config {
	return alignment.Config{
		GoalThreshold:    c.GoalThreshold,
		GoalLimit:        c.GoalLimit,
		PartialThreshold: c.PartialThreshold,
		AlignedThreshold: c.AlignedThreshold,
		SimilarThreshold: c.SimilarThreshold,
		SimilarLimit:     c.SimilarLimit,
	}
}

// Analyzer converts the section into the coherence analyzer's parameters.
func (c CoherenceConfig) Analyzer() coherence.Config {
	return coherence.Config{
		ConflictThreshold:  c.ConflictThreshold,
		ConflictPenalty:    c.ConflictPenalty,
		MaxConflictPenalty: c.MaxConflictPenalty,
		DefaultAlignment:   c.DefaultAlignment,
		ReviewThreshold:    c.ReviewThreshold,
		MaxRecommendations: c.MaxRecommendations,
	}
}

// SetDefaults registers every default on v. Engine defaults come from the
// engines themselves so the two cannot drift.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "")
	v.SetDefault("store.backend", "memory")
	v.SetDefault("store.dimension", 512)
	v.SetDefault("snapshot.backend", "file")
	v.SetDefault("snapshot.path", "")
	v.SetDefault("snapshot.interval", "30s")
	v.SetDefault("embedder.provider", "none")
	v.SetDefault("embedder.model", "")
	v.SetDefault("embedder.api_key", "")
	v.SetDefault("embedder.base_url", "")
	v.SetDefault("embedder.max_retries", 2)
	v.SetDefault("embedder.cooldown", "30s")
	v.SetDefault("embedder.cache_size", 256)
	v.SetDefault("embedder.cache_ttl", "10m")

	a := alignment.DefaultConfig()
	v.SetDefault("alignment.goal_threshold", a.GoalThreshold)
	v.SetDefault("alignment.goal_limit", a.GoalLimit)
	v.SetDefault("alignment.partial_threshold", a.PartialThreshold)
	v.SetDefault("alignment.aligned_threshold", a.AlignedThreshold)
	v.SetDefault("alignment.similar_threshold", a.SimilarThreshold)
	v.SetDefault("alignment.similar_limit", a.SimilarLimit)

	c := coherence.DefaultConfig()
	v.SetDefault("coherence.conflict_threshold", c.ConflictThreshold)
	v.SetDefault("coherence.conflict_penalty", c.ConflictPenalty)
	v.SetDefault("coherence.max_conflict_penalty", c.MaxConflictPenalty)
	v.SetDefault("coherence.default_alignment", c.DefaultAlignment)
	v.SetDefault("coherence.review_threshold", c.ReviewThreshold)
	v.SetDefault("coherence.max_recommendations", c.MaxRecommendations)

	v.SetDefault("server.listen_addr", "127.0.0.1:8420")
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.rate_limit.requests_per_second", 0)
	v.SetDefault("server.rate_limit.burst", 0)
	v.SetDefault("server.rate_limit.max_visitors", 10000)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// SetupEnv binds ATELIER_* environment variables, mapping "." to "_".
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from path (optional) with defaults and
// environment overrides applied.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, aterr.Errorf(aterr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper decodes, completes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, aterr.Errorf(aterr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, aterr.Errorf(aterr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}
	return &cfg, nil
}

// DefaultDataDir returns ~/.local/share/atelier.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", aterr.Errorf(aterr.CodeConfigLoadReadFailure, "resolving home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "atelier"), nil
}

// resolvePaths fills data_dir and the snapshot path when they are unset.
func (c *Config) resolvePaths() error {
	if c.DataDir == "" {
		dir, err := DefaultDataDir()
		if err != nil {
			return err
		}
		c.DataDir = dir
	}
	if c.Snapshot.Path == "" {
		switch c.Snapshot.Backend {
		case "file":
			c.Snapshot.Path = filepath.Join(c.DataDir, "context.json")
		case "sqlite":
			c.Snapshot.Path = filepath.Join(c.DataDir, "context.db")
		}
	}
	return nil
}

// Validate checks the configuration for logical errors. It collects every
// issue rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateStore()...)
	errs = append(errs, c.validateEmbedder()...)
	if err := c.Alignment.Engine().Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Coherence.Analyzer().Validate(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateLog()...)

	return errs
}

func oneOf(key, got string, allowed ...string) error {
	for _, a := range allowed {
		if got == a {
			return nil
		}
	}
	return aterr.Errorf(aterr.CodeConfigValidateInvalidValue,
		"config: %s must be one of [%s], got %q", key, strings.Join(allowed, ", "), got)
}

func (c *Config) validateStore() []error {
	var errs []error

	if err := oneOf("store.backend", c.Store.Backend, "memory"); err != nil {
		errs = append(errs, err)
	}
	if c.Store.Dimension <= 0 {
		errs = append(errs, aterr.Errorf(aterr.CodeConfigValidateInvalidValue,
			"config: store.dimension must be greater than 0, got %d", c.Store.Dimension))
	}
	if err := oneOf("snapshot.backend", c.Snapshot.Backend, "file", "sqlite", "none"); err != nil {
		errs = append(errs, err)
	}
	if c.Snapshot.Interval <= 0 {
		errs = append(errs, aterr.Errorf(aterr.CodeConfigValidateInvalidValue,
			"config: snapshot.interval must be positive, got %s", c.Snapshot.Interval))
	}

	return errs
}

func (c *Config) validateEmbedder() []error {
	var errs []error
	e := c.Embedder

	if err := oneOf("embedder.provider", e.Provider, "none", "openai", "google"); err != nil {
		errs = append(errs, err)
	}
	if e.Provider != "none" && e.APIKey == "" {
		errs = append(errs, aterr.Errorf(aterr.CodeConfigValidateInvalidValue,
			"config: embedder.api_key is required when embedder.provider is %q", e.Provider))
	}
	if e.MaxRetries < 0 {
		errs = append(errs, aterr.Errorf(aterr.CodeConfigValidateInvalidValue,
			"config: embedder.max_retries must not be negative, got %d", e.MaxRetries))
	}
	if e.Cooldown <= 0 {
		errs = append(errs, aterr.Errorf(aterr.CodeConfigValidateInvalidValue,
			"config: embedder.cooldown must be positive, got %s", e.Cooldown))
	}
	if e.CacheSize < 0 {
		errs = append(errs, aterr.Errorf(aterr.CodeConfigValidateInvalidValue,
			"config: embedder.cache_size must not be negative, got %d", e.CacheSize))
	}
	if e.CacheTTL < 0 {
		errs = append(errs, aterr.Errorf(aterr.CodeConfigValidateInvalidValue,
			"config: embedder.cache_ttl must not be negative, got %s", e.CacheTTL))
	}

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error
	s := c.Server

	if s.ListenAddr == "" {
		errs = append(errs, aterr.New(aterr.CodeConfigValidateInvalidValue, "config: server.listen_addr is required"))
	}
	if s.ReadTimeout <= 0 || s.WriteTimeout <= 0 {
		errs = append(errs, aterr.Errorf(aterr.CodeConfigValidateInvalidValue,
			"config: server timeouts must be positive, got read=%s write=%s", s.ReadTimeout, s.WriteTimeout))
	}
	if s.RateLimit.RequestsPerSecond < 0 {
		errs = append(errs, aterr.Errorf(aterr.CodeConfigValidateInvalidValue,
			"config: server.rate_limit.requests_per_second must not be negative, got %g", s.RateLimit.RequestsPerSecond))
	}
	if s.RateLimit.RequestsPerSecond > 0 && s.RateLimit.Burst <= 0 {
		errs = append(errs, aterr.Errorf(aterr.CodeConfigValidateInvalidValue,
			"config: server.rate_limit.burst must be positive when a rate is set, got %d", s.RateLimit.Burst))
	}

	return errs
}

func (c *Config) validateLog() []error {
	var errs []error
	if err := oneOf("log.level", strings.ToLower(c.Log.Level), "debug", "info", "warn", "error"); err != nil {
		errs = append(errs, err)
	}
	if err := oneOf("log.format", c.Log.Format, "text", "json"); err != nil {
		errs = append(errs, err)
	}
	return errs
}
