// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package provider

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/atelier-dev/atelier/internal/embedding"
	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

// DefaultCooldown is how long a guarded embedder refuses calls after the
// provider failed or returned an unusable vector.
const DefaultCooldown = 30 * time.Second

// GuardConfig configures a Guarded embedder.
type GuardConfig struct {
	// Dimension every returned vector must have.
	Dimension int
	// Cooldown after a failure; DefaultCooldown when zero.
	Cooldown time.Duration
	// Now is the clock, time.Now when nil.
	Now func() time.Time
}

// GuardStatus is a point-in-time view of a guarded embedder.
type GuardStatus struct {
	// UpstreamFailures counts provider errors such as timeouts and 5xx.
	UpstreamFailures int64 `json:"upstream_failures"`
	// InvalidResponses counts vectors rejected for their dimension or a
	// non-finite component. A steady count usually means the configured
	// model does not match store.dimension.
	InvalidResponses int64      `json:"invalid_responses"`
	LastFailureAt    *time.Time `json:"last_failure_at,omitempty"`
	CoolingUntil     *time.Time `json:"cooling_until,omitempty"`
	Available        bool       `json:"available"`
}

// Failures is the total of upstream failures and invalid responses.
func (s GuardStatus) Failures() int64 { return s.UpstreamFailures + s.InvalidResponses }

// Guarded wraps an Embedder with a cooldown and a dimension check so a
// failing upstream is not hammered by every text query.
type Guarded struct {
	next     Embedder
	dim      int
	cooldown time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu           sync.Mutex
	coolingUntil time.Time
	lastFailure  time.Time
	upstream     int64
	invalid      int64
}

// NewGuarded wraps next. Vectors that do not have exactly cfg.Dimension
// finite components are rejected.
func NewGuarded(next Embedder, cfg GuardConfig, logger *slog.Logger) (*Guarded, error) {
	if next == nil {
		return nil, aterr.New(aterr.CodeEmbedderRequestInvalid, "guarded embedder: nil embedder")
	}
	if cfg.Dimension <= 0 {
		return nil, aterr.Errorf(aterr.CodeEmbedderRequestInvalid,
			"guarded embedder: dimension must be positive, got %d", cfg.Dimension)
	}
	if cfg.Cooldown < 0 {
		return nil, aterr.Errorf(aterr.CodeConfigValidateInvalidValue,
			"guarded embedder: cooldown must not be negative, got %s", cfg.Cooldown)
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Guarded{
		next:     next,
		dim:      cfg.Dimension,
		cooldown: cfg.Cooldown,
		now:      cfg.Now,
		logger:   logger,
	}, nil
}

func (g *Guarded) Name() string { return g.next.Name() }

// Available reports whether the guard allows calls and the provider itself
// is reachable.
func (g *Guarded) Available(ctx context.Context) bool {
	return !g.coolingDown() && g.next.Available(ctx)
}

// Embed calls the wrapped provider unless it is cooling down after a failure.
func (g *Guarded) Embed(ctx context.Context, text string) (embedding.Vector, error) {
	if g.coolingDown() {
		return nil, aterr.New(aterr.CodeEmbedderCoolingDown,
			"embedding provider is cooling down after a failure",
			aterr.FieldProvider(g.next.Name()))
	}

	vec, err := g.next.Embed(ctx, text)
	if err != nil {
		// Bad input from the caller says nothing about the provider.
		if aterr.IsUpstreamFailure(err) {
			g.fail(&g.upstream)
			g.logger.Warn("embedding provider failed",
				"provider", g.next.Name(), "error", err)
		}
		return nil, err
	}
	if err := vec.Validate(g.dim); err != nil {
		g.fail(&g.invalid)
		g.logger.Warn("embedding provider returned an unusable vector",
			"provider", g.next.Name(), "want_dimension", g.dim, "got_dimension", len(vec))
		return nil, aterr.Wrap(err, aterr.CodeEmbedderResponseInvalid,
			"embedding provider returned an unusable vector", aterr.FieldProvider(g.next.Name()))
	}

	g.mu.Lock()
	g.coolingUntil = time.Time{}
	g.mu.Unlock()
	return vec, nil
}

func (g *Guarded) coolingDown() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.now().Before(g.coolingUntil)
}

func (g *Guarded) fail(counter *int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	*counter++
	g.lastFailure = g.now()
	g.coolingUntil = g.lastFailure.Add(g.cooldown)
}

// Status returns the guard's counters and cooldown state.
func (g *Guarded) Status() GuardStatus {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := GuardStatus{
		UpstreamFailures: g.upstream,
		InvalidResponses: g.invalid,
		Available:        !g.now().Before(g.coolingUntil),
	}
	if !g.lastFailure.IsZero() {
		t := g.lastFailure
		st.LastFailureAt = &t
	}
	if !st.Available {
		t := g.coolingUntil
		st.CoolingUntil = &t
	}
	return st
}

func (g *Guarded) Close() error { return g.next.Close() }
