// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package server

import (
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

const (
	defaultMaxVisitors   = 10000
	visitorStaleAfter    = 10 * time.Minute
	visitorSweepInterval = 5 * time.Minute
)

// RateLimitConfig configures per-IP rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained request rate per IP. Zero disables limiting.
	RequestsPerSecond float64
	// Burst is the maximum burst size per IP.
	Burst int
	// MaxVisitors caps how many IPs are tracked. The least recently seen are
	// evicted first. Zero means 10000.
	MaxVisitors int
}

// Validate checks the config and fills the MaxVisitors default.
func (c *RateLimitConfig) Validate() error {
	if c.RequestsPerSecond < 0 {
		return aterr.Errorf(aterr.CodeServerConfigInvalid,
			"rate limit requests per second must not be negative (got %g)", c.RequestsPerSecond)
	}
	if c.RequestsPerSecond > 0 && c.Burst <= 0 {
		return aterr.Errorf(aterr.CodeServerConfigInvalid,
			"rate limit burst must be positive when rate is set (got burst=%d, rate=%g)",
			c.Burst, c.RequestsPerSecond)
	}
	if c.MaxVisitors < 0 {
		return aterr.Errorf(aterr.CodeServerConfigInvalid,
			"rate limit max visitors must not be negative (got %d)", c.MaxVisitors)
	}
	if c.MaxVisitors == 0 {
		c.MaxVisitors = defaultMaxVisitors
	}
	return nil
}

// bucket is one visitor's token bucket.
type bucket struct {
	tokens     float64
	lastSeen   time.Time
	lastRefill time.Time
}

type limiter struct {
	cfg RateLimitConfig

	mu       sync.Mutex
	visitors map[string]*bucket
}

func newLimiter(cfg RateLimitConfig) *limiter {
	return &limiter{cfg: cfg, visitors: make(map[string]*bucket)}
}

// allow takes one token from ip's bucket, refilling it for the time elapsed
// since the last request.
func (l *limiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	burst := float64(l.cfg.Burst)
	b, ok := l.visitors[ip]
	if !ok {
		b = &bucket{tokens: burst, lastRefill: now}
		l.visitors[ip] = b
	}
	b.lastSeen = now

	b.tokens += now.Sub(b.lastRefill).Seconds() * l.cfg.RequestsPerSecond
	if b.tokens > burst {
		b.tokens = burst
	}
	b.lastRefill = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// sweep drops stale visitors, then evicts the least recently seen ones
// until at most MaxVisitors remain. It returns how many were evicted by the
// cap.
func (l *limiter) sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	type seen struct {
		ip   string
		last time.Time
	}
	live := make([]seen, 0, len(l.visitors))
	for ip, b := range l.visitors {
		if now.Sub(b.lastSeen) > visitorStaleAfter {
			delete(l.visitors, ip)
			continue
		}
		live = append(live, seen{ip: ip, last: b.lastSeen})
	}

	if l.cfg.MaxVisitors <= 0 || len(live) <= l.cfg.MaxVisitors {
		return 0
	}
	slices.SortFunc(live, func(a, b seen) int { return a.last.Compare(b.last) })
	evict := len(live) - l.cfg.MaxVisitors
	for _, v := range live[:evict] {
		delete(l.visitors, v.ip)
	}
	return evict
}

func (l *limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// rateLimitMiddleware enforces per-IP limits. It is a pass-through when the
// rate is zero. The sweep goroutine exits when done is closed.
func rateLimitMiddleware(cfg RateLimitConfig, done <-chan struct{}) func(http.Handler) http.Handler {
	if cfg.RequestsPerSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	l := newLimiter(cfg)
	go func() {
		ticker := time.NewTicker(visitorSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				if n := l.sweep(now); n > 0 {
					slog.Warn("rate limiter visitor cap enforced",
						"evicted", n, "max_visitors", cfg.MaxVisitors)
				}
			case <-done:
				return
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Limit by IP, not by connection.
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			if !l.allow(ip, time.Now()) {
				slog.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
