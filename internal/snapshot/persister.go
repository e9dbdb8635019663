// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

// Package snapshot moves store contents to and from a store.SnapshotSink in
// the background. Persistence is best effort: failures are logged and
// retried on the next tick, and never block store operations.
package snapshot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/atelier-dev/atelier/internal/store"
	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

// DefaultInterval is used when NewPersister is given a non-positive interval.
const DefaultInterval = 30 * time.Second

// Stats reports what a Persister has done so far.
type Stats struct {
	Saves        uint64
	Failures     uint64
	SavedVersion uint64
	LastError    error
}

// Persister periodically saves a store snapshot when the store has changed
// since the last successful save.
type Persister struct {
	source   store.Snapshotter
	sink     store.SnapshotSink
	interval time.Duration
	logger   *slog.Logger

	// flushMu serializes saves so two flushes never interleave on the sink.
	flushMu sync.Mutex

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
	saved    uint64
	hasSaved bool
	saves    uint64
	failures uint64
	lastErr  error
}

// NewPersister creates a persister copying source into sink every interval.
func NewPersister(source store.Snapshotter, sink store.SnapshotSink, interval time.Duration, logger *slog.Logger) (*Persister, error) {
	if source == nil || sink == nil {
		return nil, aterr.New(aterr.CodeConfigValidateInvalidValue, "persister: source and sink are required")
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Persister{
		source:   source,
		sink:     sink,
		interval: interval,
		logger:   logger,
	}, nil
}

// MarkClean records the current store version as already persisted, so a
// store that was just restored from the sink is not written straight back.
func (p *Persister) MarkClean() {
	v := p.source.Version()
	p.mu.Lock()
	p.saved = v
	p.hasSaved = true
	p.mu.Unlock()
}

// Start launches the background loop. Calling Start on a running persister
// is a no-op.
func (p *Persister) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.mu.Unlock()

	p.wg.Add(1)
	go p.loop(ctx, p.stopCh)

	p.logger.Info("snapshot persister started", "interval", p.interval.String())
}

// Stop ends the background loop and performs a final flush.
func (p *Persister) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return p.Flush(ctx)
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()

	err := p.Flush(ctx)
	st := p.Stats()
	p.logger.Info("snapshot persister stopped", "saves", st.Saves, "failures", st.Failures)
	return err
}

func (p *Persister) loop(ctx context.Context, stop <-chan struct{}) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if err := p.Flush(ctx); err != nil {
				p.logger.Warn("snapshot save failed", "error", err)
			}
		}
	}
}

// Flush saves a snapshot now if the store changed since the last save.
func (p *Persister) Flush(ctx context.Context) error {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	version := p.source.Version()
	p.mu.Lock()
	clean := p.hasSaved && p.saved == version
	p.mu.Unlock()
	if clean {
		return nil
	}

	snap, err := p.source.Snapshot(ctx)
	if err == nil {
		err = p.sink.Save(ctx, snap)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.failures++
		p.lastErr = err
		return err
	}
	p.saves++
	p.saved = version
	p.hasSaved = true
	p.lastErr = nil
	p.logger.Debug("snapshot saved", "version", version, "records", len(snap.Records))
	return nil
}

// Stats returns a point-in-time copy of the persister counters.
func (p *Persister) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Saves:        p.saves,
		Failures:     p.failures,
		SavedVersion: p.saved,
		LastError:    p.lastErr,
	}
}
