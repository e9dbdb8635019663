// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/atelier-dev/atelier/internal/alignment"
	"github.com/atelier-dev/atelier/internal/coherence"
	"github.com/atelier-dev/atelier/internal/config"
	"github.com/atelier-dev/atelier/internal/provider"
	_ "github.com/atelier-dev/atelier/internal/provider/google" // register google embedder
	_ "github.com/atelier-dev/atelier/internal/provider/openai" // register openai embedder
	"github.com/atelier-dev/atelier/internal/secrets"
	"github.com/atelier-dev/atelier/internal/snapshot"
	"github.com/atelier-dev/atelier/internal/store"
	"github.com/atelier-dev/atelier/internal/store/embedcache"
	_ "github.com/atelier-dev/atelier/internal/store/file"   // register file snapshot sink
	_ "github.com/atelier-dev/atelier/internal/store/memory" // register memory backend
	_ "github.com/atelier-dev/atelier/internal/store/sqlite" // register sqlite snapshot sink
	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

// secretStoreFactory creates a secrets.Store. It is a package-level variable
// so tests can substitute another implementation.
var secretStoreFactory = func() secrets.Store {
	return secrets.NewKeyringStore()
}

// App holds every wired subsystem of one CLI invocation.
type App struct {
	Config    *config.Config
	Store     store.ContextStore
	Sink      store.SnapshotSink  // nil when snapshots are disabled
	Persister *snapshot.Persister // nil when snapshots are disabled
	Embedder  *provider.Guarded   // nil when no embedding provider is configured
	// TextEmbedder is Embedder behind the embedding cache, or nil.
	TextEmbedder store.TextEmbedder
	Alignment *alignment.Engine
	Coherence *coherence.Analyzer
	Restored  int

	logger *slog.Logger
}

// loadApp resolves keyring references in v, decodes the configuration and
// wires the application.
func loadApp(ctx context.Context, v *viper.Viper) (*App, error) {
	secrets.ResolveViperSecrets(v, secretStoreFactory(), slog.Default())

	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, err
	}
	return WireApp(ctx, cfg, slog.Default())
}

// WireApp creates all subsystems and wires them together. The store is
// restored from the configured snapshot sink before it is returned.
func WireApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, logger: logger}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, aterr.Errorf(aterr.CodeCLISetupFailure, "creating data directory: %w", err)
	}

	// 1. Optional text embedder: provider, health guard, cache.
	var textEmbedder store.TextEmbedder
	guarded, err := wireEmbedder(cfg, logger)
	if err != nil {
		return nil, err
	}
	if guarded != nil {
		app.Embedder = guarded
		textEmbedder = embedcache.Wrap(guarded, cfg.Embedder.CacheSize, cfg.Embedder.CacheTTL)
		app.TextEmbedder = textEmbedder
	}

	// 2. Context store.
	app.Store, err = store.NewContextStore(&store.StorageConfig{
		Backend:   cfg.Store.Backend,
		Dimension: cfg.Store.Dimension,
		Embedder:  textEmbedder,
	})
	if err != nil {
		_ = app.Close(ctx)
		return nil, aterr.Wrapf(err, aterr.CodeCLISetupFailure, "creating context store")
	}

	// 3. Snapshot sink, restore and persister.
	if err := app.wireSnapshots(ctx); err != nil {
		_ = app.Close(ctx)
		return nil, err
	}

	// 4. Engines share the store by reference.
	if app.Alignment, err = alignment.NewEngine(app.Store, cfg.Alignment.Engine(), logger); err != nil {
		_ = app.Close(ctx)
		return nil, err
	}
	if app.Coherence, err = coherence.NewAnalyzer(app.Store, cfg.Coherence.Analyzer(), logger); err != nil {
		_ = app.Close(ctx)
		return nil, err
	}

	return app, nil
}

func wireEmbedder(cfg *config.Config, logger *slog.Logger) (*provider.Guarded, error) {
	e, err := provider.New(provider.Config{
		Provider:   provider.Name(cfg.Embedder.Provider),
		APIKey:     cfg.Embedder.APIKey,
		BaseURL:    cfg.Embedder.BaseURL,
		Model:      cfg.Embedder.Model,
		Dimension:  cfg.Store.Dimension,
		MaxRetries: cfg.Embedder.MaxRetries,
	})
	if err != nil {
		return nil, aterr.Wrapf(err, aterr.CodeCLISetupFailure, "creating embedder %q", cfg.Embedder.Provider)
	}
	if e == nil {
		return nil, nil
	}

	guarded, err := provider.NewGuarded(e, provider.GuardConfig{
		Dimension: cfg.Store.Dimension,
		Cooldown:  cfg.Embedder.Cooldown,
	}, logger)
	if err != nil {
		_ = e.Close()
		return nil, err
	}
	logger.Debug("embedding provider enabled", "provider", e.Name())
	return guarded, nil
}

func (a *App) wireSnapshots(ctx context.Context) error {
	sink, err := store.NewSnapshotSink(&store.SnapshotConfig{
		Backend: a.Config.Snapshot.Backend,
		Path:    a.Config.Snapshot.Path,
	})
	if err != nil {
		return aterr.Wrapf(err, aterr.CodeCLISetupFailure, "opening snapshot sink")
	}
	if sink == nil {
		return nil
	}
	a.Sink = sink

	snap, ok := a.Store.(store.Snapshotter)
	if !ok {
		a.logger.Warn("store backend does not support snapshots, persistence disabled",
			"backend", a.Config.Store.Backend)
		return nil
	}

	if a.Restored, err = snapshot.RestoreInto(ctx, sink, snap); err != nil {
		return aterr.Wrapf(err, aterr.CodeCLISetupFailure, "restoring snapshot from %s", a.Config.Snapshot.Path)
	}

	a.Persister, err = snapshot.NewPersister(snap, sink, a.Config.Snapshot.Interval, a.logger)
	if err != nil {
		return err
	}
	a.Persister.MarkClean()
	a.Persister.Start(ctx)
	return nil
}

// Close flushes pending changes to the snapshot sink and releases every
// subsystem. It is safe to call on a partially wired App.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Persister != nil {
		if err := a.Persister.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Sink != nil {
		if err := a.Sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Embedder != nil {
		if err := a.Embedder.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
