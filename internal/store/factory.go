// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package store

import (
	"sort"
	"sync"

	"github.com/atelier-dev/atelier/internal/embedding"
	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

// ContextStoreFactory creates a context store from its configuration. The
// dimension passed in cfg has already been defaulted.
type ContextStoreFactory func(cfg *StorageConfig) (ContextStore, error)

// SnapshotSinkFactory creates a snapshot sink writing to path.
type SnapshotSinkFactory func(path string) (SnapshotSink, error)

var (
	storeFactories = map[string]ContextStoreFactory{}
	sinkFactories  = map[string]SnapshotSinkFactory{}
	factoriesMu    sync.RWMutex
)

// RegisterBackend registers a context store backend. Backend packages call
// this from init(). This function is goroutine-safe.
func RegisterBackend(name string, f ContextStoreFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	storeFactories[name] = f
}

// RegisterSnapshotBackend registers a snapshot sink backend. Backend packages
// call this from init(). This function is goroutine-safe.
func RegisterSnapshotBackend(name string, f SnapshotSinkFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	sinkFactories[name] = f
}

// resolveBackend returns the effective backend name, defaulting to "memory".
func resolveBackend(cfg *StorageConfig) string {
	if cfg.Backend == "" {
		return "memory"
	}
	return cfg.Backend
}

// NewContextStore creates the configured context store.
func NewContextStore(cfg *StorageConfig) (ContextStore, error) {
	backend := resolveBackend(cfg)

	factoriesMu.RLock()
	factory, ok := storeFactories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, aterr.Errorf(aterr.CodeStoreBackendUnsupported, "unsupported storage backend: %q", backend)
	}

	resolved := *cfg
	if resolved.Dimension <= 0 {
		resolved.Dimension = embedding.DefaultDimension
	}

	return factory(&resolved)
}

// NewSnapshotSink creates the configured snapshot sink. It returns a nil sink
// and no error when the backend is "none".
func NewSnapshotSink(cfg *SnapshotConfig) (SnapshotSink, error) {
	if cfg.Backend == "none" {
		return nil, nil
	}

	factoriesMu.RLock()
	factory, ok := sinkFactories[cfg.Backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, aterr.Errorf(aterr.CodeStoreBackendUnsupported, "unsupported snapshot backend: %q", cfg.Backend)
	}
	if cfg.Path == "" {
		return nil, aterr.Errorf(aterr.CodeConfigValidateInvalidValue, "snapshot backend %q requires a path", cfg.Backend)
	}

	return factory(cfg.Path)
}

// Backends lists the registered context store and snapshot backends.
func Backends() (stores, sinks []string) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	for name := range storeFactories {
		stores = append(stores, name)
	}
	for name := range sinkFactories {
		sinks = append(sinks, name)
	}
	sort.Strings(stores)
	sort.Strings(sinks)
	return stores, sinks
}
