// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package provider

import (
	"sort"
	"sync"

	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

// Factory builds an Embedder from its configuration.
type Factory func(cfg Config) (Embedder, error)

var (
	mu        sync.RWMutex
	factories = make(map[Name]Factory)
)

// RegisterFactory makes a provider available under name. Provider packages
// call it from init.
func RegisterFactory(name Name, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = f
}

// Registered returns the names of all registered providers, sorted.
func Registered() []Name {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]Name, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// New builds the embedder selected by cfg.Provider. An empty or "none"
// provider returns a nil Embedder and no error: text queries stay disabled.
func New(cfg Config) (Embedder, error) {
	if cfg.Provider == "" || cfg.Provider == ProviderNone {
		return nil, nil
	}
	if cfg.Dimension <= 0 {
		return nil, aterr.Errorf(aterr.CodeEmbedderRequestInvalid,
			"embedder dimension must be positive, got %d", cfg.Dimension)
	}

	mu.RLock()
	f, ok := factories[cfg.Provider]
	mu.RUnlock()
	if !ok {
		return nil, aterr.New(aterr.CodeEmbedderNotFound,
			"embedding provider not found: "+string(cfg.Provider),
			aterr.FieldProvider(string(cfg.Provider)))
	}
	return f(cfg)
}
