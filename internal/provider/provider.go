// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package provider

import (
	"context"

	"github.com/atelier-dev/atelier/internal/embedding"
)

// Embedder turns free-form text into a vector using a hosted model.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) (embedding.Vector, error)
	Available(ctx context.Context) bool
	Close() error
}

// Name identifies a supported embedding provider.
type Name string

const (
	ProviderNone   Name = "none"
	ProviderOpenAI Name = "openai"
	ProviderGoogle Name = "google"
)

// Config selects and parameterizes an embedding provider.
type Config struct {
	Provider   Name
	APIKey     string
	BaseURL    string // optional, useful for testing against a mock server
	Model      string // provider default when empty
	Dimension  int
	MaxRetries int
}
