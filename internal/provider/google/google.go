// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package google

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"github.com/atelier-dev/atelier/internal/embedding"
	"github.com/atelier-dev/atelier/internal/provider"
	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

const DefaultModel = "gemini-embedding-001"

func init() {
	provider.RegisterFactory(provider.ProviderGoogle, func(cfg provider.Config) (provider.Embedder, error) {
		e, err := New(cfg)
		if err != nil {
			return nil, err
		}
		return e, nil
	})
}

// Embedder implements provider.Embedder using the Gemini embedContent API.
type Embedder struct {
	client *genai.Client
	model  string
	dim    int
}

// New creates a Google embedder. Returns an error if the API key is missing.
func New(cfg provider.Config) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, aterr.New(aterr.CodeEmbedderRequestInvalid, "google: missing api_key in config",
			aterr.FieldProvider("google"))
	}
	if cfg.Dimension <= 0 {
		return nil, aterr.Errorf(aterr.CodeEmbedderRequestInvalid, "google: dimension must be positive, got %d", cfg.Dimension)
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(context.Background(), clientCfg)
	if err != nil {
		return nil, aterr.Wrapf(err, aterr.CodeEmbedderUpstreamFailure, "google: creating client")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Embedder{client: client, model: model, dim: cfg.Dimension}, nil
}

func (e *Embedder) Name() string { return string(provider.ProviderGoogle) }

func (e *Embedder) Model() string { return e.model }

func (e *Embedder) Available(_ context.Context) bool { return true }

func (e *Embedder) Embed(ctx context.Context, text string) (embedding.Vector, error) {
	if strings.TrimSpace(text) == "" {
		return nil, aterr.New(aterr.CodeEmbedderRequestInvalid, "google: text must not be empty",
			aterr.FieldProvider("google"))
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr[int32](int32(e.dim)),
	})
	if err != nil {
		return nil, aterr.Wrap(err, aterr.CodeEmbedderUpstreamFailure, "google: embedContent request",
			aterr.FieldProvider("google"))
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, aterr.New(aterr.CodeEmbedderResponseInvalid, "google: response carried no embeddings",
			aterr.FieldProvider("google"))
	}
	return embedding.New(resp.Embeddings[0].Values...), nil
}

func (e *Embedder) Close() error { return nil }
