// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package openai

import (
	"context"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/atelier-dev/atelier/internal/embedding"
	"github.com/atelier-dev/atelier/internal/provider"
	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

// DefaultModel supports shortened output through the dimensions parameter.
const DefaultModel = "text-embedding-3-small"

func init() {
	provider.RegisterFactory(provider.ProviderOpenAI, func(cfg provider.Config) (provider.Embedder, error) {
		e, err := New(cfg)
		if err != nil {
			return nil, err
		}
		return e, nil
	})
}

// Embedder implements provider.Embedder using the OpenAI Embeddings API.
type Embedder struct {
	client openaisdk.Client
	model  string
	dim    int
}

// New creates an OpenAI embedder. Returns an error if the API key is missing.
func New(cfg provider.Config) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, aterr.New(aterr.CodeEmbedderRequestInvalid, "openai: missing api_key in config",
			aterr.FieldProvider("openai"))
	}
	if cfg.Dimension <= 0 {
		return nil, aterr.Errorf(aterr.CodeEmbedderRequestInvalid, "openai: dimension must be positive, got %d", cfg.Dimension)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Embedder{
		client: openaisdk.NewClient(opts...),
		model:  model,
		dim:    cfg.Dimension,
	}, nil
}

func (e *Embedder) Name() string { return string(provider.ProviderOpenAI) }

func (e *Embedder) Model() string { return e.model }

func (e *Embedder) Available(_ context.Context) bool { return true }

// Embed requests a single float embedding truncated to the configured dimension.
func (e *Embedder) Embed(ctx context.Context, text string) (embedding.Vector, error) {
	if strings.TrimSpace(text) == "" {
		return nil, aterr.New(aterr.CodeEmbedderRequestInvalid, "openai: text must not be empty",
			aterr.FieldProvider("openai"))
	}

	resp, err := e.client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input:          openaisdk.EmbeddingNewParamsInputUnion{OfString: openaisdk.String(text)},
		Model:          openaisdk.EmbeddingModel(e.model),
		Dimensions:     openaisdk.Int(int64(e.dim)),
		EncodingFormat: openaisdk.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, aterr.Wrap(err, aterr.CodeEmbedderUpstreamFailure, "openai: embeddings request",
			aterr.FieldProvider("openai"))
	}
	if len(resp.Data) == 0 {
		return nil, aterr.New(aterr.CodeEmbedderResponseInvalid, "openai: response carried no embeddings",
			aterr.FieldProvider("openai"))
	}

	values := resp.Data[0].Embedding
	vec := make(embedding.Vector, len(values))
	for i, v := range values {
		vec[i] = float32(v)
	}
	return vec, nil
}

func (e *Embedder) Close() error { return nil }
