// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package provider

import (
	"context"
	"io"
	"net/http"
	"strings"

	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

const (
	openAIModelsURL = "https://api.openai.com/v1/models"
	googleModelsURL = "https://generativelanguage.googleapis.com/v1beta/models"
)

// ValidateKey makes a lightweight call to the provider's models endpoint to
// confirm the API key is accepted. A non-empty baseURL replaces the
// provider's public endpoint and has "/models" appended.
func ValidateKey(ctx context.Context, client *http.Client, name Name, key, baseURL string) error {
	if client == nil {
		client = http.DefaultClient
	}

	var (
		url     string
		headers = map[string]string{}
	)
	switch name {
	case ProviderOpenAI:
		url = openAIModelsURL
		headers["Authorization"] = "Bearer " + key
	case ProviderGoogle:
		url = googleModelsURL
		headers["x-goog-api-key"] = key
	default:
		return aterr.Errorf(aterr.CodeEmbedderKeyInvalid, "unknown provider: %s", name)
	}
	if baseURL != "" {
		url = strings.TrimRight(baseURL, "/") + "/models"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return aterr.Errorf(aterr.CodeEmbedderKeyCheckFailed, "building validation request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return aterr.Errorf(aterr.CodeEmbedderKeyCheckFailed, "validating %s key: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return aterr.Errorf(aterr.CodeEmbedderKeyInvalid, "invalid %s API key (HTTP %d)", name, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return aterr.Errorf(aterr.CodeEmbedderKeyCheckFailed, "%s validation failed (HTTP %d)", name, resp.StatusCode)
	}
	return nil
}
