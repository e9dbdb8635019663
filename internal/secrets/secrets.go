// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package secrets

// DefaultService is the keyring service under which atelier keeps its keys.
const DefaultService = "atelier"

// Store provides secure secret storage operations.
type Store interface {
	// Set saves value under service/key, replacing any previous value.
	Set(service, key, value string) error

	// Get returns the secret for service/key. A missing secret carries
	// CodeSecretNotFound.
	Get(service, key string) (string, error)

	Delete(service, key string) error

	// List returns the key names stored under service.
	List(service string) ([]string, error)
}

// APIKeyName is the key under which an embedding provider's API key is
// stored, e.g. "openai-api-key".
func APIKeyName(provider string) string {
	return provider + "-api-key"
}

// URI returns the keyring:// reference for service/key, suitable for use as
// a config value.
func URI(service, key string) string {
	return keyringScheme + service + "/" + key
}
