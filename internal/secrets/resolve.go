// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package secrets

import (
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

const keyringScheme = "keyring://"

func IsKeyringURI(value string) bool {
	return strings.HasPrefix(value, keyringScheme)
}

// ParseKeyringURI splits keyring://service/key. The key may contain slashes.
func ParseKeyringURI(uri string) (service, key string, err error) {
	if !IsKeyringURI(uri) {
		return "", "", aterr.Errorf(aterr.CodeSecretInvalidInput, "not a keyring URI: %q", uri)
	}
	service, key, ok := strings.Cut(strings.TrimPrefix(uri, keyringScheme), "/")
	if !ok || service == "" || key == "" {
		return "", "", aterr.Errorf(aterr.CodeSecretInvalidInput,
			"invalid keyring URI %q: expected keyring://service/key", uri)
	}
	return service, key, nil
}

// Resolve returns the secret a keyring:// value points at. Other values are
// returned unchanged.
func Resolve(store Store, value string) (string, error) {
	if !IsKeyringURI(value) {
		return value, nil
	}
	service, key, err := ParseKeyringURI(value)
	if err != nil {
		return "", err
	}
	secret, err := store.Get(service, key)
	if err != nil {
		return "", aterr.Wrapf(err, aterr.CodeSecretResolveFailure, "resolving %q", value)
	}
	return secret, nil
}

// ResolveViperSecrets replaces every keyring:// string in v with the secret
// it names and returns the number of values resolved. Values that fail to
// resolve are left in place and logged; the consumer surfaces the error when
// it tries to use them.
func ResolveViperSecrets(v *viper.Viper, store Store, logger *slog.Logger) int {
	if logger == nil {
		logger = slog.Default()
	}

	resolved := 0
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if !IsKeyringURI(val) {
			continue
		}
		secret, err := Resolve(store, val)
		if err != nil {
			logger.Warn("keyring reference not resolved", "config_key", key, "error", err)
			continue
		}
		v.Set(key, secret)
		resolved++
	}
	return resolved
}
