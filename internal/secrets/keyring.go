// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package secrets

import (
	"encoding/json"
	"errors"
	"log/slog"
	"slices"

	"github.com/zalando/go-keyring"

	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

// indexSuffix names the entry holding a service's JSON key list. go-keyring
// cannot enumerate keys on its own.
const indexSuffix = "::index"

// KeyringStore implements Store on the OS keyring (Keychain, secret-service
// or Credential Manager).
type KeyringStore struct{}

func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func checkRef(op, service, key string) error {
	if service == "" {
		return aterr.New(aterr.CodeSecretInvalidInput, "secret "+op+": service must not be empty")
	}
	if key == "" {
		return aterr.New(aterr.CodeSecretInvalidInput, "secret "+op+": key must not be empty")
	}
	return nil
}

func (s *KeyringStore) Set(service, key, value string) error {
	if err := checkRef("set", service, key); err != nil {
		return err
	}
	if err := keyring.Set(service, key, value); err != nil {
		return aterr.Wrapf(err, aterr.CodeSecretStoreFailure, "storing secret %s/%s", service, key)
	}
	return s.updateIndex(service, func(keys []string) []string {
		if slices.Contains(keys, key) {
			return keys
		}
		return append(keys, key)
	})
}

func (s *KeyringStore) Get(service, key string) (string, error) {
	if err := checkRef("get", service, key); err != nil {
		return "", err
	}
	val, err := keyring.Get(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", aterr.Errorf(aterr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	if err != nil {
		return "", aterr.Wrapf(err, aterr.CodeSecretStoreFailure, "retrieving secret %s/%s", service, key)
	}
	return val, nil
}

func (s *KeyringStore) Delete(service, key string) error {
	if err := checkRef("delete", service, key); err != nil {
		return err
	}
	err := keyring.Delete(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return aterr.Errorf(aterr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	if err != nil {
		return aterr.Wrapf(err, aterr.CodeSecretDeleteFailure, "deleting secret %s/%s", service, key)
	}
	return s.updateIndex(service, func(keys []string) []string {
		return slices.DeleteFunc(keys, func(k string) bool { return k == key })
	})
}

// List returns the stored key names in sorted order.
func (s *KeyringStore) List(service string) ([]string, error) {
	keys, err := s.loadIndex(service)
	if err != nil {
		return nil, err
	}
	slices.Sort(keys)
	return keys, nil
}

func (s *KeyringStore) loadIndex(service string) ([]string, error) {
	raw, err := keyring.Get(service, service+indexSuffix)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, aterr.Wrapf(err, aterr.CodeSecretListFailure, "loading key index for %s", service)
	}

	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, aterr.Wrapf(err, aterr.CodeSecretListFailure, "decoding key index for %s", service)
	}
	return keys, nil
}

func (s *KeyringStore) updateIndex(service string, edit func([]string) []string) error {
	keys, err := s.loadIndex(service)
	if err != nil {
		return err
	}
	keys = edit(keys)

	indexKey := service + indexSuffix
	if len(keys) == 0 {
		if err := keyring.Delete(service, indexKey); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			slog.Debug("failed to remove empty key index", "service", service, "error", err)
		}
		return nil
	}

	data, err := json.Marshal(keys)
	if err != nil {
		return aterr.Wrapf(err, aterr.CodeSecretListFailure, "encoding key index for %s", service)
	}
	if err := keyring.Set(service, indexKey, string(data)); err != nil {
		return aterr.Wrapf(err, aterr.CodeSecretListFailure, "saving key index for %s", service)
	}
	return nil
}
