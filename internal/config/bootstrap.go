// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package config

import (
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"

	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

//go:embed atelier.yaml.default
var DefaultConfigYAML []byte

// DefaultConfigPath returns ~/.config/atelier/atelier.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", aterr.Errorf(aterr.CodeConfigLoadReadFailure, "resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "atelier", "atelier.yaml"), nil
}

// WriteDefault writes the commented default config to path unless a file is
// already there. It reports whether a file was written.
func WriteDefault(path string, force bool) (bool, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return false, aterr.Errorf(aterr.CodeCLISetupFailure, "creating config directory: %w", err)
	}
	if err := os.WriteFile(path, DefaultConfigYAML, 0o600); err != nil {
		return false, aterr.Errorf(aterr.CodeCLISetupFailure, "writing config %s: %w", path, err)
	}
	slog.Info("wrote default config", "path", path)
	return true, nil
}
