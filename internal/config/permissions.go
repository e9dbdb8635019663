// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

//go:build !windows

package config

import (
	"io/fs"
	"log/slog"
	"os"
)

// WarnInsecurePermissions logs a warning when the config file at path is
// readable by group or others. An embedder API key may be stored in it.
// It reports whether a warning was emitted.
func WarnInsecurePermissions(path string, logger *slog.Logger) bool {
	if path == "" {
		return false
	}
	if logger == nil {
		logger = slog.Default()
	}

	info, err := os.Stat(path)
	if err != nil {
		logger.Debug("could not stat config file for permission check", "path", path, "error", err)
		return false
	}

	const groupOrOtherRead fs.FileMode = 0o044
	if info.Mode().Perm()&groupOrOtherRead == 0 {
		return false
	}
	logger.Warn("config file is readable by other users, api keys may be exposed",
		"path", path,
		"mode", info.Mode(),
		"recommended", "0600",
	)
	return true
}
