// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package sqlite

import (
	"github.com/atelier-dev/atelier/internal/store"
)

func init() {
	store.RegisterSnapshotBackend("sqlite", newSnapshotSink)
}

func newSnapshotSink(path string) (store.SnapshotSink, error) {
	s, err := NewSink(path)
	if err != nil {
		return nil, err
	}
	return s, nil
}
