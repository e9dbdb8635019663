// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

// Package file persists store snapshots as a single JSON document on disk.
package file

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/atelier-dev/atelier/internal/store"
	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

func init() {
	store.RegisterSnapshotBackend("file", func(path string) (store.SnapshotSink, error) {
		s, err := New(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

var _ store.SnapshotSink = (*Sink)(nil)

// Sink writes snapshots in the store wire format. Every Save replaces the
// file atomically, so a crash leaves either the old or the new snapshot.
type Sink struct {
	mu   sync.Mutex
	path string
}

// New creates a sink writing to path. The parent directory is created when
// missing.
func New(path string) (*Sink, error) {
	if path == "" {
		return nil, aterr.New(aterr.CodeConfigValidateInvalidValue, "file sink: path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, aterr.Wrapf(err, aterr.CodeStoreDatabaseFailure, "creating snapshot directory for %s", path)
	}
	return &Sink{path: path}, nil
}

// Path returns the snapshot file location.
func (s *Sink) Path() string { return s.path }

func (s *Sink) Save(ctx context.Context, snap *store.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := store.Serialize(snap)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return aterr.Wrapf(err, aterr.CodeStoreSnapshotWriteFailed, "creating temp snapshot file")
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath) // no-op after a successful rename
	}()

	if _, err := tmp.Write(data); err != nil {
		return aterr.Wrapf(err, aterr.CodeStoreSnapshotWriteFailed, "writing snapshot")
	}
	if err := tmp.Sync(); err != nil {
		return aterr.Wrapf(err, aterr.CodeStoreSnapshotWriteFailed, "syncing snapshot")
	}
	if err := tmp.Close(); err != nil {
		return aterr.Wrapf(err, aterr.CodeStoreSnapshotWriteFailed, "closing snapshot")
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return aterr.Wrapf(err, aterr.CodeStoreSnapshotWriteFailed, "replacing snapshot %s", s.path)
	}
	return nil
}

func (s *Sink) Load(ctx context.Context) (*store.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	data, err := os.ReadFile(s.path)
	s.mu.Unlock()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, aterr.New(aterr.CodeStoreSnapshotNotFound, "no snapshot saved yet", aterr.Field("path", s.path))
		}
		return nil, aterr.Wrapf(err, aterr.CodeStoreDatabaseFailure, "reading snapshot %s", s.path)
	}
	return store.Deserialize(data)
}

// Close is a no-op; the sink holds no open handles between calls.
func (s *Sink) Close() error { return nil }
