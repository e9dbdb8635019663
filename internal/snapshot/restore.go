// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package snapshot

import (
	"context"
	"log/slog"

	"github.com/atelier-dev/atelier/internal/store"
	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

// RestoreInto loads the last snapshot saved in sink into dst and returns the
// number of restored records. An empty sink is not an error: dst is left
// untouched and 0 is returned.
func RestoreInto(ctx context.Context, sink store.SnapshotSink, dst store.Snapshotter) (int, error) {
	snap, err := sink.Load(ctx)
	if err != nil {
		if aterr.IsNotFound(err) {
			slog.Debug("no snapshot to restore")
			return 0, nil
		}
		return 0, err
	}

	if err := dst.LoadSnapshot(ctx, snap); err != nil {
		return 0, err
	}

	slog.Info("restored context snapshot", "records", len(snap.Records), "taken_at", snap.TakenAt)
	return len(snap.Records), nil
}
