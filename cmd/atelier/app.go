// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/atelier-dev/atelier/internal/embedding"
	"github.com/atelier-dev/atelier/internal/store"
	aterr "github.com/atelier-dev/atelier/pkg/errors"
	"github.com/atelier-dev/atelier/pkg/types"
)

// closeTimeout bounds the final snapshot flush once a command has finished.
const closeTimeout = 30 * time.Second

// withApp wires the application, runs fn and closes the app. Mutations made
// by fn are flushed to the snapshot sink on close, even when the command's
// context was cancelled by a signal.
func withApp(cmd *cobra.Command, v *viper.Viper, fn func(ctx context.Context, app *App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := loadApp(ctx, v)
	if err != nil {
		return err
	}
	runErr := fn(ctx, app)

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	closeErr := app.Close(closeCtx)
	if runErr != nil {
		return runErr
	}
	return closeErr
}

// parseVector parses a comma-separated list of floats, e.g. "0.1,0.2,0.3".
func parseVector(s string) (embedding.Vector, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	vec := make(embedding.Vector, 0, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, aterr.Errorf(aterr.CodeCLIInputInvalid, "embedding component %d: %w", i, err)
		}
		vec = append(vec, float32(f))
	}
	return vec, nil
}

func parseTypes(raw []string) ([]store.RecordType, error) {
	out := make([]store.RecordType, 0, len(raw))
	var errs []error
	for _, r := range raw {
		t, err := types.ParseRecordType(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, t)
	}
	if len(errs) > 0 {
		return nil, aterr.Errorf(aterr.CodeCLIInputInvalid, "invalid --type: %w", errors.Join(errs...))
	}
	return out, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
