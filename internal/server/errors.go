// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package server

import (
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

// httpError maps a store or engine error onto an HTTP status. Internal
// failures are logged and reported without detail.
func httpError(msg string, err error) error {
	switch {
	case aterr.IsNotFound(err):
		return huma.Error404NotFound(err.Error())
	case aterr.IsInvalidInput(err):
		return huma.Error400BadRequest(err.Error())
	case aterr.HasCode(err, aterr.CodeEmbedderCoolingDown):
		return huma.Error503ServiceUnavailable("embedding provider is cooling down")
	case aterr.IsUpstreamFailure(err):
		return huma.Error502BadGateway("embedding provider failed")
	default:
		slog.Error(msg, "error", err, "code", aterr.CodeOf(err))
		return huma.Error500InternalServerError("internal server error")
	}
}
