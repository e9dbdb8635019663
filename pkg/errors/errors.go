// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeStoreRecordNotFound      Code = "store.record.get.not_found"
	CodeStoreRecordInvalid       Code = "store.record.invalid_input"
	CodeStoreQueryInvalid        Code = "store.query.invalid_input"
	CodeStoreSnapshotInvalid     Code = "store.snapshot.invalid_format"
	CodeStoreDatabaseFailure     Code = "store.database.failure"
	CodeStoreBackendUnsupported  Code = "store.backend.unsupported"
	CodeStoreSnapshotNotFound    Code = "store.snapshot.load.not_found"
	CodeStoreSnapshotWriteFailed Code = "store.snapshot.write.failure"

	CodeEmbeddingDimensionMismatch Code = "embedding.dimension.invalid"
	CodeEmbeddingValueInvalid      Code = "embedding.value.invalid"
	CodeEmbeddingEncodingInvalid   Code = "embedding.encoding.invalid_format"

	CodeEmbedderUpstreamFailure Code = "embedder.upstream.failure"
	CodeEmbedderRequestInvalid  Code = "embedder.request.invalid_input"
	CodeEmbedderResponseInvalid Code = "embedder.response.invalid_format"
	CodeEmbedderNotFound        Code = "embedder.registry.not_found"
	CodeEmbedderCoolingDown     Code = "embedder.health.upstream.failure"
	CodeEmbedderKeyInvalid      Code = "embedder.key.invalid"
	CodeEmbedderKeyCheckFailed  Code = "embedder.key.upstream.failure"

	CodeSecretInvalidInput   Code = "secret.input.invalid_input"
	CodeSecretNotFound       Code = "secret.get.not_found"
	CodeSecretStoreFailure   Code = "secret.store.failure"
	CodeSecretDeleteFailure  Code = "secret.delete.failure"
	CodeSecretListFailure    Code = "secret.list.failure"
	CodeSecretResolveFailure Code = "secret.resolve.failure"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeServerConfigInvalid  Code = "server.config.invalid"
	CodeServerListenFailure  Code = "server.listen.failure"
	CodeServerShutdownFailed Code = "server.shutdown.failure"

	CodeCLISetupFailure Code = "cli.setup.failure"
	CodeCLIInputInvalid Code = "cli.input.invalid"

	CodeInternalFailure Code = "internal.failure"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// FieldValue creates a structured error field.
func FieldValue(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

// Field is kept as the primary helper for terse callsites.
func Field(key string, value any) Attr {
	return FieldValue(key, value)
}

func FieldRecordID(value string) Attr {
	return Field("record_id", value)
}

func FieldProjectID(value string) Attr {
	return Field("project_id", value)
}

func FieldProvider(value string) Attr {
	return Field("provider", value)
}

func FieldDimension(want, got int) Attr {
	return Field("dimension", fmt.Sprintf("want=%d got=%d", want, got))
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format"
}

// IsInvalidEmbedding reports whether err was raised because a vector had the
// wrong dimension, carried a non-finite component, or could not be decoded.
func IsInvalidEmbedding(err error) bool {
	return strings.HasPrefix(string(CodeOf(err)), "embedding.") && IsInvalidInput(err)
}

func IsUpstreamFailure(err error) bool {
	code := CodeOf(err)
	return strings.Contains(string(code), "upstream") && reason(code) == "failure"
}

// ExitCode maps an error onto a process exit status for the CLI.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case IsNotFound(err):
		return 3
	case IsInvalidInput(err):
		return 2
	default:
		return 1
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeInternalFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
