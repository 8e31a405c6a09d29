// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

// Package errutil bridges oops errors to logs, responses and tests.
package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err at error level. For oops errors the code and context are
// logged as separate attributes so a failure can be found by code.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		logger.ErrorContext(ctx, msg, "error", err)
		return
	}
	attrs := []any{"error", oopsErr.Error()}
	if code := oopsErr.Code(); code != nil {
		attrs = append(attrs, "code", code)
	}
	if errCtx := oopsErr.Context(); len(errCtx) > 0 {
		attrs = append(attrs, "context", errCtx)
	}
	logger.ErrorContext(ctx, msg, attrs...)
}

// Code returns the oops code carried by err, or "" when there is none.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string) //nolint:errcheck // non-string codes read as empty
	return code
}
