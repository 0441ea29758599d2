// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quillboard Contributors

// Package errutil provides oops-aware structured error logging helpers.
package errutil

import (
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs an error at ERROR level with structured context if it's an
// oops error. For oops errors, it extracts and logs the message, code, and
// context map. For standard errors, it logs the error string.
func LogError(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, attrs(err)...)
}

// LogWarn logs an error at WARN level with the same context extraction as
// LogError. Used for recoverable conditions such as failed mail delivery.
func LogWarn(logger *slog.Logger, msg string, err error) {
	logger.Warn(msg, attrs(err)...)
}

func attrs(err error) []any {
	if oopsErr, ok := oops.AsOops(err); ok {
		out := []any{
			"error", oopsErr.Error(),
		}
		if code := oopsErr.Code(); code != "" {
			out = append(out, "code", code)
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			out = append(out, "context", ctx)
		}
		return out
	}
	return []any{"error", err}
}
