// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

// Package logging builds the process logger: slog with service metadata,
// OpenTelemetry trace ids and redaction of secret attributes.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/trace"
)

// Redacted replaces the value of any secret attribute.
const Redacted = "[REDACTED]"

// secretKeys are attribute keys whose values never reach the output.
var secretKeys = map[string]struct{}{
	"password":      {},
	"password_hash": {},
	"handle":        {},
	"session_token": {},
	"authorization": {},
}

// Options configures Setup.
type Options struct {
	Service string
	Version string
	// Format is "json" (default) or "text".
	Format string
	// Level is debug, info (default), warn or error.
	Level string
	// Writer defaults to os.Stderr.
	Writer io.Writer
}

// traceHandler stamps every record with the service identity and the
// trace/span ids found in the context.
type traceHandler struct {
	next    slog.Handler
	service string
	version string
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(
		slog.String("service", h.service),
		slog.String("version", h.version),
	)

	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.HasTraceID() {
		r.AddAttrs(slog.String("trace_id", spanCtx.TraceID().String()))
	}
	if spanCtx.HasSpanID() {
		r.AddAttrs(slog.String("span_id", spanCtx.SpanID().String()))
	}

	//nolint:wrapcheck // Handler interface requires unwrapped error passthrough
	return h.next.Handle(ctx, r)
}

func (h *traceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{next: h.next.WithAttrs(attrs), service: h.service, version: h.version}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{next: h.next.WithGroup(name), service: h.service, version: h.version}
}

// ParseLevel maps a level name to a slog.Level. Empty means info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, oops.Code("LOG_LEVEL_INVALID").
			With("level", name).
			Errorf("unknown log level %q", name)
	}
}

// Setup creates a configured slog.Logger.
func Setup(opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: level, ReplaceAttr: redact}

	var base slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "json":
		base = slog.NewJSONHandler(w, handlerOpts)
	case "text":
		base = slog.NewTextHandler(w, handlerOpts)
	default:
		return nil, oops.Code("LOG_FORMAT_INVALID").
			With("format", opts.Format).
			Errorf("unknown log format %q", opts.Format)
	}

	return slog.New(&traceHandler{next: base, service: opts.Service, version: opts.Version}), nil
}

// SetDefault builds a logger with Setup and installs it as slog's default.
func SetDefault(opts Options) (*slog.Logger, error) {
	logger, err := Setup(opts)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if _, secret := secretKeys[strings.ToLower(a.Key)]; secret {
		return slog.String(a.Key, Redacted)
	}
	return a
}
