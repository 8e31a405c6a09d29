// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/Srithwak/Audio-Draft/pkg/errutil"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "Failed to parse JSON")
	return entry
}

func TestSetup_JSONIncludesServiceMetadata(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup(Options{Service: "audiodraft", Version: "1.0.0", Format: "json", Writer: &buf})
	require.NoError(t, err)

	logger.Info("test message", "key", "value")

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "audiodraft", entry["service"])
	assert.Equal(t, "1.0.0", entry["version"])
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "value", entry["key"])
}

func TestSetup_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup(Options{Service: "audiodraft", Format: "text", Writer: &buf})
	require.NoError(t, err)

	logger.Info("plain")

	assert.Contains(t, buf.String(), "msg=plain")
	assert.Contains(t, buf.String(), "service=audiodraft")
}

func TestSetup_DefaultFormatIsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup(Options{Service: "audiodraft", Writer: &buf})
	require.NoError(t, err)

	logger.Info("test message")

	decodeEntry(t, &buf)
}

func TestSetup_UnknownFormat(t *testing.T) {
	_, err := Setup(Options{Format: "xml"})
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "LOG_FORMAT_INVALID")
}

func TestSetup_TraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup(Options{Service: "audiodraft", Writer: &buf})
	require.NoError(t, err)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	logger.InfoContext(ctx, "traced message")

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entry["span_id"])
}

func TestSetup_NoTraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup(Options{Service: "audiodraft", Writer: &buf})
	require.NoError(t, err)

	logger.Info("no trace message")

	entry := decodeEntry(t, &buf)
	assert.NotContains(t, entry, "trace_id")
	assert.NotContains(t, entry, "span_id")
}

func TestSetup_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup(Options{Level: "warn", Writer: &buf})
	require.NoError(t, err)

	logger.Info("dropped")
	assert.Empty(t, buf.String())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestSetup_RedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup(Options{Writer: &buf})
	require.NoError(t, err)

	logger.With("session_token", "abc123").Info("login", "password", "hunter2", "Handle", "h-1", "email", "a@x.io")

	out := buf.String()
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "abc123")
	assert.NotContains(t, out, "h-1")

	entry := decodeEntry(t, &buf)
	assert.Equal(t, Redacted, entry["password"])
	assert.Equal(t, Redacted, entry["session_token"])
	assert.Equal(t, "a@x.io", entry["email"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseLevel("loud")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "LOG_LEVEL_INVALID")
	errutil.AssertErrorContext(t, err, "level", "loud")
}

func TestSetDefault(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	logger, err := SetDefault(Options{Service: "test-service", Version: "2.0.0"})
	require.NoError(t, err)
	assert.Same(t, logger, slog.Default())
}
