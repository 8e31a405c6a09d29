// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

package errutil_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Srithwak/Audio-Draft/pkg/errutil"
)

func TestLogError_WithOopsError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := oops.Code("STORAGE_FAILED").
		With("operation", "insert user").
		Errorf("connection reset")

	errutil.LogError(context.Background(), logger, "registration failed", err)

	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "ERROR", logEntry["level"])
	assert.Equal(t, "registration failed", logEntry["msg"])
	assert.Equal(t, "STORAGE_FAILED", logEntry["code"])
	assert.Equal(t, map[string]any{"operation": "insert user"}, logEntry["context"])
}

func TestLogError_WithStandardError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	errutil.LogError(context.Background(), logger, "operation failed", errors.New("standard error"))

	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "ERROR", logEntry["level"])
	assert.Contains(t, logEntry["error"], "standard error")
	assert.NotContains(t, logEntry, "code")
}

func TestCode(t *testing.T) {
	assert.Equal(t, "AUTH_DUPLICATE_EMAIL", errutil.Code(oops.Code("AUTH_DUPLICATE_EMAIL").Errorf("taken")))
	assert.Equal(t, "", errutil.Code(errors.New("plain")))
	assert.Equal(t, "", errutil.Code(oops.Errorf("no code")))
	assert.Equal(t, "", errutil.Code(nil))
}

func TestAssertHelpers(t *testing.T) {
	err := oops.Code("MY_CODE").With("user_id", "01J").Errorf("test error")
	errutil.AssertErrorCode(t, err, "MY_CODE")
	errutil.AssertErrorContext(t, err, "user_id", "01J")
	errutil.AssertNoErrorContext(t, err, "password", "handle")
}
