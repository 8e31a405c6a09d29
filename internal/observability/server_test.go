// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/Srithwak/Audio-Draft/internal/auth"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var healthClient = &http.Client{
	Transport: &http.Transport{DisableKeepAlives: true},
	Timeout:   5 * time.Second,
}

func ready(context.Context) error { return nil }

func startServer(t *testing.T, checker ReadinessChecker, opts ...ServerOption) *Server {
	t.Helper()
	server := NewServer("127.0.0.1:0", checker, opts...)
	if _, err := server.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	})
	return server
}

func get(t *testing.T, server *Server, path string) (int, string) {
	t.Helper()
	resp, err := healthClient.Get("http://" + server.Addr() + path)
	if err != nil {
		t.Fatalf("failed to GET %s: %v", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestServer_Metrics(t *testing.T) {
	server := startServer(t, ready)

	if server.Addr() == "" {
		t.Fatal("server address is empty")
	}

	status, body := get(t, server, "/metrics")
	if status != http.StatusOK {
		t.Errorf("expected status 200, got %d", status)
	}
	if !strings.Contains(body, "# HELP") || !strings.Contains(body, "# TYPE") {
		t.Error("expected Prometheus format with HELP and TYPE comments")
	}
	if !strings.Contains(body, "go_") {
		t.Error("expected go_* metrics")
	}
	if !strings.Contains(body, "process_") {
		t.Error("expected process_* metrics")
	}
}

func TestServer_AuthOutcomesAreCounted(t *testing.T) {
	server := startServer(t, ready)

	var recorder auth.Recorder = server.Metrics()
	recorder.Registration(auth.OutcomeSuccess)
	recorder.Registration(auth.OutcomeDuplicateEmail)
	recorder.Login(auth.OutcomeInvalidCredentials)
	recorder.Login(auth.OutcomeInvalidCredentials)
	server.Metrics().Request("/api/songs", http.StatusUnauthorized)

	_, body := get(t, server, "/metrics")

	for _, want := range []string{
		`audiodraft_registrations_total{outcome="success"} 1`,
		`audiodraft_registrations_total{outcome="duplicate_email"} 1`,
		`audiodraft_logins_total{outcome="invalid_credentials"} 2`,
		`audiodraft_http_requests_total{route="/api/songs",status="401"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in metrics output", want)
		}
	}
}

func TestServer_ActiveSessionsGauge(t *testing.T) {
	server := startServer(t, ready, WithSessionCounter(func(context.Context) (int64, error) {
		return 3, nil
	}))

	_, body := get(t, server, "/metrics")
	if !strings.Contains(body, "audiodraft_active_sessions 3") {
		t.Error("expected active sessions gauge to be 3")
	}
}

func TestServer_ActiveSessionsGaugeOnFailure(t *testing.T) {
	server := startServer(t, ready, WithSessionCounter(func(context.Context) (int64, error) {
		return 0, errors.New("connection refused")
	}))

	_, body := get(t, server, "/metrics")
	if !strings.Contains(body, "audiodraft_active_sessions -1") {
		t.Error("expected active sessions gauge to be -1 on count failure")
	}
}

func TestServer_LivenessReturns200(t *testing.T) {
	server := startServer(t, nil)

	status, body := get(t, server, "/healthz/liveness")
	if status != http.StatusOK {
		t.Errorf("expected status 200, got %d", status)
	}
	if strings.TrimSpace(body) != "ok" {
		t.Errorf("expected body 'ok', got %q", body)
	}
}

func TestServer_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		checker    ReadinessChecker
		wantStatus int
		wantBody   string
	}{
		{"ready", ready, http.StatusOK, "ok"},
		{"nil checker", nil, http.StatusOK, "ok"},
		{
			"database unreachable",
			func(context.Context) error { return errors.New("dial tcp: connection refused") },
			http.StatusServiceUnavailable,
			"not ready",
		},
		{
			"checker receives deadline",
			func(ctx context.Context) error {
				if _, ok := ctx.Deadline(); !ok {
					return errors.New("no deadline")
				}
				return nil
			},
			http.StatusOK,
			"ok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := startServer(t, tt.checker)

			status, body := get(t, server, "/healthz/readiness")
			if status != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, status)
			}
			if strings.TrimSpace(body) != tt.wantBody {
				t.Errorf("expected body %q, got %q", tt.wantBody, body)
			}
		})
	}
}

func TestServer_DoubleStartFails(t *testing.T) {
	server := startServer(t, nil)

	if _, err := server.Start(); err == nil {
		t.Error("expected error on double start, got nil")
	}
}

func TestServer_StopIdempotent(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		t.Errorf("stop without start should not error: %v", err)
	}
}

func TestServer_ErrorChannelReportsServeErrors(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)

	errCh, err := server.Start()
	if err != nil {
		t.Fatalf("failed to start server: %v", err)
	}

	// Closing the listener underneath Serve makes it fail.
	if server.listener != nil {
		_ = server.listener.Close()
	}

	select {
	case serveErr := <-errCh:
		if serveErr == nil {
			t.Error("expected an error from the error channel after closing listener")
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for error on error channel")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Stop(ctx)
}

func TestServer_ErrorChannelClosesOnNormalShutdown(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)

	errCh, err := server.Start()
	if err != nil {
		t.Fatalf("failed to start server: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		t.Fatalf("failed to stop server: %v", err)
	}

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			t.Errorf("unexpected error on normal shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for error channel to close")
	}
}
