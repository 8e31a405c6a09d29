// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

// Package observability provides HTTP endpoints for metrics and health checks.
package observability

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"

	"github.com/Srithwak/Audio-Draft/internal/auth"
)

// ReadinessChecker reports nil once the service can take traffic.
type ReadinessChecker func(ctx context.Context) error

// SessionCounter returns the number of live sessions.
type SessionCounter func(ctx context.Context) (int64, error)

const (
	readinessTimeout    = 2 * time.Second
	sessionCountTimeout = time.Second
)

// Metrics contains the Audio-Draft Prometheus metrics.
// It satisfies auth.Recorder.
type Metrics struct {
	RegistrationsTotal *prometheus.CounterVec
	LoginsTotal        *prometheus.CounterVec
	RequestsTotal      *prometheus.CounterVec
}

// NewMetrics creates and registers the Audio-Draft metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RegistrationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audiodraft_registrations_total",
				Help: "Total number of registration attempts by outcome",
			},
			[]string{"outcome"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audiodraft_logins_total",
				Help: "Total number of login attempts by outcome",
			},
			[]string{"outcome"},
		),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audiodraft_http_requests_total",
				Help: "Total number of API requests by route and status",
			},
			[]string{"route", "status"},
		),
	}

	reg.MustRegister(m.RegistrationsTotal)
	reg.MustRegister(m.LoginsTotal)
	reg.MustRegister(m.RequestsTotal)

	return m
}

// Registration implements auth.Recorder.
func (m *Metrics) Registration(outcome string) {
	m.RegistrationsTotal.WithLabelValues(outcome).Inc()
}

// Login implements auth.Recorder.
func (m *Metrics) Login(outcome string) {
	m.LoginsTotal.WithLabelValues(outcome).Inc()
}

// Request counts one API request.
func (m *Metrics) Request(route string, status int) {
	m.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// newActiveSessionsGauge samples count on every scrape. A failed count
// reports -1 rather than a stale value.
func newActiveSessionsGauge(count SessionCounter) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "audiodraft_active_sessions",
			Help: "Number of sessions currently stored",
		},
		func() float64 {
			ctx, cancel := context.WithTimeout(context.Background(), sessionCountTimeout)
			defer cancel()
			n, err := count(ctx)
			if err != nil {
				slog.Warn("active session count failed", "error", err)
				return -1
			}
			return float64(n)
		},
	)
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithSessionCounter exports the active sessions gauge backed by count.
func WithSessionCounter(count SessionCounter) ServerOption {
	return func(s *Server) {
		s.registry.MustRegister(newActiveSessionsGauge(count))
	}
}

// Server provides HTTP endpoints for observability (metrics and health checks).
type Server struct {
	addr       string
	listener   net.Listener
	httpServer *http.Server
	registry   *prometheus.Registry
	metrics    *Metrics
	isReady    ReadinessChecker
	running    atomic.Bool
}

// NewServer creates a new observability server.
// addr: listen address in "host:port" format (e.g., "127.0.0.1:9100", ":9100" for all interfaces).
func NewServer(addr string, readinessChecker ReadinessChecker, opts ...ServerOption) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s := &Server{
		addr:     addr,
		registry: registry,
		metrics:  NewMetrics(registry),
		isReady:  readinessChecker,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Metrics returns the custom metrics for recording application events.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start begins serving observability endpoints.
// The returned channel receives a serve failure, and is closed once the
// server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("observability server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/healthz/liveness", s.handleLiveness)
	mux.HandleFunc("/healthz/readiness", s.handleReadiness)

	httpSrv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("observability server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	slog.Info("observability server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the observability server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_observability_server").Wrap(err)
		}
	}

	slog.Info("observability server stopped")
	return nil
}

// Addr returns the address the server is listening on.
// Returns empty string if not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // health check write error is acceptable, client may disconnect
	w.Write([]byte("ok\n"))
}

// handleReadiness returns 200 when the readiness check passes, 503 otherwise.
// The failure detail goes to the log, not the response body.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if s.isReady != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := s.isReady(ctx); err != nil {
			slog.Warn("readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			//nolint:errcheck // health check write error is acceptable, client may disconnect
			w.Write([]byte("not ready\n"))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // health check write error is acceptable, client may disconnect
	w.Write([]byte("ok\n"))
}

// Compile-time interface check.
var _ auth.Recorder = (*Metrics)(nil)
