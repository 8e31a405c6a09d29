// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

// Package httpapi exposes registration, login and the song catalog as a
// JSON API over gin.
package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/Srithwak/Audio-Draft/internal/auth"
	"github.com/Srithwak/Audio-Draft/internal/catalog"
)

// DefaultCookieName names the session cookie when none is configured.
const DefaultCookieName = "audiodraft_session"

// Accounts is the authentication surface the API drives.
// *auth.Authenticator satisfies it.
type Accounts interface {
	Register(ctx context.Context, username, email, password string) (auth.Summary, error)
	Login(ctx context.Context, email, password string) (auth.LoginResult, error)
	Logout(ctx context.Context, handle string)
	WhoAmI(ctx context.Context, handle string) (string, bool)
}

// Catalog lists songs for a session. *catalog.Service satisfies it.
type Catalog interface {
	ListCatalog(ctx context.Context, handle string) ([]catalog.Song, error)
}

// RequestRecorder counts served requests. *observability.Metrics satisfies it.
type RequestRecorder interface {
	Request(route string, status int)
}

// Config holds the listener and cookie settings.
type Config struct {
	Addr string
	// CORSOrigins lists allowed origins; "*" or an empty list allows any.
	CORSOrigins  []string
	CookieName   string
	SecureCookie bool
	// SessionTTL bounds the cookie lifetime. Zero issues a browser-session cookie.
	SessionTTL time.Duration
	// StaticDir, when set, is served for every path outside /api.
	StaticDir string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRequestRecorder counts every request by route and status.
func WithRequestRecorder(recorder RequestRecorder) Option {
	return func(s *Server) {
		s.recorder = recorder
	}
}

// Server is the public HTTP API.
type Server struct {
	cfg      Config
	accounts Accounts
	catalog  Catalog
	logger   *slog.Logger
	recorder RequestRecorder
	engine   *gin.Engine

	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer builds the router. It does not listen until Start.
func NewServer(cfg Config, accounts Accounts, songs Catalog, opts ...Option) (*Server, error) {
	if accounts == nil {
		return nil, oops.Code("HTTPAPI_INVALID").Errorf("accounts service is required")
	}
	if songs == nil {
		return nil, oops.Code("HTTPAPI_INVALID").Errorf("catalog service is required")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}

	s := &Server{
		cfg:      cfg,
		accounts: accounts,
		catalog:  songs,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	corsConfig, err := corsConfigFor(cfg.CORSOrigins)
	if err != nil {
		return nil, err
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLog(), cors.New(corsConfig))
	s.routes(engine)
	s.engine = engine
	return s, nil
}

func corsConfigFor(origins []string) (cors.Config, error) {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	cfg.ExposeHeaders = []string{SessionTokenHeader}

	var explicit []string
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		switch origin {
		case "":
		case "*":
			cfg.AllowAllOrigins = true
		default:
			explicit = append(explicit, origin)
		}
	}
	if len(explicit) == 0 {
		cfg.AllowAllOrigins = true
	}
	if !cfg.AllowAllOrigins {
		cfg.AllowOrigins = explicit
		cfg.AllowCredentials = true
	}
	if err := cfg.Validate(); err != nil {
		return cors.Config{}, oops.Code("HTTPAPI_CORS_INVALID").
			With("origins", origins).
			Wrap(err)
	}
	return cfg, nil
}

func (s *Server) routes(engine *gin.Engine) {
	api := engine.Group("/api")
	{
		api.POST("/register", s.handleRegister)
		api.POST("/login", s.handleLogin)
		api.POST("/logout", s.handleLogout)
		api.GET("/me", s.handleMe)
		api.GET("/songs", s.handleSongs)
	}

	engine.NoRoute(s.handleNoRoute())
}

// Handler returns the router for use with httptest or a custom server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start begins serving the API.
// The returned channel receives a serve failure, and is closed once the
// server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.cfg.Addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_api_server").Wrap(err)
		}
	}
	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the address the server is listening on, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
