// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mileusna/useragent"

	"github.com/Srithwak/Audio-Draft/internal/auth"
	"github.com/Srithwak/Audio-Draft/pkg/errutil"
)

// SessionTokenHeader carries the session handle in the login response for
// clients that do not keep cookies.
const SessionTokenHeader = "X-Session-Token"

// Public messages. Internal error text never reaches a client.
const (
	msgRegistered       = "Registered."
	msgLoggedIn         = "Logged in."
	msgLoggedOut        = "Logged out."
	msgNotLoggedIn      = "Not logged in."
	msgLoginRequired    = "Login required."
	msgAllFields        = "All fields required."
	msgEmailAndPassword = "Email and password required."
	msgEmailTaken       = "Email already registered."
	msgBadCredentials   = "Invalid email or password."
	msgBadBody          = "Request body must be a JSON object."
	msgInternal         = "Internal server error."
	msgNotFound         = "Not found."
)

// Codes for failures that do not originate in the auth core.
const (
	codeBadRequest = "HTTP_BAD_REQUEST"
	codeNotFound   = "HTTP_NOT_FOUND"
	codeInternal   = "INTERNAL"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"` //nolint:gosec // request payload, never logged
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"` //nolint:gosec // request payload, never logged
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: msgBadBody, Code: codeBadRequest})
		return
	}

	summary, err := s.accounts.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		s.fail(c, err, messages{invalidInput: msgAllFields})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  msgRegistered,
		"id":       summary.ID,
		"username": summary.Username,
	})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: msgBadBody, Code: codeBadRequest})
		return
	}

	result, err := s.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(c, err, messages{invalidInput: msgEmailAndPassword})
		return
	}

	ua := useragent.Parse(c.Request.UserAgent())
	s.logger.InfoContext(c.Request.Context(), "session issued",
		"user_id", result.UserID,
		"client", clientName(ua),
		"os", ua.OS,
		"remote_ip", c.ClientIP(),
	)

	s.setSessionCookie(c, result.Handle)
	c.Header(SessionTokenHeader, result.Handle)
	c.JSON(http.StatusOK, gin.H{
		"message":  msgLoggedIn,
		"username": result.Username,
	})
}

func (s *Server) handleLogout(c *gin.Context) {
	s.accounts.Logout(c.Request.Context(), handleFrom(c, s.cfg.CookieName))
	s.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": msgLoggedOut})
}

func (s *Server) handleMe(c *gin.Context) {
	username, ok := s.accounts.WhoAmI(c.Request.Context(), handleFrom(c, s.cfg.CookieName))
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Error: msgNotLoggedIn, Code: auth.CodeUnauthenticated})
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": username})
}

func (s *Server) handleSongs(c *gin.Context) {
	songs, err := s.catalog.ListCatalog(c.Request.Context(), handleFrom(c, s.cfg.CookieName))
	if err != nil {
		s.fail(c, err, messages{unauthenticated: msgLoginRequired})
		return
	}
	c.JSON(http.StatusOK, gin.H{"songs": songs})
}

func (s *Server) handleNoRoute() gin.HandlerFunc {
	var files http.Handler
	if s.cfg.StaticDir != "" {
		files = http.FileServer(http.Dir(s.cfg.StaticDir))
	}
	return func(c *gin.Context) {
		if files == nil || strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, errorResponse{Error: msgNotFound, Code: codeNotFound})
			return
		}
		files.ServeHTTP(c.Writer, c.Request)
	}
}

// messages overrides the public text for kinds whose wording depends on
// the endpoint.
type messages struct {
	invalidInput    string
	unauthenticated string
}

// fail maps err to a status and public message by kind. Storage and
// unknown failures are logged with full detail and answered generically.
func (s *Server) fail(c *gin.Context, err error, msgs messages) {
	kind := auth.KindOf(err)

	var status int
	var resp errorResponse
	switch kind {
	case auth.KindInvalidInput:
		status = http.StatusBadRequest
		resp = errorResponse{Error: orDefault(msgs.invalidInput, msgAllFields), Code: auth.CodeInvalidInput}
	case auth.KindDuplicateEmail:
		status = http.StatusConflict
		resp = errorResponse{Error: msgEmailTaken, Code: auth.CodeDuplicateEmail}
	case auth.KindInvalidCredentials:
		status = http.StatusUnauthorized
		resp = errorResponse{Error: msgBadCredentials, Code: auth.CodeInvalidCredentials}
	case auth.KindUnauthenticated:
		status = http.StatusUnauthorized
		resp = errorResponse{Error: orDefault(msgs.unauthenticated, msgNotLoggedIn), Code: auth.CodeUnauthenticated}
	case auth.KindStorage:
		status = http.StatusInternalServerError
		resp = errorResponse{Error: msgInternal, Code: auth.CodeStorage}
	default:
		status = http.StatusInternalServerError
		resp = errorResponse{Error: msgInternal, Code: codeInternal}
	}

	if status >= http.StatusInternalServerError {
		errutil.LogError(c.Request.Context(), s.logger, "request failed", err)
	}
	_ = c.Error(err) //nolint:errcheck // attached for the request log
	c.JSON(status, resp)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// handleFrom returns the session handle from an "Authorization: Bearer"
// header, falling back to the session cookie. The header wins because a
// browser may still carry a cookie from an ended session. A missing handle
// is "".
func handleFrom(c *gin.Context, cookieName string) string {
	const prefix = "bearer "
	header := c.GetHeader("Authorization")
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		if handle := strings.TrimSpace(header[len(prefix):]); handle != "" {
			return handle
		}
	}
	if handle, err := c.Cookie(cookieName); err == nil {
		return handle
	}
	return ""
}

func (s *Server) setSessionCookie(c *gin.Context, handle string) {
	maxAge := 0
	if s.cfg.SessionTTL > 0 {
		maxAge = int(s.cfg.SessionTTL.Seconds())
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cfg.CookieName, handle, maxAge, "/", "", s.cfg.SecureCookie, true)
}

func (s *Server) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cfg.CookieName, "", -1, "/", "", s.cfg.SecureCookie, true)
}

// clientName renders a user agent as "<browser>/<device class>".
func clientName(ua useragent.UserAgent) string {
	var device string
	switch {
	case ua.Bot:
		device = "bot"
	case ua.Mobile:
		device = "phone"
	case ua.Tablet:
		device = "tablet"
	case ua.Desktop:
		device = "desktop"
	default:
		device = "unknown"
	}
	name := ua.Name
	if name == "" {
		name = "unknown"
	}
	return name + "/" + device
}
