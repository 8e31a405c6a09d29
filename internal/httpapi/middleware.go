// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// requestLog logs each request once it completes and feeds the request
// counter. Routes are reported by pattern so paths never carry user data.
func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		if s.recorder != nil {
			s.recorder.Request(route, status)
		}

		level := slog.LevelDebug
		if status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		attrs := []any{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration", time.Since(start),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", len(c.Errors))
		}
		s.logger.Log(c.Request.Context(), level, "request served", attrs...)
	}
}
