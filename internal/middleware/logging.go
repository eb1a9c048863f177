// Package middleware provides Echo middleware for request logging, metrics
// and rate limiting.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"holy-cors/internal/service"
)

// RequestLogger returns an Echo middleware that logs each request with slog.
// Paths embed target URLs, so credential-looking parameters are redacted.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()

			status := responseStatus(c, err)
			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}

			logger.Log(req.Context(), level, "request",
				"method", req.Method,
				"path", service.Redact(req.URL.Path),
				"query", service.Redact(req.URL.RawQuery),
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", res.Header().Get(echo.HeaderXRequestID),
				"remote_ip", c.RealIP(),
				"origin", req.Header.Get("Origin"),
				"bytes_out", res.Size,
			)

			return err
		}
	}
}
