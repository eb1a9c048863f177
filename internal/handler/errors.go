package handler

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"holy-cors/internal/cors"
	"holy-cors/internal/origin"
	"holy-cors/internal/service"
	"holy-cors/internal/target"
)

// mapError is the single place where pipeline errors become HTTP responses.
func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	status, msg := classify(err)

	attrs := []any{
		"err", service.Redact(err.Error()),
		"status", status,
		"path", service.Redact(c.Request().URL.Path),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("proxy error", attrs...)
	} else {
		h.logger.Warn("request rejected", attrs...)
	}

	return writeError(c, status, msg)
}

// classify maps an error to its status code and client-facing message.
func classify(err error) (int, string) {
	var notAllowed *origin.NotAllowedError
	var badScheme *target.UnsupportedSchemeError
	var upstream *service.UpstreamError
	var httpErr *echo.HTTPError

	switch {
	case errors.Is(err, origin.ErrInvalidHeader):
		return http.StatusBadRequest, "Invalid Origin header"
	case errors.As(err, &notAllowed):
		return http.StatusForbidden, notAllowed.Error()
	case errors.As(err, &badScheme):
		return http.StatusBadRequest, badScheme.Error()
	case errors.Is(err, target.ErrMalformed):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &httpErr):
		// Raised by echo while the body is read, e.g. a chunked upload
		// over the body limit.
		return httpErr.Code, httpMessage(httpErr)
	case errors.Is(err, service.ErrRequestBodyUnreadable):
		return http.StatusBadRequest, service.ErrRequestBodyUnreadable.Error()
	case errors.Is(err, service.ErrBuildRequest):
		return http.StatusInternalServerError, service.ErrBuildRequest.Error()
	case errors.Is(err, service.ErrWebSocketUnsupported):
		return http.StatusNotImplemented, service.ErrWebSocketUnsupported.Error()
	case errors.As(err, &upstream):
		return http.StatusBadGateway, upstreamMessage(upstream)
	default:
		return http.StatusBadGateway, "upstream request failed"
	}
}

// upstreamMessage describes a target failure without repeating the target URL
// the client already knows.
func upstreamMessage(ue *service.UpstreamError) string {
	if errors.Is(ue, service.ErrWebSocketHandshake) {
		return ue.Err.Error()
	}

	if errors.Is(ue, context.Canceled) {
		return "client disconnected"
	}
	if errors.Is(ue, context.DeadlineExceeded) {
		return "upstream request timed out"
	}
	var netErr net.Error
	if errors.As(ue, &netErr) && netErr.Timeout() {
		return "upstream request timed out"
	}

	var dnsErr *net.DNSError
	if errors.As(ue, &dnsErr) {
		return "upstream host unreachable: " + dnsErr.Name
	}

	var urlErr *url.Error
	if errors.As(ue, &urlErr) {
		return "failed to reach target: " + urlErr.Err.Error()
	}

	return "failed to reach target: " + ue.Err.Error()
}

func httpMessage(he *echo.HTTPError) string {
	if m, ok := he.Message.(string); ok {
		return m
	}
	return http.StatusText(he.Code)
}

// writeError renders the JSON error shape with the minimal CORS headers so
// browsers can read the failure.
func writeError(c echo.Context, status int, msg string) error {
	cors.ErrorHeaders(c.Response().Header())
	return c.JSON(status, map[string]string{"error": msg})
}

// ErrorHandler renders errors raised outside the pipeline (router misses,
// body and rate limits, recovered panics) in the same JSON shape.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	logger = logger.With("component", "error_handler")
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		msg := http.StatusText(status)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			msg = httpMessage(he)
		}

		if status >= http.StatusInternalServerError {
			logger.Error("unhandled error", "err", err, "path", service.Redact(c.Request().URL.Path))
		}

		if c.Request().Method == http.MethodHead {
			cors.ErrorHeaders(c.Response().Header())
			err = c.NoContent(status)
		} else {
			err = writeError(c, status, msg)
		}
		if err != nil {
			logger.Error("writing error response", "err", err)
		}
	}
}
