// Package service implements the forwarding engine: it replays a validated
// request against its target and hands back a CORS-annotated response.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"

	"holy-cors/internal/client"
	"holy-cors/internal/cors"
	"holy-cors/internal/headers"
	"holy-cors/internal/metrics"
	"holy-cors/internal/model"
)

var (
	// ErrRequestBodyUnreadable is returned when the inbound body cannot be read in full.
	ErrRequestBodyUnreadable = errors.New("failed to read request body")

	// ErrBuildRequest is returned when the outbound request cannot be constructed.
	ErrBuildRequest = errors.New("failed to build request")

	// ErrWebSocketHandshake marks an UpstreamError raised by a failed WebSocket handshake.
	ErrWebSocketHandshake = errors.New("failed to connect to WebSocket")

	// ErrWebSocketUnsupported is returned after a successful handshake: the
	// inbound connection is never upgraded or relayed.
	ErrWebSocketUnsupported = errors.New("WebSocket proxying requires connection hijacking; use a direct WebSocket connection")
)

// UpstreamError reports a target that could not be reached or did not answer
// with a usable response. It is never retried.
type UpstreamError struct {
	Target string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("failed to reach target %s: %v", e.Target, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// secretParamPattern matches query parameters that commonly carry credentials.
var secretParamPattern = regexp.MustCompile(`(?i)((?:api[_-]?key|access[_-]?token|token|secret|password|signature|sig)=)[^&\s"]+`)

// Redact hides credential-looking query parameter values in s before it is logged.
func Redact(s string) string {
	return secretParamPattern.ReplaceAllString(s, "${1}[REDACTED]")
}

// ProxyService forwards requests to their embedded targets.
type ProxyService struct {
	client  *client.UpstreamClient
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewProxyService creates a ProxyService. The metrics parameter is optional.
func NewProxyService(c *client.UpstreamClient, logger *slog.Logger, m *metrics.Metrics) *ProxyService {
	return &ProxyService{
		client:  c,
		logger:  logger.With("component", "proxy_service"),
		metrics: m,
	}
}

// Forward sends a ProxyRequest to its target and returns the response with
// filtered headers and the CORS header set applied.
// The caller is responsible for closing the response body.
//
// The inbound body is buffered in full before the target is contacted; its
// size is bounded by the server's body limit, not here.
func (s *ProxyService) Forward(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	body, err := readBody(pr.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestBodyUnreadable, err)
	}

	req, err := s.buildRequest(pr, body)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("forwarding request",
		"method", pr.Method,
		"target", Redact(pr.Target.String()),
		"body_bytes", len(body),
	)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &UpstreamError{Target: pr.Target.Redacted(), Err: err}
	}

	resp.Header = headers.Filter(resp.Header, headers.Response)
	cors.Annotate(resp.Header, pr.Origin, pr.Header)
	return resp, nil
}

// buildRequest constructs the outbound request: original method, filtered
// headers and a Host that names the target.
func (s *ProxyService) buildRequest(pr *model.ProxyRequest, body []byte) (*http.Request, error) {
	var rd io.Reader = http.NoBody
	if len(body) > 0 {
		rd = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(pr.Ctx, pr.Method, pr.Target.String(), rd)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBuildRequest, err)
	}

	req.Header = headers.Filter(pr.Header, headers.Request)
	// Content-Encoding is stripped from relayed responses, so compression is
	// left to the transport, which decodes what it negotiates.
	req.Header.Del("Accept-Encoding")
	req.Host = pr.Target.Host

	return req, nil
}

// ProbeWebSocket attempts a WebSocket handshake with the ws/wss form of
// target. It never relays: a failed handshake yields an *UpstreamError
// wrapping ErrWebSocketHandshake, a successful one ErrWebSocketUnsupported.
func (s *ProxyService) ProbeWebSocket(ctx context.Context, target *url.URL) error {
	wsURL := *target
	switch target.Scheme {
	case "http":
		wsURL.Scheme = "ws"
	case "https":
		wsURL.Scheme = "wss"
	}

	s.logger.Warn("websocket proxying is experimental", "target", Redact(wsURL.String()))

	if err := s.client.Handshake(ctx, wsURL.String()); err != nil {
		s.recordProbe("failed")
		return &UpstreamError{
			Target: wsURL.Redacted(),
			Err:    fmt.Errorf("%w: %w", ErrWebSocketHandshake, err),
		}
	}

	s.recordProbe("unsupported")
	return ErrWebSocketUnsupported
}

func (s *ProxyService) recordProbe(outcome string) {
	if s.metrics != nil {
		s.metrics.WebSocketProbes.WithLabelValues(outcome).Inc()
	}
}

// readBody drains and closes the inbound body.
func readBody(rc io.ReadCloser) ([]byte, error) {
	if rc == nil || rc == http.NoBody {
		return nil, nil
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}
