// Package client provides the outbound HTTP and WebSocket clients used to reach targets.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/net/http2"

	"holy-cors/internal/config"
	"holy-cors/internal/metrics"
	"holy-cors/internal/model"
)

// UpstreamClient sends requests to arbitrary http and https targets.
type UpstreamClient struct {
	httpClient *http.Client
	wsDialer   *websocket.Dialer
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewUpstreamClient creates an UpstreamClient with connection pooling and timeouts.
// TLS uses the system certificate roots. Connections are pooled by net/http
// per scheme, host and port, and no request state is shared between pools.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
func NewUpstreamClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*UpstreamClient, error) {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	timeout := time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second

	transport := &http.Transport{
		MaxIdleConns:          cfg.Upstream.IdleConnections,
		MaxIdleConnsPerHost:   cfg.Upstream.IdleConnections,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
		DialContext:           dialer.DialContext,
	}

	// Negotiate HTTP/2 with targets over TLS and ping idle h2 connections so
	// dead ones are dropped from the pool.
	h2, err := http2.ConfigureTransports(transport)
	if err != nil {
		return nil, fmt.Errorf("configure http2: %w", err)
	}
	h2.ReadIdleTimeout = 30 * time.Second
	h2.PingTimeout = 15 * time.Second

	return &UpstreamClient{
		httpClient: &http.Client{
			Transport: transport,
			// Redirects are relayed to the browser, never followed here.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		wsDialer: &websocket.Dialer{
			NetDialContext:   dialer.DialContext,
			HandshakeTimeout: time.Duration(cfg.Upstream.WebSocketTimeoutSeconds) * time.Second,
		},
		logger:  logger.With("component", "upstream_client"),
		metrics: m,
	}, nil
}

// Do executes an HTTP request against the target and returns the raw response.
// The caller is responsible for closing the response body.
func (c *UpstreamClient) Do(req *http.Request) (*model.ProxyResponse, error) {
	c.logger.Debug("upstream request",
		"method", req.Method,
		"host", req.Host,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req) //nolint:bodyclose // body ownership transfers to caller via ProxyResponse
	duration := time.Since(start).Seconds()

	method := metrics.NormalizeMethod(req.Method)
	scheme := req.URL.Scheme

	if err != nil {
		if c.metrics != nil {
			c.metrics.UpstreamDuration.WithLabelValues(method, scheme).Observe(duration)
			c.metrics.UpstreamFailures.WithLabelValues(method, scheme).Inc()
		}
		return nil, fmt.Errorf("upstream request: %w", err)
	}

	if c.metrics != nil {
		status := strconv.Itoa(resp.StatusCode)
		c.metrics.UpstreamDuration.WithLabelValues(method, scheme).Observe(duration)
		c.metrics.UpstreamResponses.WithLabelValues(method, status).Inc()
	}

	return &model.ProxyResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
	}, nil
}

// Handshake opens a WebSocket connection to wsURL and closes it right away.
// It only reports whether the target accepted the handshake.
func (c *UpstreamClient) Handshake(ctx context.Context, wsURL string) error {
	conn, resp, err := c.wsDialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return fmt.Errorf("websocket handshake: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("websocket handshake: %w", err)
	}

	c.logger.Debug("websocket handshake succeeded", "url", wsURL)
	_ = conn.Close()
	return nil
}
