package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"holy-cors/internal/cors"
	"holy-cors/internal/headers"
	"holy-cors/internal/metrics"
	"holy-cors/internal/model"
	"holy-cors/internal/origin"
	"holy-cors/internal/service"
	"holy-cors/internal/target"
)

const welcomeMessage = "Holy CORS! Proxy is running. Usage: /{TARGET_URL}"

// ProxyHandler runs the per-request pipeline: origin check, preflight,
// target resolution, forwarding and relay of the target response.
type ProxyHandler struct {
	service *service.ProxyService
	policy  *origin.Policy
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewProxyHandler creates a ProxyHandler. The metrics parameter is optional.
func NewProxyHandler(svc *service.ProxyService, policy *origin.Policy, logger *slog.Logger, m *metrics.Metrics) *ProxyHandler {
	return &ProxyHandler{
		service: svc,
		policy:  policy,
		logger:  logger.With("component", "proxy_handler"),
		metrics: m,
	}
}

// Handle proxies the request to the target embedded in its path and streams
// the response back with CORS headers.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	allowed, err := h.policy.Evaluate(req.Header)
	if err != nil {
		h.recordRejection(err)
		return h.mapError(c, err)
	}

	if cors.IsPreflight(req.Method, req.Header) {
		h.logger.Debug("handling preflight request", "path", req.URL.Path)
		if h.metrics != nil {
			h.metrics.Preflights.Inc()
		}
		cors.Annotate(c.Response().Header(), allowed, req.Header)
		return c.NoContent(http.StatusNoContent)
	}

	raw, ok, err := target.Resolve(req.URL.EscapedPath(), req.URL.RawQuery)
	if !ok {
		c.Response().Header().Set(cors.ACAO, cors.Wildcard)
		return c.JSON(http.StatusOK, map[string]string{"message": welcomeMessage})
	}
	if err != nil {
		return h.mapError(c, err)
	}

	u, err := target.Parse(raw)
	if err != nil {
		return h.mapError(c, err)
	}

	h.logger.Info("proxying request",
		"method", req.Method,
		"target", service.Redact(u.Redacted()),
	)

	if headers.IsWebSocketUpgrade(req.Header) {
		h.logger.Info("websocket upgrade requested", "target", service.Redact(u.Redacted()))
		return h.mapError(c, h.service.ProbeWebSocket(req.Context(), u))
	}

	resp, err := h.service.Forward(&model.ProxyRequest{
		Ctx:    req.Context(),
		Method: req.Method,
		Target: u,
		Origin: allowed,
		Header: req.Header,
		Body:   req.Body,
	})
	if err != nil {
		return h.mapError(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	for key, vals := range resp.Header {
		for _, v := range vals {
			c.Response().Header().Add(key, v)
		}
	}

	c.Response().WriteHeader(resp.StatusCode)

	// Once the status is sent a failed copy (client gone, target reset) can
	// only truncate the body; it is logged and the connection is dropped.
	if _, err := io.Copy(flushWriter{c.Response()}, resp.Body); err != nil {
		h.logger.Error("streaming response body",
			"err", err,
			"target", service.Redact(u.Redacted()),
		)
	}

	return nil
}

func (h *ProxyHandler) recordRejection(err error) {
	if h.metrics == nil {
		return
	}
	reason := "not_allowed"
	if errors.Is(err, origin.ErrInvalidHeader) {
		reason = "invalid_header"
	}
	h.metrics.OriginRejections.WithLabelValues(reason).Inc()
}

// flushWriter pushes every chunk to the client as soon as the target sends it.
type flushWriter struct {
	res *echo.Response
}

func (f flushWriter) Write(p []byte) (int, error) {
	n, err := f.res.Write(p)
	if n > 0 {
		f.res.Flush()
	}
	return n, err
}
