// Package handler wires the proxy pipeline and the built-in endpoints onto Echo.
package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"holy-cors/internal/config"
	"holy-cors/internal/metrics"
)

// RegisterRoutes wires all route handlers onto the Echo instance. Every path
// that is not a built-in route carries a target URL.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, proxy *ProxyHandler, health *HealthHandler, m *metrics.Metrics) {
	e.GET("/healthz", health.Healthz)
	e.GET("/proxy/status", health.Status)

	if cfg.Metrics.Enabled && m != nil {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}

	e.Any("/", proxy.Handle)
	e.Any("/*", proxy.Handle)
	// Any only covers the standard methods. Every other method (PURGE,
	// MKCOL, QUERY...) misses the router and lands here instead of a 405.
	e.RouteNotFound("/*", proxy.Handle)
}
