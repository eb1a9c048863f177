// Package metrics provides Prometheus metrics for the proxy.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Default histogram buckets for request latency.
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// Metrics holds all Prometheus metric collectors for the proxy.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	UpstreamDuration  *prometheus.HistogramVec
	UpstreamResponses *prometheus.CounterVec
	UpstreamFailures  *prometheus.CounterVec

	Preflights       prometheus.Counter
	OriginRejections *prometheus.CounterVec
	WebSocketProbes  *prometheus.CounterVec
}

// New creates a Metrics instance with a custom registry and all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "holy_cors_http_requests_total",
			Help: "Total inbound HTTP requests.",
		}, []string{"method", "status_code", "route"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "holy_cors_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method", "status_code", "route"}),

		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "holy_cors_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed.",
		}),

		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "holy_cors_upstream_request_duration_seconds",
			Help:    "Target call latency in seconds, up to response headers.",
			Buckets: defaultBuckets,
		}, []string{"method", "scheme"}),

		UpstreamResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "holy_cors_upstream_responses_total",
			Help: "Total target responses by method and status code.",
		}, []string{"method", "status_code"}),

		UpstreamFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "holy_cors_upstream_failures_total",
			Help: "Target calls that failed before a response was received.",
		}, []string{"method", "scheme"}),

		Preflights: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "holy_cors_preflight_requests_total",
			Help: "Preflight requests answered without contacting a target.",
		}),

		OriginRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "holy_cors_origin_rejections_total",
			Help: "Requests refused by the origin policy.",
		}, []string{"reason"}),

		WebSocketProbes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "holy_cors_websocket_handshakes_total",
			Help: "WebSocket handshakes attempted against targets, by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.UpstreamDuration,
		m.UpstreamResponses,
		m.UpstreamFailures,
		m.Preflights,
		m.OriginRejections,
		m.WebSocketProbes,
	)

	return m
}

// knownMethods lists the allowed HTTP method label values (bounded cardinality).
var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// NormalizeMethod returns a bounded HTTP method label for Prometheus metrics.
// Non-standard methods are mapped to "other" to prevent cardinality explosion.
func NormalizeMethod(method string) string {
	if knownMethods[method] {
		return method
	}
	return "other"
}

// knownRoutes lists the built-in routes that get their own label.
var knownRoutes = map[string]bool{"/": true, "/healthz": true, "/proxy/status": true}

// NormalizeRoute returns a bounded route label for Prometheus metrics. Every
// path that is not a built-in route embeds a target URL and is labeled
// "proxy"; target hosts never become label values.
func NormalizeRoute(path, metricsPath string) string {
	if path == "" {
		return "/"
	}
	if knownRoutes[path] || (metricsPath != "" && path == metricsPath) {
		return path
	}
	return "proxy"
}
