// Package metrics provides Prometheus metrics for the proxy.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Default histogram buckets for request latency.
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Path labels for routes served by the proxy itself.
var localRoutes = []string{"/healthz", "/proxy/status", "/metrics"}

// ProxiedPathLabel is the path label of every request forwarded to the backend.
const ProxiedPathLabel = "proxied"

// Metrics holds all Prometheus metric collectors for the proxy.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	UpstreamDuration   *prometheus.HistogramVec
	UpstreamResponses  *prometheus.CounterVec
	RelayAborts        prometheus.Counter
	CookiesRewritten   prometheus.Counter
	RedirectsRewritten prometheus.Counter

	mountPath string
}

// New creates a Metrics instance with a custom registry and all collectors
// registered. mountPath is the prefix under which requests are proxied;
// empty means every non-local path.
func New(mountPath string) *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry:  reg,
		mountPath: mountPath,

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rproxy_http_requests_total",
			Help: "Total inbound HTTP requests.",
		}, []string{"method", "status_code", "path_prefix"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rproxy_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method", "status_code", "path_prefix"}),

		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rproxy_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed.",
		}),

		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rproxy_upstream_request_duration_seconds",
			Help:    "Time until the backend response headers arrived, in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method"}),

		UpstreamResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rproxy_upstream_responses_total",
			Help: "Total backend responses by method and status code.",
		}, []string{"method", "status_code"}),

		RelayAborts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rproxy_relay_aborts_total",
			Help: "Response bodies aborted mid-stream.",
		}),

		CookiesRewritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rproxy_cookies_rewritten_total",
			Help: "Backend cookies re-namespaced for the client.",
		}),

		RedirectsRewritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rproxy_redirects_rewritten_total",
			Help: "Backend Location headers mapped back into the proxy namespace.",
		}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.UpstreamDuration,
		m.UpstreamResponses,
		m.RelayAborts,
		m.CookiesRewritten,
		m.RedirectsRewritten,
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

// NormalizePath returns a bounded path label for Prometheus metrics.
func (m *Metrics) NormalizePath(path string) string {
	for _, prefix := range localRoutes {
		if hasPathPrefix(path, prefix) {
			return prefix
		}
	}
	if m.mountPath == "" || hasPathPrefix(path, m.mountPath) {
		return ProxiedPathLabel
	}
	return "other"
}

func hasPathPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/") || strings.HasPrefix(path, prefix+"?")
}
