// Package metrics collects HTTP and query metrics for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP holds the request collectors shared by every route. Series are
// labelled with the route name and its mux pattern, plus method and code.
type HTTP struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	size     *prometheus.SummaryVec
}

// NewHTTP registers the request collectors on registry.
func NewHTTP(registry prometheus.Registerer) *HTTP {
	f := promauto.With(registry)
	labels := []string{"handler", "path", "method", "code"}
	return &HTTP{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "f1agent_http_requests_total",
			Help: "HTTP requests by route, method and status code.",
		}, labels),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name: "f1agent_http_request_duration_seconds",
			Help: "HTTP request latency.",
			// Agent runs dominate the tail; max of 81.92s.
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}, labels),
		size: f.NewSummaryVec(prometheus.SummaryOpts{
			Name: "f1agent_http_request_size_bytes",
			Help: "HTTP request size.",
		}, labels),
	}
}

// Wrap instruments h, registered under pattern, as route name. The pattern
// is the path label so label cardinality stays bounded by the route table.
func (m *HTTP) Wrap(name, pattern string, h http.Handler) http.Handler {
	route := prometheus.Labels{"handler": name, "path": pattern}
	return promhttp.InstrumentHandlerCounter(m.requests.MustCurryWith(route),
		promhttp.InstrumentHandlerDuration(m.duration.MustCurryWith(route),
			promhttp.InstrumentHandlerRequestSize(m.size.MustCurryWith(route), h)))
}
