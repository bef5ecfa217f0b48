package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolution sources.
const (
	SourceKeyword = "keyword"
	SourceAgent   = "agent"
	SourceFailed  = "failed"
)

// Driver lookup paths.
const (
	PathAgent    = "agent"
	PathFallback = "fallback"
)

// Recorder counts query-level events. A nil *Recorder discards everything.
type Recorder struct {
	resolutions   *prometheus.CounterVec
	fetches       *prometheus.CounterVec
	driverLookups *prometheus.CounterVec
}

// NewRecorder registers the query counters on registry.
func NewRecorder(registry prometheus.Registerer) *Recorder {
	f := promauto.With(registry)
	return &Recorder{
		resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "f1agent_endpoint_resolutions_total",
			Help: "Endpoint resolutions by source.",
		}, []string{"source"}),
		fetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "f1agent_upstream_fetches_total",
			Help: "Upstream fetches by endpoint and status.",
		}, []string{"endpoint", "status"}),
		driverLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "f1agent_driver_lookups_total",
			Help: "Driver lookups by the path that produced the answer.",
		}, []string{"path"}),
	}
}

// Resolved counts one endpoint resolution.
func (r *Recorder) Resolved(source string) {
	if r == nil {
		return
	}
	r.resolutions.WithLabelValues(source).Inc()
}

// Fetched counts one upstream fetch.
func (r *Recorder) Fetched(endpoint, status string) {
	if r == nil {
		return
	}
	r.fetches.WithLabelValues(endpoint, status).Inc()
}

// DriverLookup counts one driver lookup.
func (r *Recorder) DriverLookup(path string) {
	if r == nil {
		return
	}
	r.driverLookups.WithLabelValues(path).Inc()
}
