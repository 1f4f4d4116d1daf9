package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ============================================================
// Registry
// ============================================================

// Registry метрики навигатора в собственном prometheus.Registry.
type Registry struct {
	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Graph
	GraphBuildsTotal   prometheus.Counter
	GraphBuildDuration prometheus.Histogram
	GraphNodes         prometheus.Gauge
	GraphEdges         prometheus.Gauge

	// Layout
	LayoutReloadsTotal    *prometheus.CounterVec
	OccupancyUpdatesTotal *prometheus.CounterVec

	// Routing
	RoutesTotal    *prometheus.CounterVec
	RouteDuration  prometheus.Histogram
	ActiveSessions prometheus.Gauge

	registry *prometheus.Registry
}

func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	r := &Registry{registry: reg}
	r.initHTTPMetrics()
	r.initGraphMetrics()
	r.initLayoutMetrics()
	r.initRoutingMetrics()
	return r
}

func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Handler отдаёт метрики в текстовом формате Prometheus.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Registry) initHTTPMetrics() {
	r.HTTPRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "navigator_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	r.HTTPRequestDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "navigator_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
}

func (r *Registry) initGraphMetrics() {
	r.GraphBuildsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "navigator_graph_builds_total",
			Help: "Total number of dense graph builds",
		},
	)

	r.GraphBuildDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "navigator_graph_build_duration_seconds",
			Help:    "Dense graph build duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	r.GraphNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "navigator_graph_nodes",
			Help: "Number of nodes in the last built dense graph",
		},
	)

	r.GraphEdges = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "navigator_graph_edges",
			Help: "Number of edges in the last built dense graph",
		},
	)
}

func (r *Registry) initLayoutMetrics() {
	r.LayoutReloadsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "navigator_layout_reloads_total",
			Help: "Layout reloads by result",
		},
		[]string{"result"}, // published, stale, failed, invalid
	)

	r.OccupancyUpdatesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "navigator_occupancy_updates_total",
			Help: "Slot occupancy changes by outcome",
		},
		[]string{"outcome"}, // applied, unknown
	)
}

func (r *Registry) initRoutingMetrics() {
	r.RoutesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "navigator_routes_total",
			Help: "Route computations by resulting session state",
		},
		[]string{"state"},
	)

	r.RouteDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "navigator_route_duration_seconds",
			Help:    "Route computation duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
	)

	r.ActiveSessions = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "navigator_sessions_active",
			Help: "Number of active navigation sessions",
		},
	)
}
