package metrics

import (
	"time"
)

// RecordHTTPRequest учитывает HTTP запрос.
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// GraphBuilt реализует engine.Observer.
func (r *Registry) GraphBuilt(nodes, edges int, took time.Duration) {
	r.GraphBuildsTotal.Inc()
	r.GraphBuildDuration.Observe(took.Seconds())
	r.GraphNodes.Set(float64(nodes))
	r.GraphEdges.Set(float64(edges))
}

func (r *Registry) LayoutReload(status string) {
	r.LayoutReloadsTotal.WithLabelValues(status).Inc()
}

func (r *Registry) OccupancyApplied(applied, unknown int) {
	r.OccupancyUpdatesTotal.WithLabelValues("applied").Add(float64(applied))
	r.OccupancyUpdatesTotal.WithLabelValues("unknown").Add(float64(unknown))
}

// RouteComputed реализует session.Observer.
func (r *Registry) RouteComputed(state string, took time.Duration) {
	r.RoutesTotal.WithLabelValues(state).Inc()
	r.RouteDuration.Observe(took.Seconds())
}

func (r *Registry) SessionsActive(n int) {
	r.ActiveSessions.Set(float64(n))
}
