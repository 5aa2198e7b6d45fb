// Package metrics owns the service's Prometheus collectors exposed at
// /metrics, next to the runtime and HTTP latency collectors waffle keeps on
// the default registry.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "socialhub"

// Metrics bundles the collectors registered on one registry. Each server
// gets its own registry so tests can build handlers repeatedly.
type Metrics struct {
	Registry *prometheus.Registry

	requests   *prometheus.CounterVec
	corsDenied prometheus.Counter
	jobRuns    *prometheus.CounterVec
}

// New creates and registers the service collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "status"}),
		corsDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cors_denied_total",
			Help:      "Cross-origin requests rejected by the origin filter.",
		}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_runs_total",
			Help:      "Background job function invocations by outcome.",
		}, []string{"function", "outcome"}),
	}
	reg.MustRegister(m.requests, m.corsDenied, m.jobRuns)
	return m
}

// Handler serves this registry together with the default one.
func (m *Metrics) Handler() http.Handler {
	g := prometheus.Gatherers{m.Registry, prometheus.DefaultGatherer}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Middleware counts requests by method and final status.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
	})
}

// CORSDenied records one rejected cross-origin request.
func (m *Metrics) CORSDenied(string) { m.corsDenied.Inc() }

// JobRun records one job function invocation.
func (m *Metrics) JobRun(function, outcome string) {
	m.jobRuns.WithLabelValues(function, outcome).Inc()
}
