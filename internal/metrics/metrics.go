// Package metrics exposes Prometheus collectors for the HTTP surface and the
// engagement bookkeeping counters.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns a private Prometheus registry and the collectors registered on it.
// A nil *Registry is valid and records nothing.
type Registry struct {
	reg *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	views        *prometheus.CounterVec
	rotations    *prometheus.CounterVec
	logins       *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vidshare",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "vidshare",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		),
		views: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vidshare",
				Name:      "video_views_total",
				Help:      "View registrations by outcome.",
			},
			[]string{"outcome"},
		),
		rotations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vidshare",
				Name:      "session_rotations_total",
				Help:      "Refresh token rotations by outcome.",
			},
			[]string{"outcome"},
		),
		logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vidshare",
				Name:      "logins_total",
				Help:      "Login attempts by outcome.",
			},
			[]string{"outcome"},
		),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.httpRequests,
		r.httpDuration,
		r.views,
		r.rotations,
		r.logins,
	)

	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

func (r *Registry) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveView records a view outcome: counted, suppressed or error.
func (r *Registry) ObserveView(outcome string) {
	if r == nil {
		return
	}
	r.views.WithLabelValues(outcome).Inc()
}

// ObserveRotation records a refresh outcome: rotated, rejected or error.
func (r *Registry) ObserveRotation(outcome string) {
	if r == nil {
		return
	}
	r.rotations.WithLabelValues(outcome).Inc()
}

// ObserveLogin records a login outcome: success, rejected or error.
func (r *Registry) ObserveLogin(outcome string) {
	if r == nil {
		return
	}
	r.logins.WithLabelValues(outcome).Inc()
}
