// Package metrics provides Prometheus metrics for the membership service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "membership"

// Metrics holds all collectors exported by the service.
type Metrics struct {
	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Accounts
	RegistrationsTotal *prometheus.CounterVec
	VerificationsTotal *prometheus.CounterVec
	LoginsTotal        *prometheus.CounterVec
	AdminActionsTotal  *prometheus.CounterVec

	// Share links
	ShareLinksGenerated   prometheus.Counter
	ShareResolvesTotal    *prometheus.CounterVec
	ShareAccessLogDropped prometheus.Counter

	// Notifications
	NotificationsTotal *prometheus.CounterVec
	NotifyQueueDepth   prometheus.Gauge

	// Status cache
	StatusCacheTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"method", "route", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		RegistrationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registration attempts by result.",
		}, []string{"result"}),

		VerificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Email verification attempts by result.",
		}, []string{"result"}),

		LoginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by surface and result.",
		}, []string{"surface", "result"}),

		AdminActionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_actions_total",
			Help:      "Administrative account changes by action.",
		}, []string{"action"}),

		ShareLinksGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "share",
			Name:      "links_generated_total",
			Help:      "Share links generated.",
		}),

		ShareResolvesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "share",
			Name:      "resolves_total",
			Help:      "Share link resolutions by result.",
		}, []string{"result"}),

		ShareAccessLogDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "share",
			Name:      "access_log_dropped_total",
			Help:      "Access log entries dropped because the buffer was full.",
		}),

		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "messages_total",
			Help:      "Outbound notifications by result.",
		}, []string{"result"}),

		NotifyQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "queue_depth",
			Help:      "Notifications waiting for a worker.",
		}),

		StatusCacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "status_cache",
			Name:      "lookups_total",
			Help:      "Account status cache lookups by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.RegistrationsTotal,
		m.VerificationsTotal,
		m.LoginsTotal,
		m.AdminActionsTotal,
		m.ShareLinksGenerated,
		m.ShareResolvesTotal,
		m.ShareAccessLogDropped,
		m.NotificationsTotal,
		m.NotifyQueueDepth,
		m.StatusCacheTotal,
	)

	return m
}

// Registry returns the registry backing these metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the scrape endpoint handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRegistration counts a registration attempt.
func (m *Metrics) RecordRegistration(result string) {
	m.RegistrationsTotal.WithLabelValues(result).Inc()
}

// RecordVerification counts a verification attempt.
func (m *Metrics) RecordVerification(result string) {
	m.VerificationsTotal.WithLabelValues(result).Inc()
}

// RecordLogin counts a login attempt on the member or admin surface.
func (m *Metrics) RecordLogin(surface string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	m.LoginsTotal.WithLabelValues(surface, result).Inc()
}

// RecordAdminAction counts an administrative change.
func (m *Metrics) RecordAdminAction(action string) {
	m.AdminActionsTotal.WithLabelValues(action).Inc()
}

// RecordShareResolve counts a share link lookup.
func (m *Metrics) RecordShareResolve(result string) {
	m.ShareResolvesTotal.WithLabelValues(result).Inc()
}

// RecordNotification counts an outbound notification outcome.
func (m *Metrics) RecordNotification(result string) {
	m.NotificationsTotal.WithLabelValues(result).Inc()
}

// RecordStatusCache counts a status cache hit or miss.
func (m *Metrics) RecordStatusCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.StatusCacheTotal.WithLabelValues(result).Inc()
}

// Middleware records request count and latency per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
