// Package metrics holds the prometheus collectors of the host process.
// Every method is safe on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/woxQAQ/wbg-host/internal/fetch"
)

const namespace = "wbghost"

// Metrics groups the collectors.
type Metrics struct {
	registry *prometheus.Registry

	sessionsActive       prometheus.Gauge
	sessionsStarted      *prometheus.CounterVec
	sessionStartDuration *prometheus.HistogramVec
	importsBound         *prometheus.CounterVec
	exceptions           *prometheus.CounterVec
	fetchRequests        *prometheus.CounterVec
	fetchDuration        *prometheus.HistogramVec
	httpRequests         *prometheus.CounterVec
}

// New creates the collectors on a private registry that also carries the
// Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of running sessions.",
		}),
		sessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Session start attempts by app and result.",
		}, []string{"app", "result"}),
		sessionStartDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_start_duration_seconds",
			Help:      "Time from instantiation to the end of the start routine.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"app"}),
		importsBound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_bound_total",
			Help:      "Host functions bound to guest imports.",
		}, []string{"app"}),
		exceptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exceptions_total",
			Help:      "Host exceptions stored into guest exception slots, counted when a session stops.",
		}, []string{"app"}),
		fetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Requests issued through fetch by method and status (0 on network failure).",
		}, []string{"app", "method", "status"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Latency of fetch requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"app", "method"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Inspection API requests by route and status code.",
		}, []string{"route", "code"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.sessionsActive,
		m.sessionsStarted,
		m.sessionStartDuration,
		m.importsBound,
		m.exceptions,
		m.fetchRequests,
		m.fetchDuration,
		m.httpRequests,
	)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SessionStarted records a start attempt.
func (m *Metrics) SessionStarted(app string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.sessionsStarted.WithLabelValues(app, result).Inc()
	if err == nil {
		m.sessionsActive.Inc()
		m.sessionStartDuration.WithLabelValues(app).Observe(elapsed.Seconds())
	}
}

// SessionStopped records the end of a running session and the number of
// exceptions it stored.
func (m *Metrics) SessionStopped(app string, exceptions int) {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
	m.exceptions.WithLabelValues(app).Add(float64(exceptions))
}

// ImportsBound records the host functions bound for one instance.
func (m *Metrics) ImportsBound(app string, n int) {
	if m == nil {
		return
	}
	m.importsBound.WithLabelValues(app).Add(float64(n))
}

// FetchObserver returns an observer recording the requests of app.
func (m *Metrics) FetchObserver(app string) fetch.Observer {
	if m == nil {
		return nil
	}
	return func(method string, status int, elapsed time.Duration, _ error) {
		m.fetchRequests.WithLabelValues(app, method, strconv.Itoa(status)).Inc()
		m.fetchDuration.WithLabelValues(app, method).Observe(elapsed.Seconds())
	}
}

// HTTPRequest records one inspection API request.
func (m *Metrics) HTTPRequest(route string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
