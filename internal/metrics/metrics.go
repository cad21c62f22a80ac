package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests and multiple servers never
// collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight prometheus.Gauge

	grants        *prometheus.CounterVec
	grantDuration *prometheus.HistogramVec
	registrations *prometheus.CounterVec
	logins        *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		grants: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oauth_grant_exchanges_total",
			Help: "Token endpoint exchanges by provider, grant type and result.",
		}, []string{"provider", "grant", "result"}),
		grantDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "oauth_grant_exchange_duration_seconds",
			Help:    "Latency of token endpoint exchanges.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider", "grant"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_registrations_total",
			Help: "Registrations by principal type and result.",
		}, []string{"principal", "result"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by principal type and result.",
		}, []string{"principal", "result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration, m.httpInFlight,
		m.grants, m.grantDuration, m.registrations, m.logins,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterPool exposes pgx pool gauges.
func (m *Metrics) RegisterPool(pool *pgxpool.Pool) error {
	if pool == nil {
		return nil
	}
	return m.registry.Register(newPoolCollector(pool))
}

func (m *Metrics) ObserveGrant(provider string, grant string, err error, took time.Duration) {
	if m == nil {
		return
	}
	m.grants.WithLabelValues(provider, grant, result(err)).Inc()
	m.grantDuration.WithLabelValues(provider, grant).Observe(took.Seconds())
}

func (m *Metrics) ObserveRegistration(principal string, err error) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(principal, result(err)).Inc()
}

func (m *Metrics) ObserveLogin(principal string, err error) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(principal, result(err)).Inc()
}

// Instrument records request counts and latency labelled by the chi route
// pattern, so ids and tokens never become label values.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		defer func() {
			m.httpInFlight.Dec()
			route := routePattern(r)
			method := strings.ToUpper(r.Method)
			m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			m.httpRequests.WithLabelValues(method, route, strconv.Itoa(sw.code)).Inc()
		}()

		next.ServeHTTP(sw, r)
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

type poolCollector struct {
	pool     *pgxpool.Pool
	acquired *prometheus.Desc
	idle     *prometheus.Desc
	total    *prometheus.Desc
}

func newPoolCollector(pool *pgxpool.Pool) *poolCollector {
	return &poolCollector{
		pool:     pool,
		acquired: prometheus.NewDesc("pgxpool_acquired_conns", "Connections currently acquired.", nil, nil),
		idle:     prometheus.NewDesc("pgxpool_idle_conns", "Idle connections.", nil, nil),
		total:    prometheus.NewDesc("pgxpool_total_conns", "Total connections in the pool.", nil, nil),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquired
	ch <- c.idle
	ch <- c.total
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	stat := c.pool.Stat()
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(stat.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(stat.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(stat.TotalConns()))
}
