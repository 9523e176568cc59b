package prometheus

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dreschagin/crm-dashboard/internal/application/dto"
	"github.com/dreschagin/crm-dashboard/internal/domain/valueobject"
)

const namespace = "crm_dashboard"

// Metrics bundles prometheus collectors used by the dashboard API.
// It also implements port.KPIPublisher by exposing the latest KPIs as gauges.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal      *prometheus.CounterVec
	RequestDurationSec *prometheus.HistogramVec
	BackendProbes      *prometheus.CounterVec
	AuthFailures       prometheus.Counter
	RateLimitDropped   prometheus.Counter

	CustomersTotal   prometheus.Gauge
	ActivePercent    prometheus.Gauge
	AverageLTV       prometheus.Gauge
	AtRiskCustomers  prometheus.Gauge
	SegmentCustomers *prometheus.GaugeVec
	HealthSeverity   prometheus.Gauge
	AuthRequired     prometheus.Gauge
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		RequestDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		BackendProbes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_probes_total",
			Help:      "Total number of backend health probes by outcome.",
		}, []string{"outcome"}),
		AuthFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Total number of rejected API requests.",
		}),
		RateLimitDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratelimit_dropped_total",
			Help:      "Total number of requests dropped by rate limiter.",
		}),
		CustomersTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "customers_total",
			Help:      "Number of customers in the last computed dashboard.",
		}),
		ActivePercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "customers_active_percent",
			Help:      "Share of active and vip customers, percent.",
		}),
		AverageLTV: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "customers_average_ltv",
			Help:      "Average customer lifetime value.",
		}),
		AtRiskCustomers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "customers_at_risk",
			Help:      "Number of at-risk customers shown on the dashboard.",
		}),
		SegmentCustomers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "segment_customers",
			Help:      "Number of customers per segment.",
		}, []string{"segment"}),
		HealthSeverity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backend_health_severity",
			Help:      "Backend health: 0 healthy, 1 degraded, 2 unhealthy, 3 unknown.",
		}),
		AuthRequired: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backend_auth_required",
			Help:      "1 when the backend rejected the configured credentials.",
		}),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDurationSec,
		m.BackendProbes,
		m.AuthFailures,
		m.RateLimitDropped,
		m.CustomersTotal,
		m.ActivePercent,
		m.AverageLTV,
		m.AtRiskCustomers,
		m.SegmentCustomers,
		m.HealthSeverity,
		m.AuthRequired,
	)

	return m
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// PublishDashboard implements port.KPIPublisher
func (m *Metrics) PublishDashboard(_ context.Context, vm *dto.CustomerDashboardViewModel) error {
	if vm == nil {
		return nil
	}

	m.CustomersTotal.Set(float64(vm.Summary.TotalCustomers))
	m.ActivePercent.Set(vm.Summary.ActivePercent)
	m.AverageLTV.Set(vm.LifetimeValue.Average)
	m.AtRiskCustomers.Set(float64(len(vm.AtRisk)))

	m.SegmentCustomers.Reset()
	for _, segment := range vm.Segments {
		m.SegmentCustomers.WithLabelValues(segment.Key).Set(float64(segment.Count))
	}

	return nil
}

// PublishHealth implements port.KPIPublisher
func (m *Metrics) PublishHealth(_ context.Context, health *dto.HealthViewModel) error {
	if health == nil {
		return nil
	}

	m.HealthSeverity.Set(float64(health.OverallLevel.Severity()))
	if health.AuthRequired {
		m.AuthRequired.Set(1)
	} else {
		m.AuthRequired.Set(0)
	}

	return nil
}

// Flush implements port.KPIPublisher; gauges are scraped, nothing to flush
func (m *Metrics) Flush(_ context.Context) error {
	return nil
}

// ObserveProbe counts one backend probe outcome
func (m *Metrics) ObserveProbe(outcome valueobject.ProbeOutcome) {
	m.BackendProbes.WithLabelValues(outcome.Kind.String()).Inc()
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		status := strconv.Itoa(wrapped.statusCode)
		route := normalizeRoute(r.URL.Path)
		m.RequestsTotal.WithLabelValues(route, r.Method, status).Inc()
		m.RequestDurationSec.WithLabelValues(route, r.Method, status).Observe(time.Since(startedAt).Seconds())

		switch wrapped.statusCode {
		case http.StatusUnauthorized:
			m.AuthFailures.Inc()
		case http.StatusTooManyRequests:
			m.RateLimitDropped.Inc()
		}
	})
}

func normalizeRoute(path string) string {
	switch {
	case path == "/ws", path == "/metrics", path == "/healthz", path == "/readyz":
		return path
	case path == "/api/v1/dashboard/customers", path == "/api/v1/dashboard/health", path == "/api/v1/dashboard/overview":
		return path
	case strings.HasPrefix(path, "/api/v1/auth/"):
		return "/api/v1/auth/*"
	case path == "/api/v1" || strings.HasPrefix(path, "/api/v1/"):
		return "/api/v1/*"
	default:
		return "other"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Hijack passes websocket upgrades through wrapped ResponseWriter.
func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

// Flush keeps streaming behavior for handlers that require it.
func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
