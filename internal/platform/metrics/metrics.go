package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"evacumate/internal/modules/dashboard/application/port"
)

const namespace = "evacumate"

// Metrics holds the server's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ShelterLoadsTotal  *prometheus.CounterVec
	SheltersLoaded     prometheus.Histogram
	DispatchesTotal    *prometheus.CounterVec
	DashboardViews     prometheus.Gauge
	WebsocketClients   prometheus.GaugeFunc
	TelemetryForwarded prometheus.Counter
}

// NewMetrics registers every collector. clientCount, when set, reports the
// number of attached websocket clients at scrape time.
func NewMetrics(clientCount func() int) *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.ShelterLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shelter_loads_total",
			Help:      "Dashboard shelter list loads by outcome",
		},
		[]string{"outcome"},
	)

	m.SheltersLoaded = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "shelters_per_load",
			Help:      "Number of shelters returned per dashboard load",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		},
	)

	m.DispatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Resolved vehicle dispatch requests by outcome",
		},
		[]string{"outcome"},
	)

	m.DashboardViews = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dashboard_views",
			Help:      "Number of mounted dashboard views",
		},
	)

	if clientCount == nil {
		clientCount = func() int { return 0 }
	}
	m.WebsocketClients = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Number of attached websocket clients",
		},
		func() float64 { return float64(clientCount()) },
	)

	m.TelemetryForwarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_messages_total",
			Help:      "Vehicle telemetry messages forwarded to websocket clients",
		},
	)

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ShelterLoadsTotal,
		m.SheltersLoaded,
		m.DispatchesTotal,
		m.DashboardViews,
		m.WebsocketClients,
		m.TelemetryForwarded,
	)

	return m
}

func (m *Metrics) ShelterLoad(outcome string, count int) {
	m.ShelterLoadsTotal.WithLabelValues(outcome).Inc()
	m.SheltersLoaded.Observe(float64(count))
}

func (m *Metrics) DispatchResolved(outcome string) {
	m.DispatchesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ViewsMounted(count int) {
	m.DashboardViews.Set(float64(count))
}

// Middleware records request count and latency per route template.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				status = httpErr.Code
			} else if err != nil {
				status = http.StatusInternalServerError
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method
			m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the private registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

var _ port.Recorder = (*Metrics)(nil)
