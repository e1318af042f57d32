// Package metrics exposes Prometheus instrumentation for the HTTP edge and
// lead activity.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Business metrics
	LeadMutations *prometheus.CounterVec
	ExportRows    *prometheus.HistogramVec
}

// New creates a Metrics instance backed by its own registry, so several
// instances can coexist in tests.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		LeadMutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leads_mutated_total",
				Help: "Leads created, updated or deleted",
			},
			[]string{"operation"},
		),
		ExportRows: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lead_export_rows",
				Help:    "Rows written per lead export",
				Buckets: []float64{0, 10, 100, 500, 1000, 2500, 5000, 10000},
			},
			[]string{"format"},
		),
	}
}

// WatchPool exports connection pool statistics.
func (m *Metrics) WatchPool(pool *pgxpool.Pool) {
	factory := promauto.With(m.registry)
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "db_pool_acquired_connections",
		Help: "Connections currently checked out of the pool",
	}, func() float64 { return float64(pool.Stat().AcquiredConns()) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "db_pool_total_connections",
		Help: "Connections currently open in the pool",
	}, func() float64 { return float64(pool.Stat().TotalConns()) })
}

// Middleware records request counts and latency per route pattern.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath() // Route pattern, e.g. /api/v1/leads/:id
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// LeadsMutated counts lead writes.
func (m *Metrics) LeadsMutated(op string, count int) {
	m.LeadMutations.WithLabelValues(op).Add(float64(count))
}

// LeadsExported records the size of a finished export.
func (m *Metrics) LeadsExported(format string, rows int) {
	m.ExportRows.WithLabelValues(format).Observe(float64(rows))
}
