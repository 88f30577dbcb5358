// Package metrics exposes prometheus instruments for the HTTP layer and the
// resolver/ledger hot paths.
package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus instruments.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	TenantResolutions *prometheus.CounterVec
	UsageWrites       *prometheus.CounterVec
	FlagEvaluations   *prometheus.CounterVec
}

// New creates and registers the instruments on the default registry.
func New() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "innkeep_http_requests_total",
				Help: "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "innkeep_http_request_duration_seconds",
				Help:    "Duration of HTTP request processing",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		TenantResolutions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "innkeep_tenant_resolutions_total",
				Help: "Tenant identity resolutions by answering source",
			},
			[]string{"source"},
		),
		UsageWrites: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "innkeep_usage_writes_total",
				Help: "Usage ledger writes by metric",
			},
			[]string{"metric"},
		),
		FlagEvaluations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "innkeep_flag_evaluations_total",
				Help: "Feature flag evaluations by outcome",
			},
			[]string{"flag", "enabled"},
		),
	}
}

// GinMiddleware records request counts and latencies per route.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		m.RequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordResolution increments the resolution counter for a source.
func (m *Metrics) RecordResolution(source string) {
	if m == nil {
		return
	}
	m.TenantResolutions.WithLabelValues(source).Inc()
}

// RecordUsageWrite increments the ledger write counter.
func (m *Metrics) RecordUsageWrite(metric string) {
	if m == nil {
		return
	}
	m.UsageWrites.WithLabelValues(metric).Inc()
}

// RecordFlagEvaluation increments the evaluation counter.
func (m *Metrics) RecordFlagEvaluation(flag string, enabled bool) {
	if m == nil {
		return
	}
	m.FlagEvaluations.WithLabelValues(flag, strconv.FormatBool(enabled)).Inc()
}
