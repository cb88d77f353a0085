// Package observability provides Prometheus metrics for the service.
//
// Metrics are exposed on GET /metrics. All operations are safe for
// concurrent use.
package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/PratikDhanave/abtest-service/internal/assignment"
	"github.com/PratikDhanave/abtest-service/internal/models"
)

const metricsNamespace = "abtest"

// Metrics holds the service's collectors.
type Metrics struct {
	// AssignmentsTotal counts resolved variants.
	// Labels: variant, outcome (assigned, returning, reconciled)
	AssignmentsTotal *prometheus.CounterVec

	// ConversionsTotal counts conversion submissions.
	// Labels: variant (A, B, other), result (accepted, rejected)
	ConversionsTotal *prometheus.CounterVec

	// RequestDurationSeconds measures handler latency.
	// Labels: method, route, status
	RequestDurationSeconds *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// Registering twice on the same registry panics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AssignmentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "assignments_total",
				Help:      "Variant lookups by variant and outcome",
			},
			[]string{"variant", "outcome"},
		),
		ConversionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "conversions_total",
				Help:      "Conversion submissions by variant and result",
			},
			[]string{"variant", "result"},
		),
		RequestDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"method", "route", "status"},
		),
	}
}

// ObserveAssignment implements assignment.Observer.
func (m *Metrics) ObserveAssignment(variant models.Variant, outcome assignment.Outcome) {
	m.AssignmentsTotal.WithLabelValues(string(variant), string(outcome)).Inc()
}

// ObserveConversion implements conversion.Observer. The variant label only
// carries assignable variants; anything else a client posts is counted as
// "other" so the series count stays fixed.
func (m *Metrics) ObserveConversion(variant models.Variant, accepted bool) {
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	m.ConversionsTotal.WithLabelValues(variantLabel(variant), result).Inc()
}

// otherVariantLabel stands in for client-reported variants outside A/B.
const otherVariantLabel = "other"

func variantLabel(v models.Variant) string {
	if v.Valid() {
		return string(v)
	}
	return otherVariantLabel
}

// Middleware records request latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestDurationSeconds.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
