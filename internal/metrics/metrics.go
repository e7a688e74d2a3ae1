// Package metrics exposes Prometheus collectors for HTTP traffic and exam activity.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a registry so tests can build isolated instances
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	submissions     *prometheus.CounterVec
	paymentChanges  *prometheus.CounterVec
	studentIDs      prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cbt",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cbt",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cbt",
			Name:      "exam_submissions_total",
			Help:      "Exam submissions by outcome.",
		}, []string{"outcome"}),
		paymentChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cbt",
			Name:      "payment_transitions_total",
			Help:      "Payment status transitions by target status.",
		}, []string{"status"}),
		studentIDs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cbt",
			Name:      "student_ids_issued_total",
			Help:      "Student identifiers generated.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.submissions,
		m.paymentChanges,
		m.studentIDs,
	)
	return m
}

// Middleware records one observation per request using the route template
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the exposition format
func (m *Metrics) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

func (m *Metrics) ObserveSubmission(outcome string) {
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObservePaymentTransition(status string) {
	m.paymentChanges.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveStudentID() {
	m.studentIDs.Inc()
}
