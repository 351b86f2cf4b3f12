// Package metrics exposes Prometheus instrumentation for profile operations and HTTP traffic.
//
// All collectors live on a Collector-owned registry so tests and multiple servers
// in one process never collide on the default registerer.
package metrics

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Phone label modes.
const (
	PhoneLabelRaw    = "raw"
	PhoneLabelHashed = "hashed"
	PhoneLabelNone   = "none"
)

// Error kinds used on tourista_operation_errors_total.
const (
	KindValidation = "validation"
	KindNotFound   = "not_found"
	KindEmpty      = "empty"
	KindStore      = "store"
)

type Collector struct {
	registry  *prometheus.Registry
	phoneMode string

	operations        *prometheus.CounterVec
	operationDuration *prometheus.SummaryVec
	operationErrors   *prometheus.CounterVec

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewCollector builds a collector on a fresh registry.
//
// Labelling by raw phone number gives one series per user; "hashed" keeps the
// per-user split without exposing the number, "none" collapses it.
func NewCollector(phoneMode string) (*Collector, error) {
	switch phoneMode {
	case "":
		phoneMode = PhoneLabelRaw
	case PhoneLabelRaw, PhoneLabelHashed, PhoneLabelNone:
	default:
		return nil, fmt.Errorf("unknown phone label mode %q", phoneMode)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry:  reg,
		phoneMode: phoneMode,
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tourista_operations_total",
				Help: "Total number of profile operations",
			},
			[]string{"operation", "phone"},
		),
		operationDuration: factory.NewSummaryVec(
			prometheus.SummaryOpts{
				Name: "tourista_operation_duration_seconds",
				Help: "Duration of profile operations in seconds",
			},
			[]string{"operation", "phone"},
		),
		operationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tourista_operation_errors_total",
				Help: "Total number of failed profile operations by kind",
			},
			[]string{"operation", "kind"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tourista_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tourista_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
	}, nil
}

// RecordOperation counts one profile operation and observes its duration.
func (c *Collector) RecordOperation(name, phone string, duration time.Duration) {
	label := c.PhoneLabel(phone)
	c.operations.WithLabelValues(name, label).Inc()
	c.operationDuration.WithLabelValues(name, label).Observe(duration.Seconds())
}

// RecordError counts a failed operation.
func (c *Collector) RecordError(name, kind string) {
	c.operationErrors.WithLabelValues(name, kind).Inc()
}

// RecordHTTPRequest records a completed request. route must be the route pattern, not the raw path.
func (c *Collector) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, status).Inc()
	c.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// PhoneLabel renders a phone number according to the configured mode.
func (c *Collector) PhoneLabel(phone string) string {
	switch c.phoneMode {
	case PhoneLabelNone:
		return ""
	case PhoneLabelHashed:
		sum := sha256.Sum256([]byte(phone))
		return hex.EncodeToString(sum[:])[:12]
	default:
		return phone
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
