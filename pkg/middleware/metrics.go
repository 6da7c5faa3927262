package middleware

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/waypoint/pkg/router"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "waypoint").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for navigation duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// defaultMetricsConfig returns the default metrics configuration.
func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace:   "waypoint",
		Subsystem:   "",
		ConstLabels: nil,
		Buckets:     prometheus.DefBuckets,
		Registry:    prometheus.DefaultRegisterer,
	}
}

// metrics holds the Prometheus metrics for navigations.
type metrics struct {
	navigationsTotal   *prometheus.CounterVec
	navigationDuration *prometheus.HistogramVec
	failuresTotal      *prometheus.CounterVec
	redirectsTotal     prometheus.Counter
	activeConnections  prometheus.Gauge
	storeErrors        *prometheus.CounterVec
}

// globalMetrics is the singleton metrics instance.
// Created on first call to Prometheus().
var (
	globalMetrics   *metrics
	globalMetricsMu sync.Mutex
)

// initMetrics initializes the Prometheus metrics.
func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		navigationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigations_total",
			Help:        "Total number of navigation attempts by trigger and outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"trigger", "outcome"}),

		navigationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigation_duration_seconds",
			Help:        "Navigation attempt duration in seconds, guards included",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"trigger"}),

		failuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigation_failures_total",
			Help:        "Total number of failed navigations by failure kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		redirectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "redirects_total",
			Help:        "Total number of guard redirects",
			ConstLabels: config.ConstLabels,
		}),

		activeConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_connections",
			Help:        "Number of connected browser location stores",
			ConstLabels: config.ConstLabels,
		}),

		storeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "store_errors_total",
			Help:        "Total location store errors by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),
	}
}

// Prometheus creates middleware that collects Prometheus metrics for
// navigations.
//
// Metrics collected:
//   - waypoint_navigations_total: Counter of attempts by trigger and outcome
//   - waypoint_navigation_duration_seconds: Histogram of attempt duration
//   - waypoint_navigation_failures_total: Counter of failures by kind
//   - waypoint_redirects_total: Counter of guard redirects
//   - waypoint_active_connections: Gauge of connected browsers (RecordConnectionOpen/Close)
//   - waypoint_store_errors_total: Counter of store errors (RecordStoreError)
//
// Example:
//
//	r := router.New(store, routes,
//	    router.WithMiddleware(middleware.Prometheus(middleware.WithNamespace("myapp"))),
//	)
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) router.Middleware {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	// Initialize metrics once
	globalMetricsMu.Lock()
	if globalMetrics == nil {
		globalMetrics = initMetrics(config)
	}
	m := globalMetrics
	globalMetricsMu.Unlock()

	return router.MiddlewareFunc(func(ctx context.Context, nav *router.Navigation, next func(context.Context) error) error {
		trigger := string(nav.Trigger)
		start := time.Now()

		err := next(ctx)

		m.navigationDuration.WithLabelValues(trigger).Observe(time.Since(start).Seconds())

		result := Outcome(nav, err)
		m.navigationsTotal.WithLabelValues(trigger, result).Inc()
		switch {
		case result == OutcomeRedirected:
			m.redirectsTotal.Inc()
		case err != nil:
			m.failuresTotal.WithLabelValues(result).Inc()
		}

		return err
	})
}

// Navigation outcomes used as metric labels and log values. Failures use
// the router.FailureKind name.
const (
	OutcomeCommitted  = "committed"
	OutcomeRedirected = "redirected"
	OutcomeError      = "error"
)

// Outcome classifies a finished attempt.
func Outcome(nav *router.Navigation, err error) string {
	if err == nil {
		if nav.Redirect != "" {
			return OutcomeRedirected
		}
		return OutcomeCommitted
	}
	var failure *router.NavigationFailure
	if errors.As(err, &failure) {
		return failure.Kind.String()
	}
	return OutcomeError
}

// =============================================================================
// Metrics Recording Functions
// =============================================================================

// RecordConnectionOpen records a browser connecting.
func RecordConnectionOpen() {
	if m := currentMetrics(); m != nil {
		m.activeConnections.Inc()
	}
}

// RecordConnectionClose records a browser disconnecting.
func RecordConnectionClose() {
	if m := currentMetrics(); m != nil {
		m.activeConnections.Dec()
	}
}

// RecordStoreError records a location store error.
func RecordStoreError(errorType string) {
	if m := currentMetrics(); m != nil {
		m.storeErrors.WithLabelValues(errorType).Inc()
	}
}

func currentMetrics() *metrics {
	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	return globalMetrics
}

// =============================================================================
// Metrics Collector
// =============================================================================

// Collector exposes the navigation metrics for custom registrations.
type Collector struct {
	navigationsTotal   *prometheus.CounterVec
	navigationDuration *prometheus.HistogramVec
	failuresTotal      *prometheus.CounterVec
	redirectsTotal     prometheus.Counter
	activeConnections  prometheus.Gauge
	storeErrors        *prometheus.CounterVec
}

// GetMetrics returns the global metrics collector.
// Returns nil if Prometheus middleware has not been initialized.
func GetMetrics() *Collector {
	m := currentMetrics()
	if m == nil {
		return nil
	}
	return &Collector{
		navigationsTotal:   m.navigationsTotal,
		navigationDuration: m.navigationDuration,
		failuresTotal:      m.failuresTotal,
		redirectsTotal:     m.redirectsTotal,
		activeConnections:  m.activeConnections,
		storeErrors:        m.storeErrors,
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.navigationsTotal.Describe(ch)
	c.navigationDuration.Describe(ch)
	c.failuresTotal.Describe(ch)
	c.redirectsTotal.Describe(ch)
	c.activeConnections.Describe(ch)
	c.storeErrors.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.navigationsTotal.Collect(ch)
	c.navigationDuration.Collect(ch)
	c.failuresTotal.Collect(ch)
	c.redirectsTotal.Collect(ch)
	c.activeConnections.Collect(ch)
	c.storeErrors.Collect(ch)
}
