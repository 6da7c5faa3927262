package middleware

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/vango-dev/waypoint/pkg/history"
	"github.com/vango-dev/waypoint/pkg/router"
)

func resetGlobalMetricsForTest() {
	globalMetricsMu.Lock()
	globalMetrics = nil
	globalMetricsMu.Unlock()
}

func newRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func metricGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	if m.Gauge == nil {
		t.Fatal("expected gauge metric to have Gauge field")
	}
	return m.GetGauge().GetValue()
}

func metricHistogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	if m.Histogram == nil {
		t.Fatal("expected histogram metric to have Histogram field")
	}
	return m.GetHistogram().GetSampleCount()
}

func TestPrometheusMiddleware_RecordsOutcomes(t *testing.T) {
	resetGlobalMetricsForTest()
	defer resetGlobalMetricsForTest()

	r := newTestRouter(t, Prometheus(WithRegistry(newRegistry())))
	ctx := context.Background()

	if err := r.Push(ctx, "/admin"); err != nil {
		t.Fatalf("Push(/admin) error: %v", err)
	}
	if err := r.Push(ctx, "/blocked"); !router.IsNavigationFailure(err, router.FailureAborted) {
		t.Fatalf("Push(/blocked) = %v, want aborted", err)
	}

	c := GetMetrics()
	if c == nil {
		t.Fatal("expected GetMetrics to return collector after initialization")
	}

	counts := []struct {
		trigger string
		outcome string
		want    float64
	}{
		{"push", OutcomeCommitted, 1},
		{"push", OutcomeRedirected, 1},
		{"redirect", OutcomeCommitted, 1},
		{"push", "aborted", 1},
		{"store", OutcomeCommitted, 0},
	}
	for _, tt := range counts {
		got := metricCounterValue(t, c.navigationsTotal.WithLabelValues(tt.trigger, tt.outcome))
		if got != tt.want {
			t.Errorf("navigations_total(%s,%s) = %v, want %v", tt.trigger, tt.outcome, got, tt.want)
		}
	}

	if got := metricCounterValue(t, c.failuresTotal.WithLabelValues("aborted")); got != 1 {
		t.Errorf("navigation_failures_total(aborted) = %v, want 1", got)
	}
	if got := metricCounterValue(t, c.redirectsTotal); got != 1 {
		t.Errorf("redirects_total = %v, want 1", got)
	}
	if got := metricHistogramCount(t, c.navigationDuration.WithLabelValues("push")); got != 3 {
		t.Errorf("navigation_duration_seconds(push) count = %d, want 3", got)
	}
	if got := metricHistogramCount(t, c.navigationDuration.WithLabelValues("redirect")); got != 1 {
		t.Errorf("navigation_duration_seconds(redirect) count = %d, want 1", got)
	}
}

func TestPrometheusMiddleware_StoreTrigger(t *testing.T) {
	resetGlobalMetricsForTest()
	defer resetGlobalMetricsForTest()

	r := newTestRouter(t, Prometheus(WithRegistry(newRegistry())))
	_ = r.Push(context.Background(), "/login")
	if err := r.Back(); err != nil {
		t.Fatalf("Back() error: %v", err)
	}

	c := GetMetrics()
	if got := metricCounterValue(t, c.navigationsTotal.WithLabelValues("store", OutcomeCommitted)); got != 1 {
		t.Errorf("navigations_total(store,committed) = %v, want 1", got)
	}
}

func TestMetricsConfig(t *testing.T) {
	config := defaultMetricsConfig()
	if config.Namespace != "waypoint" {
		t.Errorf("Namespace = %q, want waypoint", config.Namespace)
	}
	if config.Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should default to prometheus.DefaultRegisterer")
	}

	reg := newRegistry()
	for _, opt := range []MetricsOption{
		WithNamespace("app"),
		WithSubsystem("nav"),
		WithConstLabels(prometheus.Labels{"env": "test"}),
		WithBuckets([]float64{0.1, 1}),
		WithRegistry(reg),
	} {
		opt(&config)
	}
	if config.Namespace != "app" || config.Subsystem != "nav" {
		t.Errorf("Namespace/Subsystem = %q/%q", config.Namespace, config.Subsystem)
	}
	if config.ConstLabels["env"] != "test" {
		t.Errorf("ConstLabels = %v", config.ConstLabels)
	}
	if len(config.Buckets) != 2 {
		t.Errorf("Buckets = %v", config.Buckets)
	}
	if config.Registry != reg {
		t.Error("Registry option not applied")
	}
}

func TestPrometheusMiddleware_MetricNames(t *testing.T) {
	resetGlobalMetricsForTest()
	defer resetGlobalMetricsForTest()

	reg := newRegistry()
	r := newTestRouter(t, Prometheus(WithRegistry(reg), WithNamespace("app")))
	_ = r.Push(context.Background(), "/admin")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"app_navigations_total",
		"app_navigation_duration_seconds",
		"app_redirects_total",
		"app_active_connections",
	} {
		if !names[want] {
			t.Errorf("missing metric %s in %v", want, names)
		}
	}
}

func TestMetricsRecordFunctions(t *testing.T) {
	resetGlobalMetricsForTest()
	defer resetGlobalMetricsForTest()

	// Without initialization these are no-ops.
	RecordConnectionOpen()
	RecordConnectionClose()
	RecordStoreError("write")
	if GetMetrics() != nil {
		t.Fatal("GetMetrics() should be nil before Prometheus()")
	}

	Prometheus(WithRegistry(newRegistry()))
	c := GetMetrics()

	RecordConnectionOpen()
	RecordConnectionOpen()
	RecordConnectionClose()
	RecordStoreError("write")

	if got := metricGaugeValue(t, c.activeConnections); got != 1 {
		t.Errorf("active_connections = %v, want 1", got)
	}
	if got := metricCounterValue(t, c.storeErrors.WithLabelValues("write")); got != 1 {
		t.Errorf("store_errors_total(write) = %v, want 1", got)
	}
}

func TestCollectorRegisters(t *testing.T) {
	resetGlobalMetricsForTest()
	defer resetGlobalMetricsForTest()

	Prometheus(WithRegistry(newRegistry()))
	other := newRegistry()
	if err := other.Register(GetMetrics()); err != nil {
		t.Fatalf("Register(Collector) error: %v", err)
	}
}

func TestPrometheusMiddleware_RedirectLoop(t *testing.T) {
	resetGlobalMetricsForTest()
	defer resetGlobalMetricsForTest()

	routes := []router.RouteDefinition{
		{Path: "/", Component: "Home"},
		{Path: "/a", Component: "A"},
		{Path: "/b", Component: "B"},
	}
	r := router.New(history.NewMemory("/"), routes,
		router.WithMaxRedirects(1),
		router.WithMiddleware(Prometheus(WithRegistry(newRegistry()))),
	)
	ctx := context.Background()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	r.BeforeEach(func(ctx context.Context, to, from *router.Location) router.Decision {
		if to.Path == "/a" {
			return router.Redirect("/b")
		}
		return router.Redirect("/a")
	})

	if err := r.Push(ctx, "/a"); !router.IsNavigationFailure(err, router.FailureRedirectLoop) {
		t.Fatalf("Push(/a) = %v, want redirect loop", err)
	}

	c := GetMetrics()
	if got := metricCounterValue(t, c.failuresTotal.WithLabelValues("redirect_loop")); got != 1 {
		t.Errorf("navigation_failures_total(redirect_loop) = %v, want 1", got)
	}
	if got := metricCounterValue(t, c.navigationsTotal.WithLabelValues("redirect", "redirect_loop")); got != 1 {
		t.Errorf("navigations_total(redirect,redirect_loop) = %v, want 1", got)
	}
	if got := metricCounterValue(t, c.navigationsTotal.WithLabelValues("redirect", OutcomeRedirected)); got != 0 {
		t.Errorf("navigations_total(redirect,redirected) = %v, want 0", got)
	}
	if got := metricCounterValue(t, c.redirectsTotal); got != 1 {
		t.Errorf("redirects_total = %v, want 1", got)
	}
}
