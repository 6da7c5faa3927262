// Package middleware provides observability middleware for Waypoint routers.
//
// This package includes:
//   - OpenTelemetry tracing of navigation attempts
//   - Prometheus navigation metrics
//   - Structured navigation logging with log/slog
//
// Each middleware wraps one navigation attempt, guards and commit included.
// A redirect starts a new attempt, so a navigation that was redirected once
// is observed twice: once with the "redirected" outcome and once for the
// follow-up.
//
// # OpenTelemetry Middleware
//
//	r := router.New(store, routes,
//	    router.WithMiddleware(
//	        middleware.OpenTelemetry(middleware.WithTracerName("my-app")),
//	    ),
//	)
//
// Guards receive the span's context, so outgoing calls made from a guard
// inherit the trace:
//
//	r.BeforeEach(func(ctx context.Context, to, from *router.Location) router.Decision {
//	    req, _ := http.NewRequestWithContext(ctx, "GET", sessionURL, nil)
//	    ...
//	})
//
// # Prometheus Metrics
//
// The Prometheus middleware collects:
//   - waypoint_navigations_total: attempts by trigger and outcome
//   - waypoint_navigation_duration_seconds: attempt duration histogram
//   - waypoint_navigation_failures_total: failures by kind
//   - waypoint_redirects_total: guard redirects
//   - waypoint_active_connections: connected browser location stores
//   - waypoint_store_errors_total: location store errors by type
//
// Expose them with promhttp:
//
//	http.Handle("/metrics", promhttp.Handler())
//
// # Logging
//
//	router.WithMiddleware(middleware.Logging(slog.Default()))
package middleware
