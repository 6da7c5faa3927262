package middleware

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/waypoint/pkg/router"
)

// Default tracer name for Waypoint routers.
const defaultTracerName = "waypoint"

// SpanName is the name of every navigation span.
const SpanName = "waypoint.navigate"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "waypoint").
	TracerName string

	// TracerProvider overrides the global tracer provider.
	TracerProvider trace.TracerProvider

	// IncludeMeta records the target's merged meta as span attributes.
	// Meta may carry sensitive values, so it is disabled by default.
	IncludeMeta bool

	// Filter determines which navigations to trace.
	// Return true to trace the navigation, false to skip.
	// If nil, all navigations are traced.
	Filter func(nav *router.Navigation) bool

	// AttributeExtractor extracts custom attributes from the navigation.
	// Called for each traced navigation after it finishes.
	AttributeExtractor func(nav *router.Navigation) []attribute.KeyValue

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithIncludeMeta enables recording route meta on spans.
func WithIncludeMeta(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludeMeta = include
	}
}

// WithNavigationFilter sets a filter function for navigations.
func WithNavigationFilter(filter func(nav *router.Navigation) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(nav *router.Navigation) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

// defaultOTelConfig returns the default OpenTelemetry configuration.
func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName:  defaultTracerName,
		IncludeMeta: false,
		Filter:      nil,
	}
}

// OpenTelemetry creates middleware that traces every navigation attempt.
//
// The span is started before guards run and the span's context is what the
// guards receive, so guard code that calls out to other services joins the
// trace. The span records the target, trigger and resolved route, and ends
// with an error status for failed navigations.
//
// The tracer uses the global OpenTelemetry tracer provider unless
// WithTracerProvider is given. Configure it in main():
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
func OpenTelemetry(opts ...OTelOption) router.Middleware {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}

	if config.TracerProvider != nil {
		config.tracer = config.TracerProvider.Tracer(config.TracerName)
	} else {
		config.tracer = otel.Tracer(config.TracerName)
	}

	return router.MiddlewareFunc(func(ctx context.Context, nav *router.Navigation, next func(context.Context) error) error {
		if config.Filter != nil && !config.Filter(nav) {
			return next(ctx)
		}

		attrs := []attribute.KeyValue{
			attribute.String("waypoint.nav_id", nav.ID),
			attribute.String("waypoint.target", nav.Target),
			attribute.String("waypoint.trigger", string(nav.Trigger)),
			attribute.Bool("waypoint.replace", nav.Replace),
			attribute.Int("waypoint.redirects", nav.Redirects),
		}
		if nav.From != nil {
			attrs = append(attrs, attribute.String("waypoint.from", nav.From.FullPath))
		}

		spanCtx, span := config.tracer.Start(
			ctx,
			SpanName,
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(attrs...),
			trace.WithTimestamp(time.Now()),
		)
		defer span.End()

		err := next(spanCtx)

		if nav.To != nil {
			span.SetAttributes(
				attribute.String("waypoint.path", nav.To.FullPath),
				attribute.Int("waypoint.matched", len(nav.To.Matched)),
			)
			if leaf := nav.To.Leaf(); leaf != nil {
				span.SetAttributes(attribute.String("waypoint.route", leaf.FullPath))
			}
			if config.IncludeMeta {
				for k, v := range nav.To.Meta() {
					span.SetAttributes(attribute.String("waypoint.meta."+k, fmt.Sprintf("%v", v)))
				}
			}
		}
		if nav.Redirect != "" {
			span.SetAttributes(attribute.String("waypoint.redirect", nav.Redirect))
		}
		span.SetAttributes(attribute.String("waypoint.outcome", Outcome(nav, err)))

		if config.AttributeExtractor != nil {
			span.SetAttributes(config.AttributeExtractor(nav)...)
		}

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	})
}

// SpanFromContext returns the navigation span carried by a guard's context.
// It returns nil when the context carries no recording span.
func SpanFromContext(ctx context.Context) trace.Span {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() && !span.IsRecording() {
		return nil
	}
	return span
}
