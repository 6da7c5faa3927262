package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/vango-dev/waypoint/pkg/router"
)

// Logging creates middleware that writes one structured log record per
// navigation attempt. Commits and redirects log at Info, cancellations at
// Debug and every other failure at Warn.
func Logging(logger *slog.Logger) router.Middleware {
	if logger == nil {
		logger = slog.Default().With("component", "navigation")
	}

	return router.MiddlewareFunc(func(ctx context.Context, nav *router.Navigation, next func(context.Context) error) error {
		start := time.Now()
		err := next(ctx)

		outcome := Outcome(nav, err)
		attrs := []slog.Attr{
			slog.String("nav_id", nav.ID),
			slog.String("trigger", string(nav.Trigger)),
			slog.String("target", nav.Target),
			slog.String("outcome", outcome),
			slog.Duration("duration", time.Since(start)),
		}
		if nav.To != nil {
			attrs = append(attrs, slog.String("path", nav.To.FullPath), slog.Bool("found", nav.To.Found()))
		}
		if nav.Redirect != "" {
			attrs = append(attrs, slog.String("redirect", nav.Redirect))
		}
		if nav.Redirects > 0 {
			attrs = append(attrs, slog.Int("redirects", nav.Redirects))
		}

		level := slog.LevelInfo
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
			level = slog.LevelWarn
			if router.IsNavigationFailure(err, router.FailureCancelled) {
				level = slog.LevelDebug
			}
		}

		logger.LogAttrs(ctx, level, "navigation", attrs...)
		return err
	})
}
