package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	werrors "github.com/vango-dev/waypoint/internal/errors"
	"github.com/vango-dev/waypoint/pkg/manifest"
	"github.com/vango-dev/waypoint/pkg/middleware"
	"github.com/vango-dev/waypoint/pkg/router"
	"github.com/vango-dev/waypoint/pkg/server"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	var (
		host    string
		port    int
		noWatch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the route table to browsers over WebSocket",
		Long: `Start a server that drives navigation for connected browsers.

Each browser connects to /ws and gets its own router over its history.
The server also exposes /routes, /resolve?path=, /healthz and, when
metrics are enabled, /metrics.

A local manifest is watched and reloaded on change. Browsers that are
already connected keep the table they connected with.

Examples:
  waypoint serve
  waypoint serve --port 8080
  waypoint serve --manifest s3://my-bucket/routes.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.loadProject()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				p.cfg.Serve.Host = host
			}
			if cmd.Flags().Changed("port") {
				p.cfg.Serve.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return p.serve(ctx, !noWatch)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Host to bind to (overrides config)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (overrides config)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload the manifest on change")

	return cmd
}

func (p *project) serve(ctx context.Context, watch bool) error {
	defs, err := p.definitions(ctx)
	if err != nil {
		return err
	}

	cfg := server.DefaultServerConfig()
	cfg.Address = p.cfg.ServeAddress()
	cfg.MaxRedirects = p.cfg.MaxRedirects
	cfg.Middleware = append(cfg.Middleware, middleware.Logging(p.logger.With("component", "navigation")))
	if p.cfg.Metrics.Enabled {
		cfg.Middleware = append(cfg.Middleware, middleware.Prometheus(middleware.WithNamespace(p.cfg.Metrics.Namespace)))
		cfg.MetricsHandler = promhttp.Handler()
	}
	if p.cfg.Tracing.Enabled {
		// Outermost, so the span covers the other middleware too.
		cfg.Middleware = append([]router.Middleware{
			middleware.OpenTelemetry(middleware.WithTracerName(p.cfg.Tracing.TracerName)),
		}, cfg.Middleware...)
	}

	srv := server.New(defs, cfg)
	srv.SetLogger(p.logger)

	out := os.Stdout
	printBanner(out)
	success(out, "Serving %d routes from %s", srv.Matcher().Len(), p.location)
	info(out, "WebSocket: ws://%s/ws", cfg.Address)
	if cfg.MetricsHandler != nil {
		info(out, "Metrics:   http://%s/metrics", cfg.Address)
	}
	fmt.Fprintln(out)

	if watch && !strings.HasPrefix(p.location, manifest.S3Scheme) {
		go p.reload(ctx, srv)
	}

	if err := srv.Run(ctx); err != nil {
		return werrors.New("E170").
			WithDetail(fmt.Sprintf("Could not listen on %s: %v", cfg.Address, err)).
			Wrap(err)
	}
	return nil
}

// reload swaps the server's route table whenever the manifest changes. A
// broken manifest is reported and the previous table stays live.
func (p *project) reload(ctx context.Context, srv *server.Server) {
	w := manifest.NewWatcher(p.location, func(m *manifest.Manifest, err error) {
		if err != nil {
			p.logger.Warn("manifest reload failed", "manifest", p.location, "error", err)
			return
		}
		defs, err := p.compile(m)
		if err != nil {
			p.logger.Warn("manifest reload failed", "manifest", p.location, "error", err)
			return
		}
		if err := router.Validate(defs); err != nil {
			p.logger.Warn("manifest reload rejected", "manifest", p.location, "error", err)
			return
		}
		srv.SetRoutes(defs)
		p.logger.Info("routes reloaded", "manifest", p.location, "routes", srv.Matcher().Len())
	}).WithLogger(p.logger)

	if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Error("manifest watcher stopped", "error", err)
	}
}
