package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/waypoint/pkg/history"
	"github.com/vango-dev/waypoint/pkg/middleware"
	"github.com/vango-dev/waypoint/pkg/routepath"
	"github.com/vango-dev/waypoint/pkg/router"
)

// routeSet is one immutable route table.
type routeSet struct {
	defs    []router.RouteDefinition
	matcher *router.Matcher
}

// Server serves the route table and browser location stores.
type Server struct {
	// Configuration
	config *ServerConfig

	// Current route table, swapped by SetRoutes
	routes atomic.Pointer[routeSet]

	// WebSocket upgrader
	upgrader websocket.Upgrader

	// Live browser connections
	conns *connections

	// HTTP routing
	mux chi.Router

	// HTTP server
	mu         sync.Mutex
	httpServer *http.Server

	// Logger
	logger *slog.Logger
}

// New creates a Server over the given route definitions.
func New(defs []router.RouteDefinition, config *ServerConfig) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}
	config = config.withDefaults()

	s := &Server{
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		conns:  newConnections(),
		logger: slog.Default().With("component", "server"),
	}
	s.SetRoutes(defs)
	s.mux = s.buildMux()
	return s
}

// SetLogger sets the server logger.
func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// SetRoutes replaces the route table used by new connections and the
// JSON endpoints.
func (s *Server) SetRoutes(defs []router.RouteDefinition) {
	s.routes.Store(&routeSet{defs: defs, matcher: router.Build(defs)})
}

// Matcher returns the matcher for the current route table.
func (s *Server) Matcher() *router.Matcher {
	return s.routes.Load().matcher
}

// Connections returns the number of connected browsers.
func (s *Server) Connections() int {
	return s.conns.count()
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) buildMux() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/ws", s.HandleWebSocket)
	r.Get("/routes", s.handleRoutes)
	r.Get("/resolve", s.handleResolve)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.config.MetricsHandler != nil {
		r.Handle("/metrics", s.config.MetricsHandler)
	}
	return r
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, DescribeRoutes(s.Matcher()))
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing path parameter"})
		return
	}
	if _, err := routepath.ValidateTarget(path); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	m := s.Matcher()
	writeJSON(w, http.StatusOK, DescribeLocation(m, m.Resolve(router.PathTarget(path))))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// HandleWebSocket upgrades the request and runs a router over the browser's
// location until it disconnects.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	id := uuid.NewString()
	logger := s.logger.With("conn", id)

	sock, err := history.Accept(r.Context(), conn,
		history.WithSocketLogger(logger),
		history.WithSocketConfig(s.config.Socket),
	)
	if err != nil {
		logger.Warn("handshake failed", "error", err)
		middleware.RecordStoreError("handshake")
		_ = conn.Close()
		return
	}

	set := s.routes.Load()
	opts := []router.Option{
		router.WithLogger(logger),
		router.WithMiddleware(s.config.Middleware...),
	}
	if s.config.MaxRedirects > 0 {
		opts = append(opts, router.WithMaxRedirects(s.config.MaxRedirects))
	}
	rt := router.New(sock, set.defs, opts...)

	s.conns.add(id, sock)
	middleware.RecordConnectionOpen()
	defer func() {
		rt.Close()
		s.conns.remove(id)
		middleware.RecordConnectionClose()
		logger.Debug("browser disconnected")
	}()

	logger.Debug("browser connected", "path", sock.Location())
	if err := rt.Start(r.Context()); err != nil {
		logger.Warn("initial navigation failed", "path", sock.Location(), "error", err)
		if router.IsNavigationFailure(err, router.FailureHistory) {
			middleware.RecordStoreError("write")
			return
		}
	}

	sock.ReadLoop()
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err

	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown closes every browser connection and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	// Hijacked WebSocket connections are not tracked by http.Server.
	s.conns.closeAll()

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}
