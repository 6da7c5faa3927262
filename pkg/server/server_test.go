package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/waypoint/pkg/history"
	"github.com/vango-dev/waypoint/pkg/router"
)

func testRoutes() []router.RouteDefinition {
	return []router.RouteDefinition{
		{Path: "/", Name: "home", Component: "Home"},
		{Path: "/login", Name: "login", Component: "Login"},
		{
			Path:      "/admin",
			Component: "AdminLayout",
			Meta:      map[string]any{"requiresAuth": true},
			BeforeEnter: func(ctx context.Context, to, from *router.Location) router.Decision {
				return router.Redirect("/login")
			},
			Children: []router.RouteDefinition{
				{Path: "users", Component: "Users", Meta: map[string]any{"title": "Users"}},
			},
		},
	}
}

func newTestServer(t *testing.T, config *ServerConfig) (*Server, *httptest.Server) {
	t.Helper()
	s := New(testRoutes(), config)
	s.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server, hello string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	if err := client.WriteJSON(history.Frame{Type: history.FrameHello, Path: hello}); err != nil {
		t.Fatalf("write hello: %v", err)
	}
	return client
}

func readFrame(t *testing.T, client *websocket.Conn) history.Frame {
	t.Helper()
	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f history.Frame
	if err := client.ReadJSON(&f); err != nil {
		t.Fatalf("client read: %v", err)
	}
	return f
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebSocketInitialNavigation(t *testing.T) {
	s, ts := newTestServer(t, nil)
	client := dial(t, ts, "/login")

	f := readFrame(t, client)
	if f.Type != history.FrameReplace || f.Path != "/login" {
		t.Errorf("first frame = %+v, want replace /login", f)
	}
	waitFor(t, func() bool { return s.Connections() == 1 })
}

func TestWebSocketGuardRedirect(t *testing.T) {
	_, ts := newTestServer(t, nil)
	client := dial(t, ts, "/admin")

	// The first navigation replaces, and so does its redirect.
	f := readFrame(t, client)
	if f.Type != history.FrameReplace || f.Path != "/login" {
		t.Errorf("frame = %+v, want replace /login", f)
	}
}

func TestWebSocketPopSync(t *testing.T) {
	_, ts := newTestServer(t, nil)
	client := dial(t, ts, "/login")
	readFrame(t, client)

	if err := client.WriteJSON(history.Frame{Type: history.FramePop, Path: "/"}); err != nil {
		t.Fatal(err)
	}
	f := readFrame(t, client)
	if f.Type != history.FrameReplace || f.Path != "/" {
		t.Errorf("frame = %+v, want replace /", f)
	}

	// A pop into a guarded route is redirected, still in place.
	if err := client.WriteJSON(history.Frame{Type: history.FramePop, Path: "/admin/users"}); err != nil {
		t.Fatal(err)
	}
	f = readFrame(t, client)
	if f.Type != history.FrameReplace || f.Path != "/login" {
		t.Errorf("frame = %+v, want replace /login", f)
	}
}

func TestWebSocketRequiresHello(t *testing.T) {
	s, ts := newTestServer(t, &ServerConfig{
		Socket: history.SocketConfig{WriteTimeout: time.Second, HelloTimeout: time.Second},
	})
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	if err := client.WriteJSON(history.Frame{Type: history.FramePop, Path: "/"}); err != nil {
		t.Fatal(err)
	}
	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := client.ReadMessage(); err == nil {
		t.Error("expected the server to close the connection")
	}
	if s.Connections() != 0 {
		t.Errorf("Connections() = %d, want 0", s.Connections())
	}
}

func TestRoutesEndpoint(t *testing.T) {
	_, ts := newTestServer(t, nil)

	var routes []RouteInfo
	if code := getJSON(t, ts.URL+"/routes", &routes); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(routes) != 4 {
		t.Fatalf("routes = %+v, want 4", routes)
	}

	byPath := make(map[string]RouteInfo)
	for _, r := range routes {
		byPath[r.Path] = r
	}
	users, ok := byPath["/admin/users"]
	if !ok {
		t.Fatalf("missing /admin/users in %+v", routes)
	}
	if users.Depth != 1 || users.Parent != "/admin" {
		t.Errorf("users = %+v", users)
	}
	if !byPath["/admin"].Guarded || byPath["/login"].Guarded {
		t.Error("Guarded flags wrong")
	}
	if len(users.Components) != 1 || users.Components[0] != router.DefaultView {
		t.Errorf("Components = %v", users.Components)
	}
}

func TestResolveEndpoint(t *testing.T) {
	_, ts := newTestServer(t, nil)

	tests := []struct {
		name    string
		query   string
		status  int
		found   bool
		matched int
	}{
		{"nested", "?path=/admin/users", http.StatusOK, true, 2},
		{"canonicalized", "?path=/admin//users/", http.StatusOK, true, 2},
		{"unmatched", "?path=/nope", http.StatusOK, false, 0},
		{"missing", "", http.StatusBadRequest, false, 0},
		{"invalid", "?path=%2Fa%5Cb", http.StatusBadRequest, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res Resolution
			code := getJSON(t, ts.URL+"/resolve"+tt.query, &res)
			if code != tt.status {
				t.Fatalf("status = %d, want %d", code, tt.status)
			}
			if code != http.StatusOK {
				return
			}
			if res.Found != tt.found || len(res.Matched) != tt.matched {
				t.Errorf("resolution = %+v", res)
			}
		})
	}

	var res Resolution
	getJSON(t, ts.URL+"/resolve?path=/admin/users", &res)
	if res.Meta["title"] != "Users" || res.Meta["requiresAuth"] != true {
		t.Errorf("Meta = %v", res.Meta)
	}
	if res.Matched[0].Path != "/admin" || res.Matched[1].Path != "/admin/users" {
		t.Errorf("Matched = %+v", res.Matched)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	_, ts := newTestServer(t, nil)
	if code := getJSON(t, ts.URL+"/healthz", nil); code != http.StatusOK {
		t.Errorf("/healthz = %d", code)
	}
	if code := getJSON(t, ts.URL+"/metrics", nil); code != http.StatusNotFound {
		t.Errorf("/metrics without handler = %d, want 404", code)
	}

	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	_, ts2 := newTestServer(t, &ServerConfig{MetricsHandler: metrics})
	if code := getJSON(t, ts2.URL+"/metrics", nil); code != http.StatusTeapot {
		t.Errorf("/metrics = %d, want the configured handler", code)
	}
}

func TestSetRoutes(t *testing.T) {
	s, ts := newTestServer(t, nil)
	s.SetRoutes([]router.RouteDefinition{{Path: "/only", Component: "Only"}})

	var routes []RouteInfo
	getJSON(t, ts.URL+"/routes", &routes)
	if len(routes) != 1 || routes[0].Path != "/only" {
		t.Errorf("routes = %+v", routes)
	}
}

func TestServeAndShutdown(t *testing.T) {
	s := New(testRoutes(), &ServerConfig{ShutdownTimeout: time.Second})
	s.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	wsURL := "ws://" + ln.Addr().String() + "/ws"
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()
	_ = client.WriteJSON(history.Frame{Type: history.FrameHello, Path: "/"})
	readFrame(t, client)
	waitFor(t, func() bool { return s.Connections() == 1 })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return")
	}
	waitFor(t, func() bool { return s.Connections() == 0 })
}

func TestSameOriginCheck(t *testing.T) {
	tests := []struct {
		name   string
		host   string
		origin string
		want   bool
	}{
		{"no origin", "example.com", "", true},
		{"same origin", "example.com", "https://example.com", true},
		{"other origin", "example.com", "https://evil.com", false},
		{"port mismatch", "example.com:4000", "http://example.com:5000", false},
		{"bad origin", "example.com", "://bad", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/ws", nil)
			r.Host = tt.host
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := SameOriginCheck(r); got != tt.want {
				t.Errorf("SameOriginCheck() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	c := (&ServerConfig{}).withDefaults()
	if c.Address != ":4000" || c.CheckOrigin == nil || c.ShutdownTimeout != 30*time.Second {
		t.Errorf("defaults = %+v", c)
	}
	if c.Socket != history.DefaultSocketConfig() {
		t.Errorf("Socket = %+v", c.Socket)
	}
}
