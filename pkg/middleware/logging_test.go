package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		out = append(out, rec)
	}
	return out
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := newTestRouter(t, Logging(logger))

	_ = r.Push(context.Background(), "/admin")
	_ = r.Push(context.Background(), "/blocked")

	lines := decodeLines(t, &buf)
	// start, /admin redirected, /login follow-up, /blocked aborted
	if len(lines) != 4 {
		t.Fatalf("log lines = %d, want 4: %s", len(lines), buf.String())
	}

	tests := []struct {
		level   string
		target  string
		outcome string
	}{
		{"INFO", "/", OutcomeCommitted},
		{"INFO", "/admin", OutcomeRedirected},
		{"INFO", "/login", OutcomeCommitted},
		{"WARN", "/blocked", "aborted"},
	}
	for i, tt := range tests {
		rec := lines[i]
		if rec["level"] != tt.level || rec["target"] != tt.target || rec["outcome"] != tt.outcome {
			t.Errorf("line %d = %v, want level=%s target=%s outcome=%s", i, rec, tt.level, tt.target, tt.outcome)
		}
		if rec["nav_id"] == "" {
			t.Errorf("line %d has no nav_id", i)
		}
	}
	if lines[1]["redirect"] != "/login" {
		t.Errorf("redirect = %v, want /login", lines[1]["redirect"])
	}
	if lines[2]["redirects"] != float64(1) {
		t.Errorf("redirects = %v, want 1", lines[2]["redirects"])
	}
	if _, ok := lines[3]["error"]; !ok {
		t.Error("failure line has no error field")
	}
}

func TestLoggingMiddleware_NilLogger(t *testing.T) {
	if Logging(nil) == nil {
		t.Fatal("Logging(nil) returned nil")
	}
}
