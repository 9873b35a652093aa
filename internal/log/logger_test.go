package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func bufferLogger(buf *bytes.Buffer, level slog.Level) *Logger {
	return New(Config{Output: buf, Level: level, Component: ComponentHTTP})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{" warning ", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := bufferLogger(&buf, slog.LevelInfo)

	logger.Info("first")
	logger.WithComponent(ComponentSession).Info("second", FieldSessions, 3)
	logger.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "component=http") || !strings.Contains(out, "msg=first") {
		t.Errorf("missing http component:\n%s", out)
	}
	if !strings.Contains(out, "component=session") || !strings.Contains(out, "sessions=3") {
		t.Errorf("missing session component:\n%s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Error("debug record should be filtered at info level")
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := bufferLogger(&buf, slog.LevelInfo)

	h := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).Info("inside")
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(buf.String(), "request_id=req-1") {
		t.Errorf("request id not propagated:\n%s", buf.String())
	}
}

func TestFromContextFallback(t *testing.T) {
	if FromContext(context.Background()).Component() != "unknown" {
		t.Error("expected fallback logger")
	}
}

func TestStructuredLoggerLogError(t *testing.T) {
	var buf bytes.Buffer
	events := NewStructuredLogger(bufferLogger(&buf, slog.LevelInfo))

	events.LogError(context.Background(), "Upload rejected", errors.New("boom"), ComponentDashboard, OpUpload,
		NewFields().WithSession("0123456789abcdef"))

	out := buf.String()
	for _, want := range []string{"level=ERROR", "error=boom", "operation=upload", "session_id=01234567"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
	if strings.Contains(out, "0123456789") {
		t.Error("session id should be shortened")
	}
}

func TestLogHTTPEndLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "level=INFO"},
		{http.StatusNotFound, "level=WARN"},
		{http.StatusInternalServerError, "level=ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		events := NewStructuredLogger(bufferLogger(&buf, slog.LevelInfo))
		r := httptest.NewRequest(http.MethodGet, "/dashboard?period=week", nil)

		events.LogHTTPEnd(context.Background(), r, tt.status, 12, "192.0.2.1")

		out := buf.String()
		if !strings.Contains(out, tt.level) || !strings.Contains(out, "client_ip=192.0.2.1") {
			t.Errorf("status %d: unexpected record %s", tt.status, out)
		}
	}
}
