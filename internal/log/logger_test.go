package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type codedErr struct{}

func (codedErr) Error() string     { return "column missing" }
func (codedErr) ErrorCode() string { return "COLUMN_NOT_FOUND" }

func jsonLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{Level: slog.LevelDebug, Format: "json", Component: component, Output: buf})
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid json log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"WARN", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestComponentStampedOnce(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, ComponentApp).WithComponent(ComponentWorker)
	l.Info("hello", FieldPublishID, "p1")

	lines := decodeLines(t, &buf)
	if lines[0][FieldComponent] != ComponentWorker || lines[0][FieldPublishID] != "p1" {
		t.Errorf("record = %v", lines[0])
	}
	if strings.Count(buf.String(), `"component"`) != 1 {
		t.Errorf("component repeated: %s", buf.String())
	}
}

func TestWithErrorAddsCode(t *testing.T) {
	f := NewFields().WithError(fmt.Errorf("parse: %w", codedErr{}))
	if f[FieldErrorCode] != "COLUMN_NOT_FOUND" {
		t.Errorf("fields = %v", f)
	}
	f = NewFields().WithError(errors.New("plain"))
	if _, ok := f[FieldErrorCode]; ok {
		t.Errorf("plain error got a code: %v", f)
	}
	if len(NewFields().WithError(nil)) != 0 {
		t.Errorf("nil error added fields")
	}
}

func TestLogPublishedLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(jsonLogger(&buf, ComponentApp))
	sl.LogPublished(context.Background(), "p1", "snapshot", "", "campaign/snapshot.json", true)
	sl.LogPublished(context.Background(), "p2", "monthly", "2025-11", "campaign/monthly/2025-11.json", false)

	lines := decodeLines(t, &buf)
	if lines[0]["level"] != "INFO" || lines[1]["level"] != "WARN" {
		t.Errorf("levels = %v, %v", lines[0]["level"], lines[1]["level"])
	}
	if lines[1][FieldPeriod] != "2025-11" || lines[1][FieldIntegrityOK] != false {
		t.Errorf("record = %v", lines[1])
	}
	if _, ok := lines[0][FieldPeriod]; ok {
		t.Errorf("empty period logged: %v", lines[0])
	}
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, ComponentHTTP)
	ctx := NewContext(context.Background(), l)
	if FromContext(ctx) != l {
		t.Errorf("FromContext did not return stored logger")
	}
	if FromContext(context.Background()).Component() != "unknown" {
		t.Errorf("fallback logger component")
	}

	var seen *Logger
	h := Middleware(l)(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = FromContext(r.Context())
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if seen == nil || seen.Component() != ComponentHTTP {
		t.Fatalf("request logger = %+v", seen)
	}
	seen.Info("inside")
	if !strings.Contains(buf.String(), `"request_id":"req-1"`) {
		t.Errorf("request id missing: %s", buf.String())
	}
}
