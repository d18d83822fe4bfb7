package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func newBufferLogger(t *testing.T, level, format string) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := New(Config{Level: level, Format: format, Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l, &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log %q: %v", buf.String(), err)
	}
	return entry
}

func TestLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(t, "warn", "json")

	l.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info message written at warn level: %s", buf.String())
	}

	l.Warn("shown", "attempt", 2)
	entry := decodeLine(t, buf)
	if entry["msg"] != "shown" || entry["attempt"] != float64(2) {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestSetLevel(t *testing.T) {
	l, buf := newBufferLogger(t, "error", "json")
	defer SetLevel("warn")

	l.Debug("before")
	SetLevel("debug")
	if GetLevel() != "debug" {
		t.Errorf("GetLevel() = %q, want debug", GetLevel())
	}
	l.Debug("after")

	if strings.Contains(buf.String(), "before") || !strings.Contains(buf.String(), "after") {
		t.Errorf("SetLevel did not apply live: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	for _, lv := range []string{"debug", "info", "warn", "warning", "error", "DEBUG"} {
		if !ValidLevel(lv) {
			t.Errorf("ValidLevel(%q) = false", lv)
		}
	}
	if ValidLevel("verbose") {
		t.Error("ValidLevel(verbose) = true")
	}
	if parseLevel("nonsense") != parseLevel("info") {
		t.Error("unknown level should fall back to info")
	}
}

func TestLogger_TextFormat(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "text")
	l.Info("hello", "k", "v")
	if !strings.Contains(buf.String(), "msg=hello") || !strings.Contains(buf.String(), "k=v") {
		t.Errorf("text output = %q", buf.String())
	}
}

func TestLogger_WithAndSlog(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")
	l.With("component", "engine").Slog().Info("via slog")

	entry := decodeLine(t, buf)
	if entry["component"] != "engine" {
		t.Errorf("With() field lost through Slog(): %v", entry)
	}
}

func TestContextHelpers(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")

	ctx := WithLogger(context.Background(), l)
	ctx = WithRequestID(ctx, "req-1")
	if RequestIDFromContext(ctx) != "req-1" {
		t.Errorf("RequestIDFromContext() = %q", RequestIDFromContext(ctx))
	}
	if RequestIDFromContext(context.Background()) != "" {
		t.Error("empty context should have no request id")
	}

	L(ctx).Info("scoped")
	entry := decodeLine(t, buf)
	if entry["request_id"] != "req-1" {
		t.Errorf("L() did not attach request_id: %v", entry)
	}

	if FromContext(context.Background()) == nil {
		t.Error("FromContext should fall back to the default logger")
	}
}
