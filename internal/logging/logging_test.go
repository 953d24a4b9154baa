package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Format: "json", Output: &buf})

	log.Info(context.Background(), "dropped")
	log.Warn(context.Background(), "kept", String("mission_id", "alpha"), Float("distance", 12.5), Bool("safe", false))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec["msg"] != "kept" || rec["mission_id"] != "alpha" || rec["distance"] != 12.5 || rec["safe"] != false {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestWithAddsFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Format: "text", Output: &buf}).With(Int("workers", 4))

	log.Error(context.Background(), "boom", Err(errors.New("bad input")))

	out := buf.String()
	if !strings.Contains(out, "workers=4") || !strings.Contains(out, `error="bad input"`) {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestFileOutputRotatesThroughLumberjack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deconflict.log")
	log := New(Config{Format: "json", File: path})

	log.Info(context.Background(), "written to file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Fatalf("log file missing record: %q", data)
	}
}

func TestEnsureRequestID(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background())
	if id == "" {
		t.Fatalf("expected generated request id")
	}
	again, id2 := EnsureRequestID(ctx)
	if id2 != id || RequestIDFromContext(again) != id {
		t.Fatalf("request id not preserved: %q vs %q", id, id2)
	}

	fixed := ContextWithRequestID(context.Background(), "req-1")
	if _, got := EnsureRequestID(fixed); got != "req-1" {
		t.Fatalf("EnsureRequestID replaced caller id: %q", got)
	}
}

func TestLoggerContextRoundTrip(t *testing.T) {
	if LoggerFromContext(context.Background()) != nil {
		t.Fatalf("expected nil logger on bare context")
	}
	ctx := ContextWithLogger(context.Background(), nil)
	if LoggerFromContext(ctx) == nil {
		t.Fatalf("nil logger should be stored as Noop")
	}

	var buf bytes.Buffer
	base := New(Config{Format: "json", Output: &buf})
	ctx, reqLog := WithRequestLogger(context.Background(), base)
	reqLog.Info(ctx, "hello")
	if !strings.Contains(buf.String(), RequestIDFromContext(ctx)) {
		t.Fatalf("request logger missing request_id: %q", buf.String())
	}
}
