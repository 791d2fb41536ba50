package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_WritesJSONFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "thumbgen.log")

	logger, err := New(Options{FilePath: logPath})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	logger.Named("pipeline").Info("run finished", zap.Int("urls", 3))
	_ = logger.Sync()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("file output is not JSON: %v\n%s", err, data)
	}
	if entry["message"] != "run finished" {
		t.Errorf("message = %v, want %q", entry["message"], "run finished")
	}
	if entry["logger"] != "pipeline" {
		t.Errorf("logger = %v, want %q", entry["logger"], "pipeline")
	}
	if entry["urls"] != float64(3) {
		t.Errorf("urls = %v, want 3", entry["urls"])
	}
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New(Options{FilePath: "/nonexistent/dir/for/sure/thumbgen.log"})
	if err == nil {
		t.Fatal("expected error for unwritable log path")
	}
}

func TestNew_LevelOverride(t *testing.T) {
	var console bytes.Buffer
	core := NewTeeCoreWithWriters(zapcore.WarnLevel, zapcore.AddSync(&console), nil, false)
	logger := NewWithCore(core)

	logger.Info("dropped")
	logger.Warn("kept")
	_ = logger.Sync()

	out := console.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info entry should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn entry missing: %s", out)
	}
}

func TestLogger_RedactsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewWithCore(core)

	logger.Info("configured",
		zap.String("openai_api_key", "anything"),
		zap.String("detail", "using key sk-abcdefghijklmnopqrstuvwxyz0123"),
		zap.Int("units", 2),
	)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["openai_api_key"] != RedactedPlaceholder {
		t.Errorf("openai_api_key = %v, want redacted", fields["openai_api_key"])
	}
	if s, _ := fields["detail"].(string); strings.Contains(s, "sk-abc") {
		t.Errorf("detail leaked key: %q", s)
	}
	if fields["units"] != int64(2) {
		t.Errorf("units = %v, want 2", fields["units"])
	}
}

func TestLogger_SugaredRedaction(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewWithCore(core)

	logger.Warnw("retrying", "aws_secret", "hunter2hunter2", "attempt", 2)

	fields := logs.All()[0].ContextMap()
	if fields["aws_secret"] != RedactedPlaceholder {
		t.Errorf("aws_secret = %v, want redacted", fields["aws_secret"])
	}
}

func TestLogger_WithAndNamed(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewWithCore(core).Named("upload").With(zap.String("correlation_id", "abc"))

	logger.Debug("attempt")

	entry := logs.All()[0]
	if entry.LoggerName != "upload" {
		t.Errorf("LoggerName = %q, want upload", entry.LoggerName)
	}
	if entry.ContextMap()["correlation_id"] != "abc" {
		t.Errorf("missing correlation_id: %v", entry.ContextMap())
	}
}

func TestLogger_SyncNil(t *testing.T) {
	var l *Logger
	if err := l.Sync(); err != nil {
		t.Errorf("Sync() on nil logger = %v, want nil", err)
	}
	if err := NewNop().Sync(); err != nil {
		t.Errorf("Sync() on nop logger = %v, want nil", err)
	}
}

func TestRedactKeysAndValues_OddLength(t *testing.T) {
	in := []interface{}{"token", "abc", "dangling"}
	out := redactKeysAndValues(in)
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	if out[1] != RedactedPlaceholder {
		t.Errorf("token value = %v, want redacted", out[1])
	}
	if out[2] != "dangling" {
		t.Errorf("dangling key changed: %v", out[2])
	}
}
