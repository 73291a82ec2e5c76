package cmd

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLoggerFormats(t *testing.T) {
	var text, js bytes.Buffer
	newLogger(&text, "info", "").Info("checked", "status", "locked")
	newLogger(&js, "info", "json").Info("checked", "status", "locked")

	if !strings.Contains(text.String(), "status=locked") {
		t.Errorf("text output = %q", text.String())
	}
	if !strings.Contains(js.String(), `"status":"locked"`) {
		t.Errorf("json output = %q", js.String())
	}
}

func TestNewLoggerFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "warn", "")
	l.Info("hidden")
	l.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestEffectiveLogLevel(t *testing.T) {
	useHome(t)
	t.Setenv("DAILYGATE_LOG_LEVEL", "")
	if got := effectiveLogLevel(); got != "warn" {
		t.Errorf("default = %q, want warn", got)
	}

	t.Setenv("DAILYGATE_LOG_LEVEL", "debug")
	if got := effectiveLogLevel(); got != "debug" {
		t.Errorf("env = %q, want debug", got)
	}

	logLevel = "error"
	if got := effectiveLogLevel(); got != "error" {
		t.Errorf("flag = %q, want error", got)
	}
}

func TestRedirectLogging(t *testing.T) {
	useHome(t)
	t.Setenv("DAILYGATE_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "logs", "debug.log")

	prev := slog.Default()
	restore, err := redirectLogging(path)
	if err != nil {
		t.Fatalf("redirectLogging: %v", err)
	}
	slog.Info("gate: poll", "attempt", 3)
	restore()

	if slog.Default() != prev {
		t.Error("default logger not restored")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read debug log: %v", err)
	}
	if !strings.Contains(string(data), "attempt=3") {
		t.Errorf("debug log = %q", data)
	}
}
