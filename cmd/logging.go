package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func effectiveLogLevel() string {
	if logLevel != "" {
		return logLevel
	}
	if v := os.Getenv("DAILYGATE_LOG_LEVEL"); v != "" {
		return v
	}
	return "warn"
}

// setupLogging installs the default slog logger writing to w
func setupLogging(w io.Writer) {
	slog.SetDefault(newLogger(w, effectiveLogLevel(), os.Getenv("DAILYGATE_LOG_FORMAT")))
}

// redirectLogging sends slog output to the file at path while a full-screen
// program owns the terminal. The returned func restores stderr logging.
func redirectLogging(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open debug log: %w", err)
	}
	prev := slog.Default()
	level := effectiveLogLevel()
	if logLevel == "" && os.Getenv("DAILYGATE_LOG_LEVEL") == "" {
		// Nobody is watching the file, so default to the detail worth keeping.
		level = "info"
	}
	slog.SetDefault(newLogger(f, level, os.Getenv("DAILYGATE_LOG_FORMAT")))
	return func() {
		slog.SetDefault(prev)
		f.Close()
	}, nil
}
