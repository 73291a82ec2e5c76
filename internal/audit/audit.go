// Package audit appends timestamped lifecycle lines (unlocks, overrides,
// fail-safes, validation errors) to a plain text log. Writes are best effort:
// a failure is reported to slog and never returned to the caller.
package audit

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger appends lines to the audit file. The zero value and a nil *Logger
// both discard everything.
type Logger struct {
	mu    sync.Mutex
	path  string
	runID string
	now   func() time.Time
	loc   *time.Location
}

// Option configures a Logger
type Option func(*Logger)

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) Option {
	return func(l *Logger) { l.now = now }
}

// WithLocation sets the timezone timestamps are written in
func WithLocation(loc *time.Location) Option {
	return func(l *Logger) { l.loc = loc }
}

// WithRunID fixes the run identifier instead of generating one
func WithRunID(id string) Option {
	return func(l *Logger) { l.runID = id }
}

// New returns a logger appending to path
func New(path string, opts ...Option) *Logger {
	l := &Logger{
		path:  path,
		runID: uuid.NewString()[:8],
		now:   time.Now,
		loc:   time.Local,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the log file path
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// RunID identifies this process in the log
func (l *Logger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

// Printf writes a single timestamped line
func (l *Logger) Printf(format string, args ...any) {
	if l == nil || l.path == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	line := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	ts := l.now().In(l.loc).Format(time.RFC3339)

	if err := l.appendLine(fmt.Sprintf("[%s] [%s] %s\n", ts, l.runID, line)); err != nil {
		slog.Debug("audit: write failed", "path", l.path, "err", err)
	}
}

// Block writes a multi-line payload (stack traces) under one timestamp
func (l *Logger) Block(title, body string) {
	if l == nil {
		return
	}
	l.Printf("%s", title)
	body = strings.TrimRight(body, "\n")
	if body == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	var b strings.Builder
	for _, line := range strings.Split(body, "\n") {
		b.WriteString("    ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if err := l.appendLine(b.String()); err != nil {
		slog.Debug("audit: write failed", "path", l.path, "err", err)
	}
}

func (l *Logger) appendLine(s string) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(s)
	return err
}

// Tail returns up to n of the most recent lines of the log at path, oldest
// first. n <= 0 returns every line. A missing file yields no lines.
func Tail(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if n > 0 && len(lines) > n {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return lines, err
	}
	return lines, nil
}
