package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC) }
}

func TestPrintfAppendsTimestampedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "gate.log")
	l := New(path, WithClock(fixedClock()), WithLocation(time.UTC), WithRunID("run1"))

	l.Printf("Unlocked by: %s", "emergency")
	l.Printf("second\n")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "[2024-06-01T14:00:00Z] [run1] Unlocked by: emergency\n" +
		"[2024-06-01T14:00:00Z] [run1] second\n"
	if string(data) != want {
		t.Errorf("log contents:\n%s\nwant:\n%s", data, want)
	}
}

func TestPrintfIsBestEffort(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	// Parent of the log path is a regular file, so every write fails.
	l := New(filepath.Join(blocker, "gate.log"))
	l.Printf("should not panic")
}

func TestNilLoggerDiscards(t *testing.T) {
	var l *Logger
	l.Printf("nothing")
	l.Block("nothing", "at all")
	if l.Path() != "" || l.RunID() != "" {
		t.Error("nil logger should report empty path and run id")
	}
}

func TestBlockIndentsBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gate.log")
	l := New(path, WithClock(fixedClock()), WithLocation(time.UTC), WithRunID("r"))
	l.Block("Fatal: boom", "goroutine 1\nmain.main()\n")

	lines, err := Tail(path, 0)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines: %q", len(lines), lines)
	}
	if !strings.HasSuffix(lines[0], "Fatal: boom") {
		t.Errorf("title line = %q", lines[0])
	}
	if lines[1] != "    goroutine 1" {
		t.Errorf("body line = %q", lines[1])
	}
}

func TestTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gate.log")
	l := New(path, WithRunID("r"))
	for i := 0; i < 5; i++ {
		l.Printf("line %d", i)
	}

	lines, err := Tail(path, 2)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	if !strings.HasSuffix(lines[0], "line 3") || !strings.HasSuffix(lines[1], "line 4") {
		t.Errorf("Tail = %q", lines)
	}

	missing, err := Tail(filepath.Join(t.TempDir(), "none.log"), 10)
	if err != nil || len(missing) != 0 {
		t.Errorf("missing file: %q, %v", missing, err)
	}
}

func TestRunIDGenerated(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "gate.log"))
	if len(l.RunID()) != 8 {
		t.Errorf("RunID = %q, want 8 chars", l.RunID())
	}
}
