// Package instance keeps a single gate running per user. The lock is an OS
// file lock, so it is released when the process exits, crashes included.
package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrHeld is returned when another live process holds the lock
var ErrHeld = errors.New("another gate is already running")

// Lock is an exclusive per-user lock file
type Lock struct {
	path string
	file *os.File
}

// New returns an unacquired lock at path
func New(path string) *Lock {
	return &Lock{path: path}
}

// Path returns the lock file path
func (l *Lock) Path() string {
	return l.path
}

// TryAcquire takes the lock without waiting. When it is held elsewhere the
// returned error wraps ErrHeld and names the holder.
func (l *Lock) TryAcquire() error {
	if l.file != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0700); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	if err := tryLock(f); err != nil {
		f.Close()
		return fmt.Errorf("%w (holder: %s)", ErrHeld, Holder(l.path))
	}
	l.file = f
	l.writeHolder()
	return nil
}

// Release drops the lock. It is safe to call on an unacquired lock.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}
	l.file.Truncate(0)
	unlock(l.file)
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Lock) writeHolder() {
	l.file.Truncate(0)
	l.file.Seek(0, 0)
	fmt.Fprintf(l.file, "pid:%d\ntime:%s\n", os.Getpid(), time.Now().Format(time.RFC3339))
	l.file.Sync()
}

// Holder describes the process recorded in the lock file at path
func Holder(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "unknown"
	}

	var pid, since string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		switch {
		case strings.HasPrefix(line, "pid:"):
			pid = strings.TrimPrefix(line, "pid:")
		case strings.HasPrefix(line, "time:"):
			since = strings.TrimPrefix(line, "time:")
		}
	}
	if pid == "" {
		return "unknown"
	}

	if n, err := strconv.Atoi(pid); err == nil && !isProcessAlive(n) {
		return fmt.Sprintf("pid:%s since %s (stale)", pid, since)
	}
	return fmt.Sprintf("pid:%s since %s", pid, since)
}
