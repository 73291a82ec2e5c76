// Package scheduler provides the recurring-task primitive the gate controller
// owns while locked. Runs of a task never overlap.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStopped is returned when starting a scheduler that was already stopped
var ErrStopped = errors.New("scheduler stopped")

// ErrRunning is returned when starting a scheduler twice
var ErrRunning = errors.New("scheduler already running")

// Task is one unit of recurring work
type Task func(ctx context.Context)

// Scheduler runs a task repeatedly until stopped. Stop is permanent and may
// be called from inside the task.
type Scheduler interface {
	Start(ctx context.Context, task Task) error
	Stop()
}

// Ticker runs the task once after InitialDelay and then every Interval on a
// single goroutine. A tick that comes due while the task is still running is
// dropped rather than queued.
type Ticker struct {
	Interval     time.Duration
	InitialDelay time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

// NewTicker creates a ticker scheduler
func NewTicker(interval, initialDelay time.Duration) *Ticker {
	return &Ticker{Interval: interval, InitialDelay: initialDelay}
}

// Start launches the loop. It returns immediately.
func (t *Ticker) Start(ctx context.Context, task Task) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return ErrStopped
	}
	if t.cancel != nil {
		return ErrRunning
	}
	if t.Interval <= 0 {
		return errors.New("scheduler: interval must be positive")
	}

	ctx, t.cancel = context.WithCancel(ctx)
	t.done = make(chan struct{})
	go t.loop(ctx, task, t.done)
	return nil
}

func (t *Ticker) loop(ctx context.Context, task Task, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	first := time.NewTimer(t.InitialDelay)
	defer first.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-first.C:
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return
		}
		task(ctx)
		drain(ticker.C)
	}
}

func drain(c <-chan time.Time) {
	for {
		select {
		case <-c:
		default:
			return
		}
	}
}

// Stop cancels the loop permanently. It does not wait for a running task;
// use Wait for that.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.cancel != nil {
		t.cancel()
	}
}

// Wait blocks until the loop goroutine has exited
func (t *Ticker) Wait() {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Manual is a Scheduler driven explicitly by Fire, for tests and for
// presenters that own their own timer.
type Manual struct {
	mu      sync.Mutex
	task    Task
	ctx     context.Context
	stopped bool
	fired   int
}

// NewManual creates a manual scheduler
func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Start(ctx context.Context, task Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return ErrStopped
	}
	if m.task != nil {
		return ErrRunning
	}
	m.task = task
	m.ctx = ctx
	return nil
}

// Fire runs the task synchronously. It reports false when the scheduler is
// not started or already stopped.
func (m *Manual) Fire() bool {
	m.mu.Lock()
	if m.task == nil || m.stopped {
		m.mu.Unlock()
		return false
	}
	task, ctx := m.task, m.ctx
	m.fired++
	m.mu.Unlock()

	task(ctx)
	return true
}

func (m *Manual) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
}

// Stopped reports whether Stop has been called
func (m *Manual) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// Fired returns how many times the task ran
func (m *Manual) Fired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fired
}
