package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestTickerRunsInitialThenInterval(t *testing.T) {
	var runs atomic.Int32
	tk := NewTicker(20*time.Millisecond, time.Millisecond)

	if err := tk.Start(context.Background(), func(ctx context.Context) {
		runs.Add(1)
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	tk.Stop()
	tk.Wait()

	if runs.Load() < 3 {
		t.Fatalf("runs = %d, want at least 3", runs.Load())
	}
}

func TestTickerNeverOverlaps(t *testing.T) {
	var active, maxActive, runs atomic.Int32
	tk := NewTicker(2*time.Millisecond, 0)

	err := tk.Start(context.Background(), func(ctx context.Context) {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		active.Add(-1)
		runs.Add(1)
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	time.Sleep(80 * time.Millisecond)
	tk.Stop()
	tk.Wait()

	if maxActive.Load() != 1 {
		t.Errorf("max concurrent runs = %d, want 1", maxActive.Load())
	}
	if runs.Load() == 0 {
		t.Error("task never ran")
	}
}

func TestTickerStopFromInsideTask(t *testing.T) {
	tk := NewTicker(time.Millisecond, 0)
	var runs atomic.Int32

	err := tk.Start(context.Background(), func(ctx context.Context) {
		runs.Add(1)
		tk.Stop()
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	done := make(chan struct{})
	go func() {
		tk.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after Stop inside task")
	}
	if runs.Load() != 1 {
		t.Errorf("runs = %d, want 1", runs.Load())
	}
}

func TestTickerStopIsPermanent(t *testing.T) {
	tk := NewTicker(time.Second, time.Second)
	tk.Stop()
	if err := tk.Start(context.Background(), func(context.Context) {}); err != ErrStopped {
		t.Errorf("Start after Stop = %v, want ErrStopped", err)
	}
}

func TestTickerRejectsDoubleStart(t *testing.T) {
	tk := NewTicker(time.Hour, time.Hour)
	defer tk.Stop()
	if err := tk.Start(context.Background(), func(context.Context) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := tk.Start(context.Background(), func(context.Context) {}); err != ErrRunning {
		t.Errorf("second Start = %v, want ErrRunning", err)
	}
}

func TestManual(t *testing.T) {
	m := NewManual()
	if m.Fire() {
		t.Error("Fire before Start should not run")
	}

	var runs int
	if err := m.Start(context.Background(), func(context.Context) { runs++ }); err != nil {
		t.Fatalf("Start: %v", err)
	}
	m.Fire()
	m.Fire()
	if runs != 2 || m.Fired() != 2 {
		t.Errorf("runs = %d fired = %d, want 2", runs, m.Fired())
	}

	m.Stop()
	if m.Fire() {
		t.Error("Fire after Stop should not run")
	}
	if !m.Stopped() {
		t.Error("Stopped() = false")
	}
	if err := m.Start(context.Background(), func(context.Context) {}); err != ErrStopped {
		t.Errorf("Start after Stop = %v", err)
	}
}
