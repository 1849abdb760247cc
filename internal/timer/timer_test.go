package timer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func startTimer(t *testing.T, tm *Timer) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- tm.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		tm.Stop()
	})
	return cancel, errCh
}

func TestRequestCycle_CollapsesRequests(t *testing.T) {
	tm := New(Config{FrameInterval: time.Millisecond}, nil)
	for i := 0; i < 10; i++ {
		tm.RequestCycle()
	}
	if !tm.Pending() {
		t.Fatal("Pending() = false after RequestCycle")
	}

	fired := make(chan struct{}, 16)
	tm.SetListener(func() { fired <- struct{}{} })
	startTimer(t, tm)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("listener never ran")
	}
	select {
	case <-fired:
		t.Fatal("listener ran twice for collapsed requests")
	case <-time.After(50 * time.Millisecond):
	}
	if got := tm.Fired(); got != 1 {
		t.Errorf("Fired() = %d, want 1", got)
	}
}

func TestStart_ListenerCanRearm(t *testing.T) {
	tm := New(Config{FrameInterval: time.Millisecond}, nil)
	var n atomic.Int32
	done := make(chan struct{})
	tm.SetListener(func() {
		if n.Add(1) < 5 {
			tm.RequestCycle()
			return
		}
		close(done)
	})
	tm.RequestCycle()
	startTimer(t, tm)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("listener ran %d times, want 5", n.Load())
	}
}

func TestStart_ContextCancel(t *testing.T) {
	tm := New(DefaultConfig(), nil)
	cancel, errCh := startTimer(t, tm)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Start() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestStop_ReturnsNil(t *testing.T) {
	tm := New(DefaultConfig(), nil)
	_, errCh := startTimer(t, tm)
	// A pending frame must not delay Stop.
	tm.RequestCycle()

	if err := tm.Stop(); err != nil {
		t.Fatalf("Stop() = %v", err)
	}
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start() = %v, want nil after Stop", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestStop_WithoutStart(t *testing.T) {
	tm := New(DefaultConfig(), nil)
	if err := tm.Stop(); err != nil {
		t.Errorf("Stop() = %v", err)
	}
	// Second Stop must not panic on the closed channel.
	if err := tm.Stop(); err != nil {
		t.Errorf("second Stop() = %v", err)
	}
}
