// Package timer runs a listener on a single goroutine, one frame after it
// was requested. It is the host event loop behind the builder's re-arm
// requests.
package timer

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/me/imagebuilder/internal/logging"
)

// Config holds timer configuration.
type Config struct {
	// FrameInterval is the delay between a request and the listener call.
	FrameInterval time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{FrameInterval: 16 * time.Millisecond}
}

// Timer calls its listener once per outstanding request. Any number of
// RequestCycle calls made before the listener runs collapse into a single
// call. The listener always runs on the goroutine that called Start.
type Timer struct {
	config Config
	logger *slog.Logger

	mu       sync.Mutex
	listener func()

	requests chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
	fired    atomic.Int64
}

// New creates a Timer. The listener is set separately with SetListener so
// the timer can be handed to the component it will drive.
func New(cfg Config, logger *slog.Logger) *Timer {
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultConfig().FrameInterval
	}
	return &Timer{
		config:   cfg,
		logger:   logging.OrNop(logger).With("component", "timer"),
		requests: make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// SetListener sets the function run on every frame.
func (t *Timer) SetListener(fn func()) {
	t.mu.Lock()
	t.listener = fn
	t.mu.Unlock()
}

// RequestCycle schedules one listener call. It never blocks.
func (t *Timer) RequestCycle() {
	select {
	case t.requests <- struct{}{}:
	default:
	}
}

// Pending reports whether a request is waiting to be served.
func (t *Timer) Pending() bool {
	return len(t.requests) > 0
}

// Fired returns how many times the listener has run.
func (t *Timer) Fired() int64 {
	return t.fired.Load()
}

// Start serves requests until ctx is cancelled or Stop is called. A panic
// in the listener is not recovered.
func (t *Timer) Start(ctx context.Context) error {
	t.started.Store(true)
	defer close(t.doneCh)
	t.logger.Info("timer started", "frame_interval", t.config.FrameInterval)

	frame := time.NewTimer(t.config.FrameInterval)
	if !frame.Stop() {
		<-frame.C
	}

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("timer stopping (context cancelled)")
			return ctx.Err()
		case <-t.stopCh:
			t.logger.Info("timer stopping (stop called)")
			return nil
		case <-t.requests:
		}

		frame.Reset(t.config.FrameInterval)
		select {
		case <-ctx.Done():
			frame.Stop()
			t.logger.Info("timer stopping (context cancelled)")
			return ctx.Err()
		case <-t.stopCh:
			frame.Stop()
			t.logger.Info("timer stopping (stop called)")
			return nil
		case <-frame.C:
		}

		t.fire()
	}
}

// Stop ends the loop and waits for the current listener call to return.
func (t *Timer) Stop() error {
	t.stopOnce.Do(func() { close(t.stopCh) })
	if t.started.Load() {
		<-t.doneCh
	}
	return nil
}

func (t *Timer) fire() {
	t.mu.Lock()
	fn := t.listener
	t.mu.Unlock()
	if fn == nil {
		return
	}
	t.fired.Add(1)
	fn()
}
