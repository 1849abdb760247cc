// Package engine wires a surface, a painter, a frame timer and a builder
// into a runnable render loop.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/me/imagebuilder/internal/builder"
	"github.com/me/imagebuilder/internal/config"
	"github.com/me/imagebuilder/internal/logging"
	"github.com/me/imagebuilder/internal/paint"
	"github.com/me/imagebuilder/internal/surface"
	"github.com/me/imagebuilder/internal/timer"
)

// Engine runs builder cycles on the timer goroutine.
type Engine struct {
	cfg     config.RenderConfig
	logger  *slog.Logger
	surface *surface.Surface
	painter *paint.Painter
	timer   *timer.Timer
	builder *builder.Builder
}

// New assembles an engine from cfg. Extra builder options (listeners, a
// fake clock) are applied after the ones derived from cfg.
func New(cfg config.RenderConfig, logger *slog.Logger, opts ...builder.Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = logging.OrNop(logger)

	surf, err := surface.New(cfg.Width, cfg.Height, surface.WithBackground(cfg.Background))
	if err != nil {
		return nil, fmt.Errorf("create surface: %w", err)
	}
	painter, err := paint.New(surf,
		paint.WithLogger(logger),
		paint.WithRenderBatch(cfg.RenderBatch),
	)
	if err != nil {
		surf.Close()
		return nil, fmt.Errorf("create painter: %w", err)
	}
	tm := timer.New(timer.Config{FrameInterval: cfg.FrameInterval}, logger)

	bopts := append([]builder.Option{
		builder.WithInterval(cfg.Budget),
		builder.WithLogger(logger),
	}, opts...)
	b := builder.New(surf, painter, tm, bopts...)

	painter.SetOnScheduleUpdate(tm.RequestCycle)
	tm.SetListener(func() { b.Cycle() })

	logger.Debug("engine ready", "width", cfg.Width, "height", cfg.Height, "budget", cfg.Budget)
	return &Engine{
		cfg:     cfg,
		logger:  logger,
		surface: surf,
		painter: painter,
		timer:   tm,
		builder: b,
	}, nil
}

// Start runs the render loop until ctx is cancelled or Stop is called.
func (e *Engine) Start(ctx context.Context) error {
	return e.timer.Start(ctx)
}

// Stop ends the render loop, waiting for a running cycle to finish.
func (e *Engine) Stop() error {
	return e.timer.Stop()
}

// Close releases the surface. The engine must be stopped.
func (e *Engine) Close() error {
	return e.surface.Close()
}

// Enqueue adds a job. See builder.Builder.Enqueue.
func (e *Engine) Enqueue(factory builder.SceneFactory, callback builder.Callback) string {
	return e.builder.Enqueue(factory, callback)
}

// Builder returns the job scheduler.
func (e *Engine) Builder() *builder.Builder { return e.builder }

// Surface returns the render surface.
func (e *Engine) Surface() *surface.Surface { return e.surface }

// Painter returns the scene pipeline.
func (e *Engine) Painter() *paint.Painter { return e.painter }

// Timer returns the frame timer.
func (e *Engine) Timer() *timer.Timer { return e.timer }

// Config returns the render configuration.
func (e *Engine) Config() config.RenderConfig { return e.cfg }
