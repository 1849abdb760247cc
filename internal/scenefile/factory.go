package scenefile

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dop251/goja"

	"github.com/me/imagebuilder/internal/builder"
	"github.com/me/imagebuilder/internal/logging"
	"github.com/me/imagebuilder/internal/scene"
	"github.com/me/imagebuilder/pkg/model"
)

// Attacher is the part of the builder a factory needs to schedule extra
// construction work for its own job.
type Attacher interface {
	AttachBuilder(step builder.Step) error
	Pipeline() builder.Pipeline
}

// DefaultScriptTimeout bounds a scene script when no other limit is set.
const DefaultScriptTimeout = 100 * time.Millisecond

// Option configures a Factory.
type Option func(*factoryOptions)

type factoryOptions struct {
	scriptTimeout time.Duration
}

// WithScriptTimeout sets how long a scene script may run before it is
// interrupted. Values <= 0 keep the default.
func WithScriptTimeout(d time.Duration) Option {
	return func(o *factoryOptions) {
		if d > 0 {
			o.scriptTimeout = d
		}
	}
}

// Factory returns a scene factory for spec. A grow block is attached to
// the job as a builder step when the scene is constructed. A script that
// fails or runs past its timeout yields no scene.
func Factory(spec model.SceneSpec, att Attacher, logger *slog.Logger, opts ...Option) builder.SceneFactory {
	logger = logging.OrNop(logger).With("scene", spec.Name)
	o := factoryOptions{scriptTimeout: DefaultScriptTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return builder.SceneFactoryFunc(func() builder.Root {
		if spec.Empty {
			return nil
		}

		var caret *scene.Caret
		var err error
		if spec.Script != "" {
			caret, err = runScript(spec, o.scriptTimeout)
		} else {
			caret, err = buildChain(spec)
		}
		if err != nil {
			logger.Warn("scene construction failed", "error", err)
			return nil
		}
		if caret == nil {
			return nil
		}

		if g := spec.Grow; g != nil && g.Count > 0 && att != nil {
			if err := att.AttachBuilder(growStep(caret, *g, att.Pipeline())); err != nil {
				logger.Warn("attach grow step", "error", err)
			}
		}
		return caret.Root()
	})
}

func buildChain(spec model.SceneSpec) (*scene.Caret, error) {
	c := scene.NewCaret(scene.Block)
	for i := 0; i < spec.Repeat; i++ {
		if err := c.SpawnMove(spec.Direction, "b"); err != nil {
			return nil, err
		}
		if spec.Label != "" {
			c.Label(spec.Label)
		}
	}
	return c, nil
}

func compile(name, script string) (*goja.Program, error) {
	return goja.Compile(name, "(function(){\n"+script+"\n})()", true)
}

// ErrScriptTimeout is returned when a scene script is interrupted for
// running longer than its timeout.
var ErrScriptTimeout = errors.New("scene script timed out")

// runScript runs spec.Script with a caret and the spec's label in scope.
// A script returning null yields no scene.
func runScript(spec model.SceneSpec, timeout time.Duration) (*scene.Caret, error) {
	prog, err := compile(spec.Name, spec.Script)
	if err != nil {
		return nil, err
	}
	caret := scene.NewCaret(scene.Block)

	vm := goja.New()
	vm.SetFieldNameMapper(goja.UncapFieldNameMapper())
	if err := vm.Set("caret", caret); err != nil {
		return nil, fmt.Errorf("set caret: %w", err)
	}
	if err := vm.Set("label", spec.Label); err != nil {
		return nil, fmt.Errorf("set label: %w", err)
	}

	timer := time.AfterFunc(timeout, func() { vm.Interrupt(ErrScriptTimeout) })
	v, err := vm.RunProgram(prog)
	timer.Stop()
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return nil, fmt.Errorf("%w after %s", ErrScriptTimeout, timeout)
		}
		return nil, fmt.Errorf("run script: %w", err)
	}
	if goja.IsNull(v) {
		return nil, nil
	}
	return caret, nil
}

// growStep extends the scene from the caret by up to PerStep nodes per
// call until Count nodes have been added. A call adds at least one node
// and stops early once timeLeft has elapsed.
func growStep(c *scene.Caret, g model.GrowSpec, pipeline builder.Pipeline) builder.Step {
	per := g.PerStep
	if per <= 0 {
		per = 1
	}
	added := 0
	return builder.StepFunc(func(timeLeft time.Duration) bool {
		start := time.Now()
		defer pipeline.MarkDirty()
		for i := 0; i < per && added < g.Count; i++ {
			if err := c.SpawnMove(g.Direction, "b"); err != nil {
				return false
			}
			added++
			if time.Since(start) >= timeLeft {
				break
			}
		}
		if added < g.Count {
			return true
		}
		if g.Label != "" {
			c.Label(g.Label)
		}
		return false
	})
}
