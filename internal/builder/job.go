package builder

import (
	"image"
	"reflect"
	"time"
)

// Root is an opaque handle to a constructed scene. The builder only hands
// it to the Pipeline.
type Root = any

// SceneFactory lazily constructs the scene of a job. It is called at most
// once per job; returning nil (or a typed nil) makes the job rootless.
type SceneFactory interface {
	CreateScene() Root
}

// SceneFactoryFunc adapts a function to SceneFactory.
type SceneFactoryFunc func() Root

// CreateScene calls f.
func (f SceneFactoryFunc) CreateScene() Root { return f() }

// Step is one resumable unit of scene construction. It receives the time
// left in the current cycle and reports whether it must be called again.
// A step should stop early once timeLeft is spent.
type Step interface {
	Step(timeLeft time.Duration) (callAgain bool)
}

// StepFunc adapts a function to Step.
type StepFunc func(timeLeft time.Duration) bool

// Step calls f.
func (f StepFunc) Step(timeLeft time.Duration) bool { return f(timeLeft) }

// Callback receives the finished image of a job, exactly once.
type Callback interface {
	ImageReady(img image.Image)
}

// CallbackFunc adapts a function to Callback.
type CallbackFunc func(img image.Image)

// ImageReady calls f.
func (f CallbackFunc) ImageReady(img image.Image) { f(img) }

// job is one queued render request. Only the cycle goroutine touches
// root and rootless; builders is shared with AttachBuilder under Builder.mu.
type job struct {
	id       string
	factory  SceneFactory
	callback Callback

	root     Root
	rootless bool
	builders []Step
	sealed   bool // no more builders accepted; guarded by Builder.mu
}

func (j *job) constructed() bool {
	return j.root != nil || j.rootless
}

// isEmptyRoot treats both a nil interface and a typed nil pointer as
// "no scene".
func isEmptyRoot(r Root) bool {
	if r == nil {
		return true
	}
	v := reflect.ValueOf(r)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
