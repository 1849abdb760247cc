// Package builder schedules render jobs onto a single surface, doing a
// bounded amount of work per cycle.
//
// A job constructs its scene once, drains any builder steps attached to it
// in FIFO order, then lets the pipeline paint and render until it reports
// no more work. Only then is the image delivered and the next job started,
// on the following cycle. Each cycle is bounded by a deadline clock; when
// the budget runs out mid-drain the cycle aborts and asks the Trigger for
// another one.
package builder

import (
	"errors"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/me/imagebuilder/internal/deadline"
	"github.com/me/imagebuilder/internal/logging"
)

// ErrNoActiveJob is returned by AttachBuilder when the queue is empty.
var ErrNoActiveJob = errors.New("builder: no active job to attach a builder step to")

// ErrJobRetiring is returned by AttachBuilder once the active job has
// finished its work and is delivering its image.
var ErrJobRetiring = errors.New("builder: active job is retiring and accepts no more builder steps")

// ErrNilStep is returned by AttachBuilder for a nil step.
var ErrNilStep = errors.New("builder: nil builder step")

// Surface is the fixed-size pixel target jobs render into.
type Surface interface {
	Width() int
	Height() int
	// Screenshot returns a copy of the current pixels.
	Screenshot() image.Image
	// Reset clears the surface between jobs.
	Reset()
}

// Pipeline lays out, paints and renders the active scene onto its surface.
type Pipeline interface {
	// FitToView fits the scene into the viewport of the pipeline's camera.
	FitToView(root Root)
	// SetRoot associates a scene with the pipeline; nil releases it.
	SetRoot(root Root)
	// MarkDirty forces the next Paint to start over.
	MarkDirty()
	// Paint does up to timeLeft of paint work and reports whether more remains.
	Paint(timeLeft time.Duration) bool
	// Render draws painted content and reports whether more remains.
	Render() bool
}

// Trigger asks the host to run Cycle again. Repeated requests before the
// cycle runs collapse into one.
type Trigger interface {
	RequestCycle()
}

// TriggerFunc adapts a function to Trigger.
type TriggerFunc func()

// RequestCycle calls f.
func (f TriggerFunc) RequestCycle() { f() }

// Outcome summarizes what a cycle did.
type Outcome int

const (
	// OutcomeIdle: the queue was empty. Nothing changed and no cycle was requested.
	OutcomeIdle Outcome = iota
	// OutcomePreempted: the budget ran out while draining builder steps.
	OutcomePreempted
	// OutcomePending: the active job still has paint or render work.
	OutcomePending
	// OutcomeRetired: the active job delivered its image and left the queue.
	OutcomeRetired
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIdle:
		return "idle"
	case OutcomePreempted:
		return "preempted"
	case OutcomePending:
		return "pending"
	case OutcomeRetired:
		return "retired"
	}
	return "unknown"
}

// Option configures a Builder.
type Option func(*Builder)

// WithInterval sets the per-cycle time budget.
func WithInterval(d time.Duration) Option {
	return func(b *Builder) { b.interval = d }
}

// WithClock replaces time.Now for the deadline clock and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) { b.logger = logger }
}

// WithListener registers an observer of job lifecycle events.
func WithListener(l Listener) Option {
	return func(b *Builder) { b.listeners = append(b.listeners, l) }
}

// WithIDGenerator replaces the job ID generator.
func WithIDGenerator(fn func() string) Option {
	return func(b *Builder) { b.newID = fn }
}

// Builder owns the job queue and drives it one cycle at a time.
//
// Enqueue and AttachBuilder may be called from any goroutine. Cycle calls
// are serialized; a capability (factory, step, callback) must not call
// Cycle itself.
type Builder struct {
	surface   Surface
	pipeline  Pipeline
	trigger   Trigger
	interval  time.Duration
	now       func() time.Time
	logger    *slog.Logger
	listeners []Listener
	newID     func() string

	clock *deadline.Clock

	cycleMu sync.Mutex

	mu      sync.Mutex // guards current, backlog and current.builders
	current *job
	backlog []*job
}

// New creates a Builder rendering through pipeline onto surface. trigger
// is asked for a new cycle whenever work is pending.
func New(surface Surface, pipeline Pipeline, trigger Trigger, opts ...Option) *Builder {
	b := &Builder{
		surface:  surface,
		pipeline: pipeline,
		trigger:  trigger,
		interval: deadline.DefaultInterval,
		now:      time.Now,
		logger:   logging.Nop(),
		newID:    func() string { return "job_" + uuid.New().String() },
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "builder")
	b.clock = deadline.New(b.interval, b.now)
	return b
}

// Surface returns the render surface shared by all jobs.
func (b *Builder) Surface() Surface {
	return b.surface
}

// Pipeline returns the scene pipeline shared by all jobs.
func (b *Builder) Pipeline() Pipeline {
	return b.pipeline
}

// Enqueue appends a job to the queue and requests a cycle. callback may be
// nil. A nil factory behaves like one that returns no scene. The returned
// ID identifies the job in lifecycle events.
func (b *Builder) Enqueue(factory SceneFactory, callback Callback) string {
	return b.EnqueueID(b.newID(), factory, callback)
}

// EnqueueID is Enqueue with a caller-chosen job ID, for hosts that record
// the job before it can start.
func (b *Builder) EnqueueID(id string, factory SceneFactory, callback Callback) string {
	j := &job{id: id, factory: factory, callback: callback}

	b.mu.Lock()
	active := b.current == nil
	if active {
		b.current = j
	} else {
		b.backlog = append(b.backlog, j)
	}
	queued := len(b.backlog)
	b.mu.Unlock()

	b.logger.Debug("job queued", "job_id", j.id, "active", active, "backlog", queued)
	b.emit(Event{Kind: EventQueued, JobID: j.id, Active: active})
	b.trigger.RequestCycle()
	return j.id
}

// AttachBuilder appends a construction step to the active job. Steps run
// in the order attached, after the job's scene is constructed. It returns
// ErrNoActiveJob when the queue is empty and ErrJobRetiring when the
// active job has already settled, for example from its own callback. A
// step attached while the job is still painting runs on a later cycle.
// Attaching is meant to happen from the job's own factory or before any
// other job is enqueued; a step attached later lands on whichever job is
// active at that moment.
func (b *Builder) AttachBuilder(step Step) error {
	if step == nil {
		return ErrNilStep
	}

	b.mu.Lock()
	j := b.current
	if j == nil {
		b.mu.Unlock()
		return ErrNoActiveJob
	}
	if j.sealed {
		b.mu.Unlock()
		return ErrJobRetiring
	}
	j.builders = append(j.builders, step)
	pending := len(j.builders)
	b.mu.Unlock()

	b.logger.Debug("builder step attached", "job_id", j.id, "pending", pending)
	b.trigger.RequestCycle()
	return nil
}

// Len returns the number of jobs not yet retired, including the active one.
func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return 0
	}
	return 1 + len(b.backlog)
}

// Active returns the ID of the job at the head of the queue.
func (b *Builder) Active() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return "", false
	}
	return b.current.id, true
}

func (b *Builder) emit(ev Event) {
	if len(b.listeners) == 0 {
		return
	}
	ev.Time = b.now()
	for _, l := range b.listeners {
		l.JobEvent(ev)
	}
}
