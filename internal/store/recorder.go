package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"sync"
	"time"

	"github.com/me/imagebuilder/internal/builder"
	"github.com/me/imagebuilder/internal/logging"
	"github.com/me/imagebuilder/pkg/model"
)

// Publisher copies a finished image somewhere outside the store.
type Publisher interface {
	Put(ctx context.Context, name string, png []byte) (string, error)
}

// Recorder keeps job records in step with builder lifecycle events and
// stores delivered images. JobEvent and Deliver only queue work; Run
// applies it, so a render cycle never waits on the database.
type Recorder struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger

	mu      sync.Mutex
	pending []func(context.Context) error
	notify  chan struct{}
	idle    *sync.Cond
	busy    bool
}

var _ builder.Listener = (*Recorder)(nil)

// NewRecorder creates a Recorder writing to st. publisher may be nil.
func NewRecorder(st Store, publisher Publisher, logger *slog.Logger) *Recorder {
	r := &Recorder{
		store:     st,
		publisher: publisher,
		logger:    logging.OrNop(logger).With("component", "recorder"),
		notify:    make(chan struct{}, 1),
	}
	r.idle = sync.NewCond(&r.mu)
	return r
}

// JobEvent queues a lifecycle event.
func (r *Recorder) JobEvent(ev builder.Event) {
	r.enqueue(func(ctx context.Context) error { return r.Apply(ctx, ev) })
}

// Deliver queues a finished image for encoding and storage.
func (r *Recorder) Deliver(jobID string, img image.Image) {
	r.enqueue(func(ctx context.Context) error { return r.saveImage(ctx, jobID, img) })
}

func (r *Recorder) enqueue(op func(context.Context) error) {
	r.mu.Lock()
	r.pending = append(r.pending, op)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Run applies queued work until ctx is cancelled. Work still queued at
// that point is applied before Run returns.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			r.drain(context.Background())
			return ctx.Err()
		case <-r.notify:
			r.drain(ctx)
		}
	}
}

// Flush blocks until everything queued so far has been applied by Run.
func (r *Recorder) Flush() {
	r.mu.Lock()
	for len(r.pending) > 0 || r.busy {
		r.idle.Wait()
	}
	r.mu.Unlock()
}

func (r *Recorder) drain(ctx context.Context) {
	for {
		r.mu.Lock()
		if len(r.pending) == 0 {
			r.busy = false
			r.idle.Broadcast()
			r.mu.Unlock()
			return
		}
		ops := r.pending
		r.pending = nil
		r.busy = true
		r.mu.Unlock()

		for _, op := range ops {
			if err := op(ctx); err != nil {
				r.logger.Error("record job", "error", err)
			}
		}
	}
}

// Apply updates the job record for one event.
func (r *Recorder) Apply(ctx context.Context, ev builder.Event) error {
	job, err := r.store.GetJob(ctx, ev.JobID)
	if err != nil {
		return fmt.Errorf("get job %s: %w", ev.JobID, err)
	}
	if job == nil {
		if ev.Kind != builder.EventQueued {
			return fmt.Errorf("job %s: %s event for unknown job", ev.JobID, ev.Kind)
		}
		job = &model.Job{ID: ev.JobID, State: model.JobStateQueued, CreatedAt: ev.Time.UTC()}
		if err := r.store.CreateJob(ctx, job); err != nil {
			return fmt.Errorf("create job %s: %w", ev.JobID, err)
		}
	}

	switch ev.Kind {
	case builder.EventQueued:
		if !ev.Active {
			return nil
		}
		err = r.transition(job, model.JobStateActive, ev.Time)
	case builder.EventActivated:
		err = r.transition(job, model.JobStateActive, ev.Time)
	case builder.EventConstructed:
		job.Rootless = ev.Rootless
		err = r.transition(job, model.JobStateRendering, ev.Time)
	case builder.EventStepDone:
		job.Steps++
	case builder.EventPreempted:
		job.Preemptions++
	case builder.EventCompleted:
		job.Rootless = ev.Rootless
		err = r.transition(job, model.JobStateCompleted, ev.Time)
	}
	if err != nil {
		var ite *model.InvalidTransitionError
		if errors.As(err, &ite) {
			r.logger.Warn("ignoring event", "job_id", job.ID, "event", ev.Kind, "error", err)
			return nil
		}
		return err
	}
	return r.store.UpdateJob(ctx, job)
}

func (r *Recorder) transition(job *model.Job, to model.JobState, at time.Time) error {
	if !job.State.CanTransitionTo(to) {
		return &model.InvalidTransitionError{ID: job.ID, From: job.State, To: to}
	}
	at = at.UTC()
	switch to {
	case model.JobStateActive:
		job.StartedAt = &at
	case model.JobStateCompleted:
		job.CompletedAt = &at
	}
	r.logger.Debug("job transition", "job_id", job.ID, "from", job.State, "to", to)
	job.State = to
	return nil
}

func (r *Recorder) saveImage(ctx context.Context, jobID string, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode image for %s: %w", jobID, err)
	}
	data := buf.Bytes()
	if err := r.store.SaveImage(ctx, jobID, data); err != nil {
		return fmt.Errorf("save image for %s: %w", jobID, err)
	}

	job, err := r.store.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("get job %s: %w", jobID, err)
	}
	if job == nil {
		return fmt.Errorf("job %s not found", jobID)
	}
	job.ImageSize = len(data)
	if r.publisher != nil {
		name := job.Name
		if name == "" {
			name = job.ID
		}
		loc, err := r.publisher.Put(ctx, name, data)
		if err != nil {
			r.logger.Warn("publish image", "job_id", jobID, "error", err)
		} else {
			job.Location = loc
		}
	}
	return r.store.UpdateJob(ctx, job)
}
