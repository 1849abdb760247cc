package store

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/me/imagebuilder/internal/builder"
	"github.com/me/imagebuilder/pkg/model"
)

type fakePublisher struct {
	names []string
	err   error
}

func (p *fakePublisher) Put(_ context.Context, name string, data []byte) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.names = append(p.names, name)
	return "mem://" + name, nil
}

func event(kind builder.EventKind, id string) builder.Event {
	return builder.Event{Kind: kind, JobID: id, Time: time.Now()}
}

func TestRecorder_Lifecycle(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	r := NewRecorder(st, nil, nil)

	queued := event(builder.EventQueued, "job_1")
	queued.Active = true
	steps := []builder.Event{
		queued,
		event(builder.EventConstructed, "job_1"),
		event(builder.EventStepDone, "job_1"),
		event(builder.EventPreempted, "job_1"),
		event(builder.EventStepDone, "job_1"),
		event(builder.EventCompleted, "job_1"),
	}
	for _, ev := range steps {
		if err := r.Apply(ctx, ev); err != nil {
			t.Fatalf("Apply(%s): %v", ev.Kind, err)
		}
	}

	job, _ := st.GetJob(ctx, "job_1")
	if job == nil {
		t.Fatal("job not recorded")
	}
	if job.State != model.JobStateCompleted {
		t.Errorf("State = %s", job.State)
	}
	if job.Steps != 2 || job.Preemptions != 1 {
		t.Errorf("steps=%d preemptions=%d", job.Steps, job.Preemptions)
	}
	if job.StartedAt == nil || job.CompletedAt == nil {
		t.Error("timestamps not set")
	}
}

func TestRecorder_QueuedBehindActive(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	r := NewRecorder(st, nil, nil)

	r.Apply(ctx, event(builder.EventQueued, "job_2"))
	job, _ := st.GetJob(ctx, "job_2")
	if job.State != model.JobStateQueued {
		t.Fatalf("State = %s, want QUEUED", job.State)
	}
	r.Apply(ctx, event(builder.EventActivated, "job_2"))
	job, _ = st.GetJob(ctx, "job_2")
	if job.State != model.JobStateActive {
		t.Errorf("State = %s, want ACTIVE", job.State)
	}
}

func TestRecorder_InvalidTransitionIgnored(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	r := NewRecorder(st, nil, nil)

	r.Apply(ctx, event(builder.EventQueued, "job_1"))
	if err := r.Apply(ctx, event(builder.EventCompleted, "job_1")); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	job, _ := st.GetJob(ctx, "job_1")
	if job.State != model.JobStateQueued {
		t.Errorf("State = %s, want QUEUED", job.State)
	}
}

func TestRecorder_UnknownJob(t *testing.T) {
	r := NewRecorder(testStore(t), nil, nil)
	if err := r.Apply(context.Background(), event(builder.EventConstructed, "ghost")); err == nil {
		t.Error("expected error for event on unknown job")
	}
}

func TestRecorder_RunDeliversImages(t *testing.T) {
	st := testStore(t)
	pub := &fakePublisher{}
	r := NewRecorder(st, pub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	st.CreateJob(context.Background(), sampleJob("job_1"))
	queued := event(builder.EventQueued, "job_1")
	queued.Active = true
	r.JobEvent(queued)
	r.JobEvent(event(builder.EventConstructed, "job_1"))
	r.Deliver("job_1", image.NewRGBA(image.Rect(0, 0, 4, 4)))
	r.JobEvent(event(builder.EventCompleted, "job_1"))
	r.Flush()

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v", err)
	}

	job, _ := st.GetJob(context.Background(), "job_1")
	if job.State != model.JobStateCompleted {
		t.Errorf("State = %s", job.State)
	}
	if job.ImageSize == 0 || job.Location != "mem://chain-003" {
		t.Errorf("image size %d, location %q", job.ImageSize, job.Location)
	}
	png, _ := st.GetImage(context.Background(), "job_1")
	if len(png) != job.ImageSize {
		t.Errorf("stored %d bytes, recorded %d", len(png), job.ImageSize)
	}
	if len(pub.names) != 1 {
		t.Errorf("published %v", pub.names)
	}
}

func TestRecorder_PublishFailureKeepsImage(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	r := NewRecorder(st, &fakePublisher{err: errors.New("offline")}, nil)
	st.CreateJob(ctx, sampleJob("job_1"))

	if err := r.saveImage(ctx, "job_1", image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("saveImage: %v", err)
	}
	job, _ := st.GetJob(ctx, "job_1")
	if job.ImageSize == 0 || job.Location != "" {
		t.Errorf("size %d, location %q", job.ImageSize, job.Location)
	}
}
