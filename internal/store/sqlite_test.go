package store

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/me/imagebuilder/pkg/model"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleJob(id string) *model.Job {
	return &model.Job{
		ID:        id,
		Name:      "chain-003",
		State:     model.JobStateQueued,
		Spec:      &model.SceneSpec{Name: "chain-003", Repeat: 3, Label: "No time"},
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	st := testStore(t)
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	ok, err := hasColumn(context.Background(), st.db, "jobs", "location")
	if err != nil || !ok {
		t.Errorf("location column present = %v, %v", ok, err)
	}
}

func TestCreateAndGetJob(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	job := sampleJob("job_1")

	if err := st.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	got, err := st.GetJob(ctx, "job_1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got == nil {
		t.Fatal("GetJob returned nil")
	}
	if got.Name != job.Name || got.State != model.JobStateQueued {
		t.Errorf("got %+v", got)
	}
	if got.Spec == nil || got.Spec.Repeat != 3 || got.Spec.Label != "No time" {
		t.Errorf("spec = %+v", got.Spec)
	}
	if !got.CreatedAt.Equal(job.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, job.CreatedAt)
	}
	if got.StartedAt != nil || got.CompletedAt != nil {
		t.Error("timestamps should be unset")
	}
}

func TestGetJob_NotFound(t *testing.T) {
	st := testStore(t)
	got, err := st.GetJob(context.Background(), "nope")
	if err != nil || got != nil {
		t.Errorf("GetJob(nope) = %v, %v", got, err)
	}
}

func TestCreateJob_MergesExisting(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	bare := &model.Job{ID: "job_1", State: model.JobStateQueued, CreatedAt: time.Now().UTC()}
	if err := st.CreateJob(ctx, bare); err != nil {
		t.Fatal(err)
	}
	bare.State = model.JobStateActive
	if err := st.UpdateJob(ctx, bare); err != nil {
		t.Fatal(err)
	}

	if err := st.CreateJob(ctx, sampleJob("job_1")); err != nil {
		t.Fatalf("second CreateJob: %v", err)
	}
	got, _ := st.GetJob(ctx, "job_1")
	if got.Name != "chain-003" || got.Spec == nil {
		t.Errorf("name/spec not merged: %+v", got)
	}
	if got.State != model.JobStateActive {
		t.Errorf("State = %s, want ACTIVE kept", got.State)
	}
}

func TestUpdateJob(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	job := sampleJob("job_1")
	st.CreateJob(ctx, job)

	now := time.Now().UTC().Truncate(time.Millisecond)
	job.State = model.JobStateCompleted
	job.Rootless = true
	job.Steps = 4
	job.Preemptions = 2
	job.ImageSize = 1234
	job.Location = "/tmp/out/chain-003.png"
	job.StartedAt = &now
	job.CompletedAt = &now
	if err := st.UpdateJob(ctx, job); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}

	got, _ := st.GetJob(ctx, "job_1")
	if got.State != model.JobStateCompleted || !got.Rootless || got.Steps != 4 || got.Preemptions != 2 {
		t.Errorf("got %+v", got)
	}
	if got.ImageSize != 1234 || got.Location != job.Location {
		t.Errorf("image fields = %d %q", got.ImageSize, got.Location)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(now) {
		t.Errorf("CompletedAt = %v", got.CompletedAt)
	}
}

func TestUpdateJob_NotFound(t *testing.T) {
	st := testStore(t)
	if err := st.UpdateJob(context.Background(), sampleJob("ghost")); err == nil {
		t.Error("expected error for missing job")
	}
}

func TestListJobs(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		job := sampleJob(fmt.Sprintf("job_%d", i))
		job.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if i%2 == 0 {
			job.State = model.JobStateCompleted
		}
		if err := st.CreateJob(ctx, job); err != nil {
			t.Fatal(err)
		}
	}

	jobs, total, err := st.ListJobs(ctx, model.ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if total != 5 || len(jobs) != 2 {
		t.Fatalf("total=%d len=%d", total, len(jobs))
	}
	if jobs[0].ID != "job_4" || jobs[1].ID != "job_3" {
		t.Errorf("order = %s, %s; want newest first", jobs[0].ID, jobs[1].ID)
	}

	jobs, total, err = st.ListJobs(ctx, model.ListOptions{Limit: 10, State: model.JobStateCompleted})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(jobs) != 3 {
		t.Errorf("completed total=%d len=%d, want 3", total, len(jobs))
	}

	jobs, _, _ = st.ListJobs(ctx, model.ListOptions{Limit: 10, Offset: 10})
	if len(jobs) != 0 {
		t.Errorf("offset past end returned %d jobs", len(jobs))
	}
}

func TestImages(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	st.CreateJob(ctx, sampleJob("job_1"))

	got, err := st.GetImage(ctx, "job_1")
	if err != nil || got != nil {
		t.Fatalf("GetImage before save = %v, %v", got, err)
	}
	if err := st.SaveImage(ctx, "job_1", []byte{1, 2, 3}); err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	if err := st.SaveImage(ctx, "job_1", []byte{4, 5}); err != nil {
		t.Fatalf("SaveImage replace: %v", err)
	}
	got, err = st.GetImage(ctx, "job_1")
	if err != nil || !bytes.Equal(got, []byte{4, 5}) {
		t.Errorf("GetImage = %v, %v", got, err)
	}
}

func TestSaveImage_UnknownJob(t *testing.T) {
	st := testStore(t)
	if err := st.SaveImage(context.Background(), "ghost", []byte{1}); err == nil {
		t.Error("expected foreign key error")
	}
}
