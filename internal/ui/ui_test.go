package ui

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/me/imagebuilder/internal/store"
	"github.com/me/imagebuilder/pkg/model"
)

func testUI(t *testing.T) (http.Handler, *store.SQLiteStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := store.NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	r := chi.NewRouter()
	New(st, logger).RegisterRoutes(r)
	return r, st
}

func get(t *testing.T, h http.Handler, path string, want int) string {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
	if w.Code != want {
		t.Fatalf("GET %s: status=%d, want %d, body=%s", path, w.Code, want, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("GET %s: content-type = %q", path, ct)
	}
	return w.Body.String()
}

func seed(t *testing.T, st *store.SQLiteStore) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	jobs := []*model.Job{
		{ID: "job_done", Name: "chain-003", State: model.JobStateCompleted, Steps: 1, ImageSize: 2048, CreatedAt: now, CompletedAt: &now},
		{ID: "job_wait", Name: "chain-004", State: model.JobStateQueued, CreatedAt: now.Add(time.Second)},
	}
	for _, j := range jobs {
		if err := st.CreateJob(ctx, j); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDashboard_Empty(t *testing.T) {
	h, _ := testUI(t)
	body := get(t, h, "/", http.StatusOK)
	if !strings.Contains(body, "No jobs found.") {
		t.Errorf("body missing empty message: %s", body)
	}
}

func TestDashboard_ListsJobs(t *testing.T) {
	h, st := testUI(t)
	seed(t, st)

	body := get(t, h, "/", http.StatusOK)
	for _, want := range []string{"chain-003", "chain-004", "/api/v1/jobs/job_done/image", "2.0 kB", "All (2)"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Contains(body, "/api/v1/jobs/job_wait/image") {
		t.Error("queued job should not link an image")
	}

	body = get(t, h, "/?state=QUEUED", http.StatusOK)
	if strings.Contains(body, "chain-003") || !strings.Contains(body, "chain-004") {
		t.Errorf("state filter not applied")
	}

	body = get(t, h, "/?limit=1", http.StatusOK)
	if !strings.Contains(body, "Next") {
		t.Errorf("expected a Next link on a partial page")
	}
}

func TestJobDetail(t *testing.T) {
	h, st := testUI(t)
	seed(t, st)

	body := get(t, h, "/jobs/job_done", http.StatusOK)
	for _, want := range []string{"chain-003", "COMPLETED", "constructed", "2.0 kB"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestJobDetail_NotFound(t *testing.T) {
	h, _ := testUI(t)
	body := get(t, h, "/jobs/job_missing", http.StatusNotFound)
	if !strings.Contains(body, "Job not found: job_missing") {
		t.Errorf("body = %s", body)
	}
}

func TestRenderTemplate_Unknown(t *testing.T) {
	if err := renderTemplate(&bytes.Buffer{}, "nope", nil); err == nil {
		t.Fatal("expected error for unknown template")
	}
}
