// Package ui serves a read-only HTML gallery of render jobs.
package ui

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/me/imagebuilder/internal/logging"
	"github.com/me/imagebuilder/internal/store"
	"github.com/me/imagebuilder/pkg/model"
)

// UI handles the web user interface.
type UI struct {
	store     store.Store
	logger    *slog.Logger
	startTime time.Time
}

// New creates a new UI handler.
func New(st store.Store, logger *slog.Logger) *UI {
	return &UI{
		store:     st,
		logger:    logging.OrNop(logger).With("component", "ui"),
		startTime: time.Now(),
	}
}

type stateCount struct {
	State string
	Count int
}

// HandleDashboard renders per-state counts and a page of recent jobs.
func (ui *UI) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	opts := ui.parseListOptions(r)
	jobs, total, err := ui.store.ListJobs(r.Context(), opts)
	if err != nil {
		ui.renderError(w, "Failed to list jobs", err)
		return
	}

	var counts []stateCount
	for _, state := range []model.JobState{
		model.JobStateQueued, model.JobStateActive, model.JobStateRendering, model.JobStateCompleted,
	} {
		_, n, err := ui.store.ListJobs(r.Context(), model.ListOptions{Limit: 1, State: state})
		if err != nil {
			ui.renderError(w, "Failed to count jobs", err)
			return
		}
		counts = append(counts, stateCount{State: string(state), Count: n})
	}

	data := map[string]any{
		"Title":      "Jobs - imagebuilder",
		"Jobs":       jobs,
		"Total":      total,
		"Counts":     counts,
		"State":      string(opts.State),
		"Pagination": model.NewPagination(total, len(jobs), opts),
		"Uptime":     time.Since(ui.startTime).Round(time.Second).String(),
	}
	ui.render(w, "dashboard", data)
}

// HandleJobDetail renders one job with its image.
func (ui *UI) HandleJobDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := ui.store.GetJob(r.Context(), id)
	if err != nil {
		ui.renderError(w, "Failed to load job", err)
		return
	}
	if job == nil {
		ui.renderNotFound(w, "Job not found: "+id)
		return
	}

	data := map[string]any{
		"Title": job.Name + " - imagebuilder",
		"Job":   job,
	}
	ui.render(w, "jobs/detail", data)
}

func (ui *UI) parseListOptions(r *http.Request) model.ListOptions {
	opts := model.DefaultListOptions()
	opts.Limit = 24
	q := r.URL.Query()
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		opts.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil {
		opts.Offset = v
	}
	if s := q.Get("state"); s != "" {
		opts.State = model.JobState(s)
	}
	opts.Clamp()
	return opts
}

func (ui *UI) render(w http.ResponseWriter, template string, data map[string]any) {
	var buf bytes.Buffer
	if err := renderTemplate(&buf, template, data); err != nil {
		ui.logger.Error("template render failed", "template", template, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func (ui *UI) renderError(w http.ResponseWriter, message string, err error) {
	ui.logger.Error(message, "error", err)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	ui.render(w, "error", map[string]any{"Title": "Error - imagebuilder", "Message": message})
}

func (ui *UI) renderNotFound(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	ui.render(w, "error", map[string]any{"Title": "Not Found - imagebuilder", "Message": message})
}
