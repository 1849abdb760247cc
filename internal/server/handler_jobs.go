package server

import (
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/me/imagebuilder/internal/builder"
	"github.com/me/imagebuilder/internal/scenefile"
	"github.com/me/imagebuilder/pkg/model"
)

const maxSceneBody = 1 << 20

// decodeScene reads one scene description from a JSON, YAML or HCL body.
func decodeScene(r *http.Request) (model.SceneSpec, error) {
	var spec model.SceneSpec
	data, err := io.ReadAll(io.LimitReader(r.Body, maxSceneBody))
	if err != nil {
		return spec, fmt.Errorf("read body: %w", err)
	}

	mediaType := "application/json"
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			mediaType = mt
		}
	}

	switch mediaType {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return spec, fmt.Errorf("invalid YAML body: %w", err)
		}
	case "application/hcl", "text/x-hcl":
		specs, err := scenefile.Parse(data, scenefile.FormatHCL, "request.hcl")
		if err != nil {
			return spec, err
		}
		if len(specs) != 1 {
			return spec, fmt.Errorf("expected exactly one scene block, got %d", len(specs))
		}
		return specs[0], nil
	default:
		if err := json.Unmarshal(data, &spec); err != nil {
			return spec, fmt.Errorf("invalid JSON body: %w", err)
		}
	}
	return spec, scenefile.Validate(&spec)
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	if s.queue == nil {
		respondError(w, reqID, http.StatusServiceUnavailable,
			model.NewInternalError("render queue is not running"))
		return
	}

	spec, err := decodeScene(r)
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError(err.Error()))
		return
	}

	id := "job_" + uuid.New().String()
	if spec.Name == "" {
		spec.Name = id
	}
	job := &model.Job{
		ID:        id,
		Name:      spec.Name,
		State:     model.JobStateQueued,
		Spec:      &spec,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateJob(r.Context(), job); err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}

	var callback builder.Callback
	if s.deliverer != nil {
		callback = builder.CallbackFunc(func(img image.Image) {
			s.deliverer.Deliver(id, img)
		})
	}
	factory := scenefile.Factory(spec, s.queue, s.logger,
		scenefile.WithScriptTimeout(s.config.Render.ScriptTimeout))
	s.queue.EnqueueID(id, factory, callback)

	s.logger.Info("job submitted", "id", id, "name", spec.Name, "pending", s.queue.Len())
	respondCreated(w, reqID, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	q := r.URL.Query()

	opts := model.DefaultListOptions()
	if state := q.Get("state"); state != "" {
		opts.State = model.JobState(state)
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid query parameter",
				model.FieldError{Field: "limit", Message: "must be an integer"}))
			return
		}
		opts.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid query parameter",
				model.FieldError{Field: "offset", Message: "must be an integer"}))
			return
		}
		opts.Offset = n
	}
	opts.Clamp()

	jobs, total, err := s.store.ListJobs(r.Context(), opts)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}
	if jobs == nil {
		jobs = []*model.Job{}
	}
	respondList(w, reqID, jobs, model.NewPagination(total, len(jobs), opts))
}

func (s *Server) lookupJob(w http.ResponseWriter, r *http.Request) (*model.Job, bool) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	job, err := s.store.GetJob(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return nil, false
	}
	if job == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("job", id))
		return nil, false
	}
	return job, true
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r)
	if !ok {
		return
	}
	respondOK(w, RequestIDFromContext(r.Context()), job)
}

func (s *Server) handleGetJobImage(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	job, ok := s.lookupJob(w, r)
	if !ok {
		return
	}

	data, err := s.store.GetImage(r.Context(), job.ID)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}
	if data == nil {
		respondError(w, reqID, http.StatusConflict,
			model.NewConflictError(fmt.Sprintf("job '%s' has no image yet (state %s)", job.ID, job.State)))
		return
	}
	respondPNG(w, reqID, data)
}
