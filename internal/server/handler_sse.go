package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/me/imagebuilder/pkg/model"
)

// handleSSEJob streams job updates via Server-Sent Events.
// GET /api/v1/sse/jobs/{id}
func (s *Server) handleSSEJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	reqID := RequestIDFromContext(r.Context())

	job, err := s.store.GetJob(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}
	if job == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("job", id))
		return
	}

	// Set headers for SSE.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	// Send initial state.
	if err := sendSSEEvent(w, flusher, "init", job); err != nil {
		s.logger.Debug("sse client disconnected", "id", id, "error", err)
		return
	}

	if job.State.IsTerminal() {
		sendSSEEvent(w, flusher, "complete", job)
		return
	}

	ticker := time.NewTicker(s.sseInterval)
	defer ticker.Stop()

	lastState := job.State

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			job, err = s.store.GetJob(r.Context(), id)
			if err != nil {
				s.logger.Error("sse fetch error", "id", id, "error", err)
				continue
			}
			if job == nil {
				return
			}

			if job.State != lastState {
				if err := sendSSEEvent(w, flusher, "update", job); err != nil {
					s.logger.Debug("sse client disconnected", "id", id)
					return
				}
				lastState = job.State
			} else {
				// Send heartbeat.
				fmt.Fprintf(w, ": heartbeat\n\n")
				flusher.Flush()
			}

			if job.State.IsTerminal() {
				sendSSEEvent(w, flusher, "complete", job)
				return
			}
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData)
	if err != nil {
		return err
	}

	flusher.Flush()
	return nil
}
