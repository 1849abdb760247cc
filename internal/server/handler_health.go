package server

import (
	"net/http"
	"runtime"
	"time"
)

type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Store     string `json:"store"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	resp := healthResponse{
		Status:    "healthy",
		Version:   "0.1.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Queue:     "not_configured",
		Store:     "not_configured",
	}
	if s.queue != nil {
		resp.Queue = "running"
		resp.Pending = s.queue.Len()
	}
	if s.store != nil {
		resp.Store = "sqlite"
	}
	respondOK(w, reqID, resp)
}
