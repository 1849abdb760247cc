package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, discoveryResponse{
		Name:        "imagebuilder API",
		Version:     "v1",
		Description: "Incremental scene rendering: submit scene descriptions, poll jobs, fetch PNG images",
		Endpoints: []endpointInfo{
			{"/api/v1/jobs", []string{"GET", "POST"}, "List render jobs, or submit a scene (JSON, YAML or HCL body)"},
			{"/api/v1/jobs/{id}", []string{"GET"}, "Single job with state, step and preemption counts"},
			{"/api/v1/jobs/{id}/image", []string{"GET"}, "Finished image as PNG"},
			{"/api/v1/sse/jobs/{id}", []string{"GET"}, "Server-sent job state updates until completion"},
			{"/api/v1/health", []string{"GET"}, "Server health and version"},
		},
	})
}
