package model

import "time"

// Job is the persisted record of one render request. The scheduler keeps
// the live queue in memory; this record tracks its progress for the API.
type Job struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	State       JobState   `json:"state"`
	Rootless    bool       `json:"rootless"`
	Steps       int        `json:"steps"`
	Preemptions int        `json:"preemptions"`
	ImageSize   int        `json:"image_size"`
	Location    string     `json:"location,omitempty"`
	Spec        *SceneSpec `json:"spec,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
