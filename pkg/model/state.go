package model

// JobState represents the lifecycle state of a render Job.
type JobState string

const (
	// JobStateQueued: waiting behind the active job.
	JobStateQueued JobState = "QUEUED"
	// JobStateActive: at the head of the queue, scene not constructed yet.
	JobStateActive JobState = "ACTIVE"
	// JobStateRendering: scene constructed, builders and paint converging.
	JobStateRendering JobState = "RENDERING"
	// JobStateCompleted: image delivered and job retired.
	JobStateCompleted JobState = "COMPLETED"
)

// String returns the string representation of the job state.
func (s JobState) String() string {
	return string(s)
}

// IsTerminal returns true if the job is in a final state.
func (s JobState) IsTerminal() bool {
	return s == JobStateCompleted
}

// ValidJobTransitions defines the allowed state transitions for Jobs.
// A job enqueued onto an empty queue becomes active immediately, so
// QUEUED may be skipped; a rootless job still passes through RENDERING.
var ValidJobTransitions = map[JobState][]JobState{
	JobStateQueued:    {JobStateActive},
	JobStateActive:    {JobStateRendering},
	JobStateRendering: {JobStateCompleted},
}

// CanTransitionTo returns true if moving from the current state to next is valid.
func (s JobState) CanTransitionTo(next JobState) bool {
	for _, allowed := range ValidJobTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
