package builder

import "time"

// EventKind names a job lifecycle transition.
type EventKind string

const (
	EventQueued      EventKind = "queued"
	EventActivated   EventKind = "activated"
	EventConstructed EventKind = "constructed"
	EventStepDone    EventKind = "step_done"
	EventPreempted   EventKind = "preempted"
	EventCompleted   EventKind = "completed"
)

// Event describes a lifecycle transition of one job.
type Event struct {
	Kind  EventKind
	JobID string
	Time  time.Time

	// Active is set on EventQueued when the job went straight to the head.
	Active bool
	// Rootless is set on EventConstructed when the factory produced nothing.
	Rootless bool
	// Pending is the number of builder steps still attached to the job.
	Pending int
}

// Listener observes job lifecycle events. JobEvent is called on the
// goroutine that produced the event (the cycle goroutine, or the caller of
// Enqueue for EventQueued) and must not block.
type Listener interface {
	JobEvent(ev Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ev Event)

// JobEvent calls f.
func (f ListenerFunc) JobEvent(ev Event) { f(ev) }
