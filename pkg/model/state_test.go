package model

import "testing"

func TestJobState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    JobState
		terminal bool
	}{
		{JobStateQueued, false},
		{JobStateActive, false},
		{JobStateRendering, false},
		{JobStateCompleted, true},
	}
	for _, tt := range tests {
		if got := tt.state.IsTerminal(); got != tt.terminal {
			t.Errorf("JobState(%q).IsTerminal() = %v, want %v", tt.state, got, tt.terminal)
		}
	}
}

func TestJobState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from  JobState
		to    JobState
		valid bool
	}{
		// Valid transitions
		{JobStateQueued, JobStateActive, true},
		{JobStateActive, JobStateRendering, true},
		{JobStateRendering, JobStateCompleted, true},

		// Invalid transitions
		{JobStateQueued, JobStateRendering, false},
		{JobStateQueued, JobStateCompleted, false},
		{JobStateActive, JobStateCompleted, false},
		{JobStateRendering, JobStateActive, false},
		{JobStateCompleted, JobStateQueued, false},
		{JobStateCompleted, JobStateRendering, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.valid {
			t.Errorf("JobState(%q).CanTransitionTo(%q) = %v, want %v", tt.from, tt.to, got, tt.valid)
		}
	}
}
