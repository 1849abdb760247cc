package builder

// Cycle runs one bounded slice of work on the active job:
//
//  1. with no active job it returns OutcomeIdle without touching anything;
//  2. the job's scene is constructed if that has not happened yet;
//  3. builder steps are drained in order until none remain, aborting the
//     cycle as soon as the budget is exceeded;
//  4. the pipeline paints and renders;
//  5. if paint, render or builder work is still pending another cycle is
//     requested, otherwise the job is sealed and retired and a cycle is
//     requested for the next one.
func (b *Builder) Cycle() Outcome {
	b.cycleMu.Lock()
	defer b.cycleMu.Unlock()

	b.clock.Start()

	b.mu.Lock()
	j := b.current
	b.mu.Unlock()
	if j == nil {
		return OutcomeIdle
	}

	if !j.constructed() {
		b.construct(j)
	}

	for {
		step, ok := b.headStep(j)
		if !ok {
			break
		}
		if !step.Step(b.clock.Remaining()) {
			pending := b.popStep(j)
			b.emit(Event{Kind: EventStepDone, JobID: j.id, Pending: pending})
		}
		if b.clock.Expired() {
			pending := b.pendingSteps(j)
			b.logger.Debug("cycle preempted", "job_id", j.id, "pending", pending)
			b.emit(Event{Kind: EventPreempted, JobID: j.id, Pending: pending})
			b.trigger.RequestCycle()
			return OutcomePreempted
		}
	}

	needsUpdate := b.pipeline.Paint(b.clock.Remaining())
	if b.pipeline.Render() {
		needsUpdate = true
	}
	// Steps attached while painting keep the job alive.
	if needsUpdate || !b.seal(j) {
		b.trigger.RequestCycle()
		return OutcomePending
	}

	b.retire(j)
	b.trigger.RequestCycle()
	return OutcomeRetired
}

// construct runs the job's factory. The job is marked rootless before the
// call so that a factory that panics is never run a second time.
func (b *Builder) construct(j *job) {
	j.rootless = true
	var root Root
	if j.factory != nil {
		root = j.factory.CreateScene()
	}
	if !isEmptyRoot(root) {
		j.rootless = false
		j.root = root
		b.pipeline.FitToView(root)
		b.pipeline.SetRoot(root)
		b.pipeline.MarkDirty()
	}
	b.logger.Debug("scene constructed", "job_id", j.id, "rootless", j.rootless)
	b.emit(Event{Kind: EventConstructed, JobID: j.id, Rootless: j.rootless, Pending: b.pendingSteps(j)})
}

// retire delivers the image, releases the scene and promotes the next job.
// The screenshot is taken before the surface is reset.
func (b *Builder) retire(j *job) {
	if j.callback != nil {
		j.callback.ImageReady(b.surface.Screenshot())
	}
	if j.root != nil {
		b.pipeline.SetRoot(nil)
		j.root = nil
	}

	b.mu.Lock()
	var next *job
	if len(b.backlog) > 0 {
		next = b.backlog[0]
		b.backlog[0] = nil
		b.backlog = b.backlog[1:]
	}
	b.current = next
	b.mu.Unlock()

	b.surface.Reset()

	b.logger.Info("job completed", "job_id", j.id, "rootless", j.rootless)
	b.emit(Event{Kind: EventCompleted, JobID: j.id, Rootless: j.rootless})
	if next != nil {
		b.emit(Event{Kind: EventActivated, JobID: next.id})
	}
}

// seal stops j from accepting builders, unless some are still queued.
func (b *Builder) seal(j *job) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(j.builders) > 0 {
		return false
	}
	j.sealed = true
	return true
}

func (b *Builder) headStep(j *job) (Step, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(j.builders) == 0 {
		return nil, false
	}
	return j.builders[0], true
}

func (b *Builder) popStep(j *job) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	j.builders[0] = nil
	j.builders = j.builders[1:]
	return len(j.builders)
}

func (b *Builder) pendingSteps(j *job) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(j.builders)
}
