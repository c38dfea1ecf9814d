package install

import "fmt"

// StepReporter emits the progress protocol for a single step. Construction
// emits the running event; exactly one of Success, Skipped, or Failed must
// follow. Callers defer Close immediately after construction; if the step
// is abandoned without a terminal call, Close emits a failed event with the
// dangling-step code so the event stream is always complete.
type StepReporter struct {
	emitter  Emitter
	jobID    string
	target   string
	step     StepID
	mode     Mode
	terminal bool
	final    State
}

// NewStepReporter creates a reporter for step and immediately emits its
// running event.
func NewStepReporter(emitter Emitter, jobID, target string, step StepID) *StepReporter {
	return NewStepReporterWithMode(emitter, jobID, target, step, "")
}

// NewStepReporterWithMode is NewStepReporter with the job's install mode
// stamped on every event. The job.init step uses it so the mode registers on
// the bus with the very first event of the job.
func NewStepReporterWithMode(emitter Emitter, jobID, target string, step StepID, mode Mode) *StepReporter {
	r := &StepReporter{
		emitter: emitter,
		jobID:   jobID,
		target:  target,
		step:    step,
		mode:    mode,
	}
	r.emit(Event{State: StateRunning})
	return r
}

// FinalState returns the terminal state the step reached, or the empty state
// while the step is still running.
func (r *StepReporter) FinalState() State {
	return r.final
}

// Progress emits a progress update. It is a no-op once the step has reached
// a terminal state.
func (r *StepReporter) Progress(current, total int64, unit string, percent float64, message string) {
	if r.terminal {
		return
	}
	r.emit(Event{
		State:   StateRunning,
		Message: message,
		Progress: &Progress{
			Current: current,
			Total:   total,
			Unit:    unit,
			Percent: percent,
		},
	})
}

// Success terminates the step successfully. The reporter is consumed.
func (r *StepReporter) Success(message string) {
	if r.terminal {
		return
	}
	r.terminal = true
	r.final = StateSuccess
	r.emit(Event{State: StateSuccess, Message: message})
}

// Skipped terminates the step as skipped (e.g. a cache hit makes the
// download unnecessary). The reporter is consumed.
func (r *StepReporter) Skipped(message string) {
	if r.terminal {
		return
	}
	r.terminal = true
	r.final = StateSkipped
	r.emit(Event{State: StateSkipped, Message: message})
}

// Failed terminates the step with a machine-stable code and evidence. The
// reporter is consumed.
func (r *StepReporter) Failed(code string, err error, stdout, stderr string) {
	if r.terminal {
		return
	}
	r.terminal = true
	r.final = StateFailed
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	r.emit(Event{
		State:   StateFailed,
		Message: detail,
		Error: &ErrorPayload{
			Code:   code,
			Detail: detail,
			Stdout: stdout,
			Stderr: stderr,
		},
	})
}

// Close enforces the terminal guarantee. A reporter discarded without a
// terminal call emits a failed event with the dangling-step code. Close is
// idempotent and safe to defer unconditionally.
func (r *StepReporter) Close() {
	if r.terminal {
		return
	}
	r.terminal = true
	r.final = StateFailed
	detail := fmt.Sprintf("step %s abandoned without a terminal state", r.step)
	r.emit(Event{
		State:   StateFailed,
		Message: detail,
		Error: &ErrorPayload{
			Code:   CodeDanglingStep,
			Detail: detail,
		},
	})
}

func (r *StepReporter) emit(e Event) {
	e.JobID = r.jobID
	e.Target = r.target
	e.Step = r.step
	e.Mode = r.mode
	r.emitter.Emit(e)
}
