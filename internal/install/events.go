package install

import (
	"fmt"
	"time"
)

// StepID identifies one phase of an install job. The set is closed: events
// carrying any other identifier are rejected at the bus.
type StepID string

const (
	StepJobInit        StepID = "job.init"
	StepJobDone        StepID = "job.done"
	StepJobFailed      StepID = "job.failed"
	StepDeviceProbe    StepID = "device.probe"
	StepDriverDownload StepID = "driver.download"
	StepDriverVerify   StepID = "driver.verify"
	StepDriverExtract  StepID = "driver.extract"
	StepDriverStage    StepID = "driver.stageDriver"
	StepDriverRegister StepID = "driver.registerDriver"
	StepEnsurePort     StepID = "device.ensurePort"
	StepEnsureQueue    StepID = "device.ensureQueue"
	StepFinalVerify    StepID = "device.finalVerify"
)

var validSteps = map[StepID]struct{}{
	StepJobInit:        {},
	StepJobDone:        {},
	StepJobFailed:      {},
	StepDeviceProbe:    {},
	StepDriverDownload: {},
	StepDriverVerify:   {},
	StepDriverExtract:  {},
	StepDriverStage:    {},
	StepDriverRegister: {},
	StepEnsurePort:     {},
	StepEnsureQueue:    {},
	StepFinalVerify:    {},
}

// Valid reports whether the step identifier belongs to the fixed set.
func (s StepID) Valid() bool {
	_, ok := validSteps[s]
	return ok
}

// State is the lifecycle state carried by a progress event.
type State string

const (
	StatePending State = "pending"
	StateRunning State = "running"
	StateSuccess State = "success"
	StateFailed  State = "failed"
	StateSkipped State = "skipped"
)

// Terminal reports whether no further events are expected for the step
// after this state.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailed || s == StateSkipped
}

// Mode is the install-mode association established by a job.init event and
// inherited by every later event of the same job.
type Mode string

const (
	ModeInstall   Mode = "install"
	ModeReinstall Mode = "reinstall"
)

// Progress carries fine-grained progress for a running step.
type Progress struct {
	Current int64   `json:"current"`
	Total   int64   `json:"total"`
	Unit    string  `json:"unit"`
	Percent float64 `json:"percent"`
}

// ErrorPayload is attached only to failed events. Code is machine-stable;
// Detail is for humans; Stdout/Stderr carry captured process output when an
// OS-facing step failed.
type ErrorPayload struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
	Stdout string `json:"stdout,omitempty"`
	Stderr string `json:"stderr,omitempty"`
}

// Machine-stable error codes carried by failed events.
const (
	CodeInvalidInput       = "invalid_input"
	CodeNetworkError       = "network_error"
	CodeEmptyBody          = "empty_body"
	CodeDigestMismatch     = "digest_mismatch"
	CodePathTraversal      = "path_traversal"
	CodeExtractFailed      = "extract_failed"
	CodeCancelled          = "cancelled"
	CodeProbeFailed        = "probe_failed"
	CodeDownloadFailed     = "download_failed"
	CodeStageFailed        = "stage_failed"
	CodeStageInconsistent  = "stage_inconsistent"
	CodeRegisterFailed     = "register_failed"
	CodePortBindingFailed  = "port_binding_failed"
	CodeQueueBindingFailed = "queue_binding_failed"
	CodeVerifyQueueFailed  = "verify_queue_failed"
	CodeMaterializeFailed  = "materialize_failed"
	CodeDanglingStep       = "dangling_step"
)

// Event is one entry in an install job's progress stream.
type Event struct {
	JobID     string            `json:"job_id"`
	Target    string            `json:"target_name"`
	Step      StepID            `json:"step_id"`
	State     State             `json:"state"`
	Message   string            `json:"message,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Mode      Mode              `json:"mode,omitempty"`
	Progress  *Progress         `json:"progress,omitempty"`
	Error     *ErrorPayload     `json:"error,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// Validate checks the structural invariants of an event before it enters
// the bus.
func (e Event) Validate() error {
	if e.JobID == "" {
		return fmt.Errorf("event missing job_id")
	}
	if !e.Step.Valid() {
		return fmt.Errorf("unknown step id %q", e.Step)
	}
	switch e.State {
	case StatePending, StateRunning, StateSuccess, StateFailed, StateSkipped:
	default:
		return fmt.Errorf("unknown state %q", e.State)
	}
	if e.Error != nil && e.State != StateFailed {
		return fmt.Errorf("error payload attached to %s event", e.State)
	}
	return nil
}
