package install

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordEmitter captures events synchronously for assertions.
type recordEmitter struct {
	events []Event
}

func (r *recordEmitter) Emit(e Event) { r.events = append(r.events, e) }

func TestStepReporter_SuccessSequence(t *testing.T) {
	rec := &recordEmitter{}

	r := NewStepReporter(rec, "j1", "lobby", StepDriverDownload)
	defer r.Close()
	r.Progress(512, 1024, "bytes", 50, "downloading")
	r.Success("downloaded")

	require.Len(t, rec.events, 3)
	assert.Equal(t, StateRunning, rec.events[0].State)
	assert.Equal(t, StateRunning, rec.events[1].State)
	require.NotNil(t, rec.events[1].Progress)
	assert.Equal(t, float64(50), rec.events[1].Progress.Percent)
	assert.Equal(t, StateSuccess, rec.events[2].State)

	for _, e := range rec.events {
		assert.Equal(t, "j1", e.JobID)
		assert.Equal(t, "lobby", e.Target)
		assert.Equal(t, StepDriverDownload, e.Step)
	}
}

func TestStepReporter_Failed(t *testing.T) {
	rec := &recordEmitter{}

	r := NewStepReporter(rec, "j1", "lobby", StepDriverVerify)
	defer r.Close()
	r.Failed(CodeDigestMismatch, errors.New("digest mismatch"), "out", "err")

	require.Len(t, rec.events, 2)
	fail := rec.events[1]
	assert.Equal(t, StateFailed, fail.State)
	require.NotNil(t, fail.Error)
	assert.Equal(t, CodeDigestMismatch, fail.Error.Code)
	assert.Equal(t, "digest mismatch", fail.Error.Detail)
	assert.Equal(t, "out", fail.Error.Stdout)
	assert.Equal(t, "err", fail.Error.Stderr)
}

func TestStepReporter_DanglingStepObservedExactlyOnce(t *testing.T) {
	rec := &recordEmitter{}

	// Construct a reporter and abandon it without a terminal call, the way
	// an early return would.
	func() {
		r := NewStepReporter(rec, "j1", "lobby", StepEnsureQueue)
		defer r.Close()
	}()

	require.Len(t, rec.events, 2)
	fail := rec.events[1]
	assert.Equal(t, StateFailed, fail.State)
	require.NotNil(t, fail.Error)
	assert.Equal(t, CodeDanglingStep, fail.Error.Code)
}

func TestStepReporter_CloseAfterTerminalIsNoop(t *testing.T) {
	rec := &recordEmitter{}

	r := NewStepReporter(rec, "j1", "lobby", StepDriverExtract)
	r.Success("done")
	r.Close()
	r.Close()

	require.Len(t, rec.events, 2)
	assert.Equal(t, StateSuccess, rec.events[1].State)
}

func TestStepReporter_ProgressAfterTerminalDropped(t *testing.T) {
	rec := &recordEmitter{}

	r := NewStepReporter(rec, "j1", "lobby", StepDriverDownload)
	r.Skipped("cache hit")
	r.Progress(1, 1, "bytes", 100, "late")
	r.Failed(CodeNetworkError, errors.New("late"), "", "")

	require.Len(t, rec.events, 2)
	assert.Equal(t, StateSkipped, rec.events[1].State)
}
