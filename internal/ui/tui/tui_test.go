package tui

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spoolsmith/spoolsmith/internal/install"
	"github.com/spoolsmith/spoolsmith/internal/util/prerequisites"
)

func event(step install.StepID, state install.State) install.Event {
	return install.Event{
		JobID:     "job-1",
		Target:    "lobby-printer",
		Step:      step,
		State:     state,
		Timestamp: time.Now(),
	}
}

func TestNewInstallModel(t *testing.T) {
	m := NewInstallModel("lobby-printer", "acme_laser-mk3")

	assert.Equal(t, "lobby-printer", m.DeviceName)
	assert.Equal(t, "install", m.ViewMode)
	require.Len(t, m.Rows, len(pipelineSteps))
	for _, row := range m.Rows {
		assert.Equal(t, install.StatePending, row.State)
	}
}

func TestUpdateEvent_RunningMarksRowStarted(t *testing.T) {
	m := NewInstallModel("lobby-printer", "acme_laser-mk3")

	m.updateEvent(event(install.StepDriverDownload, install.StateRunning))

	row := rowFor(t, m, install.StepDriverDownload)
	assert.Equal(t, install.StateRunning, row.State)
	assert.False(t, row.Started.IsZero())
}

func TestUpdateEvent_SuccessRecordsElapsed(t *testing.T) {
	m := NewInstallModel("lobby-printer", "acme_laser-mk3")

	start := event(install.StepDriverDownload, install.StateRunning)
	m.updateEvent(start)

	done := event(install.StepDriverDownload, install.StateSuccess)
	done.Timestamp = start.Timestamp.Add(3 * time.Second)
	m.updateEvent(done)

	row := rowFor(t, m, install.StepDriverDownload)
	assert.Equal(t, install.StateSuccess, row.State)
	assert.Equal(t, 3*time.Second, row.Elapsed)
}

func TestUpdateEvent_ProgressPercent(t *testing.T) {
	m := NewInstallModel("lobby-printer", "acme_laser-mk3")

	e := event(install.StepDriverDownload, install.StateRunning)
	e.Progress = &install.Progress{Percent: 42.5}
	m.updateEvent(e)

	row := rowFor(t, m, install.StepDriverDownload)
	assert.InDelta(t, 42.5, row.Percent, 0.01)
}

func TestUpdateEvent_JobDoneFinishesModel(t *testing.T) {
	m := NewInstallModel("lobby-printer", "acme_laser-mk3")

	m.updateEvent(event(install.StepJobDone, install.StateSuccess))

	assert.True(t, m.Done)
	assert.NoError(t, m.Err)
}

func TestUpdateEvent_JobFailedSetsError(t *testing.T) {
	m := NewInstallModel("lobby-printer", "acme_laser-mk3")

	e := event(install.StepJobFailed, install.StateFailed)
	e.Error = &install.ErrorPayload{Code: "probe_failed", Detail: "device unreachable"}
	m.updateEvent(e)

	require.Error(t, m.Err)
	assert.Contains(t, m.Err.Error(), "probe_failed")
	assert.Contains(t, m.Err.Error(), "device unreachable")
}

func TestUpdateEvent_ModeInherited(t *testing.T) {
	m := NewInstallModel("lobby-printer", "acme_laser-mk3")

	e := event(install.StepJobInit, install.StateRunning)
	e.Mode = install.ModeReinstall
	m.updateEvent(e)

	assert.Equal(t, install.ModeReinstall, m.Mode)
}

func TestView_InstallShowsSteps(t *testing.T) {
	m := NewInstallModel("lobby-printer", "acme_laser-mk3")
	m.updateEvent(event(install.StepDeviceProbe, install.StateSuccess))

	out := m.View()

	assert.Contains(t, out, "lobby-printer")
	assert.Contains(t, out, "Probe Device")
	assert.Contains(t, out, "Download Payload")
	assert.Contains(t, out, okMark)
}

func TestView_FailedShowsStderr(t *testing.T) {
	m := NewInstallModel("lobby-printer", "acme_laser-mk3")

	e := event(install.StepEnsureQueue, install.StateFailed)
	e.Error = &install.ErrorPayload{Code: "queue_failed", Detail: "lpadmin exited 1", Stderr: "lpadmin: bad device URI"}
	m.updateEvent(e)
	m.Err = errors.New("queue_failed: lpadmin exited 1")

	out := m.View()

	assert.Contains(t, out, failMark)
	assert.Contains(t, out, "lpadmin exited 1")
	assert.Contains(t, out, "bad device URI")
}

func TestCalculateProgress(t *testing.T) {
	m := NewInstallModel("lobby-printer", "acme_laser-mk3")
	assert.Zero(t, calculateProgress(m))

	m.updateEvent(event(install.StepJobInit, install.StateSuccess))
	m.updateEvent(event(install.StepDeviceProbe, install.StateSuccess))
	got := calculateProgress(m)
	assert.InDelta(t, 0.2, got, 0.001)

	for _, s := range pipelineSteps {
		m.updateEvent(event(s.step, install.StateSuccess))
	}
	assert.InDelta(t, 1.0, calculateProgress(m), 0.001)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "5s", formatDuration(5*time.Second))
	assert.Equal(t, "1m05s", formatDuration(65*time.Second))
	assert.Equal(t, "12m00s", formatDuration(12*time.Minute))
}

func TestRenderDoctorOnce(t *testing.T) {
	results := &prerequisites.CheckResults{
		Results: []prerequisites.CheckResult{
			{Tool: prerequisites.Tool{Name: "lpadmin", Required: true}, Found: true, Path: "/usr/sbin/lpadmin"},
			{Tool: prerequisites.Tool{Name: "lpinfo", Required: true, InstallURL: "https://www.cups.org"}, Found: false},
		},
		Missing: []prerequisites.Tool{{Name: "lpinfo", Required: true}},
	}

	out := RenderDoctorOnce(results)

	assert.Contains(t, out, "lpadmin")
	assert.Contains(t, out, "/usr/sbin/lpadmin")
	assert.Contains(t, out, "not found")
	assert.Contains(t, out, "cups.org")
}

func rowFor(t *testing.T, m Model, step install.StepID) StepRow {
	t.Helper()
	for _, row := range m.Rows {
		if row.Step == step {
			return row
		}
	}
	t.Fatalf("no row for step %s", step)
	return StepRow{}
}
