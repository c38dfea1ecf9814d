package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/spoolsmith/spoolsmith/internal/install"
	"github.com/spoolsmith/spoolsmith/internal/ui/benchmarks"
	"github.com/spoolsmith/spoolsmith/internal/util/prerequisites"
)

// StepRow represents one pipeline step for display.
type StepRow struct {
	Step    install.StepID
	Name    string
	State   install.State
	Percent float64
	Message string
	Code    string
	Stderr  string
	Started time.Time
	Elapsed time.Duration
}

// Model is the Bubble Tea model for the install dashboard.
type Model struct {
	// Job info
	DeviceName string
	DriverUUID string
	Mode       install.Mode

	// Pipeline state
	Rows []StepRow

	// ETA
	EstimatedRemaining time.Duration
	PerformanceScale   float64
	StartTime          time.Time

	// Animation
	SpinnerFrame int

	// UI state
	Width  int
	Height int
	Err    error
	Done   bool

	// Doctor mode
	ViewMode string // "install", "doctor"
	Checks   *prerequisites.CheckResults
}

// pipelineSteps are the rows shown for an install job, in execution order.
var pipelineSteps = []struct {
	step install.StepID
	name string
}{
	{install.StepJobInit, "Validate Job"},
	{install.StepDeviceProbe, "Probe Device"},
	{install.StepDriverDownload, "Download Payload"},
	{install.StepDriverVerify, "Verify Digest"},
	{install.StepDriverExtract, "Extract Archive"},
	{install.StepDriverStage, "Stage Driver"},
	{install.StepDriverRegister, "Register Driver"},
	{install.StepEnsurePort, "Bind Port"},
	{install.StepEnsureQueue, "Bind Queue"},
	{install.StepFinalVerify, "Verify Queue"},
}

// NewInstallModel creates a model for the install command TUI.
func NewInstallModel(deviceName, driverUUID string) Model {
	rows := make([]StepRow, len(pipelineSteps))
	for i, s := range pipelineSteps {
		rows[i] = StepRow{Step: s.step, Name: s.name, State: install.StatePending}
	}
	return Model{
		DeviceName:       deviceName,
		DriverUUID:       driverUUID,
		Rows:             rows,
		StartTime:        time.Now(),
		ViewMode:         "install",
		PerformanceScale: 1.0,
	}
}

// NewDoctorModel creates a model for the doctor command TUI.
func NewDoctorModel() Model {
	return Model{
		StartTime:        time.Now(),
		ViewMode:         "doctor",
		PerformanceScale: 1.0,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case EventMsg:
		m.updateEvent(msg.Event)
		if m.Done || m.Err != nil {
			return m, tea.Quit
		}

	case ToolCheckMsg:
		m.Checks = msg.Results
		m.Done = true
		return m, tea.Quit

	case TickMsg:
		m.SpinnerFrame++
		m.updateETA()
		return m, tickCmd()

	case ErrMsg:
		m.Err = msg.Err
		return m, tea.Quit

	case DoneMsg:
		m.Done = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) updateEvent(e install.Event) {
	if e.Mode != "" {
		m.Mode = e.Mode
	}

	switch e.Step {
	case install.StepJobDone:
		if e.State == install.StateSuccess {
			m.Done = true
		}
		return
	case install.StepJobFailed:
		if e.Error != nil {
			m.Err = &jobError{code: e.Error.Code, detail: e.Error.Detail}
		}
		return
	}

	idx := -1
	for i := range m.Rows {
		if m.Rows[i].Step == e.Step {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	row := &m.Rows[idx]
	row.State = e.State
	if e.Message != "" {
		row.Message = e.Message
	}
	if e.Progress != nil {
		row.Percent = e.Progress.Percent
	}
	if e.Error != nil {
		row.Code = e.Error.Code
		row.Stderr = e.Error.Stderr
	}

	switch e.State {
	case install.StateRunning:
		if row.Started.IsZero() {
			row.Started = e.Timestamp
		}
	case install.StateSuccess, install.StateFailed, install.StateSkipped:
		if !row.Started.IsZero() {
			row.Elapsed = e.Timestamp.Sub(row.Started)
		}
	}
}

func (m *Model) updateETA() {
	current := ""
	completed := map[string]time.Duration{}
	var stepElapsed time.Duration

	for i := range m.Rows {
		row := &m.Rows[i]
		switch row.State {
		case install.StateRunning:
			current = string(row.Step)
			if !row.Started.IsZero() {
				stepElapsed = time.Since(row.Started)
			}
		case install.StateSuccess, install.StateSkipped:
			completed[string(row.Step)] = row.Elapsed
		}
	}
	if current == "" {
		m.EstimatedRemaining = 0
		return
	}

	m.PerformanceScale = benchmarks.PerformanceScale(current, stepElapsed, completed)
	m.EstimatedRemaining = benchmarks.EstimateRemainingWithScale(current, stepElapsed, m.PerformanceScale)
}

// jobError carries the job.failed payload as an error for the final model.
type jobError struct {
	code   string
	detail string
}

func (e *jobError) Error() string {
	if e.detail == "" {
		return e.code
	}
	return e.code + ": " + e.detail
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	return renderView(m)
}
