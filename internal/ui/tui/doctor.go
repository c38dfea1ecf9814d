package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/spoolsmith/spoolsmith/internal/util/prerequisites"
)

// RunDoctorTUI runs the doctor command with a Bubble Tea TUI.
// checkFn performs the tool checks; it runs in a background goroutine so
// the spinner stays live while slow version probes execute.
func RunDoctorTUI(checkFn func() *prerequisites.CheckResults) error {
	m := NewDoctorModel()

	p := tea.NewProgram(m, tea.WithAltScreen())

	go func() {
		p.Send(ToolCheckMsg{Results: checkFn()})
	}()

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	fm := finalModel.(Model)
	if fm.Checks != nil && fm.Checks.HasErrors() {
		return fmt.Errorf("required tools are missing")
	}
	return nil
}

// RenderDoctorOnce renders doctor output once using lipgloss (non-TTY mode).
func RenderDoctorOnce(results *prerequisites.CheckResults) string {
	m := NewDoctorModel()
	m.Checks = results
	m.Done = true
	return renderView(m)
}
