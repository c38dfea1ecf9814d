package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/spoolsmith/spoolsmith/internal/install"
)

// RunInstallTUI wraps an install job with a Bubble Tea dashboard.
// Events are consumed from the channel until it closes; the caller owns
// the subscription and the job running behind it.
func RunInstallTUI(ctx context.Context, events <-chan install.Event, deviceName, driverUUID string) error {
	m := NewInstallModel(deviceName, driverUUID)

	p := tea.NewProgram(m, tea.WithAltScreen())

	// Pump events in a background goroutine
	go func() {
		for {
			select {
			case <-ctx.Done():
				p.Send(ErrMsg{Err: ctx.Err()})
				return
			case e, ok := <-events:
				if !ok {
					p.Send(DoneMsg{})
					return
				}
				p.Send(EventMsg{Event: e})
			}
		}
	}()

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	fm := finalModel.(Model)
	if fm.Err != nil {
		return fm.Err
	}
	return nil
}
