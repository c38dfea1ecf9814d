// Package tui provides a Bubble Tea-based terminal UI for install jobs.
package tui

import (
	"github.com/spoolsmith/spoolsmith/internal/install"
	"github.com/spoolsmith/spoolsmith/internal/util/prerequisites"
)

// EventMsg carries one install progress event into the UI.
type EventMsg struct {
	Event install.Event
}

// ToolCheckMsg carries the doctor's tool check results.
type ToolCheckMsg struct {
	Results *prerequisites.CheckResults
}

// TickMsg is sent periodically to refresh the display.
type TickMsg struct{}

// ErrMsg carries an error.
type ErrMsg struct{ Err error }

// DoneMsg signals that the operation is complete.
type DoneMsg struct{}
