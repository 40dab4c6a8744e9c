// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program for the status view
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Control carries requests from the TUI back to the daemon
type Control struct {
	Quit chan struct{}
}

// NewControl creates a control handle
func NewControl() *Control {
	return &Control{Quit: make(chan struct{}, 1)}
}

// NewModel creates a new TUI model
func NewModel(ctrl *Control) Model {
	m := Model{state: "quiet"}
	if ctrl != nil {
		m.quit = ctrl.Quit
	}
	return m
}

// Run creates the TUI program; the caller starts it
func Run(ctrl *Control) *tea.Program {
	return tea.NewProgram(NewModel(ctrl), tea.WithAltScreen())
}
