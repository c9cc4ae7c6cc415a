package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"vigil/internal/progress"
)

type Options struct {
	Events <-chan progress.Event
}

// Run drives the scan progress UI until the event channel closes or the
// final scan event arrives.
func Run(opts Options) error {
	if opts.Events == nil {
		return fmt.Errorf("tui events channel is required")
	}

	m := newModel(opts.Events)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
