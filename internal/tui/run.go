package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/phpguard/phpguard/internal/types"
)

// Run opens the interactive browser for res and blocks until the user quits.
func Run(res types.ScanResult, opts Options) error {
	if opts.Prefs == (Prefs{}) {
		opts.Prefs = LoadPrefs()
	}
	m := NewModel(res, opts)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
