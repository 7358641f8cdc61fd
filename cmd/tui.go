package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/slidex/internal/shared"
	"github.com/desertthunder/slidex/internal/tasks"
	"github.com/desertthunder/slidex/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive deck editor.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/slidex-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	progress := make(chan tasks.ProgressUpdate, 50)
	s, cleanup, err := r.openStore(progress)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := s.Resume(ctx); err != nil {
		return err
	}

	model := ui.NewModel(ctx, s, progress)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

// tuiCommand launches the interactive terminal UI
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Open the interactive deck editor",
		Action: r.TUI,
	}
}
