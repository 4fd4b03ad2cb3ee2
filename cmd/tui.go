package main

import (
	"context"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mcx/internal/shared"
	"github.com/desertthunder/mcx/internal/ui"
)

// TUI launches the interactive terminal UI for installing and launching instances.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	logPath := r.config.Log.File
	if logPath == "" {
		logPath = filepath.Join(r.root(), "logs", "tui.log")
	}
	fileLogger, err := shared.NewFileLogger(shared.ExpandPath(logPath))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Log.Level))
	r.SetLogger(fileLogger)

	model := ui.NewModel(ctx, r.store(), r.pipeline(), r.bus)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
