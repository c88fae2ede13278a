package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tubeport/internal/shared"
	"github.com/desertthunder/tubeport/internal/tasks"
	"github.com/desertthunder/tubeport/internal/ui"
)

const tuiLogPath = "./tmp/tubeport-tui.log"

// redirectLogs sends logs to a file while the TUI owns the terminal. The returned func restores
// the previous logger.
func (r *Runner) redirectLogs() (func(), error) {
	fileLogger, f, err := shared.NewFileLogger(tuiLogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())

	previous := r.logger
	r.SetLogger(fileLogger)
	return func() {
		r.SetLogger(previous)
		f.Close()
	}, nil
}

// runTUI runs the engine behind the interactive progress view. Returns a nil result and nil error when
// the user declined to start.
func (r *Runner) runTUI(ctx context.Context, engine tasks.Engine, opts tasks.MigrationOpts, confirm bool) (*tasks.MigrationResult, error) {
	model := ui.NewModel(ctx, engine, opts, confirm)
	p := tea.NewProgram(model, tea.WithOutput(r.output))

	if _, err := p.Run(); err != nil {
		return nil, fmt.Errorf("error running TUI: %w", err)
	}

	return model.Result()
}
