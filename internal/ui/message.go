package ui

import (
	"github.com/desertthunder/tubeport/internal/tasks"
)

// progressMsg carries one engine update into the update loop.
type progressMsg tasks.ProgressUpdate

// migrationDoneMsg is delivered once the engine returns.
type migrationDoneMsg struct {
	result *tasks.MigrationResult
	err    error
}
