// Package ui implements the interactive migration view using bubbletea's Elm architecture.
//
// A run moves through three views:
//  1. [ConfirmView] : Review source, destination name and threshold before starting
//  2. [MigrateView] : Spinner, progress bar and the most recently processed entries
//  3. [ResultView] : Run statistics and a browsable list of entries that were not migrated
//
// The [Model] drives a [tasks.Engine] in a goroutine and reads its progress channel one update per command,
// so the engine never blocks on the UI. Pressing q during a run cancels its context; entries already processed
// are kept and reported. [Model.Result] exposes the outcome to the caller once the program exits.
package ui
