package models

import (
	"errors"
	"time"
)

// Run status values stored with a [MigrationRun].
const (
	RunStatusRunning      = "running"
	RunStatusCompleted    = "completed"
	RunStatusDryRun       = "dry_run"
	RunStatusCancelled    = "cancelled"
	RunStatusCommitFailed = "commit_failed"
)

// record carries the identity, timestamps and soft delete marker shared by persisted entities.
type record struct {
	id        string
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

func newRecord() record {
	now := time.Now()
	return record{createdAt: now, updatedAt: now}
}

func (r *record) ID() string                { return r.id }
func (r *record) SetID(id string)           { r.id = id }
func (r *record) CreatedAt() time.Time      { return r.createdAt }
func (r *record) SetCreatedAt(t time.Time)  { r.createdAt = t }
func (r *record) UpdatedAt() time.Time      { return r.updatedAt }
func (r *record) SetUpdatedAt(t time.Time)  { r.updatedAt = t }
func (r *record) DeletedAt() *time.Time     { return r.deletedAt }
func (r *record) SetDeletedAt(t *time.Time) { r.deletedAt = t }
func (r *record) IsDeleted() bool           { return r.deletedAt != nil }

// MigrationRun records one execution of the migration pipeline and its final statistics.
type MigrationRun struct {
	record
	sequence         int
	sourceRef        string
	playlistName     string
	targetPlaylistID string
	status           string
	threshold        float64
	dryRun           bool
	stats            RunStatistics
	errorMessage     string
}

// NewMigrationRun creates a run in the running state for the given source reference and playlist name.
func NewMigrationRun(sequence int, sourceRef, playlistName string, threshold float64) *MigrationRun {
	return &MigrationRun{
		record:       newRecord(),
		sequence:     sequence,
		sourceRef:    sourceRef,
		playlistName: playlistName,
		threshold:    threshold,
		status:       RunStatusRunning,
	}
}

func (m *MigrationRun) Sequence() int                  { return m.sequence }
func (m *MigrationRun) SetSequence(seq int)            { m.sequence = seq }
func (m *MigrationRun) SourceRef() string              { return m.sourceRef }
func (m *MigrationRun) PlaylistName() string           { return m.playlistName }
func (m *MigrationRun) TargetPlaylistID() string       { return m.targetPlaylistID }
func (m *MigrationRun) SetTargetPlaylistID(id string)  { m.targetPlaylistID = id }
func (m *MigrationRun) Status() string                 { return m.status }
func (m *MigrationRun) SetStatus(status string)        { m.status = status }
func (m *MigrationRun) Threshold() float64             { return m.threshold }
func (m *MigrationRun) DryRun() bool                   { return m.dryRun }
func (m *MigrationRun) SetDryRun(dryRun bool)          { m.dryRun = dryRun }
func (m *MigrationRun) Stats() RunStatistics           { return m.stats }
func (m *MigrationRun) SetStats(stats RunStatistics)   { m.stats = stats }
func (m *MigrationRun) ErrorMessage() string           { return m.errorMessage }
func (m *MigrationRun) SetErrorMessage(message string) { m.errorMessage = message }

// Validate checks required fields and the statistics invariant.
func (m *MigrationRun) Validate() error {
	if m.sourceRef == "" {
		return errors.New("source reference is required")
	}
	if m.playlistName == "" {
		return errors.New("playlist name is required")
	}
	if m.threshold < 0 || m.threshold > 1 {
		return errors.New("threshold must be between 0 and 1")
	}
	switch m.status {
	case RunStatusRunning, RunStatusCompleted, RunStatusDryRun, RunStatusCancelled, RunStatusCommitFailed:
	default:
		return errors.New("invalid run status: " + m.status)
	}
	if m.stats.Accepted+m.stats.Unresolved+m.stats.Failed != m.stats.Total {
		return errors.New("run statistics do not sum to total")
	}
	return nil
}

// RunItem is one [ProcessedItem] persisted under a [MigrationRun].
type RunItem struct {
	record
	sequence int
	runID    string
	position int
	item     ProcessedItem
}

// NewRunItem wraps a processed item at the given zero-based position within a run.
func NewRunItem(sequence int, runID string, position int, item ProcessedItem) *RunItem {
	return &RunItem{
		record:   newRecord(),
		sequence: sequence,
		runID:    runID,
		position: position,
		item:     item,
	}
}

func (r *RunItem) Sequence() int              { return r.sequence }
func (r *RunItem) SetSequence(seq int)        { r.sequence = seq }
func (r *RunItem) RunID() string              { return r.runID }
func (r *RunItem) Position() int              { return r.position }
func (r *RunItem) Item() ProcessedItem        { return r.item }
func (r *RunItem) SetItem(item ProcessedItem) { r.item = item }

// Validate checks that the item belongs to a run and carries a terminal status.
func (r *RunItem) Validate() error {
	if r.runID == "" {
		return errors.New("run id is required")
	}
	if r.position < 0 {
		return errors.New("position must not be negative")
	}
	if r.item.Status == StatusPending {
		return errors.New("item has not finished processing")
	}
	if r.item.Accepted() && r.item.ExternalID() == "" {
		return errors.New("accepted item requires an external id")
	}
	return nil
}
