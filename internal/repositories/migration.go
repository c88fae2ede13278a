package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/tubeport/internal/models"
	"github.com/desertthunder/tubeport/internal/shared"
)

const runColumns = `
	id, sequence, source_ref, playlist_name, target_playlist_id, status,
	threshold, dry_run, total, accepted, unresolved, failed, low_confidence,
	started_at, finished_at, error_message, created_at, updated_at, deleted_at
`

// RunRepository implements models.Repository[*models.MigrationRun] for run history.
//
// Handles migration run CRUD operations with soft delete support and status-based queries.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new migration run into the database with generated ID and sequence
func (r *RunRepository) Create(run *models.MigrationRun) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.insert(tx, run); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *RunRepository) insert(ex execer, run *models.MigrationRun) error {
	if run.ID() == "" {
		run.SetID(shared.GenerateID())
	}
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := nextSequence(ex, "migration_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	run.SetSequence(sequence)

	stats := run.Stats()
	query := `
		INSERT INTO migration_runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`

	_, err = ex.Exec(query,
		run.ID(),
		sequence,
		run.SourceRef(),
		run.PlaylistName(),
		run.TargetPlaylistID(),
		run.Status(),
		run.Threshold(),
		boolToInt(run.DryRun()),
		stats.Total,
		stats.Accepted,
		stats.Unresolved,
		stats.Failed,
		stats.LowConfidence,
		nullableTime(stats.StartedAt),
		nullableTime(stats.FinishedAt),
		run.ErrorMessage(),
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert migration run: %w", err)
	}

	return nil
}

// Get retrieves a migration run by ID, excluding soft-deleted runs
func (r *RunRepository) Get(id string) (*models.MigrationRun, error) {
	query := `SELECT ` + runColumns + ` FROM migration_runs WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id), id)
}

// GetBySequence retrieves a migration run by its sequence number
func (r *RunRepository) GetBySequence(sequence int) (*models.MigrationRun, error) {
	query := `SELECT ` + runColumns + ` FROM migration_runs WHERE sequence = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, sequence), "#"+strconv.Itoa(sequence))
}

// Find resolves a run reference: a sequence number such as "3" or "#3", otherwise an ID.
func (r *RunRepository) Find(ref string) (*models.MigrationRun, error) {
	ref = strings.TrimSpace(ref)
	if seq, err := strconv.Atoi(strings.TrimPrefix(ref, "#")); err == nil {
		return r.GetBySequence(seq)
	}
	return r.Get(ref)
}

// Update modifies an existing migration run in the database
func (r *RunRepository) Update(run *models.MigrationRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	run.SetUpdatedAt(now)
	stats := run.Stats()

	query := `
		UPDATE migration_runs
		SET target_playlist_id = ?, status = ?, dry_run = ?, total = ?,
			accepted = ?, unresolved = ?, failed = ?, low_confidence = ?,
			started_at = ?, finished_at = ?, error_message = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		run.TargetPlaylistID(),
		run.Status(),
		boolToInt(run.DryRun()),
		stats.Total,
		stats.Accepted,
		stats.Unresolved,
		stats.Failed,
		stats.LowConfidence,
		nullableTime(stats.StartedAt),
		nullableTime(stats.FinishedAt),
		run.ErrorMessage(),
		now,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update migration run: %w", err)
	}

	return expectRow(result, run.ID())
}

// Delete soft-deletes a migration run by ID
func (r *RunRepository) Delete(id string) error {
	query := `
		UPDATE migration_runs
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete migration run: %w", err)
	}

	return expectRow(result, id)
}

// List retrieves migration runs matching the given criteria, newest first, excluding soft-deleted runs.
//
// Supported criteria: "status" (string), "dry_run" (bool), "limit" (int).
func (r *RunRepository) List(criteria map[string]any) ([]*models.MigrationRun, error) {
	query := `SELECT ` + runColumns + ` FROM migration_runs WHERE deleted_at IS NULL`
	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	if dryRun, ok := criteria["dry_run"].(bool); ok {
		query += " AND dry_run = ?"
		args = append(args, boolToInt(dryRun))
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query migration runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.MigrationRun
	for rows.Next() {
		run, err := r.scan(rows, "")
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// scan reads one row into a [models.MigrationRun]; ref names the run in not-found errors.
func (r *RunRepository) scan(row scanner, ref string) (*models.MigrationRun, error) {
	var (
		id               string
		sequence         int
		sourceRef        string
		playlistName     string
		targetPlaylistID string
		status           string
		threshold        float64
		dryRun           bool
		stats            models.RunStatistics
		startedAt        sql.NullTime
		finishedAt       sql.NullTime
		errorMessage     string
		createdAt        time.Time
		updatedAt        time.Time
		deletedAt        sql.NullTime
	)

	err := row.Scan(
		&id, &sequence, &sourceRef, &playlistName, &targetPlaylistID, &status,
		&threshold, &dryRun, &stats.Total, &stats.Accepted, &stats.Unresolved, &stats.Failed, &stats.LowConfidence,
		&startedAt, &finishedAt, &errorMessage, &createdAt, &updatedAt, &deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrRunNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan migration run: %w", err)
	}

	if startedAt.Valid {
		stats.StartedAt = startedAt.Time
	}
	if finishedAt.Valid {
		stats.FinishedAt = finishedAt.Time
	}

	run := models.NewMigrationRun(sequence, sourceRef, playlistName, threshold)
	run.SetID(id)
	run.SetTargetPlaylistID(targetPlaylistID)
	run.SetStatus(status)
	run.SetDryRun(dryRun)
	run.SetStats(stats)
	run.SetErrorMessage(errorMessage)
	run.SetCreatedAt(createdAt)
	run.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		run.SetDeletedAt(&deletedAt.Time)
	}

	return run, nil
}

func expectRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: not found or already deleted: %s", shared.ErrRunNotFound, id)
	}
	return nil
}
