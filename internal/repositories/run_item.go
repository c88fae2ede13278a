package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/tubeport/internal/models"
	"github.com/desertthunder/tubeport/internal/shared"
)

const itemColumns = `
	id, sequence, run_id, position, label, publisher, parsed_artist, parsed_title,
	matched_artist, matched_title, external_id, strategy, confidence, accepted,
	status, failure_reason, created_at, updated_at, deleted_at
`

// ItemRepository implements models.Repository[*models.RunItem] for per-entry run results.
type ItemRepository struct {
	db *sql.DB
}

// NewItemRepository creates a new ItemRepository with the given database connection
func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create inserts a new run item with generated ID and sequence
func (r *ItemRepository) Create(item *models.RunItem) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.insert(tx, item); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *ItemRepository) insert(ex execer, item *models.RunItem) error {
	if item.ID() == "" {
		item.SetID(shared.GenerateID())
	}
	if err := item.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := nextSequence(ex, "run_items")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	item.SetSequence(sequence)

	args := []any{item.ID(), sequence, item.RunID(), item.Position()}
	args = append(args, itemValues(item.Item())...)
	args = append(args, item.CreatedAt(), item.UpdatedAt())

	query := `
		INSERT INTO run_items (` + itemColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`
	if _, err := ex.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to insert run item: %w", err)
	}
	return nil
}

// itemValues flattens a processed item into the label..failure_reason columns.
func itemValues(p models.ProcessedItem) []any {
	var matchedArtist, matchedTitle, externalID, strategy, confidence, accepted any
	if p.Result != nil {
		matchedArtist = p.Result.MatchedArtist
		matchedTitle = p.Result.MatchedTitle
		externalID = p.Result.ExternalID
		strategy = p.Result.Strategy
	}
	if p.Outcome != nil {
		confidence = p.Outcome.Confidence
		accepted = boolToInt(p.Outcome.Accepted)
	}

	return []any{
		p.Entry.Label,
		p.Entry.Publisher,
		p.Identity.Artist,
		p.Identity.Title,
		matchedArtist,
		matchedTitle,
		externalID,
		strategy,
		confidence,
		accepted,
		p.Status.String(),
		p.FailureReason,
	}
}

// Get retrieves a run item by ID, excluding soft-deleted items
func (r *ItemRepository) Get(id string) (*models.RunItem, error) {
	query := `SELECT ` + itemColumns + ` FROM run_items WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id))
}

// Update rewrites the processed item of an existing run item
func (r *ItemRepository) Update(item *models.RunItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	item.SetUpdatedAt(now)

	query := `
		UPDATE run_items
		SET label = ?, publisher = ?, parsed_artist = ?, parsed_title = ?,
			matched_artist = ?, matched_title = ?, external_id = ?, strategy = ?,
			confidence = ?, accepted = ?, status = ?, failure_reason = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	args := append(itemValues(item.Item()), now, item.ID())
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update run item: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run item not found or already deleted: %s", item.ID())
	}
	return nil
}

// Delete soft-deletes a run item by ID
func (r *ItemRepository) Delete(id string) error {
	query := `
		UPDATE run_items
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete run item: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run item not found or already deleted: %s", id)
	}
	return nil
}

// List retrieves run items matching the given criteria in run and source order.
//
// Supported criteria: "run_id" (string), "status" (string).
func (r *ItemRepository) List(criteria map[string]any) ([]*models.RunItem, error) {
	query := `SELECT ` + itemColumns + ` FROM run_items WHERE deleted_at IS NULL`
	args := []any{}

	if runID, ok := criteria["run_id"].(string); ok && runID != "" {
		query += " AND run_id = ?"
		args = append(args, runID)
	}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY run_id, position"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query run items: %w", err)
	}
	defer rows.Close()

	var items []*models.RunItem
	for rows.Next() {
		item, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return items, nil
}

// ListByRun returns the processed items of a run in source order.
func (r *ItemRepository) ListByRun(runID string) ([]models.ProcessedItem, error) {
	rows, err := r.List(map[string]any{"run_id": runID})
	if err != nil {
		return nil, err
	}

	items := make([]models.ProcessedItem, len(rows))
	for i, row := range rows {
		items[i] = row.Item()
	}
	return items, nil
}

func (r *ItemRepository) scan(row scanner) (*models.RunItem, error) {
	var (
		id, runID, status  string
		sequence, position int
		p                  models.ProcessedItem
		matchedArtist      sql.NullString
		matchedTitle       sql.NullString
		externalID         sql.NullString
		strategy           sql.NullString
		confidence         sql.NullFloat64
		accepted           sql.NullBool
		createdAt          time.Time
		updatedAt          time.Time
		deletedAt          sql.NullTime
	)

	err := row.Scan(
		&id, &sequence, &runID, &position, &p.Entry.Label, &p.Entry.Publisher, &p.Identity.Artist, &p.Identity.Title,
		&matchedArtist, &matchedTitle, &externalID, &strategy, &confidence, &accepted,
		&status, &p.FailureReason, &createdAt, &updatedAt, &deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run item not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run item: %w", err)
	}

	p.Status = models.ParseItemStatus(status)
	if externalID.Valid {
		p.Result = &models.ResolutionResult{
			MatchedArtist: matchedArtist.String,
			MatchedTitle:  matchedTitle.String,
			ExternalID:    externalID.String,
			Strategy:      strategy.String,
		}
	}
	if confidence.Valid {
		p.Outcome = &models.MatchOutcome{Confidence: confidence.Float64, Accepted: accepted.Valid && accepted.Bool}
	}

	item := models.NewRunItem(sequence, runID, position, p)
	item.SetID(id)
	item.SetCreatedAt(createdAt)
	item.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		item.SetDeletedAt(&deletedAt.Time)
	}

	return item, nil
}

// RunRecorderAdapter implements tasks.RunRecorder using the run and item tables.
//
// A run and all of its items are written in one transaction.
type RunRecorderAdapter struct {
	db    *sql.DB
	runs  *RunRepository
	items *ItemRepository
}

// NewRunRecorder creates a new RunRecorderAdapter with the given database connection
func NewRunRecorder(db *sql.DB) *RunRecorderAdapter {
	return &RunRecorderAdapter{db: db, runs: NewRunRepository(db), items: NewItemRepository(db)}
}

// RecordRun persists a finished run and its items in source order. On success run carries its ID and sequence.
func (a *RunRecorderAdapter) RecordRun(run *models.MigrationRun, items []models.ProcessedItem) error {
	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := a.runs.insert(tx, run); err != nil {
		return err
	}

	for i, p := range items {
		if err := a.items.insert(tx, models.NewRunItem(0, run.ID(), i, p)); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}
