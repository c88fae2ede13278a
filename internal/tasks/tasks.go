// package tasks implements the YouTube → Spotify playlist migration run.
//
// The core abstraction is MigrationEngine, which normalizes, resolves, scores and commits every entry of a source playlist.
// Runs emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tubeport/internal/matching"
	"github.com/desertthunder/tubeport/internal/models"
	"github.com/desertthunder/tubeport/internal/services"
	"github.com/desertthunder/tubeport/internal/shared"
)

// DescriptionFormat is the default destination playlist description, formatted with the committed track count.
const DescriptionFormat = "Migrated from YouTube playlist • %d tracks"

// MigrationOpts configures a single run.
type MigrationOpts struct {
	Source      string   // YouTube playlist URL or ID
	Name        string   // Destination playlist name
	Description string   // Destination playlist description, defaults to [DescriptionFormat]
	Public      bool     // Create the destination playlist as public
	Threshold   *float64 // Acceptance threshold, nil selects [matching.DefaultThreshold]
	DryRun      bool     // Resolve and score only, skip the commit phase

	// ScorePublisherArtist scores candidates against the publisher-derived artist when the label carried none.
	ScorePublisherArtist bool
}

// MigrationResult contains all data from a migration run.
type MigrationResult struct {
	RunID     string                 // Persisted run ID, empty without a recorder
	SourceRef string                 // Source playlist reference as given
	Items     []models.ProcessedItem // One record per processed entry, in source order
	Stats     models.RunStatistics   // Aggregated outcomes
	State     models.RunState        // Lifecycle state
	CommitSet []string               // Accepted track URIs, in source order
	Playlist  *models.Playlist       // Created destination playlist, nil when nothing was committed
	CommitErr error                  // Commit phase failure
	Cancelled bool                   // Run stopped before every entry was processed
	DryRun    bool                   // Commit phase skipped on request
}

// RunRecorder persists a finished run and its items.
type RunRecorder interface {
	RecordRun(run *models.MigrationRun, items []models.ProcessedItem) error
}

// Engine defines the migration operation.
type Engine interface {
	// Run extracts the source playlist, resolves each entry against the destination catalog and
	// commits accepted tracks to a new playlist.
	Run(ctx context.Context, progress chan<- ProgressUpdate, opts MigrationOpts) (*MigrationResult, error)
}

// MigrationEngine implements [Engine].
// Contains dependencies on the source extractor, destination catalog and an optional run recorder.
type MigrationEngine struct {
	extractor services.Extractor
	searcher  services.Searcher
	publisher services.Publisher
	recorder  RunRecorder
	logger    *log.Logger
	now       func() time.Time
}

// NewMigrationEngine creates a new MigrationEngine with the provided services.
func NewMigrationEngine(extractor services.Extractor, searcher services.Searcher, publisher services.Publisher, logger *log.Logger) *MigrationEngine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &MigrationEngine{
		extractor: extractor,
		searcher:  searcher,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// WithRecorder sets the recorder that persists finished runs.
func (e *MigrationEngine) WithRecorder(r RunRecorder) *MigrationEngine {
	e.recorder = r
	return e
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *MigrationEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full, skip this update
	}
}

// Run performs a full YouTube → Spotify playlist migration.
//
// Extraction failures and empty playlists abort before any entry is processed. Per-entry failures are
// recorded on the item and the run continues. On cancellation the processed items and statistics are
// returned together with an error wrapping [shared.ErrCancelled]. A commit failure is returned wrapped in
// [shared.ErrCommit] and leaves items and statistics untouched.
func (e *MigrationEngine) Run(ctx context.Context, progress chan<- ProgressUpdate, opts MigrationOpts) (*MigrationResult, error) {
	if e.extractor == nil || e.searcher == nil {
		return nil, fmt.Errorf("%w: source or destination service not initialized", shared.ErrServiceUnavailable)
	}
	if !opts.DryRun && e.publisher == nil {
		return nil, fmt.Errorf("%w: destination publisher not initialized", shared.ErrServiceUnavailable)
	}
	if strings.TrimSpace(opts.Source) == "" {
		return nil, fmt.Errorf("%w: source playlist", shared.ErrMissingArgument)
	}
	if strings.TrimSpace(opts.Name) == "" {
		return nil, fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}

	threshold, err := acceptanceThreshold(opts.Threshold)
	if err != nil {
		return nil, err
	}

	result := &MigrationResult{SourceRef: opts.Source, State: models.NotStarted, DryRun: opts.DryRun}
	result.State = models.Running
	result.Stats.StartedAt = e.now()

	logger := shared.WithLogger(e.logger, "source", opts.Source)
	logger.Info("migration started", "threshold", threshold, "dry_run", opts.DryRun)

	e.sendProgress(progress, fetchingSourceUpdate(opts.Source))
	entries, err := e.extractor.ExtractEntries(ctx, opts.Source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrExtraction, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrEmptyPlaylist, opts.Source)
	}

	total := len(entries)
	e.sendProgress(progress, foundEntriesUpdate(total))
	result.Items = make([]models.ProcessedItem, 0, total)

	for i, entry := range entries {
		if ctx.Err() != nil {
			result.Cancelled = true
			break
		}

		item, err := e.processEntry(ctx, entry, threshold, opts.ScorePublisherArtist)
		if err != nil {
			// Interrupted by cancellation; the item never finished.
			result.Cancelled = true
			break
		}

		result.Items = append(result.Items, item)
		result.Stats.Record(item)
		logger.Debug("entry processed", "position", i, "label", entry.Label, "status", item.Status,
			"confidence", item.Confidence(), "reason", item.FailureReason)
		e.sendProgress(progress, itemUpdate(i+1, total, item))
	}

	result.State = models.Finished
	result.Stats.FinishedAt = e.now()
	result.CommitSet = commitSet(result.Items)

	var runErr error
	switch {
	case result.Cancelled:
		runErr = fmt.Errorf("%w: processed %d of %d entries", shared.ErrCancelled, len(result.Items), total)
		logger.Warn("migration cancelled", "processed", len(result.Items), "total", total)
	case opts.DryRun:
		logger.Info("dry run, skipping playlist creation", "accepted", len(result.CommitSet))
	case len(result.CommitSet) == 0:
		logger.Warn("no tracks accepted, skipping playlist creation")
	default:
		pl, err := e.commit(ctx, progress, opts, result.CommitSet)
		if err != nil {
			result.CommitErr = err
			runErr = err
			logger.Error("commit failed", "error", err)
		} else {
			result.Playlist = pl
		}
	}

	e.sendProgress(progress, runCompleteUpdate(result.Stats))
	logger.Info("migration finished",
		"total", result.Stats.Total,
		"accepted", result.Stats.Accepted,
		"unresolved", result.Stats.Unresolved,
		"failed", result.Stats.Failed,
		"duration", shared.FormatDuration(result.Stats.Duration()))

	e.record(result, opts, threshold)
	return result, runErr
}

// Resolve normalizes, resolves and scores a single entry outside of a run. Search failures are recorded
// on the item; an error is returned only when the searcher is missing or ctx ended.
func (e *MigrationEngine) Resolve(ctx context.Context, entry models.RawEntry, threshold *float64, scorePublisherArtist bool) (models.ProcessedItem, error) {
	if e.searcher == nil {
		return models.ProcessedItem{Entry: entry}, fmt.Errorf("%w: destination searcher not initialized", shared.ErrServiceUnavailable)
	}
	value, err := acceptanceThreshold(threshold)
	if err != nil {
		return models.ProcessedItem{Entry: entry}, err
	}
	return e.processEntry(ctx, entry, value, scorePublisherArtist)
}

// acceptanceThreshold returns the threshold to score against. nil selects [matching.DefaultThreshold];
// zero is a valid threshold that accepts every hit.
func acceptanceThreshold(threshold *float64) (float64, error) {
	if threshold == nil {
		return matching.DefaultThreshold, nil
	}
	if *threshold < 0 || *threshold > 1 {
		return 0, fmt.Errorf("%w: threshold %.2f must be between 0 and 1", shared.ErrInvalidArgument, *threshold)
	}
	return *threshold, nil
}

// processEntry normalizes, resolves and scores one entry.
//
// An error is returned only when the context interrupted the entry; every other failure, including a
// panic, is recorded on the item as [models.StatusFailed].
func (e *MigrationEngine) processEntry(ctx context.Context, entry models.RawEntry, threshold float64, scoreWorking bool) (item models.ProcessedItem, err error) {
	item = models.ProcessedItem{Entry: entry}

	defer func() {
		if r := recover(); r != nil {
			item.Result = nil
			item.Outcome = nil
			item.Status = models.StatusFailed
			item.FailureReason = fmt.Sprintf("%v", r)
			err = nil
		}
	}()

	identity := matching.Parse(entry.Label)
	item.Identity = identity

	working := identity
	if working.Artist == "" && strings.TrimSpace(entry.Publisher) != "" {
		working.Artist = matching.CleanChannel(entry.Publisher)
	}

	hit, err := matching.Resolve(ctx, working, entry.Publisher, e.searcher.Search)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return item, ctxErr
		}
		item.Status = models.StatusFailed
		item.FailureReason = err.Error()
		return item, nil
	}

	if hit == nil {
		item.Status = models.StatusUnresolved
		item.FailureReason = models.ReasonNoMatch
		return item, nil
	}

	scoreArtist := identity.Artist
	if scoreWorking {
		scoreArtist = working.Artist
	}
	confidence := matching.Score(scoreArtist, identity.Title, hit.MatchedArtist, hit.MatchedTitle)
	accepted := matching.Accept(confidence, threshold)

	item.Result = hit
	item.Outcome = &models.MatchOutcome{Confidence: confidence, Accepted: accepted}
	if accepted {
		item.Status = models.StatusAccepted
	} else {
		item.Status = models.StatusRejected
		item.FailureReason = fmt.Sprintf(models.ReasonLowConfidence, confidence)
	}
	return item, nil
}

// commit creates the destination playlist and adds the commit set to it.
func (e *MigrationEngine) commit(ctx context.Context, progress chan<- ProgressUpdate, opts MigrationOpts, uris []string) (*models.Playlist, error) {
	description := opts.Description
	if description == "" {
		description = fmt.Sprintf(DescriptionFormat, len(uris))
	}

	e.sendProgress(progress, createPlaylistUpdate(opts.Name))
	id, err := e.publisher.CreatePlaylist(ctx, opts.Name, description, opts.Public)
	if err != nil {
		return nil, fmt.Errorf("%w: create playlist: %w", shared.ErrCommit, err)
	}

	pl := &models.Playlist{ID: id, Name: opts.Name, Description: description, Public: opts.Public}
	if err := e.publisher.AddItems(ctx, id, uris); err != nil {
		return pl, fmt.Errorf("%w: add tracks to %s: %w", shared.ErrCommit, id, err)
	}

	pl.TrackCount = len(uris)
	e.sendProgress(progress, addItemsUpdate(pl))
	return pl, nil
}

// record persists the run through the recorder. Failures are logged and never change the run outcome.
func (e *MigrationEngine) record(result *MigrationResult, opts MigrationOpts, threshold float64) {
	if e.recorder == nil {
		return
	}

	run := models.NewMigrationRun(0, opts.Source, opts.Name, threshold)
	run.SetDryRun(opts.DryRun)
	run.SetStats(result.Stats)

	switch {
	case result.Cancelled:
		run.SetStatus(models.RunStatusCancelled)
	case result.CommitErr != nil:
		run.SetStatus(models.RunStatusCommitFailed)
		run.SetErrorMessage(result.CommitErr.Error())
	case opts.DryRun:
		run.SetStatus(models.RunStatusDryRun)
	default:
		run.SetStatus(models.RunStatusCompleted)
	}
	if result.Playlist != nil {
		run.SetTargetPlaylistID(result.Playlist.ID)
	}

	if err := e.recorder.RecordRun(run, result.Items); err != nil {
		e.logger.Error("failed to record migration run", "error", err)
		return
	}
	result.RunID = run.ID()
}

func commitSet(items []models.ProcessedItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.Accepted() {
			ids = append(ids, item.ExternalID())
		}
	}
	return ids
}
