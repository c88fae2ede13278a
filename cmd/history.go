package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/tubeport/internal/formatter"
	"github.com/desertthunder/tubeport/internal/models"
	"github.com/desertthunder/tubeport/internal/repositories"
	"github.com/desertthunder/tubeport/internal/shared"
	"github.com/urfave/cli/v3"
)

// runView is the JSON shape of a recorded run.
type runView struct {
	ID          string               `json:"id"`
	Sequence    int                  `json:"sequence"`
	Source      string               `json:"source"`
	Playlist    string               `json:"playlist"`
	PlaylistID  string               `json:"playlist_id,omitempty"`
	Status      string               `json:"status"`
	DryRun      bool                 `json:"dry_run"`
	Threshold   float64              `json:"threshold"`
	Stats       models.RunStatistics `json:"stats"`
	SuccessRate float64              `json:"success_rate"`
	Error       string               `json:"error,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

func newRunView(run *models.MigrationRun) runView {
	return runView{
		ID:          run.ID(),
		Sequence:    run.Sequence(),
		Source:      run.SourceRef(),
		Playlist:    run.PlaylistName(),
		PlaylistID:  run.TargetPlaylistID(),
		Status:      run.Status(),
		DryRun:      run.DryRun(),
		Threshold:   run.Threshold(),
		Stats:       run.Stats(),
		SuccessRate: run.Stats().SuccessRate(),
		Error:       run.ErrorMessage(),
		CreatedAt:   run.CreatedAt(),
	}
}

// HistoryList lists recorded runs, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	criteria := map[string]any{"limit": cmd.Int("limit")}
	if status := cmd.String("status"); status != "" {
		criteria["status"] = status
	}

	runs, err := repositories.NewRunRepository(db).List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		views := make([]runView, 0, len(runs))
		for _, run := range runs {
			views = append(views, newRunView(run))
		}
		return r.writeJSON(views, cmd.Bool("pretty"))
	}

	if len(runs) == 0 {
		r.writePlain("No runs recorded yet\n")
		return nil
	}

	r.writePlain("%s\n", formatter.RunsTable(runs))
	return nil
}

// HistoryShow prints one run with its items. The run is looked up by ID, "#sequence" or sequence.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.StringArg("run")
	if ref == "" {
		return fmt.Errorf("%w: run ID or #sequence", shared.ErrMissingArgument)
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	run, err := repositories.NewRunRepository(db).Find(ref)
	if err != nil {
		return err
	}

	items, err := repositories.NewItemRepository(db).ListByRun(run.ID())
	if err != nil {
		return err
	}

	if cmd.Bool("unmatched") {
		unmatched := make([]models.ProcessedItem, 0, len(items))
		for _, item := range items {
			if !item.Accepted() {
				unmatched = append(unmatched, item)
			}
		}
		items = unmatched
	}

	if format := cmd.String("export"); format != "" {
		var playlist *models.Playlist
		if run.TargetPlaylistID() != "" {
			playlist = &models.Playlist{ID: run.TargetPlaylistID(), Name: run.PlaylistName()}
		}
		path, err := formatter.WriteReport(items, run.Stats(), formatter.ReportOpts{
			Dir:      r.config.Report.Dir,
			Format:   format,
			Now:      run.CreatedAt(),
			Source:   run.SourceRef(),
			Playlist: playlist,
		})
		if err != nil {
			return err
		}
		r.writePlain("📄 Report saved to %s\n", path)
		return nil
	}

	if cmd.Bool("json") {
		return r.writeJSON(struct {
			Run   runView                `json:"run"`
			Items []models.ProcessedItem `json:"items"`
		}{newRunView(run), items}, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Run #%d: %s", run.Sequence(), run.PlaylistName()))
	r.writePlain("ID:        %s\n", run.ID())
	r.writePlain("Source:    %s\n", run.SourceRef())
	r.writePlain("Status:    %s\n", run.Status())
	r.writePlain("Threshold: %.2f\n", run.Threshold())
	r.writePlain("Started:   %s\n", run.CreatedAt().Format(time.DateTime))
	if run.TargetPlaylistID() != "" {
		r.writePlain("Playlist:  %s%s\n", spotifyPlaylistURL, run.TargetPlaylistID())
	}
	if run.ErrorMessage() != "" {
		r.writePlain("Error:     %s\n", run.ErrorMessage())
	}

	r.writePlain("\n%s\n", formatter.SummaryTable(run.Stats()))
	if len(items) == 0 {
		r.writePlain("\nNo items to show\n")
		return nil
	}
	r.writePlain("\n%s\n", formatter.ItemsTable(items))
	return nil
}
