package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/desertthunder/tubeport/internal/formatter"
	"github.com/desertthunder/tubeport/internal/shared"
	"github.com/desertthunder/tubeport/internal/tasks"
	"github.com/urfave/cli/v3"
)

const spotifyPlaylistURL = "https://open.spotify.com/playlist/"

// reportSettings controls the report written after a run.
type reportSettings struct {
	skip   bool
	dir    string
	format string
}

// MigrateRun migrates a YouTube playlist to a new Spotify playlist.
//
// A report is written even when the commit phase fails or the run is cancelled.
func (r *Runner) MigrateRun(ctx context.Context, cmd *cli.Command) error {
	opts, report, err := r.migrationOpts(cmd)
	if err != nil {
		return err
	}

	useTUI := cmd.Bool("tui")
	if useTUI {
		restore, err := r.redirectLogs()
		if err != nil {
			return err
		}
		defer restore()
	}

	if err := r.ensureSpotifyAuth(ctx); err != nil {
		return err
	}

	engine, err := r.migrationEngine()
	if err != nil {
		return err
	}

	var (
		result *tasks.MigrationResult
		runErr error
	)
	if useTUI {
		result, runErr = r.runTUI(ctx, engine, opts, !cmd.Bool("yes"))
		if result == nil && runErr == nil {
			r.writePlain("Migration aborted\n")
			return nil
		}
	} else {
		result, runErr = r.runPlain(ctx, engine, opts)
	}

	if result == nil {
		return runErr
	}
	return r.finishRun(result, runErr, opts, report)
}

// threshold returns the --threshold flag when set, otherwise the configured threshold. Zero is allowed.
func (r *Runner) threshold(cmd *cli.Command) (float64, error) {
	if !cmd.IsSet("threshold") {
		return r.config.Matching.Threshold, nil
	}
	threshold := cmd.Float("threshold")
	if threshold < 0 || threshold > 1 {
		return 0, fmt.Errorf("%w: --threshold %.2f must be between 0 and 1", shared.ErrInvalidFlag, threshold)
	}
	return threshold, nil
}

// migrationOpts reads run options from flags, falling back to the config.
func (r *Runner) migrationOpts(cmd *cli.Command) (tasks.MigrationOpts, reportSettings, error) {
	threshold, err := r.threshold(cmd)
	if err != nil {
		return tasks.MigrationOpts{}, reportSettings{}, err
	}

	opts := tasks.MigrationOpts{
		Source:               cmd.String("source"),
		Name:                 cmd.String("name"),
		Description:          cmd.String("description"),
		Public:               cmd.Bool("public"),
		Threshold:            &threshold,
		DryRun:               cmd.Bool("dry-run"),
		ScorePublisherArtist: r.config.Matching.ScorePublisherArtist,
	}

	report := reportSettings{
		skip:   cmd.Bool("no-report"),
		dir:    r.config.Report.Dir,
		format: r.config.Report.Format,
	}
	if cmd.IsSet("report-dir") {
		report.dir = cmd.String("report-dir")
	}
	if cmd.IsSet("format") {
		report.format = cmd.String("format")
	}
	switch report.format {
	case "", formatter.FormatCSV, formatter.FormatMarkdown, formatter.FormatJSON:
	default:
		return opts, report, fmt.Errorf("%w: --format %q must be csv, markdown or json", shared.ErrInvalidFlag, report.format)
	}

	return opts, report, nil
}

// runPlain runs the engine and prints progress lines as they arrive.
func (r *Runner) runPlain(ctx context.Context, engine tasks.Engine, opts tasks.MigrationOpts) (*tasks.MigrationResult, error) {
	r.logger.Info("starting migration", "source", opts.Source, "name", opts.Name, "dry_run", opts.DryRun)
	r.writePlain("Migrating YouTube playlist to Spotify...\n")
	r.writePlain("Source: %s\n", opts.Source)
	r.writePlain("Destination: %s (%s)\n\n", opts.Name, shared.VisibilityString(opts.Public))

	progressCh := make(chan tasks.ProgressUpdate, 50)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progressCh {
			r.printProgress(update)
		}
	}()

	result, err := engine.Run(ctx, progressCh, opts)
	close(progressCh)
	wg.Wait()

	return result, err
}

func (r *Runner) printProgress(update tasks.ProgressUpdate) {
	switch update.Phase {
	case tasks.FetchSource:
		r.writePlain("📥 %s\n", update.Message)
	case tasks.ResolveEntries:
		r.writePlain("   %s\n", update.Message)
	case tasks.CreatePlaylist:
		r.writePlain("\n📝 %s\n", update.Message)
	case tasks.AddItems:
		r.writePlain("   %s\n", update.Message)
	}
}

// finishRun prints the summary, writes the report and returns the run error, if any.
func (r *Runner) finishRun(result *tasks.MigrationResult, runErr error, opts tasks.MigrationOpts, report reportSettings) error {
	if err := formatter.WriteSummary(r.output, result.Stats); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	switch {
	case result.Playlist != nil && result.CommitErr == nil:
		r.writePlain("✓ Created playlist %q with %d tracks\n", result.Playlist.Name, result.Playlist.TrackCount)
		r.writePlain("  %s%s\n", spotifyPlaylistURL, result.Playlist.ID)
	case result.CommitErr != nil:
		r.writePlain("✗ %v\n", result.CommitErr)
	case result.Cancelled:
		r.writePlain("⚠ Cancelled after %d entries, no playlist created\n", len(result.Items))
	case result.DryRun:
		r.writePlain("Dry run: %d tracks would be added to %q\n", len(result.CommitSet), opts.Name)
	default:
		r.writePlain("No tracks matched, playlist not created\n")
	}

	if !report.skip {
		path, err := formatter.WriteReport(result.Items, result.Stats, formatter.ReportOpts{
			Dir:      report.dir,
			Format:   report.format,
			Source:   opts.Source,
			Playlist: result.Playlist,
		})
		if err != nil {
			r.logger.Error("failed to write report", "error", err)
			if runErr == nil {
				runErr = err
			}
		} else {
			r.logger.Info("report written", "path", path)
			r.writePlain("📄 Report saved to %s\n", path)
		}
	}

	if result.RunID != "" {
		r.writePlain("Run recorded as %s (tubeport history show %s)\n", result.RunID, result.RunID)
	}

	if runErr != nil && !errors.Is(runErr, shared.ErrCancelled) {
		r.logger.Error("migration finished with errors", "error", runErr)
	}
	return runErr
}
