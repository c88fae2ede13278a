// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/tubeport/internal/formatter"
	"github.com/urfave/cli/v3"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   defaultConfigPath,
	}
}

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
			Value: true,
		},
	}
}

// setupCommand handles setup operations for the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config file from the built-in template",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the run history database and apply migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
		},
	}
}

// spotifyCommand handles Spotify operations
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify account and catalog operations",
		Commands: []*cli.Command{
			{
				Name:   "auth",
				Usage:  "Connect a Spotify account using OAuth2",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SpotifyAuth,
			},
			{
				Name:  "search",
				Usage: "Resolve a video title against the Spotify catalog",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "label"},
				},
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "channel",
						Usage: "Uploading channel name, used when the title has no artist",
					},
					&cli.FloatFlag{
						Name:  "threshold",
						Usage: "Acceptance threshold between 0 and 1",
					},
				}, jsonFlags()...),
				Action: r.SpotifySearch,
			},
		},
	}
}

// youtubeCommand handles YouTube operations
func youtubeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "youtube",
		Aliases: []string{"yt"},
		Usage:   "YouTube playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "entries",
				Usage: "List the entries of a playlist with their parsed artist and title",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist"},
				},
				Flags:  jsonFlags(),
				Action: r.YouTubeEntries,
			},
		},
	}
}

// parseCommand exposes the title normalizer and scorer without any network access.
func parseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "parse",
		Usage: "Show how a video title is parsed and optionally score a candidate",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "label"},
		},
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "channel",
				Usage: "Uploading channel name",
			},
			&cli.StringFlag{
				Name:  "candidate-artist",
				Usage: "Candidate artist to score against",
			},
			&cli.StringFlag{
				Name:  "candidate-title",
				Usage: "Candidate title to score against",
			},
		}, jsonFlags()...),
		Action: r.Parse,
	}
}

// migrateCommand handles playlist migration.
func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Migrate a YouTube playlist to Spotify",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Resolve every entry and create a Spotify playlist from the matches",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "source",
						Aliases:  []string{"s"},
						Usage:    "YouTube playlist URL or ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "name",
						Aliases:  []string{"n"},
						Usage:    "Name of the Spotify playlist to create",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "description",
						Usage: "Playlist description (defaults to a generated one)",
					},
					&cli.BoolFlag{
						Name:  "public",
						Usage: "Create a public playlist",
					},
					&cli.FloatFlag{
						Name:  "threshold",
						Usage: "Acceptance threshold between 0 and 1 (defaults to config)",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Resolve and report without creating a playlist",
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Report format: csv, markdown or json (defaults to config)",
					},
					&cli.StringFlag{
						Name:  "report-dir",
						Usage: "Directory for the report file (defaults to config)",
					},
					&cli.BoolFlag{
						Name:  "no-report",
						Usage: "Skip writing the report file",
					},
					&cli.BoolFlag{
						Name:  "tui",
						Usage: "Show interactive progress",
					},
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Skip the confirmation step in the interactive view",
					},
				},
				Action: r.MigrateRun,
			},
		},
	}
}

// historyCommand browses recorded runs.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Browse previous migration runs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recorded runs, newest first",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only show runs with this status (completed, dry_run, cancelled, commit_failed)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show",
						Value: 20,
					},
				}, jsonFlags()...),
				Action: r.HistoryList,
			},
			{
				Name:  "show",
				Usage: "Show a run and its items by ID or #sequence",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "run"},
				},
				Flags: append([]cli.Flag{
					&cli.BoolFlag{
						Name:  "unmatched",
						Usage: "Only show items that were not migrated",
					},
					&cli.StringFlag{
						Name:  "export",
						Usage: "Write the items as a report in the given format (" + formatter.FormatCSV + ", " + formatter.FormatMarkdown + ", " + formatter.FormatJSON + ")",
					},
				}, jsonFlags()...),
				Action: r.HistoryShow,
			},
		},
	}
}
