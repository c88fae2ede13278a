package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/tubeport/internal/matching"
	"github.com/desertthunder/tubeport/internal/models"
	"github.com/desertthunder/tubeport/internal/shared"
	"github.com/urfave/cli/v3"
)

// entryView is one playlist entry with its parsed identity.
type entryView struct {
	Position  int                   `json:"position"`
	Entry     models.RawEntry       `json:"entry"`
	Identity  models.ParsedIdentity `json:"identity"`
	Rule      string                `json:"rule,omitempty"`
	Publisher string                `json:"publisher_artist,omitempty"`
}

// YouTubeEntries lists the entries of a playlist and how each title parses.
func (r *Runner) YouTubeEntries(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.StringArg("playlist")
	if ref == "" {
		return fmt.Errorf("%w: playlist URL or ID", shared.ErrMissingArgument)
	}
	if r.youtube == nil {
		return fmt.Errorf("%w: YouTube API key not configured (set %s)", shared.ErrServiceUnavailable, shared.EnvYouTubeAPIKey)
	}

	r.logger.Info("fetching playlist entries", "source", ref)
	entries, err := r.youtube.ExtractEntries(ctx, ref)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrExtraction, err)
	}

	views := make([]entryView, 0, len(entries))
	for i, entry := range entries {
		identity, rule := matching.ParseWithRule(entry.Label)
		v := entryView{Position: i + 1, Entry: entry, Identity: identity, Rule: rule}
		if identity.Artist == "" && entry.Publisher != "" {
			v.Publisher = matching.CleanChannel(entry.Publisher)
		}
		views = append(views, v)
	}

	if cmd.Bool("json") {
		return r.writeJSON(views, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d entries:\n\n", len(views))
	for _, v := range views {
		r.writePlain("%d. %s\n", v.Position, v.Entry.Label)
		if v.Entry.Publisher != "" {
			r.writePlain("   Channel: %s\n", v.Entry.Publisher)
		}
		artist := v.Identity.Artist
		if artist == "" && v.Publisher != "" {
			artist = v.Publisher + " (from channel)"
		}
		r.writePlain("   Parsed:  %s - %s\n", valueOr(artist, "(no artist)"), v.Identity.Title)
	}
	return nil
}
