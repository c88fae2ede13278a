package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/tubeport/internal/matching"
	"github.com/desertthunder/tubeport/internal/models"
	"github.com/desertthunder/tubeport/internal/shared"
	"github.com/urfave/cli/v3"
)

// parseView is the output of the parse command.
type parseView struct {
	Label      string                 `json:"label"`
	Cleaned    string                 `json:"cleaned"`
	Rule       string                 `json:"rule,omitempty"`
	Identity   models.ParsedIdentity  `json:"identity"`
	Channel    string                 `json:"channel,omitempty"`
	Candidate  *models.ParsedIdentity `json:"candidate,omitempty"`
	Confidence *float64               `json:"confidence,omitempty"`
	Accepted   *bool                  `json:"accepted,omitempty"`
}

// Parse shows how a title is normalized and split, and scores a candidate when one is given.
func (r *Runner) Parse(ctx context.Context, cmd *cli.Command) error {
	label := cmd.StringArg("label")
	if label == "" {
		return fmt.Errorf("%w: video title", shared.ErrMissingArgument)
	}

	identity, rule := matching.ParseWithRule(label)
	view := parseView{
		Label:    label,
		Cleaned:  matching.Clean(label),
		Rule:     rule,
		Identity: identity,
	}
	if channel := cmd.String("channel"); channel != "" {
		view.Channel = matching.CleanChannel(channel)
	}

	candArtist, candTitle := cmd.String("candidate-artist"), cmd.String("candidate-title")
	if candArtist != "" || candTitle != "" {
		if candTitle == "" {
			return fmt.Errorf("%w: --candidate-title is required with --candidate-artist", shared.ErrMissingArgument)
		}
		threshold := r.config.Matching.Threshold
		artist := identity.Artist
		if artist == "" && r.config.Matching.ScorePublisherArtist {
			artist = view.Channel
		}
		confidence := matching.Score(artist, identity.Title, candArtist, candTitle)
		accepted := matching.Accept(confidence, threshold)
		view.Candidate = &models.ParsedIdentity{Artist: candArtist, Title: candTitle}
		view.Confidence = &confidence
		view.Accepted = &accepted
	}

	if cmd.Bool("json") {
		return r.writeJSON(view, cmd.Bool("pretty"))
	}

	r.writePlain("Label:   %s\n", view.Label)
	r.writePlain("Cleaned: %s\n", view.Cleaned)
	r.writePlain("Rule:    %s\n", valueOr(view.Rule, "(none, whole label is the title)"))
	r.writePlain("Artist:  %s\n", valueOr(view.Identity.Artist, "(none)"))
	r.writePlain("Title:   %s\n", view.Identity.Title)
	if view.Channel != "" {
		r.writePlain("Channel: %s\n", view.Channel)
	}
	if view.Confidence != nil {
		verdict := "rejected"
		if *view.Accepted {
			verdict = "accepted"
		}
		r.writePlain("Score:   %.2f against %s - %s (%s)\n", *view.Confidence, candArtist, candTitle, verdict)
	}
	return nil
}
