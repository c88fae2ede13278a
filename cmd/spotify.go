package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/tubeport/internal/models"
	"github.com/desertthunder/tubeport/internal/server"
	"github.com/desertthunder/tubeport/internal/services"
	"github.com/desertthunder/tubeport/internal/shared"
	"github.com/desertthunder/tubeport/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const oauthTimeout = 2 * time.Minute

// identityChecker is implemented by destination clients that can verify their credentials up front.
type identityChecker interface {
	CurrentUserID(ctx context.Context) (string, error)
}

// SpotifyAuth performs OAuth2 authentication flow for Spotify.
//
// Starts a local HTTP server, opens browser for user authorization, and exchanges auth code for tokens.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config, err := r.loadOrCreateConfig(configPath)
	if err != nil {
		return err
	}
	r.config = config
	r.configPath = configPath

	if config.Credentials.Spotify.ClientID == "" || config.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s or via %s and %s",
			shared.ErrMissingCredentials, configPath, shared.EnvSpotifyClientID, shared.EnvSpotifyClientSecret)
	}

	spotifyService, err := r.newSpotifyService()
	if err != nil {
		return fmt.Errorf("failed to create Spotify service: %w", err)
	}

	token, err := r.doOAuth(ctx, spotifyService, "authorization")
	if err != nil {
		return err
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", configPath)
	r.writePlain("You can now use: tubeport migrate run --source <playlist> --name <name>\n")

	return nil
}

// SpotifySearch parses a video title and resolves it against the Spotify catalog the way a migration run
// would, printing the candidate and its confidence.
func (r *Runner) SpotifySearch(ctx context.Context, cmd *cli.Command) error {
	label := cmd.StringArg("label")
	if label == "" {
		return fmt.Errorf("%w: video title", shared.ErrMissingArgument)
	}
	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify not connected, run 'tubeport spotify auth'", shared.ErrNotAuthenticated)
	}

	threshold, err := r.threshold(cmd)
	if err != nil {
		return err
	}

	entry := models.RawEntry{Label: label, Publisher: cmd.String("channel")}
	engine := tasks.NewMigrationEngine(nil, r.spotify, nil, r.logger)
	item, err := engine.Resolve(ctx, entry, &threshold, r.config.Matching.ScorePublisherArtist)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(item, cmd.Bool("pretty"))
	}

	r.writePlain("Parsed: %s - %s\n", valueOr(item.Identity.Artist, "(no artist)"), item.Identity.Title)
	if item.Result == nil {
		r.writePlain("✗ %s\n", item.FailureReason)
		if item.Status == models.StatusFailed {
			return fmt.Errorf("%w: %s", shared.ErrAPIRequest, item.FailureReason)
		}
		return nil
	}

	r.writePlain("Match:  %s - %s (%s)\n", item.Result.MatchedArtist, item.Result.MatchedTitle, item.Result.ExternalID)
	r.writePlain("Query:  %s\n", item.Result.Strategy)
	if item.Accepted() {
		r.writePlain("✓ Accepted with confidence %.2f (threshold %.2f)\n", item.Confidence(), threshold)
	} else {
		r.writePlain("✗ Rejected: %s (threshold %.2f)\n", item.FailureReason, threshold)
	}
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, oauthSrv services.OAuthService, prefix string) (*oauth2.Token, error) {
	state := shared.GenerateState()

	authURL := oauthSrv.GetAuthURL(state)
	oauthHandler := server.NewOAuthHandler(oauthSrv.GetOAuthConfig(), state)
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	r.logger.Infof("starting OAuth server for %s at %v", prefix, serverAddr)
	callbackServer, err := server.Listen(serverAddr, router)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := callbackServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	r.writePlain("→ Opening browser for Spotify %s...\n", prefix)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", oauthTimeout)

	waitCtx, cancel := context.WithTimeout(ctx, oauthTimeout)
	defer cancel()

	type outcome struct {
		token *oauth2.Token
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		token, err := oauthHandler.Wait(waitCtx)
		done <- outcome{token, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("authorization failed: %w", res.err)
		}
		return res.token, nil
	case err, ok := <-callbackServer.Errors():
		if ok && err != nil {
			return nil, fmt.Errorf("server error: %w", err)
		}
		return nil, fmt.Errorf("%w: callback server stopped", shared.ErrServiceUnavailable)
	}
}

// ensureSpotifyAuth verifies the Spotify credentials before a run. An expired or revoked token, or a
// refresh token Spotify no longer accepts, triggers the browser authorization flow once.
func (r *Runner) ensureSpotifyAuth(ctx context.Context) error {
	checker, ok := r.spotify.(identityChecker)
	if !ok {
		return nil
	}

	_, err := checker.CurrentUserID(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, shared.ErrTokenExpired) && !errors.Is(err, shared.ErrRefreshFailed) {
		return fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	oauthSrv, ok := r.spotify.(services.OAuthService)
	if !ok {
		return fmt.Errorf("%w: spotify client does not support reauthorization", shared.ErrAuthFailed)
	}

	r.writePlainln("⚠ Spotify token expired. Starting reauthorization...")
	token, err := r.doOAuth(ctx, oauthSrv, "reauthorization")
	if err != nil {
		return fmt.Errorf("reauthorization failed: %w", err)
	}
	if err := r.saveTokens(token); err != nil {
		return err
	}
	if err := oauthSrv.OAuthenticate(ctx, token); err != nil {
		return fmt.Errorf("failed to authenticate with new tokens: %w", err)
	}

	if _, err := checker.CurrentUserID(ctx); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	r.writePlain("✓ Reauthorized\n")
	return nil
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
