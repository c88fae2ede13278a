package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tubeport/internal/repositories"
	"github.com/desertthunder/tubeport/internal/services"
	"github.com/desertthunder/tubeport/internal/shared"
	"github.com/desertthunder/tubeport/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// destination is everything the commands need from the Spotify client.
type destination interface {
	services.Searcher
	services.Publisher
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	youtube    services.Extractor
	spotify    destination
	engine     tasks.Engine
	db         *sql.DB
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	YouTube    services.Extractor
	Spotify    destination
	Engine     tasks.Engine // Built from YouTube and Spotify when nil
	DB         *sql.DB      // Run history; opened from the config on first use when nil
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		youtube:    opts.YouTube,
		spotify:    opts.Spotify,
		engine:     opts.Engine,
		db:         opts.DB,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, spotifyCommand, youtubeCommand, parseCommand, migrateCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger, e.g. while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// connectServices builds the YouTube and Spotify clients from the config for whichever of them
// was not injected. Missing credentials leave the client nil; commands report that when they need it.
func (r *Runner) connectServices(ctx context.Context) {
	creds := r.config.Credentials

	if r.youtube == nil && creds.YouTube.APIKey != "" {
		r.youtube = services.NewYouTubeService(creds.YouTube.BaseURL, creds.YouTube.APIKey)
	}

	if r.spotify != nil || creds.Spotify.ClientID == "" || creds.Spotify.ClientSecret == "" {
		return
	}

	svc, err := r.newSpotifyService()
	if err != nil {
		r.logger.Warn("spotify client not configured", "error", err)
		return
	}

	token := r.config.SpotifyToken()
	if token == nil {
		r.logger.Debug("no spotify token stored, run 'tubeport spotify auth'")
		return
	}

	svc.SetTokenRefreshCallback(func(t *oauth2.Token) {
		if err := r.saveTokens(t); err != nil {
			r.logger.Warn("failed to persist refreshed spotify token", "error", err)
		}
	})
	if err := svc.OAuthenticate(ctx, token); err != nil {
		r.logger.Warn("spotify authentication failed", "error", err)
		return
	}
	r.spotify = svc
}

func (r *Runner) newSpotifyService() (*services.SpotifyService, error) {
	s := r.config.Credentials.Spotify
	return services.NewSpotifyService(map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	})
}

// saveTokens stores token in the config and writes it back to the config file when one is known.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("%w: config is nil", shared.ErrMissingConfig)
	}
	if token == nil {
		return fmt.Errorf("%w: token cannot be nil", shared.ErrInvalidArgument)
	}

	r.config.SetSpotifyToken(token)
	if r.configPath == "" {
		return nil
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	r.logger.Debug("spotify token saved", "path", r.configPath)
	return nil
}

// database returns the run history database, opening and migrating it on first use.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	db, err := shared.OpenMigrated(r.config.Database)
	if err != nil {
		return nil, err
	}
	r.db = db
	return db, nil
}

// migrationEngine returns the injected engine or builds one recording into the history database.
// History is best effort: when the database cannot be opened the run proceeds unrecorded.
func (r *Runner) migrationEngine() (tasks.Engine, error) {
	if r.engine != nil {
		return r.engine, nil
	}
	if r.youtube == nil {
		return nil, fmt.Errorf("%w: YouTube API key not configured (set %s)", shared.ErrServiceUnavailable, shared.EnvYouTubeAPIKey)
	}
	if r.spotify == nil {
		return nil, fmt.Errorf("%w: Spotify not connected, run 'tubeport spotify auth'", shared.ErrNotAuthenticated)
	}

	engine := tasks.NewMigrationEngine(r.youtube, r.spotify, r.spotify, r.logger)

	if db, err := r.database(); err != nil {
		r.logger.Warn("run history unavailable", "error", err)
	} else {
		engine.WithRecorder(repositories.NewRunRecorder(db))
	}
	return engine, nil
}

// Close releases the history database if it was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
