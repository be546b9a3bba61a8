package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/trackshelf/trackshelf/internal/library"
	"github.com/trackshelf/trackshelf/internal/repositories"
	"github.com/trackshelf/trackshelf/internal/services"
	"github.com/trackshelf/trackshelf/internal/shared"
	"github.com/trackshelf/trackshelf/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config  *shared.Config
	library services.Library
	logger  *log.Logger
	output  io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config  *shared.Config
	Library services.Library
	Logger  *log.Logger
	Output  io.Writer
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
		config:  opts.Config,
		library: opts.Library,
		logger:  opts.Logger,
		output:  opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, syncCommand, libraryCommand, inboxCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// reloadConfig swaps in the config file named by the command's --config
// flag when it exists. The service client is rebuilt lazily afterwards.
func (r *Runner) reloadConfig(cmd *cli.Command) {
	path := cmd.String("config")
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load config, keeping current settings", "path", path, "error", err)
		return
	}
	r.config = config
}

// ensureLibrary returns the streaming service client, building and
// authenticating one from config on first use.
func (r *Runner) ensureLibrary(ctx context.Context) (services.Library, error) {
	if r.library != nil {
		return r.library, nil
	}

	creds := r.config.Credentials.Spotify
	if creds.AccessToken == "" {
		return nil, fmt.Errorf("%w: set credentials.spotify.access_token in config", shared.ErrMissingCredentials)
	}

	svc, err := services.NewSpotifyService(map[string]string{
		"client_id":     creds.ClientID,
		"client_secret": creds.ClientSecret,
	}, r.config.Sync.RateLimit)
	if err != nil {
		return nil, err
	}

	if err := svc.Authenticate(ctx, map[string]string{"access_token": creds.AccessToken}); err != nil {
		return nil, err
	}

	r.library = svc
	return svc, nil
}

// openDB opens the configured database and applies connection settings.
func (r *Runner) openDB() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	return db, nil
}

// resolveUserID resolves the configured user ID, asking the service
// when the config uses the "me" alias.
func (r *Runner) resolveUserID(ctx context.Context, svc services.Library) (string, error) {
	userID := r.config.Sync.UserID
	if userID != "" && userID != "me" {
		return userID, nil
	}

	id, err := svc.CurrentUserID(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve current user: %w", err)
	}
	return id, nil
}

// syncEngine wires a SyncEngine over the given database connection.
func (r *Runner) syncEngine(ctx context.Context, db *sql.DB) (*library.SyncEngine, error) {
	svc, err := r.ensureLibrary(ctx)
	if err != nil {
		return nil, err
	}

	userID, err := r.resolveUserID(ctx, svc)
	if err != nil {
		return nil, err
	}

	return library.NewSyncEngine(library.SyncEngineOpts{
		UserID:   userID,
		Library:  svc,
		Store:    repositories.NewLibraryRepository(db),
		Logger:   r.logger,
		PageSize: r.config.Sync.PageSize,
	})
}

// triageEngine wires an InboxEngine over the given database connection.
func (r *Runner) triageEngine(ctx context.Context, db *sql.DB) (*tasks.InboxEngine, error) {
	svc, err := r.ensureLibrary(ctx)
	if err != nil {
		return nil, err
	}

	userID, err := r.resolveUserID(ctx, svc)
	if err != nil {
		return nil, err
	}

	if r.config.Triage.InboxPlaylistID == "" {
		return nil, fmt.Errorf("%w: set triage.inbox_playlist_id in config", shared.ErrMissingConfig)
	}

	return tasks.NewInboxEngine(tasks.InboxEngineOpts{
		UserID:        userID,
		InboxID:       r.config.Triage.InboxPlaylistID,
		ArchivePrefix: r.config.Triage.ArchivePrefix,
		Library:       svc,
		Cache:         repositories.NewLibraryRepository(db),
		Actions:       repositories.NewTriageRepository(db),
		Logger:        r.logger,
	})
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
