package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"spotify-cli/internal/auth"
	"spotify-cli/internal/repositories"
	"spotify-cli/internal/services"
	"spotify-cli/internal/shared"
	"spotify-cli/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for
// each command action. Dependencies that need credentials are built lazily so
// help, version, and auth status work on a bare machine.
type Runner struct {
	config     *shared.Config
	configPath string
	tokenPath  string
	jsonOut    bool
	logger     *log.Logger
	output     io.Writer

	player  services.PlayerService
	library services.LibraryService
	engine  tasks.Engine
	store   *auth.Store
	spotify *services.SpotifyService
	db      *sql.DB

	// authorize runs one interactive authorization and persists the
	// resulting token pair. Swapped out in tests.
	authorize func(ctx context.Context) (*auth.TokenPair, error)
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	TokenPath  string
	Player     services.PlayerService
	Library    services.LibraryService
	Engine     tasks.Engine
	Store      *auth.Store
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

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		tokenPath:  opts.TokenPath,
		logger:     opts.Logger,
		output:     opts.Output,
		player:     opts.Player,
		library:    opts.Library,
		engine:     opts.Engine,
		store:      opts.Store,
	}
	r.authorize = r.runAuthFlow

	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		authCommand, playbackCommand, queueCommand, recCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// configure applies the global flags ahead of whichever subcommand runs.
func (r *Runner) configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	r.jsonOut = cmd.Bool("json")
	r.tokenPath = cmd.String("token-path")

	configPath := cmd.String("config")
	r.configPath = configPath

	if _, err := os.Stat(configPath); err == nil {
		config, err := shared.LoadConfig(configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
	} else if cmd.IsSet("config") {
		return ctx, fmt.Errorf("%w: no config file at %s", shared.ErrMissingConfig, configPath)
	}

	return ctx, nil
}

// Close releases lazily constructed dependencies.
func (r *Runner) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// requireCredentials fails fast when no Spotify app credentials are
// configured, naming both environment variables.
func (r *Runner) requireCredentials() error {
	if r.config.Credentials.Spotify.HasCredentials() {
		return nil
	}
	return fmt.Errorf("%w: set SPOTIFY_CLI_CLIENT_ID and SPOTIFY_CLI_CLIENT_SECRET, or fill in [credentials.spotify] in %s",
		shared.ErrMissingCredentials, r.configFile())
}

func (r *Runner) configFile() string {
	if r.configPath != "" {
		return r.configPath
	}
	return "config.toml"
}

// tokenStore resolves the token file location and builds the store over it.
func (r *Runner) tokenStore() (*auth.Store, error) {
	if r.store != nil {
		return r.store, nil
	}

	path, err := shared.ResolveTokenPath(r.tokenPath, r.config)
	if err != nil {
		return nil, err
	}

	oauthConfig := auth.NewOAuthConfig(r.config.Credentials.Spotify.ClientID, r.config.Credentials.Spotify.ClientSecret)
	r.store = auth.NewStore(path, oauthConfig, r.logger)

	return r.store, nil
}

// spotifyService builds the Web API client. Every request's credential
// passes through the token store, so a refresh saved mid-command is picked
// up by the next request without rebuilding the client.
func (r *Runner) spotifyService(ctx context.Context) (*services.SpotifyService, error) {
	if r.spotify != nil {
		return r.spotify, nil
	}

	if err := r.requireCredentials(); err != nil {
		return nil, err
	}

	store, err := r.tokenStore()
	if err != nil {
		return nil, err
	}

	httpClient := oauth2.NewClient(ctx, store.TokenSource(ctx))
	svc, err := services.NewSpotifyService(services.SpotifyOpts{
		HTTPClient: httpClient,
		Logger:     r.logger,
	})
	if err != nil {
		return nil, err
	}

	r.spotify = svc
	return svc, nil
}

func (r *Runner) playerService(ctx context.Context) (services.PlayerService, error) {
	if r.player != nil {
		return r.player, nil
	}

	svc, err := r.spotifyService(ctx)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func (r *Runner) libraryService(ctx context.Context) (services.LibraryService, error) {
	if r.library != nil {
		return r.library, nil
	}

	svc, err := r.spotifyService(ctx)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// openDatabase opens the run history database and brings its schema up to
// date. Migrations are idempotent, so every command path may call this.
func (r *Runner) openDatabase() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, err
	}

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	return db, nil
}

// recEngine builds the full recommendation engine for operations that talk
// to Spotify.
func (r *Runner) recEngine(ctx context.Context) (tasks.Engine, error) {
	if r.engine != nil {
		return r.engine, nil
	}

	library, err := r.libraryService(ctx)
	if err != nil {
		return nil, err
	}

	db, err := r.openDatabase()
	if err != nil {
		return nil, err
	}

	r.engine = tasks.NewRecEngine(library, repositories.NewRunRepository(db))
	return r.engine, nil
}

// localEngine builds an engine over the run history alone. History and
// export stay usable without credentials this way.
func (r *Runner) localEngine() (tasks.Engine, error) {
	if r.engine != nil {
		return r.engine, nil
	}

	db, err := r.openDatabase()
	if err != nil {
		return nil, err
	}

	return tasks.NewRecEngine(nil, repositories.NewRunRepository(db)), nil
}

// runAuthFlow walks the user through one browser authorization and saves
// the exchanged token pair.
func (r *Runner) runAuthFlow(ctx context.Context) (*auth.TokenPair, error) {
	if err := r.requireCredentials(); err != nil {
		return nil, err
	}

	store, err := r.tokenStore()
	if err != nil {
		return nil, err
	}

	flow := auth.NewFlow(auth.FlowOpts{
		ClientID:     r.config.Credentials.Spotify.ClientID,
		ClientSecret: r.config.Credentials.Spotify.ClientSecret,
		Timeout:      time.Duration(r.config.Auth.TimeoutSeconds) * time.Second,
		Logger:       r.logger,
		Output:       r.output,
	})

	pair, err := flow.Run(ctx)
	if err != nil {
		return nil, err
	}

	if err := store.Save(pair); err != nil {
		return nil, fmt.Errorf("authorized but saving the token failed: %w", err)
	}

	return pair, nil
}

// withReauth runs op and, when the saved auth state has been invalidated,
// walks the user through one interactive authorization before retrying op a
// single time.
func (r *Runner) withReauth(ctx context.Context, op func(context.Context) error) error {
	err := op(ctx)
	if err == nil || !errors.Is(err, shared.ErrReauthorizationRequired) {
		return err
	}

	r.writePlainln("⚠ Spotify authorization expired. Starting reauthorization...")

	if _, err := r.authorize(ctx); err != nil {
		return fmt.Errorf("reauthorization failed: %w", err)
	}

	r.writePlainln("✓ Reauthorized. Retrying...")

	return op(ctx)
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
