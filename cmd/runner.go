package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytloop/internal/auth"
	"github.com/desertthunder/ytloop/internal/engine"
	"github.com/desertthunder/ytloop/internal/player"
	"github.com/desertthunder/ytloop/internal/repositories"
	"github.com/desertthunder/ytloop/internal/services"
	"github.com/desertthunder/ytloop/internal/shared"
	"github.com/desertthunder/ytloop/internal/store"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database, credential store, source and engine are opened on first use by [Runner.open],
// so commands that only touch local files never read the database.
type Runner struct {
	config      *shared.Config
	configPath  string
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	clock       shared.Clock
	openBrowser func(url string) error

	db        *sql.DB
	prefsRepo *repositories.PreferenceRepository
	prefs     *store.PreferenceStore
	creds     *auth.Store
	source    services.Source
	player    player.Player
	engine    *engine.Engine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
	Clock       shared.Clock
	OpenBrowser func(url string) error

	// DB replaces the configured database.
	DB *sql.DB
	// Source replaces the YouTube Data API client.
	Source services.Source
	// Player is used by the play command instead of mpv.
	Player player.Player
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
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Clock == nil {
		opts.Clock = shared.RealClock{}
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		clock:       opts.Clock,
		openBrowser: opts.OpenBrowser,
		db:          opts.DB,
		source:      opts.Source,
		player:      opts.Player,
	}
}

// Before loads the configuration named by the global --config flag, if the file exists.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("debug") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	path := cmd.String("config")
	if path == "" {
		return ctx, nil
	}
	r.configPath = path

	if _, err := os.Stat(path); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", path)
		return ctx, nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return ctx, err
	}
	r.config = config
	return ctx, nil
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, loginCommand, playlistsCommand, itemsCommand, durationCommand, exportCommand,
		exportAllCommand, prefsCommand, favoriteCommand, historyCommand, cacheCommand, playCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// openStore opens the database and the durable preference state.
func (r *Runner) openStore() error {
	if r.prefs != nil {
		return nil
	}

	if r.db == nil {
		db, err := shared.OpenDatabase(r.config.Database)
		if err != nil {
			return err
		}
		r.db = db
	}

	r.prefsRepo = repositories.NewPreferenceRepository(r.db)
	prefs, err := store.LoadPreferenceStore(r.prefsRepo)
	if err != nil {
		return err
	}
	r.prefs = prefs
	return nil
}

// open builds the engine and everything it depends on.
func (r *Runner) open(ctx context.Context) error {
	if r.engine != nil {
		return nil
	}
	if err := r.openStore(); err != nil {
		return err
	}

	cfg := r.config
	r.creds = auth.New(auth.Options{
		Credentials: cfg.Credentials.YouTube,
		RenewalLead: cfg.Session.RenewalLead.Duration,
		Clock:       r.clock,
		HTTPClient:  r.httpClient,
		Logger:      shared.WithLogger(r.logger, "component", "auth"),
	})

	if r.source == nil {
		source, err := services.NewYouTubeService(ctx, r.creds, services.YouTubeOptions{
			APIURL:         cfg.Credentials.YouTube.APIURL,
			MaxPages:       cfg.Session.MaxPages,
			BatchSize:      cfg.Session.DurationBatch,
			RequestsPerSec: cfg.Session.RequestsPerSec,
			Logger:         shared.WithLogger(r.logger, "component", "youtube"),
		})
		if err != nil {
			return err
		}
		r.source = source
	}
	r.source = services.NewCachedSource(r.source, repositories.NewDurationRepository(r.db),
		shared.WithLogger(r.logger, "component", "cache"))

	e, err := engine.New(engine.Options{
		Config:      cfg,
		Credentials: r.creds,
		Source:      r.source,
		Preferences: r.prefs,
		History:     r.prefsRepo,
		Player:      r.player,
		Clock:       r.clock,
		Logger:      shared.WithLogger(r.logger, "component", "engine"),
	})
	if err != nil {
		return err
	}
	r.engine = e
	return nil
}

// Close releases the engine and database. A live session is dropped with the process, not
// revoked; that only happens on an explicit or forced logout.
func (r *Runner) Close() {
	if r.engine != nil {
		if err := r.engine.Close(); err != nil {
			r.logger.Warn("failed to close engine", "error", err)
		}
		r.engine = nil
	}
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			r.logger.Warn("failed to close database", "error", err)
		}
		r.db = nil
	}
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
