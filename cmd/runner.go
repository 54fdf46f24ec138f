package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musicvid/internal/lru"
	"github.com/desertthunder/musicvid/internal/models"
	"github.com/desertthunder/musicvid/internal/repositories"
	"github.com/desertthunder/musicvid/internal/services"
	"github.com/desertthunder/musicvid/internal/shared"
	"github.com/desertthunder/musicvid/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	spotify    *services.SpotifyService
	player     services.Player
	searcher   services.Searcher
	db         *sql.DB
	ownsDB     bool
	cache      *lru.Synced[models.TrackKey, string]
	logger     *log.Logger
	output     io.Writer
	open       func(url string) error
	tokenMu    sync.Mutex
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Services and the database are built from the config when left nil.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	Spotify     *services.SpotifyService
	Player      services.Player
	Searcher    services.Searcher
	DB          *sql.DB
	Logger      *log.Logger
	Output      io.Writer
	OpenBrowser func(url string) error
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
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}
	if opts.Player == nil && opts.Spotify != nil {
		opts.Player = opts.Spotify
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		spotify:    opts.Spotify,
		player:     opts.Player,
		searcher:   opts.Searcher,
		db:         opts.DB,
		logger:     opts.Logger,
		output:     opts.Output,
		open:       opts.OpenBrowser,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, spotifyCommand, watchCommand, serveCommand, searchCommand, cacheCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// load reads the config file named by --config and builds any service that was not injected.
func (r *Runner) load(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if _, err := os.Stat(r.configPath); err == nil {
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
	} else {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
	}

	level, err := shared.ParseLogLevel(r.config.Log.Level)
	if err != nil {
		return ctx, err
	}
	if cmd.Bool("verbose") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)

	if err := r.config.Validate(); err != nil {
		return ctx, err
	}

	if r.spotify == nil && r.player == nil {
		r.spotify, err = r.newSpotify(ctx)
		if err != nil {
			r.logger.Debug("spotify not configured", "err", err)
		} else {
			r.player = r.spotify
		}
	}

	if r.searcher == nil {
		yt := r.config.Credentials.YouTube
		searcher := services.NewYouTubeService(yt.APIKey, yt.BaseURL, yt.RequestsPerSecond)
		searcher.SetTimeout(r.config.Server.HTTPTimeout.Duration)
		r.searcher = searcher
	}

	return ctx, nil
}

// newSpotify builds the Spotify client and authenticates it with the stored token, if any.
func (r *Runner) newSpotify(ctx context.Context) (*services.SpotifyService, error) {
	svc, err := services.NewSpotifyService(r.config.Credentials.Spotify.Map())
	if err != nil {
		return nil, err
	}
	svc.SetTimeout(r.config.Server.HTTPTimeout.Duration)
	svc.SetTokenRefreshCallback(func(token *oauth2.Token) {
		if err := r.saveTokens(token); err != nil {
			r.logger.Warn("failed to persist refreshed token", "err", err)
		} else {
			r.logger.Debug("persisted refreshed spotify token")
		}
	})

	if token := r.config.Credentials.Spotify.Token(); token != nil {
		svc.UseToken(ctx, token)
	}
	return svc, nil
}

// close releases the database opened by the runner.
func (r *Runner) close(ctx context.Context, cmd *cli.Command) error {
	if r.db != nil && r.ownsDB {
		err := r.db.Close()
		r.db = nil
		return err
	}
	return nil
}

// saveTokens stores token in the config and writes it to the config file when one is set.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	r.tokenMu.Lock()
	defer r.tokenMu.Unlock()

	if r.config == nil {
		return fmt.Errorf("config is nil")
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	if r.configPath == "" {
		return nil
	}

	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// database opens the configured database and runs migrations on first use.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, err
	}
	r.db = db
	r.ownsDB = true
	return db, nil
}

// memoryCache returns the process-wide recency cache.
func (r *Runner) memoryCache() (*lru.Synced[models.TrackKey, string], error) {
	if r.cache != nil {
		return r.cache, nil
	}
	cache, err := lru.NewSynced[models.TrackKey, string](r.config.Poller.CacheCapacity)
	if err != nil {
		return nil, fmt.Errorf("%w: poller.cache_capacity: %v", shared.ErrInvalidConfig, err)
	}
	cache.OnEvict(func(key models.TrackKey, id string) {
		r.logger.Debug("evicted from memory cache", "track", key, "video", id)
	})
	r.cache = cache
	return cache, nil
}

// newResolver builds the store, memory cache and search resolver chain.
func (r *Runner) newResolver() (*tasks.Resolver, error) {
	if r.searcher == nil {
		return nil, fmt.Errorf("%w: video search not configured", shared.ErrServiceUnavailable)
	}

	db, err := r.database()
	if err != nil {
		return nil, err
	}
	cache, err := r.memoryCache()
	if err != nil {
		return nil, err
	}

	store := repositories.NewSongStore(repositories.NewSongRepository(db))
	opts := tasks.ResolverOptions{
		RewarmStore: r.config.Resolver.RewarmStore,
		QuerySuffix: r.config.Resolver.QuerySuffix,
	}
	return tasks.NewResolver(store, cache, r.searcher, opts, shared.WithLogger(r.logger, "component", "resolver")), nil
}

// pollerOptions maps the poller config section onto [tasks.PollerOptions].
func (r *Runner) pollerOptions(viewerID string, events chan<- tasks.Event) (tasks.PollerOptions, error) {
	db, err := r.database()
	if err != nil {
		return tasks.PollerOptions{}, err
	}

	pc := r.config.Poller
	return tasks.PollerOptions{
		ViewerID:        viewerID,
		PollInterval:    pc.Interval.Duration,
		BackoffInterval: pc.Backoff.Duration,
		Retry: tasks.RetryPolicy{
			MaxAttempts: pc.MaxResolveAttempts,
			Delay:       pc.ResolveDelay.Duration,
		},
		Recorder: repositories.NewDeliveryRepository(db),
		Events:   events,
		Logger:   shared.WithLogger(r.logger, "component", "poller"),
	}, nil
}

func (r *Runner) requirePlayer() error {
	if r.player == nil {
		return fmt.Errorf("%w: set credentials.spotify.client_id and client_secret, then run 'musicvid spotify auth'", shared.ErrMissingCredentials)
	}
	return nil
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

// ignoreCanceled maps an interrupted long-running command to a clean exit.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
