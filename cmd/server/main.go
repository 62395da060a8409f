// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"gopkg.in/yaml.v3"

	apiconnect "github.com/osa030/19wave/internal/api/connect"
	"github.com/osa030/19wave/internal/app/filter"
	"github.com/osa030/19wave/internal/app/playback"
	"github.com/osa030/19wave/internal/app/session"
	"github.com/osa030/19wave/internal/app/source"
	"github.com/osa030/19wave/internal/app/trendcache"
	"github.com/osa030/19wave/internal/domain/track"
	"github.com/osa030/19wave/internal/domain/trend"
	"github.com/osa030/19wave/internal/infra/audio"
	"github.com/osa030/19wave/internal/infra/config"
	"github.com/osa030/19wave/internal/infra/database"
	"github.com/osa030/19wave/internal/infra/logger"
	"github.com/osa030/19wave/internal/infra/spotify"
	"github.com/osa030/19wave/internal/infra/store"
)

var (
	app        = kingpin.New("19wave-server", "19wave music browsing server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// list-filters command
	listFiltersCmd = app.Command("list-filters", "List available filters and exit")

	// import-tracks command
	importCmd  = app.Command("import-tracks", "Import songs from a YAML file into the database")
	importFile = importCmd.Arg("file", "YAML file with a top-level tracks list").Required().ExistingFile()
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	loggerConfig := logger.Config{Level: "info", File: *logfile}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	logCloser, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logCloser.Close()

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if command == importCmd.FullCommand() {
		if err := importTracks(cfg, *importFile); err != nil {
			zlog.Error().Msgf("Import failed: %v", err)
			os.Exit(1)
		}
		return
	}

	// Run server (defer ensures resources are released)
	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx := context.Background()

	filterChain, err := filter.NewChainFromConfig(cfg)
	if err != nil {
		return errors.Wrap(err, "invalid filter config")
	}

	deps := source.Deps{}
	var recorder session.PlayRecorder

	if cfg.Database.Enabled() {
		repo, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer repo.Close()

		if err := checkDatabase(ctx, repo); err != nil {
			return errors.Wrap(err, "database check failed")
		}
		deps.Songs = repo
		recorder = repo
	}

	if cfg.Spotify.Enabled() {
		spotifyClient, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			RefreshToken: cfg.Spotify.RefreshToken,
			Market:       cfg.Spotify.Market,
		})
		if err != nil {
			return errors.Wrap(err, "failed to create Spotify client")
		}
		deps.Spotify = spotifyClient
	}

	rankingChain, err := source.NewRankingChainFromConfig(cfg, deps)
	if err != nil {
		return err
	}
	contextChain, err := source.NewContextChainFromConfig(cfg, deps)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Cache.Dir)
	if err != nil {
		return err
	}
	defer st.Close()
	if !st.Persistent() {
		zlog.Info().Msg("Cache dir not configured, rankings are kept in memory only")
	}

	backend, err := audio.New(audio.Config{
		Backend:      cfg.Playback.Backend,
		PrepareDelay: cfg.Playback.PrepareDelay(),
	})
	if err != nil {
		return err
	}
	defer backend.Close()

	rankings := trendcache.NewCache(rankingChain, st, trendcache.Config{
		StaleAfter:   cfg.Trends.StaleAfter(),
		FetchTimeout: cfg.Trends.FetchTimeout(),
		OnFetchError: trendcache.FetchErrorPolicy(cfg.Trends.OnFetchError),
	})

	sessionMgr, err := session.NewManager(session.Deps{
		Playback: playback.NewController(backend, playback.Config{
			LoadTimeout: cfg.Playback.LoadTimeout(),
			EventBuffer: cfg.Playback.EventBuffer,
		}),
		Rankings: rankings,
		Contexts: contextChain,
		Filters:  filterChain,
		Store:    st,
		Recorder: recorder,
	}, session.Config{
		StaleAfter:         cfg.Trends.StaleAfter(),
		FetchTimeout:       cfg.Trends.FetchTimeout(),
		NotificationBuffer: cfg.Playback.EventBuffer,
		OnFetchError:       trendcache.FetchErrorPolicy(cfg.Trends.OnFetchError),
	})
	if err != nil {
		return errors.Wrap(err, "failed to create session manager")
	}

	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewPlayerServiceHandler(apiconnect.NewPlayerService(sessionMgr)))
	mux.Handle(apiconnect.NewBrowseServiceHandler(apiconnect.NewBrowseService(sessionMgr)))
	mux.Handle(apiconnect.NewAdminServiceHandler(
		apiconnect.NewAdminService(sessionMgr),
		connect.WithInterceptors(apiconnect.NewAdminAuthInterceptor(cfg.Admin.Token)),
	))

	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	// Warm the rankings in the background
	for _, p := range trend.Periods() {
		rankings.Refresh(p)
	}

	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		sessionMgr.Close()
		return errors.Wrap(err, "server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close session manager first to terminate active streams
	sessionMgr.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")

	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return nil
}

// printFilters prints available filters.
func printFilters() {
	fmt.Println("Available Filters:")
	for _, name := range filter.RegisteredNames() {
		f := filter.GetRegistered()[name]()
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-30s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}

// checkDatabase verifies the songs database answers queries.
// It includes retry logic to handle a database that is still starting.
func checkDatabase(ctx context.Context, repo *database.Repository) error {
	maxRetries := 5
	baseDelay := 1 * time.Second

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			delay := baseDelay * time.Duration(1<<uint(i-1))
			zlog.Info().Msgf("Retrying database check in %v...", delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		n, err := repo.CountSongs(ctx)
		if err != nil {
			lastErr = err
			zlog.Warn().Msgf("Database check failed (attempt %d/%d): %v", i+1, maxRetries, err)
			continue
		}

		zlog.Info().Msgf("Database ready: songs=%d", n)
		return nil
	}
	return errors.Newf("failed after %d attempts: %v", maxRetries, lastErr)
}

// importFileTrack is a song entry of an import file.
type importFileTrack struct {
	ID         string `yaml:"id"`
	Title      string `yaml:"title"`
	Author     string `yaml:"author"`
	Genre      string `yaml:"genre"`
	AudioURL   string `yaml:"audio_url"`
	ImageURL   string `yaml:"image_url"`
	DurationMs int64  `yaml:"duration_ms"`
}

// importTracks upserts the songs listed in path into the database.
func importTracks(cfg *config.Config, path string) error {
	if !cfg.Database.Enabled() {
		return errors.New("database.dsn is not configured")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read import file")
	}
	var file struct {
		Tracks []importFileTrack `yaml:"tracks"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return errors.Wrap(err, "failed to parse import file")
	}

	repo, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer repo.Close()

	ctx := context.Background()
	now := time.Now()
	for i, it := range file.Tracks {
		t := track.Track{
			ID:        it.ID,
			Title:     it.Title,
			Author:    it.Author,
			Genre:     strings.ToLower(strings.TrimSpace(it.Genre)),
			AudioURL:  it.AudioURL,
			ImageURL:  it.ImageURL,
			Duration:  time.Duration(it.DurationMs) * time.Millisecond,
			CreatedAt: now,
		}
		if err := repo.UpsertTrack(ctx, t); err != nil {
			return errors.Wrapf(err, "entry %d", i+1)
		}
	}

	total, err := repo.CountSongs(ctx)
	if err != nil {
		return err
	}
	zlog.Info().Msgf("Imported %d songs, database now holds %d", len(file.Tracks), total)
	return nil
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
