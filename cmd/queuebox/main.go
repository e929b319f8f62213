// Package main provides the queuebox command line player.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/queuebox/internal/app/filter"
	"github.com/osa030/queuebox/internal/app/output"
	"github.com/osa030/queuebox/internal/app/playback"
	"github.com/osa030/queuebox/internal/app/queue"
	"github.com/osa030/queuebox/internal/app/source"
	"github.com/osa030/queuebox/internal/infra/artwork"
	"github.com/osa030/queuebox/internal/infra/config"
	"github.com/osa030/queuebox/internal/infra/logger"
	"github.com/osa030/queuebox/internal/infra/spotify"
	"github.com/osa030/queuebox/internal/infra/store"
)

var (
	app        = kingpin.New("queuebox", "queuebox playback queue player")
	configPath = app.Flag("config", "Path to config file").Default("config/queuebox.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stderr)").String()

	// list-filters command
	listFiltersCmd = app.Command("list-filters", "List available filters and exit")

	// auth command
	authCmd          = app.Command("auth", "Obtain a Spotify refresh token")
	authClientID     = authCmd.Flag("client-id", "Spotify Client ID").Envar("SPOTIFY_CLIENT_ID").Required().String()
	authClientSecret = authCmd.Flag("client-secret", "Spotify Client Secret").Envar("SPOTIFY_CLIENT_SECRET").Required().String()
	authPort         = authCmd.Flag("port", "Callback server port").Default("8888").Int()
)

func init() {
	app.Command("run", "Start the interactive player (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	switch command {
	case listFiltersCmd.FullCommand():
		printFilters()
		return
	case authCmd.FullCommand():
		if err := runAuth(*authClientID, *authClientSecret, *authPort); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	loggerConfig := logger.Config{Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	closeLog, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closeLog()

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	// Run player (defer ensures cleanup runs on any exit from run)
	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Player error: %v", err)
		os.Exit(1)
	}
}

// run wires the engine to its sources, output, artwork cache and resume store
// and serves the REPL until it exits or a signal arrives.
func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Spotify client only when a spotify source is configured
	var spotifyClient source.SpotifyClient
	if cfg.HasSource(config.SourceTypeSpotify) {
		c, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			RefreshToken: cfg.Spotify.RefreshToken,
			Market:       cfg.Spotify.Market,
		})
		if err != nil {
			return fmt.Errorf("failed to create Spotify client: %w", err)
		}
		spotifyClient = c
	}

	sources, err := source.NewSourcesFromConfig(cfg, spotifyClient)
	if err != nil {
		return fmt.Errorf("failed to create sources: %w", err)
	}

	chain, err := filter.NewChainFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("invalid filter config: %w", err)
	}

	artworkCache, err := artwork.New(artwork.Config{
		Dir:             cfg.Artwork.Dir,
		Size:            cfg.Artwork.Size,
		DownloadTimeout: time.Duration(cfg.Artwork.DownloadTimeoutSec) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to create artwork cache: %w", err)
	}
	defer artworkCache.Close()

	engineConfig, err := newEngineConfig(cfg)
	if err != nil {
		return err
	}
	engineConfig.Artwork = artworkCache
	engine := playback.NewEngine(engineConfig)
	defer engine.Close()

	if cfg.Resume.Enabled {
		resume, err := store.Open(cfg.Resume.Path)
		if err != nil {
			return fmt.Errorf("failed to open resume store: %w", err)
		}
		defer resume.Close()

		if err := restoreQueue(ctx, resume, engine); err != nil {
			zlog.Warn().Msgf("Failed to restore queue: %v", err)
		}
		followDone := resume.Follow(ctx, engine)
		defer func() {
			stop()
			<-followDone
		}()
	}

	simulator := output.NewSimulator(engine, output.Config{
		FadeDuration:  time.Duration(cfg.Playback.FadeDurationSec) * time.Second,
		GapCorrection: time.Duration(cfg.Playback.GapCorrectionMs) * time.Millisecond,
	})
	go func() {
		if err := simulator.Run(ctx); err != nil {
			zlog.Error().Msgf("Output simulator stopped: %v", err)
		}
	}()

	go announce(ctx, engine)

	r := newREPL(engine, source.NewLoader(sources, chain, engine), sources, simulator, os.Stdout)
	zlog.Info().Msgf("Player ready: sources=%s filters=%d", strings.Join(sources.Names(), ","), len(chain.Filters()))
	return r.Run(ctx, os.Stdin)
}

// newEngineConfig converts the playback section of the config.
func newEngineConfig(cfg *config.Config) (playback.Config, error) {
	repeat, err := queue.ParseRepeatMode(cfg.Playback.Repeat)
	if err != nil {
		return playback.Config{}, err
	}
	policy, err := queue.ParseAppendPolicy(cfg.Playback.ShuffleAppend)
	if err != nil {
		return playback.Config{}, err
	}
	return playback.Config{
		Repeat:        repeat,
		Shuffle:       cfg.Playback.Shuffle,
		ShuffleAppend: policy,
		ClickWindow:   time.Duration(cfg.Playback.ClickDebounceMs) * time.Millisecond,
	}, nil
}

// restoreQueue loads the saved queue into the engine, if there is one.
func restoreQueue(ctx context.Context, resume *store.Store, engine *playback.Engine) error {
	state, ok, err := resume.Load(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := engine.Restore(ctx, state); err != nil {
		return err
	}
	zlog.Info().Msgf("Restored queue: entries=%d current=%d", state.Len(), state.Current)
	return nil
}

// announce logs every track change.
func announce(ctx context.Context, engine *playback.Engine) {
	stream, unsubscribe := engine.Subscribe(16)
	defer unsubscribe()

	last := ""
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-stream.C():
			if !ok {
				return
			}
			ref, ok := n.Payload.Snapshot.Active()
			if !ok || ref.UniqueID == last {
				continue
			}
			last = ref.UniqueID
			zlog.Info().Msgf("Now playing: track=%s artist=%s status=%s", ref.Name, ref.MainArtist(), n.Payload.Snapshot.Status())
		}
	}
}

// printFilters prints available filters.
func printFilters() {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Filter", "Description", "Codes"})
	registry := filter.GetRegistered()
	names := lo.Keys(registry)
	slices.Sort(names)
	for _, name := range names {
		f := registry[name]()
		t.AppendRow(table.Row{f.Name(), f.Description(), strings.Join(f.ReturnCodes(), ", ")})
	}
	t.Render()
}
