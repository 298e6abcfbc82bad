// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/hearwhere/hearwhere/internal/api/rest"
	"github.com/hearwhere/hearwhere/internal/app/radio"
	"github.com/hearwhere/hearwhere/internal/app/source"
	"github.com/hearwhere/hearwhere/internal/infra/catalog"
	"github.com/hearwhere/hearwhere/internal/infra/config"
	"github.com/hearwhere/hearwhere/internal/infra/logger"
)

var (
	app        = kingpin.New("hearwhere-server", "hearwhere discovery radio server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{Output: "stdout", Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}
	if *logfile == "" && !*verbose {
		// Config-level log settings apply unless flags already decided
		if err := logger.Init(logger.Config{Output: cfg.Log.Output, Level: cfg.Log.Level}); err != nil {
			zlog.Fatal().Msgf("Failed to reinitialize logger: %v", err)
		}
	}

	store, resolver, err := catalog.NewFromConfig(cfg)
	if err != nil {
		zlog.Fatal().Msgf("Failed to open catalog: %v", err)
	}
	defer func() { _ = store.Close() }()

	hub := rest.NewHub()
	player := rest.NewBridgePlayer(hub)
	engine := radio.New(source.New(store), player, resolver.PlayableURL, cfg.GetMessage)
	defer engine.Close()

	engine.SetOffline(cfg.Playback.OfflineDefault)
	engine.Refresh()

	handler := rest.NewHandler(engine, hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handler.PumpEvents(ctx)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(handler.Routes(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Listening on %s", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zlog.Info().Msgf("Received signal %v, shutting down", sig)
	case err := <-errCh:
		zlog.Error().Msgf("Server error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Warn().Msgf("Shutdown incomplete: %v", err)
	}
}
