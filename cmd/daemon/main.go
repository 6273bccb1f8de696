// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ManuGH/camhls/internal/config"
	"github.com/ManuGH/camhls/internal/daemon"
	"github.com/ManuGH/camhls/internal/health"
	xglog "github.com/ManuGH/camhls/internal/log"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

// maskURL removes user info from a URL string for safe logging.
func maskURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	parsedURL.User = nil
	return parsedURL.String()
}

// resolveConfigPath prefers the explicit flag, then ${CAMHLS_DATA}/config.yaml.
// An empty result means env + defaults only.
func resolveConfigPath(flagValue string) (path string, source string) {
	if p := strings.TrimSpace(flagValue); p != "" {
		return p, "file"
	}
	if p, ok := config.DefaultConfigPath(); ok {
		return p, "file(auto)"
	}
	return "", "env+defaults"
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Safe defaults until the config is loaded.
	xglog.Configure(xglog.Config{
		Level:   "info",
		Service: "camhls",
		Version: version,
	})
	logger := xglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path, source := resolveConfigPath(*configPath)
	cfg, err := config.NewLoader(path, version).Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: "camhls",
		Version: cfg.Version,
	})
	logger = xglog.WithComponent("daemon")
	logger.Info().
		Str("event", "config.loaded").
		Str("source", source).
		Str("path", path).
		Str("data_dir", cfg.DataDir).
		Int("static_cameras", len(cfg.Discovery.Cameras)).
		Msg("configuration loaded")
	for _, c := range cfg.Discovery.Cameras {
		u, _ := c.PreferredURL()
		logger.Debug().Str(xglog.FieldCameraID, c.ID).Str("url", maskURL(u)).Msg("static camera")
	}

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "startup.check_failed").
			Msg("Startup checks failed. Please verify configuration and permissions.")
	}

	rt, err := buildRuntime(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "startup.wiring_failed").Msg("failed to build runtime")
	}

	mgr, err := daemon.NewManager(cfg.Server, daemon.Deps{
		Logger:         logger,
		ListenAddr:     cfg.API.ListenAddr,
		APIHandler:     rt.apiHandler,
		MetricsAddr:    cfg.Server.MetricsAddr,
		MetricsHandler: rt.metricsHandler,
	})
	if err != nil {
		rt.close(context.Background())
		logger.Fatal().Err(err).Msg("failed to create daemon manager")
	}
	for _, h := range rt.hooks {
		mgr.RegisterShutdownHook(h.name, h.fn)
	}

	app := daemon.NewApp(logger, mgr, rt.loops...)
	if rt.rescan != nil {
		app.OnRescan(rt.rescan)
	}

	logger.Info().
		Str("event", "daemon.started").
		Str("listen", cfg.API.ListenAddr).
		Str("streams_root", cfg.Streams.Root).
		Msg("camhls running")

	if err := app.Run(ctx); err != nil {
		logger.Error().Err(err).Str("event", "daemon.exit_error").Msg("daemon stopped with error")
		os.Exit(1)
	}
	logger.Info().Str("event", "daemon.stopped").Msg("daemon stopped")
}
