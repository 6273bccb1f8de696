// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/camhls/internal/api"
	"github.com/ManuGH/camhls/internal/cameras"
	"github.com/ManuGH/camhls/internal/cameras/redisreport"
	"github.com/ManuGH/camhls/internal/cameras/sqlitestore"
	"github.com/ManuGH/camhls/internal/config"
	"github.com/ManuGH/camhls/internal/daemon"
	"github.com/ManuGH/camhls/internal/domain/stream/manager"
	"github.com/ManuGH/camhls/internal/domain/stream/model"
	"github.com/ManuGH/camhls/internal/health"
	"github.com/ManuGH/camhls/internal/hls"
	"github.com/ManuGH/camhls/internal/pipeline/exec/ffmpeg"
	"github.com/ManuGH/camhls/internal/pipeline/snapshot"
	"github.com/ManuGH/camhls/internal/telemetry"
)

type namedHook struct {
	name string
	fn   daemon.ShutdownHook
}

// runtime is everything the daemon owns besides the HTTP servers.
type runtime struct {
	orchestrator   *manager.Orchestrator
	health         *health.Manager
	apiHandler     http.Handler
	metricsHandler http.Handler
	loops          []daemon.Loop
	// hooks are registered in order and therefore run in reverse.
	hooks  []namedHook
	rescan func(ctx context.Context)
}

// close runs the hooks directly, for failures before the daemon manager exists.
func (rt *runtime) close(ctx context.Context) {
	for i := len(rt.hooks) - 1; i >= 0; i-- {
		_ = rt.hooks[i].fn(ctx)
	}
}

func (rt *runtime) addHook(name string, fn daemon.ShutdownHook) {
	rt.hooks = append(rt.hooks, namedHook{name: name, fn: fn})
}

func buildRuntime(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (_ *runtime, err error) {
	rt := &runtime{
		health:         health.NewManager(cfg.Version),
		metricsHandler: promhttp.Handler(),
	}
	defer func() {
		if err != nil {
			rt.close(context.Background())
		}
	}()

	// Registered first so pending spans are flushed after everything else stops.
	if tp, tErr := telemetry.NewProvider(ctx, telemetryConfig(cfg)); tErr != nil {
		logger.Warn().Err(tErr).Msg("telemetry initialization failed, continuing without tracing")
	} else {
		rt.addHook("telemetry", tp.Shutdown)
		if tp.Enabled() {
			logger.Info().
				Str("exporter", cfg.Telemetry.Exporter).
				Str("endpoint", cfg.Telemetry.Endpoint).
				Float64("sampling_rate", cfg.Telemetry.SamplingRate).
				Msg("telemetry initialized")
		}
	}

	var discovery cameras.MultiDiscovery
	reporters := cameras.MultiReporter{cameras.LogReporter{}}

	if len(cfg.Discovery.Cameras) > 0 {
		discovery = append(discovery, cameras.Static(cfg.Discovery.Cameras))
	}

	if cfg.Discovery.SQLitePath != "" {
		store, err := sqlitestore.Open(ctx, cfg.Discovery.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open camera registry: %w", err)
		}
		rt.addHook("sqlite", func(context.Context) error { return store.Close() })
		discovery = append(discovery, store)
		reporters = append(reporters, store)
		rt.health.RegisterChecker(health.NewFuncChecker("sqlite", 0, store.Check))
		logger.Info().Str("path", cfg.Discovery.SQLitePath).Msg("camera registry opened")
	}

	if cfg.Redis.Addr != "" {
		rep, err := redisreport.New(ctx, redisreport.Config{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       cfg.Redis.TTL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		rt.addHook("redis", func(context.Context) error { return rep.Close() })
		reporters = append(reporters, rep)
		rt.health.RegisterChecker(health.NewFuncChecker("redis", 0, rep.HealthCheck))
	}

	launcher := ffmpeg.NewLauncher(ffmpeg.LauncherConfig{
		BinPath:         cfg.FFmpeg.Bin,
		SegmentDuration: cfg.FFmpeg.SegmentDuration,
		ListSize:        cfg.FFmpeg.ListSize,
		ConnectTimeout:  cfg.FFmpeg.ConnectTimeout,
		StopGrace:       cfg.FFmpeg.StopGrace,
		KillTimeout:     cfg.FFmpeg.KillTimeout,
		StderrLines:     cfg.FFmpeg.StderrLines,
	})
	fallback := snapshot.NewStarter(snapshot.Config{
		Interval: cfg.Snapshot.Interval,
		Window:   cfg.Snapshot.Window,
		Capturer: &ffmpeg.FrameCapturer{
			BinPath:        cfg.FFmpeg.Bin,
			ConnectTimeout: cfg.FFmpeg.ConnectTimeout,
			Timeout:        cfg.Snapshot.CaptureTimeout,
		},
	})

	orch, err := manager.New(orchestratorConfig(cfg), manager.Deps{
		Launcher: launcher,
		Fallback: fallback,
		Reporter: reporters,
		Stats:    ffmpeg.StatsProbe{},
	})
	if err != nil {
		return nil, fmt.Errorf("create orchestrator: %w", err)
	}
	rt.orchestrator = orch
	// Registered last so sessions are stopped, and reported offline, before
	// the reporters above are closed.
	rt.addHook("orchestrator", orch.Close)

	rt.health.RegisterChecker(health.NewDirChecker("streams_root", cfg.Streams.Root))
	rt.health.RegisterChecker(health.NewStreamsChecker(func(ctx context.Context) health.StreamStats {
		return streamStats(orch.ModeCounts(), len(orch.Parked()))
	}))

	rt.apiHandler = api.New(api.Config{
		RateLimit:    cfg.API.RateLimit,
		MaxBodyBytes: cfg.API.MaxBodyBytes,
		ServeHLS:     cfg.API.ServeHLS,
		HLSRoot:      cfg.Streams.Root,
		HLSBaseURL:   cfg.Streams.BaseURL,
		ServiceName:  cfg.Telemetry.ServiceName,
	}, orch, rt.health).Handler()

	rt.loops = append(rt.loops, daemon.Loop{Name: "health-monitor", Run: orch.HealthMonitor().Run})

	if cfg.AutoMonitor.Enabled && len(discovery) > 0 {
		am := orch.AutoMonitor(discovery, reporters, manager.AutoMonitorConfig{
			InitialDelay:    cfg.AutoMonitor.InitialDelay,
			Interval:        cfg.AutoMonitor.Interval,
			Concurrency:     cfg.AutoMonitor.Concurrency,
			StartsPerSecond: cfg.AutoMonitor.StartsPerSecond,
		})
		rt.loops = append(rt.loops, daemon.Loop{Name: "auto-monitor", Run: am.Run})
		rt.rescan = am.SweepOnce
	} else {
		logger.Info().
			Bool("enabled", cfg.AutoMonitor.Enabled).
			Int("sources", len(discovery)).
			Msg("auto-monitor not running")
	}

	return rt, nil
}

func orchestratorConfig(cfg config.AppConfig) manager.Config {
	return manager.Config{
		Layout:             hls.Layout{Root: cfg.Streams.Root, BaseURL: cfg.Streams.BaseURL},
		ReadinessInterval:  cfg.Readiness.Interval,
		ReadinessAttempts:  cfg.Readiness.Attempts,
		StopTimeout:        cfg.Streams.StopTimeout,
		ReportTimeout:      cfg.Streams.ReportTimeout,
		ReconnectDelay:     cfg.Reconnect.Delay,
		MaxRetries:         cfg.Reconnect.MaxRetries,
		Cooldown:           cfg.Reconnect.Cooldown,
		QualitySwitchDelay: cfg.Reconnect.QualitySwitchDelay,
		HealthInterval:     cfg.Health.Interval,
		StaleAfter:         cfg.Health.StaleAfter,
		MinSegmentBytes:    cfg.Health.MinSegmentBytes,
	}
}

func telemetryConfig(cfg config.AppConfig) telemetry.Config {
	return telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	}
}

func streamStats(counts map[model.Mode]int, parked int) health.StreamStats {
	stats := health.StreamStats{Fallback: counts[model.ModeSnapshotFallback], Parked: parked}
	for _, n := range counts {
		stats.Active += n
	}
	return stats
}
