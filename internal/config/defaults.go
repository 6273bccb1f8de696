// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		DataDir:  "/var/lib/camhls",
		LogLevel: "info",
		Streams: StreamsConfig{
			Root:          "streams",
			BaseURL:       "/hls",
			StopTimeout:   10 * time.Second,
			ReportTimeout: 5 * time.Second,
		},
		FFmpeg: FFmpegConfig{
			Bin:             "ffmpeg",
			SegmentDuration: 2,
			ListSize:        3,
			ConnectTimeout:  10 * time.Second,
			StopGrace:       5 * time.Second,
			KillTimeout:     2 * time.Second,
			StderrLines:     50,
		},
		Readiness: ReadinessConfig{
			Interval: 500 * time.Millisecond,
			Attempts: 20,
		},
		Snapshot: SnapshotConfig{
			Interval:       3 * time.Second,
			Window:         3,
			CaptureTimeout: 15 * time.Second,
		},
		Health: HealthConfig{
			Interval:        30 * time.Second,
			StaleAfter:      10 * time.Second,
			MinSegmentBytes: 1024,
		},
		Reconnect: ReconnectConfig{
			Delay:              2 * time.Second,
			MaxRetries:         5,
			Cooldown:           5 * time.Minute,
			QualitySwitchDelay: 2500 * time.Millisecond,
		},
		AutoMonitor: AutoMonitorConfig{
			Enabled:         true,
			InitialDelay:    10 * time.Second,
			Interval:        2 * time.Minute,
			Concurrency:     4,
			StartsPerSecond: 2,
		},
		Redis: RedisConfig{
			KeyPrefix: "camhls",
		},
		API: APIConfig{
			ListenAddr:   ":8080",
			RateLimit:    60,
			MaxBodyBytes: 64 << 10,
		},
		Server: ServerConfig{
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MetricsAddr:     ":9090",
		},
		Telemetry: TelemetryConfig{
			ServiceName:  "camhls",
			Environment:  "production",
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}
