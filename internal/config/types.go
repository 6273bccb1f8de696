// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"

	"github.com/ManuGH/camhls/internal/cameras"
)

// AppConfig is the fully resolved daemon configuration.
type AppConfig struct {
	Version  string `yaml:"-"`
	DataDir  string `yaml:"dataDir"`
	LogLevel string `yaml:"logLevel"`

	Streams     StreamsConfig     `yaml:"streams"`
	FFmpeg      FFmpegConfig      `yaml:"ffmpeg"`
	Readiness   ReadinessConfig   `yaml:"readiness"`
	Snapshot    SnapshotConfig    `yaml:"snapshot"`
	Health      HealthConfig      `yaml:"health"`
	Reconnect   ReconnectConfig   `yaml:"reconnect"`
	AutoMonitor AutoMonitorConfig `yaml:"autoMonitor"`
	Discovery   DiscoveryConfig   `yaml:"discovery"`
	Redis       RedisConfig       `yaml:"redis"`
	API         APIConfig         `yaml:"api"`
	Server      ServerConfig      `yaml:"server"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

// StreamsConfig locates per-camera output.
type StreamsConfig struct {
	// Root holds one directory per camera. Relative paths resolve against DataDir.
	Root          string        `yaml:"root"`
	BaseURL       string        `yaml:"baseUrl"`
	StopTimeout   time.Duration `yaml:"stopTimeout"`
	ReportTimeout time.Duration `yaml:"reportTimeout"`
}

type FFmpegConfig struct {
	Bin             string        `yaml:"bin"`
	SegmentDuration int           `yaml:"segmentDuration"` // seconds
	ListSize        int           `yaml:"listSize"`
	ConnectTimeout  time.Duration `yaml:"connectTimeout"`
	StopGrace       time.Duration `yaml:"stopGrace"`
	KillTimeout     time.Duration `yaml:"killTimeout"`
	StderrLines     int           `yaml:"stderrLines"`
}

type ReadinessConfig struct {
	Interval time.Duration `yaml:"interval"`
	Attempts int           `yaml:"attempts"`
}

// SnapshotConfig drives the JPEG fallback generator.
type SnapshotConfig struct {
	Interval       time.Duration `yaml:"interval"`
	Window         int           `yaml:"window"`
	CaptureTimeout time.Duration `yaml:"captureTimeout"`
}

type HealthConfig struct {
	Interval        time.Duration `yaml:"interval"`
	StaleAfter      time.Duration `yaml:"staleAfter"`
	MinSegmentBytes int64         `yaml:"minSegmentBytes"`
}

type ReconnectConfig struct {
	Delay              time.Duration `yaml:"delay"`
	MaxRetries         int           `yaml:"maxRetries"`
	Cooldown           time.Duration `yaml:"cooldown"`
	QualitySwitchDelay time.Duration `yaml:"qualitySwitchDelay"`
}

type AutoMonitorConfig struct {
	Enabled         bool          `yaml:"enabled"`
	InitialDelay    time.Duration `yaml:"initialDelay"`
	Interval        time.Duration `yaml:"interval"`
	Concurrency     int           `yaml:"concurrency"`
	StartsPerSecond float64       `yaml:"startsPerSecond"`
}

// DiscoveryConfig lists cameras statically and/or points at a SQLite registry.
type DiscoveryConfig struct {
	Cameras    []cameras.Camera `yaml:"cameras"`
	SQLitePath string           `yaml:"sqlitePath"`
}

// RedisConfig enables the Redis status publisher when Addr is set.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"keyPrefix"`
	TTL       time.Duration `yaml:"ttl"`
}

type APIConfig struct {
	ListenAddr string `yaml:"listenAddr"`
	// RateLimit is the per-client budget of mutating requests per minute. 0 disables it.
	RateLimit    int   `yaml:"rateLimit"`
	MaxBodyBytes int64 `yaml:"maxBodyBytes"`
	ServeHLS     bool  `yaml:"serveHLS"`
}

type ServerConfig struct {
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MetricsAddr     string        `yaml:"metricsAddr"` // empty disables the metrics server
}

// TelemetryConfig enables OTLP trace export. When disabled a no-op tracer
// provider is installed.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"serviceName"`
	Environment string `yaml:"environment"`
	// Exporter is "grpc" or "http".
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
}
