// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults,
// in the order: parse file (strict), apply env, resolve paths, validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	cfg.Streams.Root = resolveUnder(cfg.DataDir, cfg.Streams.Root)
	cfg.Discovery.SQLitePath = resolveUnder(cfg.DataDir, cfg.Discovery.SQLitePath)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes a YAML file over cfg with STRICT parsing.
// Unknown fields are fatal to prevent silent misconfiguration.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return ErrMultipleDocuments
	}
	return nil
}

// mergeEnvConfig applies CAMHLS_* overrides on top of file and defaults.
func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.DataDir = l.envString(EnvDataDir, cfg.DataDir)
	cfg.LogLevel = l.envString("CAMHLS_LOG_LEVEL", cfg.LogLevel)

	cfg.Streams.Root = l.envString("CAMHLS_STREAMS_ROOT", cfg.Streams.Root)
	cfg.Streams.BaseURL = l.envString("CAMHLS_HLS_BASE_URL", cfg.Streams.BaseURL)
	cfg.Streams.StopTimeout = l.envDuration("CAMHLS_STOP_TIMEOUT", cfg.Streams.StopTimeout)

	cfg.FFmpeg.Bin = l.envString("CAMHLS_FFMPEG_BIN", cfg.FFmpeg.Bin)
	cfg.FFmpeg.SegmentDuration = l.envInt("CAMHLS_SEGMENT_DURATION", cfg.FFmpeg.SegmentDuration)
	cfg.FFmpeg.ListSize = l.envInt("CAMHLS_PLAYLIST_SIZE", cfg.FFmpeg.ListSize)
	cfg.FFmpeg.ConnectTimeout = l.envDuration("CAMHLS_CONNECT_TIMEOUT", cfg.FFmpeg.ConnectTimeout)

	cfg.Readiness.Interval = l.envDuration("CAMHLS_READINESS_INTERVAL", cfg.Readiness.Interval)
	cfg.Readiness.Attempts = l.envInt("CAMHLS_READINESS_ATTEMPTS", cfg.Readiness.Attempts)

	cfg.Snapshot.Interval = l.envDuration("CAMHLS_SNAPSHOT_INTERVAL", cfg.Snapshot.Interval)

	cfg.Health.Interval = l.envDuration("CAMHLS_HEALTH_INTERVAL", cfg.Health.Interval)
	cfg.Health.StaleAfter = l.envDuration("CAMHLS_STALE_AFTER", cfg.Health.StaleAfter)

	cfg.Reconnect.Delay = l.envDuration("CAMHLS_RECONNECT_DELAY", cfg.Reconnect.Delay)
	cfg.Reconnect.MaxRetries = l.envInt("CAMHLS_MAX_RETRIES", cfg.Reconnect.MaxRetries)
	cfg.Reconnect.Cooldown = l.envDuration("CAMHLS_COOLDOWN", cfg.Reconnect.Cooldown)

	cfg.AutoMonitor.Enabled = l.envBool("CAMHLS_AUTOMONITOR_ENABLED", cfg.AutoMonitor.Enabled)
	cfg.AutoMonitor.Interval = l.envDuration("CAMHLS_AUTOMONITOR_INTERVAL", cfg.AutoMonitor.Interval)
	cfg.AutoMonitor.Concurrency = l.envInt("CAMHLS_AUTOMONITOR_CONCURRENCY", cfg.AutoMonitor.Concurrency)
	cfg.AutoMonitor.StartsPerSecond = l.envFloat("CAMHLS_AUTOMONITOR_RATE", cfg.AutoMonitor.StartsPerSecond)

	cfg.Discovery.SQLitePath = l.envString("CAMHLS_SQLITE_PATH", cfg.Discovery.SQLitePath)

	cfg.Redis.Addr = l.envString("CAMHLS_REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = l.envString("CAMHLS_REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = l.envInt("CAMHLS_REDIS_DB", cfg.Redis.DB)

	cfg.API.ListenAddr = l.envString("CAMHLS_LISTEN", cfg.API.ListenAddr)
	cfg.API.RateLimit = l.envInt("CAMHLS_RATE_LIMIT", cfg.API.RateLimit)
	cfg.API.ServeHLS = l.envBool("CAMHLS_SERVE_HLS", cfg.API.ServeHLS)

	cfg.Server.MetricsAddr = l.envString("CAMHLS_METRICS_LISTEN", cfg.Server.MetricsAddr)

	cfg.Telemetry.Enabled = l.envBool("CAMHLS_TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.ServiceName = l.envString("CAMHLS_SERVICE_NAME", cfg.Telemetry.ServiceName)
	cfg.Telemetry.Environment = l.envString("CAMHLS_ENVIRONMENT", cfg.Telemetry.Environment)
	cfg.Telemetry.Exporter = l.envString("CAMHLS_TELEMETRY_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString("CAMHLS_OTLP_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat("CAMHLS_SAMPLING_RATE", cfg.Telemetry.SamplingRate)
}
