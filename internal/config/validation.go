// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"time"

	"github.com/ManuGH/camhls/internal/domain/stream/model"
	"github.com/ManuGH/camhls/internal/pipeline/profiles"
	"github.com/ManuGH/camhls/internal/validate"
)

// Validate checks the resolved configuration. Errors are aggregated into a
// validate.ValidationError.
func Validate(cfg AppConfig) error {
	v := validate.New()

	if _, err := validate.ParseLogLevel(cfg.LogLevel); err != nil {
		v.AddError("logLevel", err.Error(), cfg.LogLevel)
	}
	v.Directory("dataDir", cfg.DataDir, false)

	v.Directory("streams.root", cfg.Streams.Root, false)
	v.BaseURL("streams.baseUrl", cfg.Streams.BaseURL)
	v.PositiveDuration("streams.stopTimeout", cfg.Streams.StopTimeout)
	v.PositiveDuration("streams.reportTimeout", cfg.Streams.ReportTimeout)

	v.NotEmpty("ffmpeg.bin", cfg.FFmpeg.Bin)
	v.Range("ffmpeg.segmentDuration", cfg.FFmpeg.SegmentDuration, 1, 30)
	v.Range("ffmpeg.listSize", cfg.FFmpeg.ListSize, 1, 100)
	v.PositiveDuration("ffmpeg.connectTimeout", cfg.FFmpeg.ConnectTimeout)
	v.PositiveDuration("ffmpeg.stopGrace", cfg.FFmpeg.StopGrace)
	v.PositiveDuration("ffmpeg.killTimeout", cfg.FFmpeg.KillTimeout)
	v.Positive("ffmpeg.stderrLines", cfg.FFmpeg.StderrLines)

	v.DurationAtLeast("readiness.interval", cfg.Readiness.Interval, 10*time.Millisecond)
	v.Range("readiness.attempts", cfg.Readiness.Attempts, 1, 1000)

	v.DurationAtLeast("snapshot.interval", cfg.Snapshot.Interval, 100*time.Millisecond)
	v.Range("snapshot.window", cfg.Snapshot.Window, 1, 100)
	v.PositiveDuration("snapshot.captureTimeout", cfg.Snapshot.CaptureTimeout)

	v.DurationAtLeast("health.interval", cfg.Health.Interval, time.Second)
	v.PositiveDuration("health.staleAfter", cfg.Health.StaleAfter)
	if cfg.Health.MinSegmentBytes < 0 {
		v.AddError("health.minSegmentBytes", "value cannot be negative", cfg.Health.MinSegmentBytes)
	}

	v.PositiveDuration("reconnect.delay", cfg.Reconnect.Delay)
	v.Range("reconnect.maxRetries", cfg.Reconnect.MaxRetries, 1, 100)
	v.PositiveDuration("reconnect.cooldown", cfg.Reconnect.Cooldown)
	v.PositiveDuration("reconnect.qualitySwitchDelay", cfg.Reconnect.QualitySwitchDelay)

	if cfg.AutoMonitor.Enabled {
		v.PositiveDuration("autoMonitor.interval", cfg.AutoMonitor.Interval)
		v.Range("autoMonitor.concurrency", cfg.AutoMonitor.Concurrency, 1, 64)
		if cfg.AutoMonitor.StartsPerSecond <= 0 {
			v.AddError("autoMonitor.startsPerSecond", "value must be positive", cfg.AutoMonitor.StartsPerSecond)
		}
	}

	seen := make(map[string]bool, len(cfg.Discovery.Cameras))
	for i, cam := range cfg.Discovery.Cameras {
		field := fmt.Sprintf("discovery.cameras[%d]", i)
		if !model.IsSafeCameraID(cam.ID) {
			v.AddError(field+".id", "camera id must match [A-Za-z0-9][A-Za-z0-9._-]*", cam.ID)
			continue
		}
		if seen[cam.ID] {
			v.AddError(field+".id", "duplicate camera id", cam.ID)
		}
		seen[cam.ID] = true
		if cam.RTSPURL == "" && cam.RTMPURL == "" {
			v.AddError(field, "rtspUrl or rtmpUrl is required", cam.ID)
		}
		if cam.RTSPURL != "" {
			v.URL(field+".rtspUrl", cam.RTSPURL, []string{"rtsp"})
		}
		if cam.RTMPURL != "" {
			v.URL(field+".rtmpUrl", cam.RTMPURL, []string{"rtmp"})
		}
		v.Custom(field+".quality", cam.Quality, knownQuality)
	}

	if cfg.Redis.Addr != "" {
		v.ListenAddr("redis.addr", cfg.Redis.Addr)
		v.Range("redis.db", cfg.Redis.DB, 0, 15)
	}

	v.ListenAddr("api.listenAddr", cfg.API.ListenAddr)
	v.NonNegative("api.rateLimit", cfg.API.RateLimit)
	if cfg.API.MaxBodyBytes <= 0 {
		v.AddError("api.maxBodyBytes", "value must be positive", cfg.API.MaxBodyBytes)
	}

	v.PositiveDuration("server.readTimeout", cfg.Server.ReadTimeout)
	v.PositiveDuration("server.writeTimeout", cfg.Server.WriteTimeout)
	v.PositiveDuration("server.shutdownTimeout", cfg.Server.ShutdownTimeout)
	if cfg.Server.MetricsAddr != "" {
		v.ListenAddr("server.metricsAddr", cfg.Server.MetricsAddr)
	}

	if cfg.Telemetry.Enabled {
		v.NotEmpty("telemetry.serviceName", cfg.Telemetry.ServiceName)
		v.Custom("telemetry.exporter", cfg.Telemetry.Exporter, knownExporter)
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
			v.AddError("telemetry.samplingRate", "value must be between 0 and 1", cfg.Telemetry.SamplingRate)
		}
	}

	return v.Err()
}

func knownQuality(value any) error {
	q, _ := value.(string)
	if _, ok := profiles.Normalize(q); !ok {
		return fmt.Errorf("unknown quality tier %q (one of %v)", q, profiles.Tiers())
	}
	return nil
}

func knownExporter(value any) error {
	switch value {
	case "grpc", "http":
		return nil
	}
	return fmt.Errorf("unsupported exporter %v (grpc or http)", value)
}
