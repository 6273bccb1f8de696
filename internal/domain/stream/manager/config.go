// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"time"

	"github.com/ManuGH/camhls/internal/hls"
)

// Config holds orchestrator timings and thresholds. Zero values take defaults.
type Config struct {
	Layout hls.Layout

	ReadinessInterval time.Duration
	ReadinessAttempts int

	// StopTimeout bounds waiting for a handle to stop.
	StopTimeout time.Duration
	// ReportTimeout bounds one StatusReporter call.
	ReportTimeout time.Duration

	ReconnectDelay     time.Duration
	MaxRetries         int
	Cooldown           time.Duration
	QualitySwitchDelay time.Duration

	HealthInterval  time.Duration
	StaleAfter      time.Duration
	MinSegmentBytes int64
}

func (c Config) withDefaults() Config {
	if c.Layout.Root == "" {
		c.Layout.Root = "streams"
	}
	if c.Layout.BaseURL == "" {
		c.Layout.BaseURL = "/hls"
	}
	if c.ReadinessInterval <= 0 {
		c.ReadinessInterval = 500 * time.Millisecond
	}
	if c.ReadinessAttempts <= 0 {
		c.ReadinessAttempts = 20
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = 10 * time.Second
	}
	if c.ReportTimeout <= 0 {
		c.ReportTimeout = 5 * time.Second
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = 2 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 5 * time.Minute
	}
	if c.QualitySwitchDelay <= 0 {
		c.QualitySwitchDelay = 2500 * time.Millisecond
	}
	if c.HealthInterval <= 0 {
		c.HealthInterval = 30 * time.Second
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 10 * time.Second
	}
	if c.MinSegmentBytes <= 0 {
		c.MinSegmentBytes = 1024
	}
	return c
}
