// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package ports defines the contracts between the stream orchestrator and its media infrastructure.
package ports

import (
	"context"

	"github.com/ManuGH/camhls/internal/domain/stream/model"
	"github.com/ManuGH/camhls/internal/pipeline/profiles"
)

// LaunchSpec describes one transcoder run.
type LaunchSpec struct {
	CameraID     string
	RunID        string
	InputURL     string
	Protocol     model.Protocol
	Profile      profiles.Profile
	OutputDir    string
	PlaylistPath string

	// OnExit is invoked exactly once, from the process reaper, when the process exits.
	OnExit func(model.TerminatedEvent)
}

// Launcher starts transcoder processes.
// Implementations (Infrastructure) handle the "how" (argument vector, process groups).
type Launcher interface {
	Launch(ctx context.Context, spec LaunchSpec) (model.Handle, error)
}

// FallbackSpec describes a snapshot fallback producer.
type FallbackSpec struct {
	CameraID     string
	InputURL     string
	Protocol     model.Protocol
	OutputDir    string
	PlaylistPath string
}

// FallbackStarter starts the degraded snapshot producer.
type FallbackStarter interface {
	StartFallback(ctx context.Context, spec FallbackSpec) (model.Handle, error)
}

// ProcessStats is a point-in-time resource sample of a transcoder.
type ProcessStats struct {
	CPUPercent float64
	RSSBytes   uint64
}

// StatsProbe samples process resource usage by PID.
type StatsProbe interface {
	Sample(ctx context.Context, pid int) (ProcessStats, error)
}
