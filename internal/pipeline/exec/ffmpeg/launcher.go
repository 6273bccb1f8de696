// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ManuGH/camhls/internal/domain/stream/model"
	"github.com/ManuGH/camhls/internal/domain/stream/ports"
	"github.com/ManuGH/camhls/internal/log"
)

// SegmentPattern is the ffmpeg segment filename template inside a camera directory.
const SegmentPattern = "segment%03d.ts"

// LauncherConfig configures transcoder launches.
type LauncherConfig struct {
	BinPath         string
	SegmentDuration int
	ListSize        int
	ConnectTimeout  time.Duration
	StopGrace       time.Duration
	KillTimeout     time.Duration
	StderrLines     int
}

// Launcher starts ffmpeg HLS transcoders. It implements ports.Launcher.
type Launcher struct {
	cfg LauncherConfig
}

// NewLauncher creates a launcher, filling zero fields with defaults.
func NewLauncher(cfg LauncherConfig) *Launcher {
	if cfg.BinPath == "" {
		cfg.BinPath = "ffmpeg"
	}
	if cfg.SegmentDuration <= 0 {
		cfg.SegmentDuration = 2
	}
	if cfg.ListSize <= 0 {
		cfg.ListSize = 3
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = 2 * time.Second
	}
	if cfg.KillTimeout <= 0 {
		cfg.KillTimeout = 3 * time.Second
	}
	if cfg.StderrLines <= 0 {
		cfg.StderrLines = 256
	}
	return &Launcher{cfg: cfg}
}

// Launch creates the output directory and starts the transcoder.
// It returns once the process is spawned; readiness is observed separately.
func (l *Launcher) Launch(ctx context.Context, spec ports.LaunchSpec) (model.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// #nosec G301 -- served by a web server
	if err := os.MkdirAll(spec.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	args, err := BuildHLSArgs(
		InputSpec{StreamURL: spec.InputURL, Protocol: spec.Protocol, ConnectTimeout: l.cfg.ConnectTimeout},
		OutputSpec{
			HLSPlaylist:        spec.PlaylistPath,
			SegmentFilename:    filepath.Join(spec.OutputDir, SegmentPattern),
			SegmentDuration:    l.cfg.SegmentDuration,
			PlaylistWindowSize: l.cfg.ListSize,
		},
		spec.Profile,
	)
	if err != nil {
		return nil, err
	}

	logger := log.WithCamera("ffmpeg", spec.CameraID).With().Str(log.FieldRunID, spec.RunID).Logger()

	p, err := startProcess(processOptions{
		bin:         l.cfg.BinPath,
		args:        args,
		cameraID:    spec.CameraID,
		runID:       spec.RunID,
		grace:       l.cfg.StopGrace,
		killTimeout: l.cfg.KillTimeout,
		ringLines:   l.cfg.StderrLines,
		logger:      logger,
		onExit:      spec.OnExit,
	})
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", l.cfg.BinPath, err)
	}

	logger.Info().
		Str(log.FieldEvent, "ffmpeg.started").
		Int(log.FieldPID, p.PID()).
		Str(log.FieldQuality, string(spec.Profile.Tier)).
		Str(log.FieldProtocol, string(spec.Protocol)).
		Msg("transcoder started")
	return p, nil
}
