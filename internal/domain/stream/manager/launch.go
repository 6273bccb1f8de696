// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ManuGH/camhls/internal/domain/stream/model"
	"github.com/ManuGH/camhls/internal/domain/stream/ports"
	"github.com/ManuGH/camhls/internal/log"
	"github.com/ManuGH/camhls/internal/metrics"
	"github.com/ManuGH/camhls/internal/pipeline/readiness"
	"github.com/ManuGH/camhls/internal/telemetry"
)

type stderrTailer interface {
	StderrTail(n int) []string
}

// launchLocked spawns the transcoder, registers the session as starting and
// waits for the manifest. The caller holds the camera lock and has stopped any
// previous session.
func (o *Orchestrator) launchLocked(ctx context.Context, p launchParams) (res StartResult, err error) {
	ctx, span := startSpan(ctx, "stream.launch",
		append(telemetry.CameraAttributes(p.cameraID, ""),
			telemetry.StreamAttributes("", string(p.profile.Tier), string(p.protocol))...)...)
	defer func() {
		endLaunchSpan(span, res, err)
		span.End()
	}()

	id := p.cameraID
	logger := o.cameraLogger(id)
	layout := o.cfg.Layout

	if err := layout.ResetDir(id); err != nil {
		metrics.RecordStreamStart("failure", string(model.ModeTranscode))
		return StartResult{}, fmt.Errorf("%w: prepare directory: %v", ErrLaunchFailed, err)
	}

	runID := o.newRunID()
	span.SetAttributes(telemetry.CameraAttributes(id, runID)...)
	launchedAt := o.now()
	handle, err := o.launcher.Launch(ctx, ports.LaunchSpec{
		CameraID:     id,
		RunID:        runID,
		InputURL:     p.inputURL,
		Protocol:     p.protocol,
		Profile:      p.profile,
		OutputDir:    layout.Dir(id),
		PlaylistPath: layout.PlaylistPath(id),
		OnExit:       o.onExit,
	})
	if err != nil {
		o.removeDir(id)
		metrics.RecordStreamStart("failure", string(model.ModeTranscode))
		logger.Error().Err(err).Str(log.FieldEvent, "stream.launch_failed").Msg("transcoder launch failed")
		return StartResult{}, fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}

	o.reg.Insert(model.Session{
		CameraID:            id,
		InputURL:            p.inputURL,
		Protocol:            p.protocol,
		Quality:             p.profile.Tier,
		Mode:                model.ModeTranscode,
		Handle:              handle,
		RunID:               runID,
		Status:              model.StatusStarting,
		StartTime:           launchedAt,
		LastFailure:         p.lastFailure,
		LastReconnection:    p.lastReconnection,
		ConsecutiveFailures: p.consecutiveFailures,
		RestartCount:        p.restartCount,
	})
	o.refreshGauges()

	outcome, err := readiness.Wait(ctx, readiness.Options{
		Path:     layout.PlaylistPath(id),
		Interval: o.cfg.ReadinessInterval,
		Attempts: o.cfg.ReadinessAttempts,
		Present: func() bool {
			return o.reg.Current(id, runID) && handle.Alive()
		},
		Logger: logger,
	})
	if err != nil {
		// Caller gave up (or shutdown); the half-started session must not linger.
		if s, ok := o.reg.RemoveIf(id, runID); ok {
			o.teardown(s, "aborted")
		}
		metrics.RecordStreamStart("aborted", string(model.ModeTranscode))
		return StartResult{}, err
	}

	switch outcome {
	case readiness.Ready:
		o.reg.UpdateIf(id, runID, func(s *model.Session) {
			s.Status = model.StatusRunning
		})
		metrics.RecordStreamStart("success", string(model.ModeTranscode))
		metrics.ObserveStreamStartupLatency(string(model.ModeTranscode), o.now().Sub(launchedAt))
		logger.Info().
			Str(log.FieldEvent, "stream.started").
			Str(log.FieldRunID, runID).
			Str(log.FieldQuality, string(p.profile.Tier)).
			Str(log.FieldMode, string(model.ModeTranscode)).
			Msg("stream running")
		return StartResult{Success: true, HLSURL: layout.URL(id), Mode: model.ModeTranscode}, nil

	case readiness.Gone:
		var tail []string
		if t, ok := handle.(stderrTailer); ok {
			tail = t.StderrTail(10)
		}
		if s, ok := o.reg.RemoveIf(id, runID); ok {
			o.teardown(s, "exited")
		}
		metrics.RecordStreamStart("failure", string(model.ModeTranscode))
		logger.Error().
			Str(log.FieldEvent, "stream.exited_early").
			Strs("stderr", tail).
			Msg("transcoder exited before producing a manifest")
		return StartResult{}, ErrProcessExited

	default:
		return o.activateFallbackLocked(ctx, p, runID, handle)
	}
}

// activateFallbackLocked replaces a transcoder that produced no manifest in
// time with the snapshot generator. The run ID is swapped before the process
// is terminated so its exit event is ignored.
func (o *Orchestrator) activateFallbackLocked(ctx context.Context, p launchParams, oldRunID string, handle model.Handle) (StartResult, error) {
	id := p.cameraID
	logger := o.cameraLogger(id)
	layout := o.cfg.Layout

	newRunID := o.newRunID()
	if !o.reg.UpdateIf(id, oldRunID, func(s *model.Session) { s.RunID = newRunID }) {
		// Cannot happen while we hold the lock; treat as gone.
		_ = handle.Stop(context.Background())
		return StartResult{}, ErrProcessExited
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), o.cfg.StopTimeout)
	if err := handle.Stop(stopCtx); err != nil {
		logger.Warn().Err(err).Msg("stop transcoder before fallback")
	}
	cancel()

	if err := layout.ResetDir(id); err != nil {
		logger.Warn().Err(err).Msg("empty directory before fallback")
	}

	fb, err := o.fallback.StartFallback(ctx, ports.FallbackSpec{
		CameraID:     id,
		InputURL:     p.inputURL,
		Protocol:     p.protocol,
		OutputDir:    layout.Dir(id),
		PlaylistPath: layout.PlaylistPath(id),
	})
	if err != nil {
		if s, ok := o.reg.RemoveIf(id, newRunID); ok {
			s.Handle = nil
			o.teardown(s, "fallback_failed")
		}
		metrics.RecordStreamStart("failure", string(model.ModeSnapshotFallback))
		return StartResult{}, fmt.Errorf("%w: snapshot fallback: %v", ErrLaunchFailed, err)
	}

	o.reg.UpdateIf(id, newRunID, func(s *model.Session) {
		s.Handle = fb
		s.Mode = model.ModeSnapshotFallback
		s.Status = model.StatusRunning
		s.StartTime = o.now()
	})
	o.refreshGauges()
	metrics.IncFallbackActivation()
	metrics.RecordStreamStart("success", string(model.ModeSnapshotFallback))
	logger.Warn().
		Str(log.FieldEvent, "stream.fallback").
		Str(log.FieldRunID, newRunID).
		Str(log.FieldMode, string(model.ModeSnapshotFallback)).
		Msg("no manifest in time, serving snapshots")
	return StartResult{Success: true, HLSURL: layout.URL(id), Mode: model.ModeSnapshotFallback}, nil
}

func (o *Orchestrator) removeDir(cameraID string) {
	if err := o.cfg.Layout.RemoveDir(cameraID); err != nil {
		logger := o.cameraLogger(cameraID)
		logger.Warn().Err(err).Msg("remove stream directory")
	}
}

// sleep waits for d or until the orchestrator closes.
func (o *Orchestrator) sleep(d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-o.ctx.Done():
		return ErrClosed
	}
}

// redactURL drops credentials from a URL before it is logged or returned.
func redactURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "<unparseable>"
	}
	return u.Redacted()
}
