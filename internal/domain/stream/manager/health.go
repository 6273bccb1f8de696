// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/ManuGH/camhls/internal/domain/stream/model"
	"github.com/ManuGH/camhls/internal/hls"
	"github.com/ManuGH/camhls/internal/log"
	"github.com/ManuGH/camhls/internal/metrics"
)

// Verdict reasons.
const (
	ReasonHealthy         = "healthy"
	ReasonProcessDead     = "process_dead"
	ReasonManifestMissing = "manifest_missing"
	ReasonManifestStale   = "manifest_stale"
	ReasonManifestInvalid = "manifest_invalid"
	ReasonNoSegments      = "no_segments"
	ReasonSegmentMissing  = "segment_missing"
	ReasonSegmentTooSmall = "segment_too_small"
)

// HealthMonitor periodically evaluates every running session.
type HealthMonitor struct {
	o *Orchestrator
}

// HealthMonitor returns the monitor bound to this orchestrator.
func (o *Orchestrator) HealthMonitor() *HealthMonitor {
	return &HealthMonitor{o: o}
}

// Run ticks every HealthInterval until ctx is done.
func (m *HealthMonitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.o.cfg.HealthInterval)
	defer ticker.Stop()

	m.o.logger.Info().Dur("interval", m.o.cfg.HealthInterval).Msg("health monitor started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.SweepOnce(ctx)
		}
	}
}

// SweepOnce evaluates each session exactly once. Sessions still starting are
// skipped. Unhealthy sessions are handed to the reconnection controller,
// which runs asynchronously; the sweep never waits for it.
func (m *HealthMonitor) SweepOnce(ctx context.Context) {
	o := m.o
	for _, s := range o.reg.List() {
		if ctx.Err() != nil {
			return
		}
		if s.Status != model.StatusRunning {
			continue
		}

		reason := m.evaluate(s)
		now := o.now()

		if reason == ReasonHealthy {
			metrics.IncHealthVerdict("healthy", reason)
			o.reg.UpdateIf(s.CameraID, s.RunID, func(cur *model.Session) {
				cur.ConsecutiveFailures = 0
				cur.LastHealthCheck = now
			})
			o.recon.markStable(s.CameraID)
			continue
		}

		metrics.IncHealthVerdict("unhealthy", reason)
		if !o.reg.UpdateIf(s.CameraID, s.RunID, func(cur *model.Session) { cur.LastHealthCheck = now }) {
			// Replaced or removed since the listing.
			continue
		}
		logger := o.cameraLogger(s.CameraID)
		logger.Warn().
			Str(log.FieldEvent, "stream.unhealthy").
			Str(log.FieldReason, reason).
			Str(log.FieldMode, string(s.Mode)).
			Msg("health check failed")
		o.recon.trigger(s, reason, false)
	}
	o.refreshGauges()
}

// evaluate returns ReasonHealthy or the first failing condition.
func (m *HealthMonitor) evaluate(s model.Session) string {
	cfg := m.o.cfg

	if s.Handle == nil || !s.Handle.Alive() {
		return ReasonProcessDead
	}

	manifest := cfg.Layout.PlaylistPath(s.CameraID)
	info, err := os.Stat(manifest)
	if err != nil {
		return ReasonManifestMissing
	}
	if m.o.now().Sub(info.ModTime()) > cfg.StaleAfter {
		return ReasonManifestStale
	}
	if s.Mode == model.ModeSnapshotFallback {
		return ReasonHealthy
	}

	data, err := os.ReadFile(manifest) // #nosec G304 -- path built from validated camera id
	if err != nil {
		return ReasonManifestMissing
	}
	pl, err := hls.ParsePlaylist(string(data))
	if err != nil {
		return ReasonManifestInvalid
	}
	last, ok := pl.LastSegment()
	if !ok {
		return ReasonNoSegments
	}
	seg, err := os.Stat(filepath.Join(cfg.Layout.Dir(s.CameraID), filepath.Base(last.URI)))
	if err != nil {
		return ReasonSegmentMissing
	}
	if seg.Size() < cfg.MinSegmentBytes {
		return ReasonSegmentTooSmall
	}
	return ReasonHealthy
}
