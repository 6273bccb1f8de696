// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"fmt"

	"github.com/ManuGH/camhls/internal/log"
	"github.com/ManuGH/camhls/internal/metrics"
	"github.com/ManuGH/camhls/internal/pipeline/profiles"
	"github.com/ManuGH/camhls/internal/telemetry"
)

// ChangeQuality restarts the camera's transcoder with a new tier. The input URL
// and HLS URL are preserved; the switch is serialized with reconnections by the
// camera lock.
func (o *Orchestrator) ChangeQuality(ctx context.Context, cameraID, quality string) (res StartResult, err error) {
	ctx, span := startSpan(ctx, "stream.quality_switch",
		append(telemetry.CameraAttributes(cameraID, ""), telemetry.StreamAttributes("", quality, "")...)...)
	defer func() {
		endLaunchSpan(span, res, err)
		span.End()
	}()

	if o.closed.Load() {
		return StartResult{}, ErrClosed
	}
	tier, ok := profiles.Normalize(quality)
	if !ok || quality == "" {
		metrics.IncQualitySwitch("invalid", "rejected")
		return StartResult{}, fmt.Errorf("%w: %q", ErrUnknownQuality, quality)
	}
	prof, _ := profiles.Lookup(tier)

	unlock, err := o.locks.Lock(ctx, cameraID)
	if err != nil {
		return StartResult{}, err
	}
	defer unlock()

	s, ok := o.reg.Get(cameraID)
	if !ok {
		metrics.IncQualitySwitch(string(tier), "not_found")
		return StartResult{}, fmt.Errorf("%w: %s", ErrNotFound, cameraID)
	}

	logger := o.cameraLogger(cameraID)
	logger.Info().
		Str(log.FieldEvent, "stream.quality_switch").
		Str("from", string(s.Quality)).
		Str("to", string(tier)).
		Msg("switching quality")

	o.stopLocked(cameraID, "quality_switch")
	if err := o.sleep(o.cfg.QualitySwitchDelay); err != nil {
		return StartResult{}, err
	}

	res, err = o.launchLocked(ctx, launchParams{
		cameraID:            cameraID,
		inputURL:            s.InputURL,
		protocol:            s.Protocol,
		profile:             prof,
		consecutiveFailures: s.ConsecutiveFailures,
		restartCount:        s.RestartCount + 1,
		lastFailure:         s.LastFailure,
		lastReconnection:    s.LastReconnection,
	})
	if err != nil {
		metrics.IncQualitySwitch(string(tier), "failed")
		o.report(cameraID, false, "")
		return StartResult{}, err
	}
	metrics.IncQualitySwitch(string(tier), "success")
	return res, nil
}
