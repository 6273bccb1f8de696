// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ManuGH/camhls/internal/cameras"
	"github.com/ManuGH/camhls/internal/log"
	"github.com/ManuGH/camhls/internal/metrics"
)

// AutoMonitorConfig controls discovery-driven starts.
type AutoMonitorConfig struct {
	InitialDelay time.Duration // default 10s
	Interval     time.Duration // default 2m
	// Concurrency bounds parallel starts within one sweep.
	Concurrency int
	// StartsPerSecond paces start attempts (token bucket); burst equals Concurrency.
	StartsPerSecond float64
}

// AutoMonitor starts discovered cameras that have no session and reports the
// status of all of them. It never touches existing sessions.
type AutoMonitor struct {
	o         *Orchestrator
	discovery cameras.Discovery
	reporter  cameras.StatusReporter
	cfg       AutoMonitorConfig
	limiter   *rate.Limiter
}

// AutoMonitor builds a monitor bound to o. Zero config fields fall back to
// defaults (10s initial delay, 2m interval, 4 workers, 2 starts/s) and a nil
// reporter discards reports. Call Run to start it.
func (o *Orchestrator) AutoMonitor(d cameras.Discovery, r cameras.StatusReporter, cfg AutoMonitorConfig) *AutoMonitor {
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 10 * time.Second
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Minute
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.StartsPerSecond <= 0 {
		cfg.StartsPerSecond = 2
	}
	if r == nil {
		r = cameras.NopReporter{}
	}
	return &AutoMonitor{
		o:         o,
		discovery: d,
		reporter:  r,
		cfg:       cfg,
		limiter:   rate.NewLimiter(rate.Limit(cfg.StartsPerSecond), cfg.Concurrency),
	}
}

// Run waits InitialDelay, sweeps, then sweeps every Interval until ctx is done.
func (a *AutoMonitor) Run(ctx context.Context) error {
	initial := time.NewTimer(a.cfg.InitialDelay)
	defer initial.Stop()

	select {
	case <-ctx.Done():
		return nil
	case <-initial.C:
	}

	a.o.logger.Info().Dur("interval", a.cfg.Interval).Msg("auto-monitor started")
	a.SweepOnce(ctx)

	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.SweepOnce(ctx)
		}
	}
}

// SweepOnce performs one discovery pass.
func (a *AutoMonitor) SweepOnce(ctx context.Context) {
	o := a.o
	list, err := a.discovery.ListCameras(ctx)
	if err != nil {
		metrics.IncAutoMonitorSweep("discovery_error")
		o.logger.Warn().Err(err).Str(log.FieldEvent, "automonitor.discovery_failed").Msg("camera discovery failed")
		if len(list) == 0 {
			return
		}
	} else {
		metrics.IncAutoMonitorSweep("ok")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Concurrency)

	for _, cam := range list {
		switch {
		case o.reg.Has(cam.ID):
			a.report(ctx, cam.ID, true, o.cfg.Layout.URL(cam.ID))
			continue
		case o.recon.isParked(cam.ID):
			a.report(ctx, cam.ID, false, "")
			continue
		}

		inputURL, ok := cam.PreferredURL()
		if !ok {
			a.report(ctx, cam.ID, false, "")
			continue
		}

		g.Go(func() error {
			if err := a.limiter.Wait(gctx); err != nil {
				return nil
			}
			res, err := o.start(gctx, StartRequest{CameraID: cam.ID, InputURL: inputURL, Quality: cam.Quality}, startOptions{onlyIfAbsent: true})
			if err != nil {
				logger := o.cameraLogger(cam.ID)
				evt := logger.Warn()
				if IsConfigError(err) {
					// Retrying will not help until the camera record is fixed.
					evt = logger.Error()
				}
				evt.Err(err).Str(log.FieldEvent, "automonitor.start_failed").Msg("auto start failed")
				a.report(ctx, cam.ID, false, "")
				return nil
			}
			a.report(ctx, cam.ID, true, res.HLSURL)
			return nil
		})
	}
	_ = g.Wait()
}

func (a *AutoMonitor) report(ctx context.Context, id string, online bool, hlsURL string) {
	metrics.IncAutoMonitorReport(online)
	rctx, cancel := context.WithTimeout(ctx, a.o.cfg.ReportTimeout)
	defer cancel()
	if err := a.reporter.ReportStatus(rctx, cameras.StatusUpdate{CameraID: id, Online: online, HLSURL: hlsURL, At: a.o.now()}); err != nil {
		a.o.logger.Warn().Err(err).Str(log.FieldCameraID, id).Msg("status report failed")
	}
}
