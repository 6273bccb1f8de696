// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package manager orchestrates per-camera HLS sessions: start, stop, status,
// exit handling, health monitoring, reconnection, quality switching and
// discovery-driven auto-start.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/camhls/internal/cameras"
	"github.com/ManuGH/camhls/internal/domain/stream/model"
	"github.com/ManuGH/camhls/internal/domain/stream/ports"
	"github.com/ManuGH/camhls/internal/domain/stream/registry"
	"github.com/ManuGH/camhls/internal/log"
	"github.com/ManuGH/camhls/internal/metrics"
	"github.com/ManuGH/camhls/internal/pipeline/profiles"
	"github.com/ManuGH/camhls/internal/telemetry"
)

// Deps are the orchestrator's collaborators.
type Deps struct {
	Launcher ports.Launcher
	Fallback ports.FallbackStarter
	Reporter cameras.StatusReporter // optional
	Stats    ports.StatsProbe       // optional
}

// Orchestrator owns the session registry and every state transition of it.
type Orchestrator struct {
	cfg      Config
	launcher ports.Launcher
	fallback ports.FallbackStarter
	reporter cameras.StatusReporter
	stats    ports.StatsProbe

	reg   *registry.Registry
	locks *registry.Locker
	recon *reconnector

	workers workerGroup
	events  chan model.TerminatedEvent

	// ctx scopes every background operation; cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool

	now      func() time.Time
	newRunID func() string
	logger   zerolog.Logger
}

// New creates an orchestrator and starts its exit-event dispatcher.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	if deps.Launcher == nil {
		return nil, errors.New("launcher is required")
	}
	if deps.Fallback == nil {
		return nil, errors.New("fallback starter is required")
	}
	if deps.Reporter == nil {
		deps.Reporter = cameras.NopReporter{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		cfg:      cfg.withDefaults(),
		launcher: deps.Launcher,
		fallback: deps.Fallback,
		reporter: deps.Reporter,
		stats:    deps.Stats,
		reg:      registry.New(),
		locks:    registry.NewLocker(),
		events:   make(chan model.TerminatedEvent, 64),
		ctx:      ctx,
		cancel:   cancel,
		now:      time.Now,
		newRunID: uuid.NewString,
		logger:   log.WithComponent("orchestrator"),
	}
	o.recon = newReconnector(o)
	o.workers.Go(o.dispatchEvents)
	return o, nil
}

// StartRequest is the input of Start.
type StartRequest struct {
	CameraID string
	InputURL string
	Quality  string // tier name; empty means medium
	Protocol string // optional override of the scheme-derived protocol
}

// StartResult is the output of Start.
type StartResult struct {
	Success bool
	HLSURL  string
	Mode    model.Mode
}

type startOptions struct {
	// onlyIfAbsent leaves an existing session untouched (auto-monitor).
	onlyIfAbsent bool
}

type launchParams struct {
	cameraID string
	inputURL string
	protocol model.Protocol
	profile  profiles.Profile

	consecutiveFailures int
	restartCount        int
	lastFailure         time.Time
	lastReconnection    time.Time
}

// Start launches a camera stream. An existing session for the camera is fully
// stopped first. A start on a parked camera cancels the park.
func (o *Orchestrator) Start(ctx context.Context, req StartRequest) (StartResult, error) {
	return o.start(ctx, req, startOptions{})
}

func (o *Orchestrator) start(ctx context.Context, req StartRequest, opts startOptions) (res StartResult, err error) {
	ctx, span := startSpan(ctx, "stream.start", telemetry.CameraAttributes(req.CameraID, "")...)
	defer func() {
		endLaunchSpan(span, res, err)
		span.End()
	}()

	if o.closed.Load() {
		return StartResult{}, ErrClosed
	}
	params, err := o.validate(req)
	if err != nil {
		metrics.RecordStreamStart("invalid", "")
		return StartResult{}, err
	}

	unlock, err := o.locks.Lock(ctx, params.cameraID)
	if err != nil {
		return StartResult{}, err
	}
	defer unlock()

	if o.closed.Load() {
		return StartResult{}, ErrClosed
	}

	if opts.onlyIfAbsent {
		if s, ok := o.reg.Get(params.cameraID); ok {
			return StartResult{Success: true, HLSURL: o.cfg.Layout.URL(s.CameraID), Mode: s.Mode}, nil
		}
	} else {
		o.recon.clear(params.cameraID)
		o.stopLocked(params.cameraID, "replaced")
	}

	return o.launchLocked(ctx, params)
}

func (o *Orchestrator) validate(req StartRequest) (launchParams, error) {
	if !model.IsSafeCameraID(req.CameraID) {
		return launchParams{}, fmt.Errorf("%w: %q", ErrInvalidCameraID, req.CameraID)
	}
	if req.InputURL == "" {
		return launchParams{}, ErrMissingURL
	}
	proto, ok := model.ProtocolFromURL(req.InputURL)
	if !ok {
		return launchParams{}, fmt.Errorf("%w: %q", ErrInvalidScheme, redactURL(req.InputURL))
	}
	if req.Protocol != "" {
		override, ok := model.ParseProtocol(req.Protocol)
		if !ok {
			return launchParams{}, fmt.Errorf("%w: unsupported protocol %q", ErrInvalidScheme, req.Protocol)
		}
		proto = override
	}
	prof, ok := profiles.Resolve(req.Quality)
	if !ok {
		return launchParams{}, fmt.Errorf("%w: %q", ErrUnknownQuality, req.Quality)
	}
	return launchParams{
		cameraID: req.CameraID,
		inputURL: req.InputURL,
		protocol: proto,
		profile:  prof,
	}, nil
}

// Stop tears down the camera's session and cancels a pending park retry.
// Stopping an unknown camera succeeds.
func (o *Orchestrator) Stop(ctx context.Context, cameraID string) error {
	if !model.IsSafeCameraID(cameraID) {
		// Cannot be registered; nothing to stop.
		return nil
	}
	unlock, err := o.locks.Lock(ctx, cameraID)
	if err != nil {
		return err
	}
	defer unlock()

	o.recon.clear(cameraID)
	if o.stopLocked(cameraID, "explicit") {
		o.report(cameraID, false, "")
	}
	return nil
}

// stopLocked removes the session, stops its handle and deletes its directory.
// The caller holds the camera lock. It reports whether a session existed.
func (o *Orchestrator) stopLocked(cameraID, reason string) bool {
	s, ok := o.reg.Remove(cameraID)
	if !ok {
		return false
	}
	o.teardown(s, reason)
	return true
}

// teardown stops an already-removed session's handle and deletes its artifacts.
// Failures are logged, never escalated.
func (o *Orchestrator) teardown(s model.Session, reason string) {
	logger := o.cameraLogger(s.CameraID)

	if s.Handle != nil {
		ctx, cancel := context.WithTimeout(context.Background(), o.cfg.StopTimeout)
		if err := s.Handle.Stop(ctx); err != nil {
			logger.Warn().Err(err).Str(log.FieldRunID, s.RunID).Msg("stop handle")
		}
		cancel()
	}
	if err := o.cfg.Layout.RemoveDir(s.CameraID); err != nil {
		logger.Warn().Err(err).Str(log.FieldPath, o.cfg.Layout.Dir(s.CameraID)).Msg("remove stream directory")
	}

	metrics.IncStreamStop(reason)
	o.refreshGauges()
	logger.Info().
		Str(log.FieldEvent, "stream.stopped").
		Str(log.FieldRunID, s.RunID).
		Str(log.FieldReason, reason).
		Msg("stream stopped")
}

// Close stops background work and every session. Safe to call once; later calls are no-ops.
func (o *Orchestrator) Close(ctx context.Context) error {
	if !o.closed.CompareAndSwap(false, true) {
		return nil
	}
	o.cancel()
	o.recon.stopTimers()

	var errs []error
	if err := o.workers.CloseAndWait(ctx); err != nil {
		errs = append(errs, err)
	}

	for _, s := range o.reg.List() {
		unlock, err := o.locks.Lock(ctx, s.CameraID)
		if err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", s.CameraID, err))
			continue
		}
		o.stopLocked(s.CameraID, "shutdown")
		unlock()
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) report(cameraID string, online bool, hlsURL string) {
	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.ReportTimeout)
	defer cancel()
	err := o.reporter.ReportStatus(ctx, cameras.StatusUpdate{
		CameraID: cameraID,
		Online:   online,
		HLSURL:   hlsURL,
		At:       o.now(),
	})
	if err != nil {
		logger := o.cameraLogger(cameraID)
		logger.Warn().Err(err).Bool("online", online).Msg("status report failed")
	}
}

func (o *Orchestrator) refreshGauges() {
	for mode, n := range o.reg.CountByMode() {
		metrics.SetActiveSessions(string(mode), n)
	}
}

func (o *Orchestrator) cameraLogger(cameraID string) zerolog.Logger {
	return o.logger.With().Str(log.FieldCameraID, cameraID).Logger()
}

// HLSURL returns the public playlist URL for a camera.
func (o *Orchestrator) HLSURL(cameraID string) string {
	return o.cfg.Layout.URL(cameraID)
}
