// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/camhls/internal/domain/stream/model"
	"github.com/ManuGH/camhls/internal/log"
	"github.com/ManuGH/camhls/internal/metrics"
	"github.com/ManuGH/camhls/internal/pipeline/profiles"
	"github.com/ManuGH/camhls/internal/telemetry"
)

// reconnector is the per-camera reconnection state machine (stable, retrying, parked).
type reconnector struct {
	o *Orchestrator

	mu      sync.Mutex
	entries map[string]*reconEntry
}

type reconEntry struct {
	state       model.ReconnectState
	inflight    bool
	parkedUntil time.Time
	parkTimer   *time.Timer
	parkGen     uint64
	// cancelled is set by an explicit Start/Stop while an attempt is queued.
	cancelled bool
}

func newReconnector(o *Orchestrator) *reconnector {
	return &reconnector{o: o, entries: make(map[string]*reconEntry)}
}

func (r *reconnector) entry(id string) *reconEntry {
	e, ok := r.entries[id]
	if !ok {
		e = &reconEntry{state: model.ReconnectStable}
		r.entries[id] = e
	}
	return e
}

// State returns the controller state and, when parked, the scheduled retry time.
func (r *reconnector) State(id string) (model.ReconnectState, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return model.ReconnectStable, time.Time{}
	}
	return e.state, e.parkedUntil
}

func (r *reconnector) isParked(id string) bool {
	state, _ := r.State(id)
	return state == model.ReconnectParked
}

// markStable records a healthy verdict.
func (r *reconnector) markStable(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok && e.state == model.ReconnectRetrying && !e.inflight {
		delete(r.entries, id)
	}
}

// clear cancels a pending park retry and forgets the camera's state.
// Called with the camera lock held by explicit Start/Stop.
func (r *reconnector) clear(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return
	}
	if e.parkTimer != nil {
		e.parkTimer.Stop()
	}
	if e.inflight {
		// The queued attempt owns the entry and bails once it holds the lock.
		e.cancelled = true
		e.state = model.ReconnectRetrying
		e.parkTimer = nil
		e.parkedUntil = time.Time{}
		e.parkGen++
		return
	}
	delete(r.entries, id)
}

func (r *reconnector) stopTimers() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.parkTimer != nil {
			e.parkTimer.Stop()
		}
	}
}

// trigger schedules one reconnection attempt for the session snapshot s.
// removed means s has already been taken out of the registry (process exit).
// Concurrent triggers for the same camera are dropped while one is in flight.
func (r *reconnector) trigger(s model.Session, reason string, removed bool) bool {
	r.mu.Lock()
	e := r.entry(s.CameraID)
	if e.inflight || e.state == model.ReconnectParked {
		r.mu.Unlock()
		return false
	}
	e.inflight = true
	e.cancelled = false
	e.state = model.ReconnectRetrying
	r.mu.Unlock()

	started := r.o.workers.Go(func() {
		defer r.finish(s.CameraID)
		r.run(s, reason, removed)
	})
	if !started {
		r.finish(s.CameraID)
	}
	return started
}

func (r *reconnector) finish(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		e.inflight = false
		if e.cancelled {
			delete(r.entries, id)
		}
	}
}

func (r *reconnector) isCancelled(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	return ok && e.cancelled
}

// run executes the failure/relaunch loop under the camera lock.
func (r *reconnector) run(snapshot model.Session, reason string, removed bool) {
	o := r.o
	id := snapshot.CameraID
	logger := o.cameraLogger(id)

	ctx, span := startSpan(o.ctx, "stream.reconnect",
		append(telemetry.CameraAttributes(id, snapshot.RunID), attribute.String(telemetry.ReasonKey, reason))...)
	defer span.End()

	unlock, err := o.locks.Lock(ctx, id)
	if err != nil {
		return
	}
	defer unlock()

	if r.isCancelled(id) {
		spanResult(span, "cancelled")
		metrics.IncReconnectAttempt("cancelled")
		logger.Debug().Str(log.FieldReason, reason).Msg("reconnect cancelled by explicit start/stop")
		return
	}

	cur, present := o.reg.Get(id)
	if removed {
		if present {
			// Someone started a new session after the exit.
			spanResult(span, "superseded")
			metrics.IncReconnectAttempt("superseded")
			return
		}
	} else {
		if !present || cur.RunID != snapshot.RunID {
			// Replaced by a quality switch or stopped meanwhile.
			spanResult(span, "superseded")
			metrics.IncReconnectAttempt("superseded")
			return
		}
		snapshot = cur
	}

	prof, ok := profiles.Lookup(snapshot.Quality)
	if !ok {
		prof, _ = profiles.Lookup(profiles.Default)
	}

	s := snapshot
	for {
		s.ConsecutiveFailures++
		s.LastFailure = o.now()
		span.SetAttributes(attribute.Int(telemetry.AttemptKey, s.ConsecutiveFailures))
		if !removed {
			o.reg.UpdateIf(id, s.RunID, func(cur *model.Session) {
				cur.ConsecutiveFailures = s.ConsecutiveFailures
				cur.LastFailure = s.LastFailure
			})
		}

		if s.ConsecutiveFailures > o.cfg.MaxRetries {
			spanResult(span, "parked")
			r.parkLocked(s, removed)
			return
		}

		logger.Warn().
			Str(log.FieldEvent, "stream.reconnect").
			Str(log.FieldReason, reason).
			Int("consecutive_failures", s.ConsecutiveFailures).
			Int("max_retries", o.cfg.MaxRetries).
			Msg("reconnecting stream")

		if !removed {
			o.stopLocked(id, "reconnect")
			removed = true
		}
		if err := o.sleep(o.cfg.ReconnectDelay); err != nil {
			return
		}

		s.RestartCount++
		s.LastReconnection = o.now()
		res, err := o.launchLocked(ctx, launchParams{
			cameraID:            id,
			inputURL:            s.InputURL,
			protocol:            s.Protocol,
			profile:             prof,
			consecutiveFailures: s.ConsecutiveFailures,
			restartCount:        s.RestartCount,
			lastFailure:         s.LastFailure,
			lastReconnection:    s.LastReconnection,
		})
		if err == nil {
			spanResult(span, "relaunched")
			metrics.IncReconnectAttempt("relaunched")
			logger.Info().
				Str(log.FieldEvent, "stream.reconnected").
				Str(log.FieldMode, string(res.Mode)).
				Int("restart_count", s.RestartCount).
				Msg("stream relaunched")
			o.report(id, true, res.HLSURL)
			return
		}
		if errors.Is(err, ErrClosed) || o.ctx.Err() != nil {
			return
		}

		metrics.IncReconnectAttempt("failed")
		span.AddEvent("relaunch_failed", trace.WithAttributes(attribute.String("error", err.Error())))
		logger.Warn().Err(err).Msg("relaunch failed")
		reason = "relaunch_failed"
	}
}

// parkLocked gives up after the retry ceiling: the session is gone, the camera
// is reported offline and one fresh start is scheduled after the cooldown.
func (r *reconnector) parkLocked(s model.Session, removed bool) {
	o := r.o
	id := s.CameraID

	if !removed {
		o.stopLocked(id, "park")
	}

	r.mu.Lock()
	e := r.entry(id)
	e.state = model.ReconnectParked
	e.parkedUntil = o.now().Add(o.cfg.Cooldown)
	e.parkGen++
	gen := e.parkGen
	retry := launchParams{cameraID: id, inputURL: s.InputURL, protocol: s.Protocol}
	if prof, ok := profiles.Lookup(s.Quality); ok {
		retry.profile = prof
	} else {
		retry.profile, _ = profiles.Lookup(profiles.Default)
	}
	e.parkTimer = time.AfterFunc(o.cfg.Cooldown, func() {
		o.workers.Go(func() { r.retryParked(retry, gen) })
	})
	until := e.parkedUntil
	r.mu.Unlock()

	metrics.IncPark()
	logger := o.cameraLogger(id)
	logger.Error().
		Str(log.FieldEvent, "stream.parked").
		Int("consecutive_failures", s.ConsecutiveFailures).
		Time("retry_at", until).
		Msg("retry ceiling exceeded, camera parked")
	o.report(id, false, "")
}

// retryParked is the single deferred fresh start after a park.
func (r *reconnector) retryParked(p launchParams, gen uint64) {
	o := r.o
	id := p.cameraID

	unlock, err := o.locks.Lock(o.ctx, id)
	if err != nil {
		return
	}
	defer unlock()

	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok || e.state != model.ReconnectParked || e.parkGen != gen {
		r.mu.Unlock()
		return
	}
	delete(r.entries, id)
	r.mu.Unlock()

	if o.reg.Has(id) {
		return
	}

	logger := o.cameraLogger(id)
	logger.Info().Str(log.FieldEvent, "stream.unpark").Msg("cooldown elapsed, starting fresh")

	res, err := o.launchLocked(o.ctx, p)
	if err != nil {
		logger.Warn().Err(err).Msg("fresh start after cooldown failed")
		o.report(id, false, "")
		return
	}
	o.report(id, true, res.HLSURL)
}
