// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"github.com/ManuGH/camhls/internal/domain/stream/model"
	"github.com/ManuGH/camhls/internal/log"
	"github.com/ManuGH/camhls/internal/metrics"
)

// onExit is the launcher's exit callback. It runs on the process reaper
// goroutine and only enqueues.
func (o *Orchestrator) onExit(ev model.TerminatedEvent) {
	select {
	case o.events <- ev:
	case <-o.ctx.Done():
	}
}

// dispatchEvents is the single consumer of TerminatedEvents. Each event is
// handled on its own tracked goroutine so a camera waiting on its lock never
// delays another camera's cleanup.
func (o *Orchestrator) dispatchEvents() {
	for {
		select {
		case <-o.ctx.Done():
			return
		case ev := <-o.events:
			o.workers.Go(func() { o.handleExit(ev) })
		}
	}
}

// handleExit removes the exited generation, deletes its artifacts and hands
// faulted running sessions to the reconnection controller. Events for a
// replaced generation are ignored.
func (o *Orchestrator) handleExit(ev model.TerminatedEvent) {
	logger := o.cameraLogger(ev.CameraID).With().Str(log.FieldRunID, ev.RunID).Logger()

	if !o.reg.Current(ev.CameraID, ev.RunID) {
		metrics.IncProcessExit("stale")
		logger.Debug().Int(log.FieldExitCode, ev.ExitCode).Msg("exit of replaced generation ignored")
		return
	}

	unlock, err := o.locks.Lock(o.ctx, ev.CameraID)
	if err != nil {
		return
	}
	defer unlock()

	s, ok := o.reg.RemoveIf(ev.CameraID, ev.RunID)
	if !ok {
		metrics.IncProcessExit("stale")
		return
	}
	o.teardown(s, "exited")

	if !ev.Faulted() {
		metrics.IncProcessExit("clean")
		logger.Info().Str(log.FieldEvent, "stream.exited").Int(log.FieldExitCode, ev.ExitCode).Msg("transcoder exited")
		o.report(ev.CameraID, false, "")
		return
	}

	metrics.IncProcessExit("fault")
	logger.Error().
		Err(ev.Err).
		Str(log.FieldEvent, "stream.fault").
		Int(log.FieldExitCode, ev.ExitCode).
		Strs("stderr", ev.StderrTail).
		Msg("transcoder exited unexpectedly")
	o.report(ev.CameraID, false, "")

	if s.Status == model.StatusRunning {
		o.recon.trigger(s, "process_exit", true)
	}
}
