// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"time"

	"github.com/ManuGH/camhls/internal/domain/stream/model"
	"github.com/ManuGH/camhls/internal/pipeline/profiles"
)

// StatusInfo is the status query reply for one camera.
type StatusInfo struct {
	CameraID string
	Active   bool
	Status   model.Status
	Mode     model.Mode
	Quality  profiles.Tier
	Protocol model.Protocol
	Uptime   time.Duration
	HLSURL   string

	StartTime        time.Time
	LastHealthCheck  time.Time
	LastFailure      time.Time
	LastReconnection time.Time

	ConsecutiveFailures int
	RestartCount        int

	ReconnectState model.ReconnectState
	ParkedUntil    time.Time

	PID        int
	CPUPercent *float64
	RSSBytes   *uint64
}

// Status reports the camera's session. Unknown cameras report Active=false.
func (o *Orchestrator) Status(ctx context.Context, cameraID string) StatusInfo {
	state, until := o.recon.State(cameraID)
	s, ok := o.reg.Get(cameraID)
	if !ok {
		return StatusInfo{
			CameraID:       cameraID,
			Status:         model.StatusStopped,
			ReconnectState: state,
			ParkedUntil:    until,
		}
	}
	info := o.describe(s, state, until)
	o.sampleStats(ctx, &info)
	return info
}

// List reports every active session ordered by camera ID.
func (o *Orchestrator) List(ctx context.Context) []StatusInfo {
	sessions := o.reg.List()
	out := make([]StatusInfo, 0, len(sessions))
	for _, s := range sessions {
		state, until := o.recon.State(s.CameraID)
		info := o.describe(s, state, until)
		o.sampleStats(ctx, &info)
		out = append(out, info)
	}
	return out
}

// ModeCounts counts active sessions per mode from the registry alone; it
// never samples process statistics.
func (o *Orchestrator) ModeCounts() map[model.Mode]int {
	return o.reg.CountByMode()
}

// Parked lists parked cameras with their retry times.
func (o *Orchestrator) Parked() map[string]time.Time {
	o.recon.mu.Lock()
	defer o.recon.mu.Unlock()
	out := make(map[string]time.Time)
	for id, e := range o.recon.entries {
		if e.state == model.ReconnectParked {
			out[id] = e.parkedUntil
		}
	}
	return out
}

func (o *Orchestrator) describe(s model.Session, state model.ReconnectState, until time.Time) StatusInfo {
	info := StatusInfo{
		CameraID:            s.CameraID,
		Active:              true,
		Status:              s.Status,
		Mode:                s.Mode,
		Quality:             s.Quality,
		Protocol:            s.Protocol,
		Uptime:              s.Uptime(o.now()),
		HLSURL:              o.cfg.Layout.URL(s.CameraID),
		StartTime:           s.StartTime,
		LastHealthCheck:     s.LastHealthCheck,
		LastFailure:         s.LastFailure,
		LastReconnection:    s.LastReconnection,
		ConsecutiveFailures: s.ConsecutiveFailures,
		RestartCount:        s.RestartCount,
		ReconnectState:      state,
		ParkedUntil:         until,
	}
	if s.Handle != nil {
		info.PID = s.Handle.PID()
	}
	return info
}

func (o *Orchestrator) sampleStats(ctx context.Context, info *StatusInfo) {
	if o.stats == nil || info.PID <= 0 {
		return
	}
	st, err := o.stats.Sample(ctx, info.PID)
	if err != nil {
		return
	}
	cpu, rss := st.CPUPercent, st.RSSBytes
	info.CPUPercent = &cpu
	info.RSSBytes = &rss
}
