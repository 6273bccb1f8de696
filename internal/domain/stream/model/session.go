// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"context"
	"time"

	"github.com/ManuGH/camhls/internal/pipeline/profiles"
)

// Handle is the running producer behind a session: a transcoder process or a snapshot interval loop.
type Handle interface {
	// PID is the OS process id, 0 for handles without a process.
	PID() int
	// Alive reports whether the producer is still running.
	Alive() bool
	// Done is closed once the producer has fully stopped.
	Done() <-chan struct{}
	// Stop terminates the producer and waits for it. Safe to call repeatedly.
	Stop(ctx context.Context) error
}

// TerminatedEvent is published once per transcoder process when it exits.
type TerminatedEvent struct {
	CameraID   string
	RunID      string
	ExitCode   int
	Err        error
	StderrTail []string
	At         time.Time
}

// Faulted reports a non-zero or signal exit.
func (e TerminatedEvent) Faulted() bool {
	return e.ExitCode != 0 || e.Err != nil
}

// Session is the registry record of one camera stream.
type Session struct {
	CameraID string
	InputURL string
	Protocol Protocol
	Quality  profiles.Tier
	Mode     Mode
	Handle   Handle
	RunID    string
	Status   Status

	StartTime        time.Time
	LastHealthCheck  time.Time
	LastFailure      time.Time
	LastReconnection time.Time

	ConsecutiveFailures int
	RestartCount        int
}

// Uptime is the time since the current handle generation started.
func (s Session) Uptime(now time.Time) time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	return now.Sub(s.StartTime)
}
