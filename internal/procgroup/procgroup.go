// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup spawns and reaps transcoder processes as whole process groups.
package procgroup

import (
	"errors"
	"os/exec"
	"syscall"
)

var (
	// ErrKillFailed is returned when a process group survived SIGKILL past the timeout.
	ErrKillFailed = errors.New("kill operation failed")
)

// Set configures the command to start in a new process group.
// Mandatory for Kill/Terminate to reach children (ffmpeg may fork helpers).
func Set(cmd *exec.Cmd) {
	set(cmd)
}

// Kill sends sig to the process group of cmd.
// A nil command, an unstarted command or an already-gone group is not an error.
func Kill(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return kill(cmd, sig)
}
