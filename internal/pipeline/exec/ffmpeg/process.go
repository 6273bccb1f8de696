// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/camhls/internal/domain/stream/model"
	"github.com/ManuGH/camhls/internal/procgroup"
)

// Process is a running transcoder. It implements model.Handle.
// The reaper goroutine is the only caller of cmd.Wait.
type Process struct {
	cameraID string
	runID    string
	cmd      *exec.Cmd
	ring     *LineRing
	started  time.Time

	grace       time.Duration
	killTimeout time.Duration

	done chan struct{}

	mu       sync.Mutex
	exitCode int
	exitErr  error
}

type processOptions struct {
	bin         string
	args        []string
	cameraID    string
	runID       string
	grace       time.Duration
	killTimeout time.Duration
	ringLines   int
	logger      zerolog.Logger
	onExit      func(model.TerminatedEvent)
}

// startProcess launches the command in its own process group.
// The process is not bound to any request context; it lives until Stop or exit.
func startProcess(opts processOptions) (*Process, error) {
	cmd := exec.Command(opts.bin, opts.args...) // #nosec G204 -- argv built by BuildHLSArgs, no shell
	procgroup.Set(cmd)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	p := &Process{
		cameraID:    opts.cameraID,
		runID:       opts.runID,
		cmd:         cmd,
		ring:        NewLineRing(opts.ringLines),
		grace:       opts.grace,
		killTimeout: opts.killTimeout,
		done:        make(chan struct{}),
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	p.started = time.Now()

	// Both pipes must be drained before cmd.Wait.
	var ioWg sync.WaitGroup
	ioWg.Add(2)
	go p.consume(&ioWg, stderr, opts.logger)
	go p.consume(&ioWg, stdout, opts.logger)

	go func() {
		ioWg.Wait()
		waitErr := cmd.Wait()

		code := 0
		if waitErr != nil {
			code = -1
			var exitErr *exec.ExitError
			if errors.As(waitErr, &exitErr) {
				code = exitErr.ExitCode()
			}
		}

		p.mu.Lock()
		p.exitCode = code
		p.exitErr = waitErr
		p.mu.Unlock()
		close(p.done)

		if opts.onExit != nil {
			opts.onExit(model.TerminatedEvent{
				CameraID:   p.cameraID,
				RunID:      p.runID,
				ExitCode:   code,
				Err:        waitErr,
				StderrTail: p.ring.LastN(20),
				At:         time.Now(),
			})
		}
	}()

	return p, nil
}

// maxOutputLine bounds a single stderr/stdout line held in memory.
const maxOutputLine = 64 * 1024

// consume reads the pipe until EOF. A scan failure (oversized line) still
// drains the pipe so the child never blocks on a full pipe buffer.
func (p *Process) consume(wg *sync.WaitGroup, r io.Reader, logger zerolog.Logger) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxOutputLine)
	scanner.Split(scanOutputLines)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		_, _ = p.ring.Write([]byte(line))
		logger.Debug().Str("line", line).Msg("ffmpeg output")
	}
	if err := scanner.Err(); err != nil {
		logger.Warn().Err(err).Msg("ffmpeg output unreadable, discarding remainder")
		_, _ = io.Copy(io.Discard, r)
	}
}

// scanOutputLines splits on '\r' as well as '\n'; ffmpeg progress output
// rewrites a single terminal line with carriage returns.
func scanOutputLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func (p *Process) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *Process) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *Process) Done() <-chan struct{} { return p.done }

// Stop sends SIGTERM to the process group, escalates to SIGKILL after the
// grace period and waits for the reaper. Safe to call repeatedly.
// If ctx ends first the termination continues in the background.
func (p *Process) Stop(ctx context.Context) error {
	if !p.Alive() {
		return nil
	}

	result := make(chan error, 1)
	go func() {
		result <- procgroup.Terminate(p.cmd, p.done, p.grace, p.killTimeout)
	}()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ExitCode returns the exit code once the process has exited.
func (p *Process) ExitCode() (int, bool) {
	if p.Alive() {
		return 0, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode, true
}

// StderrTail returns the last n output lines.
func (p *Process) StderrTail(n int) []string {
	return p.ring.LastN(n)
}

// Uptime is the time since the process was started.
func (p *Process) Uptime() time.Duration {
	return time.Since(p.started)
}
