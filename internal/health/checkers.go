// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DirChecker reports whether a directory exists and is writable.
type DirChecker struct {
	name string
	path string
}

func NewDirChecker(name, path string) *DirChecker {
	return &DirChecker{name: name, path: path}
}

func (c *DirChecker) Name() string { return c.name }

func (c *DirChecker) Check(context.Context) CheckResult {
	info, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return CheckResult{Status: StatusUnhealthy, Error: "directory not found", Message: c.path}
		}
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if !info.IsDir() {
		return CheckResult{Status: StatusUnhealthy, Error: "expected directory, got file", Message: c.path}
	}

	probe, err := os.CreateTemp(c.path, ".health-*")
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: "directory not writable: " + err.Error()}
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(filepath.Clean(name))

	return CheckResult{Status: StatusHealthy, Message: "writable"}
}

// FuncChecker adapts a ping-style function (Redis, SQLite) to a Checker.
type FuncChecker struct {
	name    string
	timeout time.Duration
	fn      func(context.Context) error
}

// NewFuncChecker wraps fn; a zero timeout means 2s.
func NewFuncChecker(name string, timeout time.Duration, fn func(context.Context) error) *FuncChecker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &FuncChecker{name: name, timeout: timeout, fn: fn}
}

func (c *FuncChecker) Name() string { return c.name }

func (c *FuncChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.fn(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// StreamStats summarizes the orchestrator's sessions.
type StreamStats struct {
	Active   int
	Fallback int
	Parked   int
}

// StreamsChecker is degraded while any camera serves snapshots or is parked.
// It never reports unhealthy: camera outages must not fail readiness.
type StreamsChecker struct {
	stats func(context.Context) StreamStats
}

func NewStreamsChecker(stats func(context.Context) StreamStats) *StreamsChecker {
	return &StreamsChecker{stats: stats}
}

func (c *StreamsChecker) Name() string { return "streams" }

func (c *StreamsChecker) Check(ctx context.Context) CheckResult {
	s := c.stats(ctx)
	msg := fmt.Sprintf("%d active, %d in fallback, %d parked", s.Active, s.Fallback, s.Parked)
	if s.Fallback > 0 || s.Parked > 0 {
		return CheckResult{Status: StatusDegraded, Message: msg}
	}
	return CheckResult{Status: StatusHealthy, Message: msg}
}
