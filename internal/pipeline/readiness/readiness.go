// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package readiness waits for a transcoder's first manifest to appear.
package readiness

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Outcome is the terminal result of Wait.
type Outcome int

const (
	// Ready means the manifest exists and is non-empty.
	Ready Outcome = iota
	// Gone means the session disappeared or its producer died while waiting.
	Gone
	// TimedOut means every attempt elapsed with the session still present.
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Ready:
		return "ready"
	case Gone:
		return "gone"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Options configures a readiness wait.
type Options struct {
	Path     string
	Interval time.Duration // default 500ms
	Attempts int           // default 20
	// Present reports whether the session that owns Path is still the current, live generation.
	Present func() bool
	Logger  zerolog.Logger
}

// Wait polls Path every Interval for up to Attempts ticks. Create/Write events
// on the parent directory wake it early without consuming an attempt.
// A non-nil error is returned only when ctx ends first.
func Wait(ctx context.Context, opts Options) (Outcome, error) {
	if opts.Interval <= 0 {
		opts.Interval = 500 * time.Millisecond
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 20
	}
	present := opts.Present
	if present == nil {
		present = func() bool { return true }
	}

	check := func() (Outcome, bool) {
		if !present() {
			return Gone, true
		}
		if fileReady(opts.Path) {
			return Ready, true
		}
		return TimedOut, false
	}

	events, errs, closeWatch := watch(opts.Path, opts.Logger)
	defer closeWatch()

	// Fast path, and double check after the watcher is armed
	if o, done := check(); done {
		return o, nil
	}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	target := filepath.Base(opts.Path)
	ticks := 0
	for {
		select {
		case <-ctx.Done():
			return TimedOut, ctx.Err()
		case <-ticker.C:
			ticks++
			if o, done := check(); done {
				return o, nil
			}
			if ticks >= opts.Attempts {
				return TimedOut, nil
			}
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Base(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				if o, done := check(); done {
					return o, nil
				}
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			opts.Logger.Warn().Err(err).Msg("fsnotify watcher error")
		}
	}
}

func fileReady(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}

// watch arms an fsnotify watcher on the parent directory. When that fails
// (directory missing, inotify limits) Wait degrades to plain polling.
func watch(path string, logger zerolog.Logger) (<-chan fsnotify.Event, <-chan error, func()) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Debug().Err(err).Msg("fsnotify unavailable, polling only")
		return nil, nil, func() {}
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		logger.Debug().Err(err).Str("dir", dir).Msg("watch directory failed, polling only")
		_ = watcher.Close()
		return nil, nil, func() {}
	}
	return watcher.Events, watcher.Errors, func() { _ = watcher.Close() }
}
