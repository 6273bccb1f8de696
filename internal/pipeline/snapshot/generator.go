// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package snapshot produces a degraded HLS playlist of still frames when a
// camera cannot be transcoded live.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/camhls/internal/domain/stream/model"
	"github.com/ManuGH/camhls/internal/domain/stream/ports"
	"github.com/ManuGH/camhls/internal/hls"
	"github.com/ManuGH/camhls/internal/log"
	"github.com/ManuGH/camhls/internal/metrics"
)

// Capturer grabs one frame from a feed into dst.
type Capturer interface {
	Capture(ctx context.Context, inputURL string, protocol model.Protocol, dst string) error
}

// Config controls the snapshot cadence.
type Config struct {
	Interval time.Duration // default 3s
	Window   int           // playlist entries kept, default 3
	Capturer Capturer
}

// Starter creates generators. It implements ports.FallbackStarter.
type Starter struct {
	cfg Config
}

func NewStarter(cfg Config) *Starter {
	if cfg.Interval <= 0 {
		cfg.Interval = 3 * time.Second
	}
	if cfg.Window <= 0 {
		cfg.Window = 3
	}
	return &Starter{cfg: cfg}
}

// StartFallback writes a header-only playlist and starts the capture loop.
// The caller must have emptied spec.OutputDir.
func (s *Starter) StartFallback(ctx context.Context, spec ports.FallbackSpec) (model.Handle, error) {
	if s.cfg.Capturer == nil {
		return nil, errors.New("snapshot: no capturer configured")
	}
	// #nosec G301 -- served by a web server
	if err := os.MkdirAll(spec.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if err := hls.WriteAtomic(ctx, spec.PlaylistPath, targetDuration(s.cfg.Interval), 0, nil); err != nil {
		return nil, fmt.Errorf("write initial playlist: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	g := &Generator{
		spec:   spec,
		cfg:    s.cfg,
		cancel: cancel,
		done:   make(chan struct{}),
		logger: log.WithCamera("snapshot", spec.CameraID),
	}
	go g.run(loopCtx)
	return g, nil
}

// targetDuration is the playlist target duration for an interval, in whole
// seconds and never below one.
func targetDuration(interval time.Duration) int {
	secs := int(interval.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Generator is an interval handle. It never owns an OS process beyond the
// short-lived capture commands.
type Generator struct {
	spec   ports.FallbackSpec
	cfg    Config
	cancel context.CancelFunc
	done   chan struct{}
	logger zerolog.Logger

	mu     sync.Mutex
	window []hls.Segment
	seq    int // sequence number of the next capture
}

func (g *Generator) run(ctx context.Context) {
	defer close(g.done)

	ticker := time.NewTicker(g.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.tick(ctx)
		}
	}
}

// tick captures one frame and publishes the rolling window.
// Capture failures leave the playlist untouched.
func (g *Generator) tick(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()

	name := fmt.Sprintf("segment%03d.jpg", g.seq%1000)
	dst := filepath.Join(g.spec.OutputDir, name)

	if err := g.cfg.Capturer.Capture(ctx, g.spec.InputURL, g.spec.Protocol, dst); err != nil {
		if ctx.Err() != nil {
			return
		}
		_ = os.Remove(dst)
		metrics.IncSnapshotCapture("error")
		g.logger.Warn().Err(err).Str(log.FieldEvent, "snapshot.capture_failed").Msg("frame capture failed")
		return
	}
	metrics.IncSnapshotCapture("ok")

	g.window = append(g.window, hls.Segment{URI: name, Duration: g.cfg.Interval})
	g.seq++
	if len(g.window) > g.cfg.Window {
		oldest := g.window[0]
		g.window = g.window[1:]
		if err := os.Remove(filepath.Join(g.spec.OutputDir, oldest.URI)); err != nil && !os.IsNotExist(err) {
			g.logger.Warn().Err(err).Str(log.FieldPath, oldest.URI).Msg("remove expired snapshot")
		}
	}

	mediaSeq := g.seq - len(g.window)
	if err := hls.WriteAtomic(ctx, g.spec.PlaylistPath, targetDuration(g.cfg.Interval), mediaSeq, g.window); err != nil {
		g.logger.Warn().Err(err).Str(log.FieldPath, g.spec.PlaylistPath).Msg("rewrite snapshot playlist")
	}
}

func (g *Generator) PID() int { return 0 }

func (g *Generator) Alive() bool {
	select {
	case <-g.done:
		return false
	default:
		return true
	}
}

func (g *Generator) Done() <-chan struct{} { return g.done }

// Stop cancels the loop (including an in-flight capture) and waits for it.
func (g *Generator) Stop(ctx context.Context) error {
	g.cancel()
	select {
	case <-g.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Window returns the file names currently listed, oldest first.
func (g *Generator) Window() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.window))
	for _, s := range g.window {
		out = append(out, s.URI)
	}
	return out
}
