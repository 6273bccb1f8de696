// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rs/zerolog"

	"github.com/ManuGH/camhls/internal/log"
)

// Loop is a background subsystem owned by the App. Run must return when ctx
// is cancelled; a non-nil error stops the whole daemon.
type Loop struct {
	Name string
	Run  func(ctx context.Context) error
}

// App owns the long-lived background loops (health monitor, auto-monitor)
// and delegates server management to Manager.
type App struct {
	logger  zerolog.Logger
	manager Manager
	loops   []Loop

	// rescan runs on rescanSignal, typically an immediate discovery sweep.
	rescan       func(ctx context.Context)
	rescanSignal os.Signal
}

// NewApp creates a new App orchestrator.
func NewApp(logger zerolog.Logger, manager Manager, loops ...Loop) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		loops:        loops,
		rescanSignal: syscall.SIGHUP,
	}
}

// OnRescan registers fn to run whenever the process receives SIGHUP.
func (a *App) OnRescan(fn func(ctx context.Context)) {
	a.rescan = fn
}

// Run starts all owned background subsystems and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	for _, l := range a.loops {
		g.Go(func() error {
			a.logger.Debug().Str("loop", l.Name).Msg("loop started")
			if err := l.Run(ctx); err != nil {
				a.logger.Error().Err(err).Str(log.FieldEvent, "loop.failed").Str("loop", l.Name).Msg("background loop failed")
				return fmt.Errorf("%s: %w", l.Name, err)
			}
			return nil
		})
	}

	if a.rescan != nil && a.rescanSignal != nil {
		g.Go(func() error {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, a.rescanSignal)
			defer signal.Stop(sigCh)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-sigCh:
					a.logger.Info().
						Str(log.FieldEvent, "discovery.rescan_signal").
						Str("signal", a.rescanSignal.String()).
						Msg("received rescan signal")
					a.rescan(ctx)
				}
			}
		})
	}

	// Main server lifecycle.
	g.Go(func() error {
		return a.manager.Start(ctx)
	})

	return g.Wait()
}
