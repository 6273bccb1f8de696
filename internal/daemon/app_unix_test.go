// SPDX-License-Identifier: MIT

//go:build unix

package daemon

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ManuGH/camhls/internal/log"
)

func TestApp_RescanSignal(t *testing.T) {
	app := NewApp(log.WithComponent("test"), &fakeManager{})
	app.rescanSignal = syscall.SIGWINCH

	rescans := make(chan struct{}, 1)
	app.OnRescan(func(context.Context) {
		select {
		case rescans <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	// The handler is installed asynchronously; resend until it is observed.
	require.Eventually(t, func() bool {
		_ = syscall.Kill(syscall.Getpid(), syscall.SIGWINCH)
		select {
		case <-rescans:
			return true
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
