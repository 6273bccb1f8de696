// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package readiness

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manifestPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "stream.m3u8")
}

func TestWait_AlreadyReady(t *testing.T) {
	path := manifestPath(t)
	require.NoError(t, os.WriteFile(path, []byte("#EXTM3U\n"), 0o600))

	o, err := Wait(context.Background(), Options{Path: path, Interval: time.Hour, Attempts: 1, Logger: zerolog.Nop()})
	require.NoError(t, err)
	assert.Equal(t, Ready, o)
}

func TestWait_EventWakesBeforeTick(t *testing.T) {
	path := manifestPath(t)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.WriteFile(path, []byte("#EXTM3U\n"), 0o600)
	}()

	start := time.Now()
	// A tick would only come after 10s; only the fsnotify wake can finish early.
	o, err := Wait(context.Background(), Options{Path: path, Interval: 10 * time.Second, Attempts: 1, Logger: zerolog.Nop()})
	require.NoError(t, err)
	assert.Equal(t, Ready, o)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestWait_PollingWhenDirectoryMissing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "later")
	path := filepath.Join(dir, "stream.m3u8")

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = os.MkdirAll(dir, 0o755)
		_ = os.WriteFile(path, []byte("#EXTM3U\n"), 0o600)
	}()

	o, err := Wait(context.Background(), Options{Path: path, Interval: 20 * time.Millisecond, Attempts: 50, Logger: zerolog.Nop()})
	require.NoError(t, err)
	assert.Equal(t, Ready, o)
}

func TestWait_EmptyFileIsNotReady(t *testing.T) {
	path := manifestPath(t)
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	o, err := Wait(context.Background(), Options{Path: path, Interval: 10 * time.Millisecond, Attempts: 3, Logger: zerolog.Nop()})
	require.NoError(t, err)
	assert.Equal(t, TimedOut, o)
}

func TestWait_GoneWhenSessionDisappears(t *testing.T) {
	path := manifestPath(t)
	var present atomic.Bool
	present.Store(true)

	go func() {
		time.Sleep(30 * time.Millisecond)
		present.Store(false)
	}()

	o, err := Wait(context.Background(), Options{
		Path:     path,
		Interval: 10 * time.Millisecond,
		Attempts: 100,
		Present:  present.Load,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	assert.Equal(t, Gone, o)
}

func TestWait_TimedOutAfterAttempts(t *testing.T) {
	start := time.Now()
	o, err := Wait(context.Background(), Options{Path: manifestPath(t), Interval: 10 * time.Millisecond, Attempts: 5, Logger: zerolog.Nop()})
	require.NoError(t, err)
	assert.Equal(t, TimedOut, o)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestWait_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Wait(ctx, Options{Path: manifestPath(t), Interval: time.Second, Attempts: 10, Logger: zerolog.Nop()})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "gone", Gone.String())
	assert.Equal(t, "timed_out", TimedOut.String())
}
