// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ManuGH/camhls/internal/cameras"
	"github.com/ManuGH/camhls/internal/domain/stream/model"
	"github.com/ManuGH/camhls/internal/domain/stream/ports"
	"github.com/ManuGH/camhls/internal/hls"
)

type launchMode int

const (
	modeReady      launchMode = iota // manifest + 2 KiB segment written at launch
	modeSilent                       // never writes anything
	modeDie                          // exits with code 1 shortly after launch
	modeFail                         // Launch returns an error
	modeNoSegments                   // header-only manifest
)

var pidSeq atomic.Int32

type fakeHandle struct {
	pid      int
	cameraID string
	runID    string
	onExit   func(model.TerminatedEvent)
	done     chan struct{}
	once     sync.Once
	stopped  atomic.Bool
}

func newFakeHandle(cameraID, runID string, onExit func(model.TerminatedEvent), pid int) *fakeHandle {
	return &fakeHandle{pid: pid, cameraID: cameraID, runID: runID, onExit: onExit, done: make(chan struct{})}
}

func (h *fakeHandle) PID() int { return h.pid }

func (h *fakeHandle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

func (h *fakeHandle) Done() <-chan struct{} { return h.done }

func (h *fakeHandle) Stop(context.Context) error {
	h.stopped.Store(true)
	h.exit(-1, errors.New("signal: terminated"))
	return nil
}

// exit simulates process termination and publishes the event once.
func (h *fakeHandle) exit(code int, err error) {
	h.once.Do(func() {
		close(h.done)
		if h.onExit != nil {
			h.onExit(model.TerminatedEvent{CameraID: h.cameraID, RunID: h.runID, ExitCode: code, Err: err, At: time.Now()})
		}
	})
}

type fakeLauncher struct {
	mu      sync.Mutex
	modes   map[string]launchMode
	specs   []ports.LaunchSpec
	handles []*fakeHandle
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{modes: make(map[string]launchMode)}
}

func (f *fakeLauncher) setMode(cameraID string, m launchMode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modes[cameraID] = m
}

func (f *fakeLauncher) Launch(_ context.Context, spec ports.LaunchSpec) (model.Handle, error) {
	f.mu.Lock()
	mode := f.modes[spec.CameraID]
	f.specs = append(f.specs, spec)
	f.mu.Unlock()

	if mode == modeFail {
		return nil, errors.New("exec: \"ffmpeg\": executable file not found in $PATH")
	}
	if err := os.MkdirAll(spec.OutputDir, 0o755); err != nil {
		return nil, err
	}

	h := newFakeHandle(spec.CameraID, spec.RunID, spec.OnExit, int(pidSeq.Add(1))+10000)
	switch mode {
	case modeReady:
		seg := filepath.Join(spec.OutputDir, "segment000.ts")
		if err := os.WriteFile(seg, make([]byte, 2048), 0o600); err != nil {
			return nil, err
		}
		manifest := "#EXTM3U\n#EXT-X-TARGETDURATION:2\n#EXT-X-MEDIA-SEQUENCE:0\n#EXTINF:2.000000,\nsegment000.ts\n"
		if err := os.WriteFile(spec.PlaylistPath, []byte(manifest), 0o600); err != nil {
			return nil, err
		}
	case modeNoSegments:
		if err := os.WriteFile(spec.PlaylistPath, []byte("#EXTM3U\n#EXT-X-TARGETDURATION:2\n"), 0o600); err != nil {
			return nil, err
		}
	case modeDie:
		go func() {
			time.Sleep(5 * time.Millisecond)
			h.exit(1, errors.New("exit status 1"))
		}()
	}

	f.mu.Lock()
	f.handles = append(f.handles, h)
	f.mu.Unlock()
	return h, nil
}

func (f *fakeLauncher) launchCount(cameraID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.specs {
		if s.CameraID == cameraID {
			n++
		}
	}
	return n
}

func (f *fakeLauncher) lastSpec(cameraID string) ports.LaunchSpec {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.specs) - 1; i >= 0; i-- {
		if f.specs[i].CameraID == cameraID {
			return f.specs[i]
		}
	}
	return ports.LaunchSpec{}
}

func (f *fakeLauncher) liveHandles(cameraID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, h := range f.handles {
		if h.cameraID == cameraID && h.Alive() {
			n++
		}
	}
	return n
}

func (f *fakeLauncher) handle(cameraID string, idx int) *fakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := 0
	for _, h := range f.handles {
		if h.cameraID == cameraID {
			if i == idx {
				return h
			}
			i++
		}
	}
	return nil
}

type fakeFallback struct {
	mu      sync.Mutex
	started []ports.FallbackSpec
	handles []*fakeHandle
	fail    bool
}

func (f *fakeFallback) StartFallback(ctx context.Context, spec ports.FallbackSpec) (model.Handle, error) {
	if f.fail {
		return nil, errors.New("capturer unavailable")
	}
	if err := hls.WriteAtomic(ctx, spec.PlaylistPath, 3, 0, nil); err != nil {
		return nil, err
	}
	h := newFakeHandle(spec.CameraID, "", nil, 0)
	f.mu.Lock()
	f.started = append(f.started, spec)
	f.handles = append(f.handles, h)
	f.mu.Unlock()
	return h, nil
}

func (f *fakeFallback) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.started)
}

type fakeReporter struct {
	mu      sync.Mutex
	updates []cameras.StatusUpdate

	// Set by holdNextOffline.
	entered chan struct{}
	gate    chan struct{}
}

func (r *fakeReporter) ReportStatus(_ context.Context, u cameras.StatusUpdate) error {
	r.mu.Lock()
	r.updates = append(r.updates, u)
	var entered, gate chan struct{}
	if !u.Online && r.gate != nil {
		entered, gate = r.entered, r.gate
		r.entered, r.gate = nil, nil
	}
	r.mu.Unlock()

	if gate != nil {
		close(entered)
		<-gate
	}
	return nil
}

// holdNextOffline blocks the next offline report until release is called.
// The returned channel is closed once that report is in progress.
func (r *fakeReporter) holdNextOffline(t *testing.T) (entered <-chan struct{}, release func()) {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entered = make(chan struct{})
	r.gate = make(chan struct{})
	gate := r.gate
	var once sync.Once
	release = func() { once.Do(func() { close(gate) }) }
	t.Cleanup(release)
	return r.entered, release
}

func (r *fakeReporter) last(cameraID string) (cameras.StatusUpdate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.updates) - 1; i >= 0; i-- {
		if r.updates[i].CameraID == cameraID {
			return r.updates[i], true
		}
	}
	return cameras.StatusUpdate{}, false
}

type fakeStats struct{}

func (fakeStats) Sample(_ context.Context, pid int) (ports.ProcessStats, error) {
	return ports.ProcessStats{CPUPercent: 12.5, RSSBytes: uint64(pid) * 1024}, nil
}

type testEnv struct {
	o        *Orchestrator
	launcher *fakeLauncher
	fallback *fakeFallback
	reporter *fakeReporter
	root     string
}

func testConfig(root string) Config {
	return Config{
		Layout:             hls.Layout{Root: root, BaseURL: "/hls"},
		ReadinessInterval:  5 * time.Millisecond,
		ReadinessAttempts:  10,
		StopTimeout:        time.Second,
		ReconnectDelay:     time.Millisecond,
		MaxRetries:         5,
		Cooldown:           time.Hour,
		QualitySwitchDelay: 2 * time.Millisecond,
		HealthInterval:     time.Hour,
		StaleAfter:         time.Minute,
		MinSegmentBytes:    1024,
	}
}

func newTestEnv(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()
	root := t.TempDir()
	cfg := testConfig(root)
	for _, m := range mutate {
		m(&cfg)
	}

	env := &testEnv{
		launcher: newFakeLauncher(),
		fallback: &fakeFallback{},
		reporter: &fakeReporter{},
		root:     root,
	}
	o, err := New(cfg, Deps{Launcher: env.launcher, Fallback: env.fallback, Reporter: env.reporter, Stats: fakeStats{}})
	require.NoError(t, err)
	env.o = o
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, o.Close(ctx))
	})
	return env
}

func (e *testEnv) start(t *testing.T, cameraID string) StartResult {
	t.Helper()
	res, err := e.o.Start(context.Background(), StartRequest{CameraID: cameraID, InputURL: "rtsp://host/" + cameraID})
	require.NoError(t, err)
	return res
}

// waitIdle blocks until no reconnection is in flight for the camera.
func waitIdle(t *testing.T, o *Orchestrator, cameraID string) {
	t.Helper()
	require.Eventually(t, func() bool {
		o.recon.mu.Lock()
		defer o.recon.mu.Unlock()
		e, ok := o.recon.entries[cameraID]
		return !ok || !e.inflight
	}, 3*time.Second, 2*time.Millisecond)
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
