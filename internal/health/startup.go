// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ManuGH/camhls/internal/config"
	"github.com/ManuGH/camhls/internal/log"
)

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// PerformStartupChecks validates the environment before the daemon starts.
func PerformStartupChecks(ctx context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if err := checkWritableDir(logger, cfg.DataDir); err != nil {
		return fmt.Errorf("data directory check failed: %w", err)
	}
	if err := checkWritableDir(logger, cfg.Streams.Root); err != nil {
		return fmt.Errorf("streams root check failed: %w", err)
	}

	bin := strings.TrimSpace(cfg.FFmpeg.Bin)
	if bin == "" {
		bin = "ffmpeg"
	}
	resolved, err := lookPath(bin)
	if err != nil {
		return fmt.Errorf("ffmpeg binary not found (%s): %w", bin, err)
	}
	logger.Info().Str("ffmpeg", resolved).Msg("ffmpeg available")

	if cfg.Discovery.SQLitePath != "" {
		dir := filepath.Dir(cfg.Discovery.SQLitePath)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("camera registry directory %s: %w", dir, err)
		}
	}
	if len(cfg.Discovery.Cameras) == 0 && cfg.Discovery.SQLitePath == "" && cfg.AutoMonitor.Enabled {
		logger.Warn().Msg("auto-monitor enabled without cameras; only API-started streams will run")
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	logger.Info().Msg("all startup checks passed")
	return nil
}

func checkWritableDir(logger zerolog.Logger, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", path)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(testFile)

	logger.Info().Str("path", path).Msg("directory is writable")
	return nil
}
