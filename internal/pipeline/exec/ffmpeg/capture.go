// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/ManuGH/camhls/internal/domain/stream/model"
	"github.com/ManuGH/camhls/internal/procgroup"
)

// FrameCapturer grabs single JPEG frames for the snapshot fallback.
type FrameCapturer struct {
	BinPath        string
	ConnectTimeout time.Duration
	Timeout        time.Duration // bound for one capture
}

// Capture writes one frame from inputURL to dst.
func (c *FrameCapturer) Capture(ctx context.Context, inputURL string, protocol model.Protocol, dst string) error {
	args, err := BuildCaptureArgs(InputSpec{StreamURL: inputURL, Protocol: protocol, ConnectTimeout: c.ConnectTimeout}, dst)
	if err != nil {
		return err
	}

	bin := c.BinPath
	if bin == "" {
		bin = "ffmpeg"
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, bin, args...) // #nosec G204
	procgroup.Set(cmd)
	cmd.Cancel = func() error {
		return procgroup.Kill(cmd, syscall.SIGKILL)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if i := strings.LastIndexByte(msg, '\n'); i >= 0 {
			msg = msg[i+1:]
		}
		if msg != "" {
			return fmt.Errorf("capture frame: %w: %s", err, msg)
		}
		return fmt.Errorf("capture frame: %w", err)
	}
	return nil
}
