// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package hls

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/ManuGH/camhls/internal/log"
)

// Render writes a live media playlist (no ENDLIST) for the given window.
// An empty window renders the header only.
func Render(w io.Writer, target int, mediaSequence int, segments []Segment) error {
	if target <= 0 {
		target = 1
	}
	for _, s := range segments {
		if secs := int(math.Ceil(s.Duration.Seconds())); secs > target {
			target = secs
		}
	}

	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	fmt.Fprintf(&b, "#EXT-X-TARGETDURATION:%d\n", target)
	fmt.Fprintf(&b, "#EXT-X-MEDIA-SEQUENCE:%d\n", mediaSequence)
	for _, s := range segments {
		fmt.Fprintf(&b, "#EXTINF:%.3f,\n%s\n", s.Duration.Seconds(), s.URI)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteAtomic renders the playlist into path with fsync + rename, so readers
// never observe a partially written file.
func WriteAtomic(ctx context.Context, path string, target int, mediaSequence int, segments []Segment) error {
	logger := log.FromContext(ctx)

	// renameio handles: temp file creation, fsync, atomic rename, cleanup on error
	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending playlist: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending playlist")
		}
	}()

	if err := Render(pendingFile, target, mediaSequence, segments); err != nil {
		return fmt.Errorf("write playlist: %w", err)
	}

	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace playlist: %w", err)
	}
	return nil
}
