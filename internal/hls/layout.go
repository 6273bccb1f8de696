// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package hls

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// PlaylistName is the manifest file name inside each camera directory.
const PlaylistName = "stream.m3u8"

// Layout maps camera IDs to on-disk directories and public URLs.
type Layout struct {
	Root    string // streams root directory
	BaseURL string // public prefix, e.g. /hls
}

// Dir is {Root}/{cameraID}. cameraID must already be validated as a safe identifier.
func (l Layout) Dir(cameraID string) string {
	return filepath.Join(l.Root, cameraID)
}

func (l Layout) PlaylistPath(cameraID string) string {
	return filepath.Join(l.Dir(cameraID), PlaylistName)
}

// URL is {BaseURL}/{cameraID}/stream.m3u8.
func (l Layout) URL(cameraID string) string {
	base := strings.TrimRight(l.BaseURL, "/")
	if base == "" {
		base = "/hls"
	}
	if strings.Contains(base, "://") {
		return base + "/" + cameraID + "/" + PlaylistName
	}
	return path.Join(base, cameraID, PlaylistName)
}

// RemoveDir deletes the camera directory and everything in it.
func (l Layout) RemoveDir(cameraID string) error {
	dir := l.Dir(cameraID)
	if err := l.guard(dir); err != nil {
		return err
	}
	return os.RemoveAll(dir)
}

// ResetDir empties the camera directory, creating it if needed.
func (l Layout) ResetDir(cameraID string) error {
	if err := l.RemoveDir(cameraID); err != nil {
		return err
	}
	// #nosec G301 -- served by a web server
	return os.MkdirAll(l.Dir(cameraID), 0o755)
}

// guard refuses to touch anything outside Root.
func (l Layout) guard(dir string) error {
	root, err := filepath.Abs(l.Root)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("refusing to modify %q outside streams root", dir)
	}
	return nil
}
