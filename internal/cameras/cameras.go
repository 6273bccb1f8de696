// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package cameras defines the contracts with the external camera registry:
// discovery of configured cameras and reporting of their stream status.
package cameras

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ManuGH/camhls/internal/log"
)

// Camera is a configured camera as known to the registry.
type Camera struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name,omitempty"`
	RTSPURL string `yaml:"rtspUrl,omitempty"`
	RTMPURL string `yaml:"rtmpUrl,omitempty"`
	Quality string `yaml:"quality,omitempty"`
}

// PreferredURL returns the ingest URL, RTSP before RTMP.
func (c Camera) PreferredURL() (string, bool) {
	if u := strings.TrimSpace(c.RTSPURL); u != "" {
		return u, true
	}
	if u := strings.TrimSpace(c.RTMPURL); u != "" {
		return u, true
	}
	return "", false
}

// StatusUpdate is pushed back to the registry.
type StatusUpdate struct {
	CameraID string
	Online   bool
	HLSURL   string
	At       time.Time
}

// Discovery lists the cameras that should be streaming.
type Discovery interface {
	ListCameras(ctx context.Context) ([]Camera, error)
}

// StatusReporter receives online/offline transitions.
type StatusReporter interface {
	ReportStatus(ctx context.Context, u StatusUpdate) error
}

// Static is a fixed camera list, typically from the config file.
type Static []Camera

func (s Static) ListCameras(context.Context) ([]Camera, error) {
	out := make([]Camera, len(s))
	copy(out, s)
	return out, nil
}

// MultiDiscovery merges several sources. Earlier sources win on duplicate IDs.
// A failing source does not hide the others; its error is joined into the result.
type MultiDiscovery []Discovery

func (m MultiDiscovery) ListCameras(ctx context.Context) ([]Camera, error) {
	seen := make(map[string]struct{})
	var (
		out  []Camera
		errs []error
	)
	for _, d := range m {
		list, err := d.ListCameras(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, c := range list {
			if _, dup := seen[c.ID]; dup {
				continue
			}
			seen[c.ID] = struct{}{}
			out = append(out, c)
		}
	}
	return out, errors.Join(errs...)
}

// MultiReporter fans a status update out to every reporter.
type MultiReporter []StatusReporter

func (m MultiReporter) ReportStatus(ctx context.Context, u StatusUpdate) error {
	var errs []error
	for _, r := range m {
		if err := r.ReportStatus(ctx, u); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogReporter records status transitions in the service log.
type LogReporter struct{}

func (LogReporter) ReportStatus(_ context.Context, u StatusUpdate) error {
	logger := log.WithCamera("cameras", u.CameraID)
	logger.Info().
		Str(log.FieldEvent, "camera.status").
		Bool("online", u.Online).
		Str(log.FieldHLSURL, u.HLSURL).
		Msg("camera status reported")
	return nil
}

// NopReporter discards updates.
type NopReporter struct{}

func (NopReporter) ReportStatus(context.Context, StatusUpdate) error { return nil }
