// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"net/url"
	"strings"
)

// Status is the coarse session lifecycle visible to callers.
// Stopped sessions are removed from the registry; StatusStopped only appears in status replies.
type Status string

const (
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopped  Status = "stopped"
)

// Mode is how a session currently produces its HLS output.
type Mode string

const (
	ModeTranscode        Mode = "transcode"
	ModeSnapshotFallback Mode = "snapshot-fallback"
)

// Protocol is the ingest protocol of the camera feed.
type Protocol string

const (
	ProtocolRTSP Protocol = "rtsp"
	ProtocolRTMP Protocol = "rtmp"
)

// ProtocolFromURL derives the protocol from the URL scheme.
// ok is false for any scheme other than rtsp:// or rtmp://.
func ProtocolFromURL(raw string) (Protocol, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	switch strings.ToLower(u.Scheme) {
	case "rtsp":
		return ProtocolRTSP, true
	case "rtmp":
		return ProtocolRTMP, true
	default:
		return "", false
	}
}

// ParseProtocol validates an explicit protocol override.
func ParseProtocol(s string) (Protocol, bool) {
	switch Protocol(strings.ToLower(strings.TrimSpace(s))) {
	case ProtocolRTSP:
		return ProtocolRTSP, true
	case ProtocolRTMP:
		return ProtocolRTMP, true
	}
	return "", false
}

// ReconnectState is the per-camera state of the reconnection controller.
type ReconnectState string

const (
	ReconnectStable   ReconnectState = "stable"
	ReconnectRetrying ReconnectState = "retrying"
	ReconnectParked   ReconnectState = "parked"
)
