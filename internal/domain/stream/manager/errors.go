// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import "errors"

// Configuration errors: returned to the caller, never retried.
var (
	ErrInvalidScheme   = errors.New("input url must use rtsp:// or rtmp://")
	ErrMissingURL      = errors.New("input url is required")
	ErrInvalidCameraID = errors.New("invalid camera id")
	ErrUnknownQuality  = errors.New("unknown quality tier")
)

var (
	ErrNotFound = errors.New("no active session for camera")
	// ErrLaunchFailed means the transcoder (or fallback) could not be started.
	ErrLaunchFailed = errors.New("stream launch failed")
	// ErrProcessExited means the transcoder died before producing a manifest.
	ErrProcessExited = errors.New("transcoder exited before producing output")
	ErrClosed        = errors.New("orchestrator closed")
)

// IsConfigError reports whether err is a caller configuration error.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidScheme) ||
		errors.Is(err, ErrMissingURL) ||
		errors.Is(err, ErrInvalidCameraID) ||
		errors.Is(err, ErrUnknownQuality)
}
