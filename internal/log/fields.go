// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldCameraID  = "camera_id"
	FieldRunID     = "run_id"
	FieldRequestID = "request_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldPID       = "pid"
	FieldExitCode  = "exit_code"

	// Stream fields
	FieldMode     = "mode"
	FieldQuality  = "quality"
	FieldProtocol = "protocol"
	FieldReason   = "reason"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path / URL fields
	FieldPath         = "path"
	FieldHLSURL       = "hls_url"
	FieldPlaylistPath = "playlist_path"
)
