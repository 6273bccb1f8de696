// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys shared by orchestrator spans.
const (
	CameraIDKey = "camera.id"
	RunIDKey    = "stream.run_id"
	ModeKey     = "stream.mode"
	QualityKey  = "stream.quality"
	ProtocolKey = "stream.protocol"
	ReasonKey   = "stream.reason"
	AttemptKey  = "reconnect.attempt"
	ResultKey   = "stream.result"
)

// CameraAttributes identifies a camera and, when known, its run generation.
func CameraAttributes(cameraID, runID string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(CameraIDKey, cameraID)}
	if runID != "" {
		attrs = append(attrs, attribute.String(RunIDKey, runID))
	}
	return attrs
}

// StreamAttributes describes what a launch produced or requested.
func StreamAttributes(mode, quality, protocol string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if mode != "" {
		attrs = append(attrs, attribute.String(ModeKey, mode))
	}
	if quality != "" {
		attrs = append(attrs, attribute.String(QualityKey, quality))
	}
	if protocol != "" {
		attrs = append(attrs, attribute.String(ProtocolKey, protocol))
	}
	return attrs
}

// RecordError marks the span failed. A nil error leaves the span untouched.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
