// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/camhls/internal/telemetry"
)

const tracerName = "github.com/ManuGH/camhls/internal/domain/stream/manager"

// startSpan resolves the tracer on every call so a provider installed after
// New still receives spans.
func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return telemetry.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// endLaunchSpan records the launch outcome on span.
func endLaunchSpan(span trace.Span, res StartResult, err error) {
	if err != nil {
		telemetry.RecordError(span, err)
		return
	}
	span.SetAttributes(telemetry.StreamAttributes(string(res.Mode), "", "")...)
}

func spanResult(span trace.Span, result string) {
	span.SetAttributes(attribute.String(telemetry.ResultKey, result))
}
