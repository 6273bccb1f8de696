// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

func resetGlobal(t *testing.T) {
	t.Helper()
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })
}

func TestNewProvider_Disabled(t *testing.T) {
	resetGlobal(t)

	p, err := NewProvider(context.Background(), Config{Enabled: false, ExporterType: "grpc"})
	require.NoError(t, err)
	assert.False(t, p.Enabled())

	_, span := Tracer("test").Start(context.Background(), "noop-check")
	assert.False(t, span.IsRecording())
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	resetGlobal(t)

	_, err := NewProvider(context.Background(), Config{Enabled: true, ServiceName: "camhls", ExporterType: "zipkin"})
	require.Error(t, err)
	assert.EqualError(t, err, "unsupported exporter type: zipkin (supported: grpc, http)")
}

func TestNewProvider_HTTPExporter(t *testing.T) {
	resetGlobal(t)

	// The exporter connects lazily; no collector is needed.
	p, err := NewProvider(context.Background(), Config{
		Enabled:      true,
		ServiceName:  "camhls",
		Environment:  "test",
		ExporterType: "http",
		Endpoint:     "127.0.0.1:4318",
		SamplingRate: 1,
	})
	require.NoError(t, err)
	assert.True(t, p.Enabled())
	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, ok, "sdk provider installed globally")

	// Nothing was recorded, so shutdown has nothing to export.
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{2.0, "AlwaysOnSampler"},
		{0.0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.5, "TraceIDRatioBased{0.5}"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sampler(tt.rate).Description())
	}
}

func TestProvider_ShutdownNil(t *testing.T) {
	var p *Provider
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestAttributes(t *testing.T) {
	assert.Equal(t, []attribute.KeyValue{attribute.String(CameraIDKey, "cam1")}, CameraAttributes("cam1", ""))
	assert.Equal(t, []attribute.KeyValue{
		attribute.String(CameraIDKey, "cam1"),
		attribute.String(RunIDKey, "run-1"),
	}, CameraAttributes("cam1", "run-1"))

	assert.Equal(t, []attribute.KeyValue{
		attribute.String(ModeKey, "transcode"),
		attribute.String(ProtocolKey, "rtsp"),
	}, StreamAttributes("transcode", "", "rtsp"))
}

func TestRecordError(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, okSpan := tp.Tracer("test").Start(context.Background(), "ok")
	RecordError(okSpan, nil)
	okSpan.End()

	_, failed := tp.Tracer("test").Start(context.Background(), "failed")
	RecordError(failed, errors.New("boom"))
	failed.End()

	spans := exp.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.Equal(t, "boom", spans[1].Status.Description)
	require.Len(t, spans[1].Events, 1)
	assert.Equal(t, "exception", spans[1].Events[0].Name)
}
