// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestTracing_SpansNamedByRoute(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(noop.NewTracerProvider())
		_ = tp.Shutdown(context.Background())
	})

	root := t.TempDir()
	h := newTestServer(t, Config{ServeHLS: true, HLSRoot: root, HLSBaseURL: "/hls"}, newFakeStreams())

	rec := do(t, h, http.MethodPost, "/api/v1/streams/cam1/start", `{"inputUrl":"rtsp://10.0.0.5/live"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	do(t, h, http.MethodGet, "/healthz", "")
	do(t, h, http.MethodGet, "/hls/cam1/stream.m3u8", "")

	spans := exp.GetSpans()
	require.Len(t, spans, 1, "health and HLS file requests are not traced")
	assert.Equal(t, "POST /api/v1/streams/{id}/start", spans[0].Name)
}
