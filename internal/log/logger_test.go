// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_FieldsAndComponent(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "camhls-test", Version: "v0.0.1"})
	t.Cleanup(func() { Configure(Config{}) })

	l := WithCamera("manager", "cam1")
	l.Info().Str(FieldEvent, "stream.started").Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "camhls-test", entry["service"])
	assert.Equal(t, "v0.0.1", entry["version"])
	assert.Equal(t, "manager", entry[FieldComponent])
	assert.Equal(t, "cam1", entry[FieldCameraID])
	assert.Equal(t, "stream.started", entry[FieldEvent])
}

func TestMiddleware_PropagatesRequestID(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "info", Output: &buf})
	t.Cleanup(func() { Configure(Config{}) })

	var seen string
	h := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/streams", nil)
	req.Header.Set("X-Request-ID", "rid-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "rid-42", seen)
	assert.Equal(t, "rid-42", rec.Header().Get("X-Request-ID"))
	assert.True(t, strings.Contains(buf.String(), `"status":418`))
	assert.True(t, strings.Contains(buf.String(), `"request_id":"rid-42"`))
}
