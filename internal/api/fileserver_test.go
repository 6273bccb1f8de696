// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hlsServer(t *testing.T) (http.Handler, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "cam1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "cam1", "stream.m3u8"), []byte("#EXTM3U\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "cam1", "segment_001.ts"), []byte("ts-data"), 0o644))

	h := newTestServer(t, Config{ServeHLS: true, HLSRoot: root, HLSBaseURL: "/hls"}, newFakeStreams())
	return h, root
}

func TestHLSFileServer_ServesPlaylistAndSegments(t *testing.T) {
	h, _ := hlsServer(t)

	rec := do(t, h, http.MethodGet, "/hls/cam1/stream.m3u8", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.apple.mpegurl", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "#EXTM3U\n", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("ETag"))

	rec = do(t, h, http.MethodGet, "/hls/cam1/segment_001.ts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video/mp2t", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ts-data", rec.Body.String())
}

func TestHLSFileServer_ETagNotModified(t *testing.T) {
	h, _ := hlsServer(t)

	first := do(t, h, http.MethodGet, "/hls/cam1/stream.m3u8", "")
	require.Equal(t, http.StatusOK, first.Code)

	req := httptest.NewRequest(http.MethodGet, "/hls/cam1/stream.m3u8", nil)
	req.Header.Set("If-None-Match", first.Header().Get("ETag"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestHLSFileServer_Rejections(t *testing.T) {
	h, root := hlsServer(t)

	outside := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o644))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "cam1", "escape.m3u8")))

	tests := []struct {
		name   string
		method string
		target string
		status int
	}{
		{"encoded traversal", http.MethodGet, "/hls/cam1/%2e%2e/%2e%2e/etc/passwd", http.StatusForbidden},
		{"double encoded traversal", http.MethodGet, "/hls/cam1/%252e%252e/secret", http.StatusForbidden},
		{"directory", http.MethodGet, "/hls/cam1", http.StatusForbidden},
		{"directory slash", http.MethodGet, "/hls/cam1/", http.StatusForbidden},
		{"symlink escape", http.MethodGet, "/hls/cam1/escape.m3u8", http.StatusForbidden},
		{"missing", http.MethodGet, "/hls/cam1/nope.ts", http.StatusNotFound},
		{"write", http.MethodPost, "/hls/cam1/stream.m3u8", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.target, "")
			assert.Equal(t, tt.status, rec.Code)
			assert.NotContains(t, rec.Body.String(), "secret\n")
		})
	}
}

func TestHLSFileServer_DisabledByDefault(t *testing.T) {
	h := newTestServer(t, Config{}, newFakeStreams())
	rec := do(t, h, http.MethodGet, "/hls/cam1/stream.m3u8", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIsPathTraversal(t *testing.T) {
	for p, want := range map[string]bool{
		"/cam1/stream.m3u8":       false,
		"/cam1/segment_003.ts":    false,
		"/../etc/passwd":          true,
		"/cam1/%2e%2e/x":          true,
		"/cam1/%252e%252e/x":      true,
		"/cam1/a%00.ts":           true,
		"/cam1/%c0%ae%c0%ae/x":    true,
		"/cam1/stream.m3u8\x00ts": true,
	} {
		assert.Equal(t, want, isPathTraversal(p), p)
	}
}
