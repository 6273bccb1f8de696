// SPDX-License-Identifier: MIT
package validate

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_URL(t *testing.T) {
	tests := []struct {
		name           string
		value          string
		allowedSchemes []string
		wantErr        bool
	}{
		{"valid http", "http://example.com", []string{"http", "https"}, false},
		{"valid rtsp", "rtsp://cam.local:554/stream1", []string{"rtsp", "rtmp"}, false},
		{"empty url", "", []string{"http"}, true},
		{"no host", "http://", []string{"http"}, true},
		{"invalid scheme", "ftp://example.com", []string{"http", "https"}, true},
		{"no scheme", "example.com", []string{"http"}, true},
		{"upper-case scheme", "RTSP://cam.local/s", []string{"rtsp"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.URL("testURL", tt.value, tt.allowedSchemes)
			assert.Equal(t, tt.wantErr, !v.IsValid(), "err: %v", v.Err())
		})
	}
}

func TestValidator_BaseURL(t *testing.T) {
	for value, wantErr := range map[string]bool{
		"/hls":                        false,
		"https://cdn.example.com/hls": false,
		"hls":                         true,
		"ftp://x/hls":                 true,
	} {
		v := New()
		v.BaseURL("base", value)
		assert.Equal(t, wantErr, !v.IsValid(), value)
	}
}

func TestValidator_ListenAddr(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{":8080", false},
		{"127.0.0.1:9090", false},
		{"[::1]:80", false},
		{"8080", true},
		{":0", true},
		{":http", true},
		{":70000", true},
	}
	for _, tt := range tests {
		v := New()
		v.ListenAddr("listen", tt.addr)
		assert.Equal(t, tt.wantErr, !v.IsValid(), tt.addr)
	}
}

func TestValidator_Range(t *testing.T) {
	v := New()
	v.Range("retries", 5, 0, 100)
	assert.True(t, v.IsValid())
	v.Range("retries", 101, 0, 100)
	assert.False(t, v.IsValid())
}

func TestValidator_Directory(t *testing.T) {
	tmp := t.TempDir()

	v := New()
	v.Directory("existing", tmp, true)
	assert.True(t, v.IsValid())

	created := filepath.Join(tmp, "streams")
	v = New()
	v.Directory("created", created, false)
	require.True(t, v.IsValid(), v.Err())
	info, err := os.Stat(created)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	v = New()
	v.Directory("missing", filepath.Join(tmp, "nope"), true)
	assert.False(t, v.IsValid())

	file := filepath.Join(tmp, "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	v = New()
	v.Directory("file", file, true)
	assert.False(t, v.IsValid())

	v = New()
	v.Directory("traversal", "../etc", false)
	assert.False(t, v.IsValid())
}

func TestValidator_Durations(t *testing.T) {
	v := New()
	v.PositiveDuration("ok", time.Second)
	v.DurationAtLeast("ok2", 2*time.Second, time.Second)
	assert.True(t, v.IsValid())

	v.PositiveDuration("zero", 0)
	v.DurationAtLeast("short", 10*time.Millisecond, time.Second)
	assert.Len(t, v.Errors(), 2)
}

func TestValidator_NotEmpty(t *testing.T) {
	v := New()
	v.NotEmpty("bin", "ffmpeg")
	assert.True(t, v.IsValid())

	v.NotEmpty("bin", "   ")
	assert.Len(t, v.Errors(), 1)
}

func TestValidationError_Aggregates(t *testing.T) {
	v := New()
	require.NoError(t, v.Err())

	v.Positive("a", 0)
	v.NonNegative("b", -1)
	err := v.Err()
	require.Error(t, err)

	var ve ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Errors(), 2)
	assert.Equal(t, 2, strings.Count(err.Error(), "validation failed"))
	assert.Contains(t, err.Error(), "; ")
}

func TestValidator_Custom(t *testing.T) {
	v := New()
	v.Custom("tier", "8k", func(any) error { return errors.New("unknown tier") })
	require.Len(t, v.Errors(), 1)
	assert.Equal(t, "tier", v.Errors()[0].Field)
}

func TestParseLogLevel(t *testing.T) {
	lvl, err := ParseLogLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, LogLevelWarn, lvl)

	_, err = ParseLogLevel("loud")
	assert.Error(t, err)
}
