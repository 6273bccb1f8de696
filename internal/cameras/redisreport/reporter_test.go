// SPDX-License-Identifier: MIT

package redisreport

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/camhls/internal/cameras"
)

func setupMiniRedis(t *testing.T, cfg Config) (*miniredis.Miniredis, *Reporter) {
	t.Helper()
	mr := miniredis.RunT(t)
	cfg.Addr = mr.Addr()
	r, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return mr, r
}

func TestReporter_WritesHash(t *testing.T) {
	mr, r := setupMiniRedis(t, Config{TTL: time.Minute})
	at := time.UnixMilli(1_700_000_000_000)

	require.NoError(t, r.ReportStatus(context.Background(), cameras.StatusUpdate{
		CameraID: "door", Online: true, HLSURL: "/hls/door/stream.m3u8", At: at,
	}))

	key := "camhls:camera:door"
	assert.Equal(t, "1", mr.HGet(key, "online"))
	assert.Equal(t, "/hls/door/stream.m3u8", mr.HGet(key, "hls_url"))
	assert.Equal(t, "1700000000000", mr.HGet(key, "updated_at"))
	assert.Equal(t, time.Minute, mr.TTL(key))

	require.NoError(t, r.ReportStatus(context.Background(), cameras.StatusUpdate{CameraID: "door", At: at}))
	assert.Equal(t, "0", mr.HGet(key, "online"))
	assert.Equal(t, "", mr.HGet(key, "hls_url"))
}

func TestReporter_Publishes(t *testing.T) {
	_, r := setupMiniRedis(t, Config{KeyPrefix: "site1"})
	ctx := context.Background()

	sub := r.client.Subscribe(ctx, r.Channel())
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, r.ReportStatus(ctx, cameras.StatusUpdate{CameraID: "yard", Online: true, HLSURL: "/hls/yard/stream.m3u8"}))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, "site1:status", msg.Channel)
		var m message
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &m))
		assert.Equal(t, "yard", m.CameraID)
		assert.True(t, m.Online)
		assert.NotZero(t, m.At)
	case <-time.After(2 * time.Second):
		t.Fatal("no status message published")
	}
}

func TestReporter_Unavailable(t *testing.T) {
	mr, r := setupMiniRedis(t, Config{})
	require.NoError(t, r.HealthCheck(context.Background()))
	mr.Close()

	assert.Error(t, r.HealthCheck(context.Background()))
	assert.Error(t, r.ReportStatus(context.Background(), cameras.StatusUpdate{CameraID: "door"}))
}

func TestNew_ConnectionRefused(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(context.Background(), Config{Addr: addr}, zerolog.Nop())
	assert.Error(t, err)
}
