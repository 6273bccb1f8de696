// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package cameras

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingDiscovery struct{}

func (failingDiscovery) ListCameras(context.Context) ([]Camera, error) {
	return nil, errors.New("registry down")
}

type recordingReporter struct {
	updates []StatusUpdate
	err     error
}

func (r *recordingReporter) ReportStatus(_ context.Context, u StatusUpdate) error {
	r.updates = append(r.updates, u)
	return r.err
}

func TestCamera_PreferredURL(t *testing.T) {
	u, ok := Camera{RTSPURL: "rtsp://a", RTMPURL: "rtmp://b"}.PreferredURL()
	require.True(t, ok)
	assert.Equal(t, "rtsp://a", u)

	u, ok = Camera{RTMPURL: " rtmp://b "}.PreferredURL()
	require.True(t, ok)
	assert.Equal(t, "rtmp://b", u)

	_, ok = Camera{RTSPURL: "  "}.PreferredURL()
	assert.False(t, ok)
}

func TestStatic_ReturnsCopy(t *testing.T) {
	s := Static{{ID: "cam1"}}
	list, err := s.ListCameras(context.Background())
	require.NoError(t, err)
	list[0].ID = "changed"
	assert.Equal(t, "cam1", s[0].ID)
}

func TestMultiDiscovery_MergesAndJoinsErrors(t *testing.T) {
	m := MultiDiscovery{
		Static{{ID: "cam1", RTSPURL: "rtsp://first"}},
		failingDiscovery{},
		Static{{ID: "cam1", RTSPURL: "rtsp://second"}, {ID: "cam2"}},
	}

	list, err := m.ListCameras(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry down")
	require.Len(t, list, 2)
	assert.Equal(t, "rtsp://first", list[0].RTSPURL)
	assert.Equal(t, "cam2", list[1].ID)
}

func TestMultiReporter_FansOut(t *testing.T) {
	a := &recordingReporter{}
	b := &recordingReporter{err: errors.New("boom")}
	m := MultiReporter{a, b, NopReporter{}, LogReporter{}}

	err := m.ReportStatus(context.Background(), StatusUpdate{CameraID: "cam1", Online: true})
	require.Error(t, err)
	assert.Len(t, a.updates, 1)
	assert.Len(t, b.updates, 1)
}
