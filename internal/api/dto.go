// SPDX-License-Identifier: MIT

package api

import (
	"time"

	"github.com/ManuGH/camhls/internal/domain/stream/manager"
)

type startRequest struct {
	InputURL string `json:"inputUrl"`
	Quality  string `json:"quality,omitempty"`
	Protocol string `json:"protocol,omitempty"`
}

type qualityRequest struct {
	Quality string `json:"quality"`
}

type startResponse struct {
	CameraID string `json:"cameraId"`
	Success  bool   `json:"success"`
	HLSURL   string `json:"hlsUrl,omitempty"`
	Mode     string `json:"mode,omitempty"`
}

type stopResponse struct {
	CameraID string `json:"cameraId"`
	Success  bool   `json:"success"`
}

type streamStatus struct {
	CameraID string `json:"cameraId"`
	Active   bool   `json:"active"`
	Status   string `json:"status"`
	Mode     string `json:"mode,omitempty"`
	Quality  string `json:"quality,omitempty"`
	Protocol string `json:"protocol,omitempty"`
	HLSURL   string `json:"hlsUrl,omitempty"`

	UptimeSeconds int64 `json:"uptimeSeconds"`

	StartTime        *time.Time `json:"startTime,omitempty"`
	LastHealthCheck  *time.Time `json:"lastHealthCheck,omitempty"`
	LastFailure      *time.Time `json:"lastFailure,omitempty"`
	LastReconnection *time.Time `json:"lastReconnection,omitempty"`

	ConsecutiveFailures int    `json:"consecutiveFailures"`
	RestartCount        int    `json:"restartCount"`
	ReconnectState      string `json:"reconnectState,omitempty"`

	ParkedUntil *time.Time `json:"parkedUntil,omitempty"`

	PID        int      `json:"pid,omitempty"`
	CPUPercent *float64 `json:"cpuPercent,omitempty"`
	RSSBytes   *uint64  `json:"rssBytes,omitempty"`
}

type listResponse struct {
	Streams []streamStatus `json:"streams"`
	Count   int            `json:"count"`
}

func optTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func toStreamStatus(in manager.StatusInfo) streamStatus {
	return streamStatus{
		CameraID:            in.CameraID,
		Active:              in.Active,
		Status:              string(in.Status),
		Mode:                string(in.Mode),
		Quality:             string(in.Quality),
		Protocol:            string(in.Protocol),
		HLSURL:              in.HLSURL,
		UptimeSeconds:       int64(in.Uptime.Seconds()),
		StartTime:           optTime(in.StartTime),
		LastHealthCheck:     optTime(in.LastHealthCheck),
		LastFailure:         optTime(in.LastFailure),
		LastReconnection:    optTime(in.LastReconnection),
		ConsecutiveFailures: in.ConsecutiveFailures,
		RestartCount:        in.RestartCount,
		ReconnectState:      string(in.ReconnectState),
		ParkedUntil:         optTime(in.ParkedUntil),
		PID:                 in.PID,
		CPUPercent:          in.CPUPercent,
		RSSBytes:            in.RSSBytes,
	}
}
