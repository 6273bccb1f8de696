// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveSessions tracks registered sessions by mode (transcode, snapshot-fallback).
	ActiveSessions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "camhls_active_sessions",
		Help: "Number of active camera sessions by mode",
	}, []string{"mode"})

	// StreamStartTotal tracks the outcome of stream start attempts.
	StreamStartTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camhls_stream_start_total",
		Help: "Total number of stream start attempts by result and mode",
	}, []string{"result", "mode"})

	// StreamStartupLatency tracks the time from launch to a readable manifest.
	StreamStartupLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "camhls_stream_startup_latency_seconds",
		Help:    "Time from transcoder launch to manifest availability",
		Buckets: []float64{0.5, 1, 2, 3, 5, 8, 13},
	}, []string{"mode"})

	streamStopTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camhls_stream_stop_total",
		Help: "Total number of session teardowns by reason",
	}, []string{"reason"})

	processExitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camhls_process_exit_total",
		Help: "Transcoder exits observed by the exit handler",
	}, []string{"reason"})

	healthVerdictTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camhls_health_verdict_total",
		Help: "Health monitor verdicts by result and reason",
	}, []string{"result", "reason"})

	reconnectAttemptTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camhls_reconnect_attempt_total",
		Help: "Reconnection attempts by result",
	}, []string{"result"})

	parkTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "camhls_reconnect_park_total",
		Help: "Cameras parked after exceeding the retry ceiling",
	})

	qualitySwitchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camhls_quality_switch_total",
		Help: "Quality switches by target tier and result",
	}, []string{"tier", "result"})

	fallbackActivationTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "camhls_snapshot_fallback_activation_total",
		Help: "Sessions degraded to snapshot fallback after readiness timeout",
	})

	snapshotCaptureTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camhls_snapshot_capture_total",
		Help: "Snapshot frame captures by result",
	}, []string{"result"})

	autoMonitorSweepTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camhls_automonitor_sweep_total",
		Help: "Auto-monitor discovery sweeps by result",
	}, []string{"result"})

	autoMonitorReportTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camhls_automonitor_report_total",
		Help: "Status reports emitted by the auto-monitor",
	}, []string{"online"})
)

// SetActiveSessions records the per-mode session gauge.
func SetActiveSessions(mode string, n int) {
	ActiveSessions.WithLabelValues(mode).Set(float64(n))
}

// RecordStreamStart records a start attempt outcome.
func RecordStreamStart(result, mode string) {
	StreamStartTotal.WithLabelValues(result, mode).Inc()
}

// ObserveStreamStartupLatency records how long readiness took.
func ObserveStreamStartupLatency(mode string, d time.Duration) {
	StreamStartupLatency.WithLabelValues(mode).Observe(d.Seconds())
}

// IncStreamStop counts a session teardown (explicit, replaced, exit, park, shutdown).
func IncStreamStop(reason string) {
	streamStopTotal.WithLabelValues(reason).Inc()
}

func IncProcessExit(reason string) {
	processExitTotal.WithLabelValues(reason).Inc()
}

func IncHealthVerdict(result, reason string) {
	healthVerdictTotal.WithLabelValues(result, reason).Inc()
}

func IncReconnectAttempt(result string) {
	reconnectAttemptTotal.WithLabelValues(result).Inc()
}

func IncPark() { parkTotal.Inc() }

func IncQualitySwitch(tier, result string) {
	qualitySwitchTotal.WithLabelValues(tier, result).Inc()
}

func IncFallbackActivation() { fallbackActivationTotal.Inc() }

func IncSnapshotCapture(result string) {
	snapshotCaptureTotal.WithLabelValues(result).Inc()
}

func IncAutoMonitorSweep(result string) {
	autoMonitorSweepTotal.WithLabelValues(result).Inc()
}

// IncAutoMonitorReport counts status reports by online flag.
func IncAutoMonitorReport(online bool) {
	label := "false"
	if online {
		label = "true"
	}
	autoMonitorReportTotal.WithLabelValues(label).Inc()
}
