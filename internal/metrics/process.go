// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	procTerminateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camhls_proc_terminate_total",
		Help: "Signals sent to transcoder process groups",
	}, []string{"signal", "result"})

	procWaitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camhls_proc_wait_total",
		Help: "How terminated process groups finished",
	}, []string{"outcome"})

	apiRateLimitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camhls_api_rate_limited_total",
		Help: "Requests rejected by the API rate limiter",
	}, []string{"route"})
)

// IncProcTerminate counts a signal delivery attempt (signal: SIGTERM, SIGKILL, none).
func IncProcTerminate(signal, result string) {
	procTerminateTotal.WithLabelValues(signal, result).Inc()
}

// IncProcWait counts the terminal outcome (graceful, forced, timeout).
func IncProcWait(outcome string) {
	procWaitTotal.WithLabelValues(outcome).Inc()
}

func IncAPIRateLimited(route string) {
	apiRateLimitTotal.WithLabelValues(route).Inc()
}
