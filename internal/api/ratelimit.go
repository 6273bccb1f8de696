// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/ManuGH/camhls/internal/log"
	"github.com/ManuGH/camhls/internal/metrics"
)

type rateLimitConfig struct {
	// RequestLimit is the maximum number of requests allowed in the window
	RequestLimit int
	WindowSize   time.Duration
	// KeyFunc defaults to the client IP.
	KeyFunc func(r *http.Request) (string, error)
}

// rateLimit applies a sliding window limit per client and answers 429 with a
// Retry-After header once it is exceeded.
func rateLimit(cfg rateLimitConfig) func(http.Handler) http.Handler {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = httprate.KeyByIP
	}

	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowSize,
		httprate.WithKeyFuncs(keyFunc),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil {
				if p := rc.RoutePattern(); p != "" {
					route = p
				}
			}
			metrics.IncAPIRateLimited(route)
			logger := log.WithComponentFromContext(r.Context(), "api")
			logger.Warn().
				Str(log.FieldEvent, "api.rate_limited").
				Str("route", route).
				Msg("rate limit exceeded")

			w.Header().Set("Retry-After", strconv.Itoa(int(cfg.WindowSize.Seconds())))
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
		}),
	)
}
