// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ManuGH/camhls/internal/log"
)

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(tracing(s.serviceName(), s.hlsPrefix()))
	r.Use(log.Middleware())
	r.Use(httpMetrics())

	if s.health != nil {
		r.Get("/healthz", s.health.ServeHealth)
		r.Get("/readyz", s.health.ServeReady)
	}

	r.Route("/api/v1/streams", func(r chi.Router) {
		r.Get("/", s.handleListStreams)
		r.Get("/{id}", s.handleGetStream)

		r.Group(func(r chi.Router) {
			if s.cfg.RateLimit > 0 {
				r.Use(rateLimit(rateLimitConfig{
					RequestLimit: s.cfg.RateLimit,
					WindowSize:   time.Minute,
				}))
			}
			r.Use(maxBody(s.cfg.MaxBodyBytes))
			r.Post("/{id}/start", s.handleStartStream)
			r.Post("/{id}/stop", s.handleStopStream)
			r.Put("/{id}/quality", s.handleChangeQuality)
		})
	})

	if prefix := s.hlsPrefix(); prefix != "" {
		r.Handle(prefix+"/*", http.StripPrefix(prefix, s.hlsFileServer()))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	return r
}

// hlsPrefix is the mount point of the HLS file server, or "" when not served.
func (s *Server) hlsPrefix() string {
	if !s.cfg.ServeHLS || s.cfg.HLSRoot == "" {
		return ""
	}
	return strings.TrimRight(s.cfg.HLSBaseURL, "/")
}

func (s *Server) serviceName() string {
	if s.cfg.ServiceName == "" {
		return "camhls"
	}
	return s.cfg.ServiceName
}

func maxBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}
