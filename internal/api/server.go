// SPDX-License-Identifier: MIT

// Package api exposes the stream orchestrator over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ManuGH/camhls/internal/domain/stream/manager"
	"github.com/ManuGH/camhls/internal/health"
)

// StreamService is the subset of the orchestrator the HTTP layer drives.
type StreamService interface {
	Start(ctx context.Context, req manager.StartRequest) (manager.StartResult, error)
	Stop(ctx context.Context, cameraID string) error
	Status(ctx context.Context, cameraID string) manager.StatusInfo
	List(ctx context.Context) []manager.StatusInfo
	ChangeQuality(ctx context.Context, cameraID, quality string) (manager.StartResult, error)
}

// Config controls the HTTP surface.
type Config struct {
	// RateLimit is the number of mutating requests allowed per client per minute.
	// Zero disables limiting.
	RateLimit    int
	MaxBodyBytes int64

	// ServeHLS mounts HLSRoot under HLSBaseURL.
	ServeHLS   bool
	HLSRoot    string
	HLSBaseURL string

	// ServiceName names the HTTP server spans. Defaults to "camhls".
	ServiceName string
}

// Server holds the HTTP handlers.
type Server struct {
	cfg     Config
	streams StreamService
	health  *health.Manager
	now     func() time.Time
}

// New builds a server. hm may be nil, in which case the probe routes are not mounted.
func New(cfg Config, streams StreamService, hm *health.Manager) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 << 10
	}
	if cfg.HLSBaseURL == "" {
		cfg.HLSBaseURL = "/hls"
	}
	return &Server{
		cfg:     cfg,
		streams: streams,
		health:  hm,
		now:     time.Now,
	}
}

// Handler returns the root router.
func (s *Server) Handler() http.Handler {
	return s.routes()
}
