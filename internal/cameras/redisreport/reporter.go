// SPDX-License-Identifier: MIT

// Package redisreport publishes camera status to Redis: a per-camera hash for
// lookups and a pub/sub channel for listeners.
package redisreport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ManuGH/camhls/internal/cameras"
)

// Config holds Redis connection configuration.
type Config struct {
	Addr      string // host:port
	Password  string
	DB        int
	KeyPrefix string        // default "camhls"
	TTL       time.Duration // status hash expiry; 0 keeps it forever
}

// Reporter implements cameras.StatusReporter on Redis.
type Reporter struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger zerolog.Logger
}

var _ cameras.StatusReporter = (*Reporter)(nil)

type message struct {
	CameraID string `json:"cameraId"`
	Online   bool   `json:"online"`
	HLSURL   string `json:"hlsUrl,omitempty"`
	At       int64  `json:"at"`
}

// New connects and pings Redis.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Reporter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Msg("connected to Redis status publisher")

	return newReporter(client, cfg, logger), nil
}

func newReporter(client *redis.Client, cfg Config, logger zerolog.Logger) *Reporter {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "camhls"
	}
	return &Reporter{client: client, prefix: prefix, ttl: cfg.TTL, logger: logger}
}

// Key is the status hash key of a camera.
func (r *Reporter) Key(cameraID string) string {
	return r.prefix + ":camera:" + cameraID
}

// Channel is the pub/sub channel status changes are published on.
func (r *Reporter) Channel() string {
	return r.prefix + ":status"
}

// ReportStatus writes the camera hash and publishes the update in one pipeline.
func (r *Reporter) ReportStatus(ctx context.Context, u cameras.StatusUpdate) error {
	at := u.At
	if at.IsZero() {
		at = time.Now()
	}
	payload, err := json.Marshal(message{CameraID: u.CameraID, Online: u.Online, HLSURL: u.HLSURL, At: at.UnixMilli()})
	if err != nil {
		return err
	}

	key := r.Key(u.CameraID)
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key,
			"online", u.Online,
			"hls_url", u.HLSURL,
			"updated_at", at.UnixMilli(),
		)
		if r.ttl > 0 {
			p.Expire(ctx, key, r.ttl)
		}
		p.Publish(ctx, r.Channel(), payload)
		return nil
	})
	if err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("redis status publish failed")
		return fmt.Errorf("publish status %s: %w", u.CameraID, err)
	}
	return nil
}

// HealthCheck checks if Redis is available.
func (r *Reporter) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (r *Reporter) Close() error {
	return r.client.Close()
}
