// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package sqlitestore is a SQLite camera registry. It serves as a camera
// Discovery source and records reported stream status.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/camhls/internal/cameras"
	"github.com/ManuGH/camhls/internal/persistence/sqlite"
)

const schemaVersion = 1

// ErrNotFound is returned for unknown camera IDs.
var ErrNotFound = errors.New("camera not found")

// Store implements cameras.Discovery and cameras.StatusReporter.
type Store struct {
	DB *sql.DB
}

var (
	_ cameras.Discovery      = (*Store)(nil)
	_ cameras.StatusReporter = (*Store)(nil)
)

// Status is the last reported state of a camera.
type Status struct {
	CameraID  string
	Online    bool
	HLSURL    string
	UpdatedAt time.Time
}

// Open opens (or creates) the registry at dbPath and migrates its schema.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	db, err := sqlite.Open(ctx, dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}

	s := &Store{DB: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("camera store: migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	var currentVersion int
	if err := s.DB.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion); err != nil {
		return err
	}
	if currentVersion >= schemaVersion {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS cameras (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		rtsp_url TEXT NOT NULL DEFAULT '',
		rtmp_url TEXT NOT NULL DEFAULT '',
		quality TEXT NOT NULL DEFAULT '',
		enabled BOOLEAN NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS camera_status (
		camera_id TEXT PRIMARY KEY,
		online BOOLEAN NOT NULL,
		hls_url TEXT NOT NULL DEFAULT '',
		updated_at_ms INTEGER NOT NULL
	);
	`
	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// ListCameras returns enabled cameras ordered by ID.
func (s *Store) ListCameras(ctx context.Context) ([]cameras.Camera, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, name, rtsp_url, rtmp_url, quality FROM cameras WHERE enabled = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list cameras: %w", err)
	}
	defer rows.Close()

	var out []cameras.Camera
	for rows.Next() {
		var c cameras.Camera
		if err := rows.Scan(&c.ID, &c.Name, &c.RTSPURL, &c.RTMPURL, &c.Quality); err != nil {
			return out, fmt.Errorf("scan camera: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertCamera inserts or replaces a camera definition and enables it.
func (s *Store) UpsertCamera(ctx context.Context, c cameras.Camera) error {
	if strings.TrimSpace(c.ID) == "" {
		return errors.New("camera id is required")
	}
	query := `
	INSERT INTO cameras (id, name, rtsp_url, rtmp_url, quality, enabled)
	VALUES (?, ?, ?, ?, ?, 1)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		rtsp_url = excluded.rtsp_url,
		rtmp_url = excluded.rtmp_url,
		quality = excluded.quality,
		enabled = 1
	`
	if _, err := s.DB.ExecContext(ctx, query, c.ID, c.Name, c.RTSPURL, c.RTMPURL, c.Quality); err != nil {
		return fmt.Errorf("upsert camera %s: %w", c.ID, err)
	}
	return nil
}

// SetEnabled toggles whether a camera is returned by ListCameras.
func (s *Store) SetEnabled(ctx context.Context, id string, enabled bool) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE cameras SET enabled = ? WHERE id = ?`, enabled, id)
	if err != nil {
		return fmt.Errorf("update camera %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// ReportStatus records the latest online state of a camera.
func (s *Store) ReportStatus(ctx context.Context, u cameras.StatusUpdate) error {
	at := u.At
	if at.IsZero() {
		at = time.Now()
	}
	query := `
	INSERT INTO camera_status (camera_id, online, hls_url, updated_at_ms)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(camera_id) DO UPDATE SET
		online = excluded.online,
		hls_url = excluded.hls_url,
		updated_at_ms = excluded.updated_at_ms
	`
	if _, err := s.DB.ExecContext(ctx, query, u.CameraID, u.Online, u.HLSURL, at.UnixMilli()); err != nil {
		return fmt.Errorf("record status %s: %w", u.CameraID, err)
	}
	return nil
}

// Status returns the last recorded status of a camera.
func (s *Store) Status(ctx context.Context, id string) (Status, error) {
	var (
		st Status
		ms int64
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT camera_id, online, hls_url, updated_at_ms FROM camera_status WHERE camera_id = ?`, id).
		Scan(&st.CameraID, &st.Online, &st.HLSURL, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return Status{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Status{}, err
	}
	st.UpdatedAt = time.UnixMilli(ms)
	return st, nil
}

// Check runs a quick integrity check; used by the readiness probe.
func (s *Store) Check(ctx context.Context) error {
	issues, err := sqlite.Verify(ctx, s.DB, false)
	if err != nil {
		return err
	}
	if len(issues) > 0 {
		return fmt.Errorf("camera store integrity: %s", strings.Join(issues, "; "))
	}
	return nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}
