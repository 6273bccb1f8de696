// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package registry holds the in-memory set of active camera sessions.
package registry

import (
	"sort"
	"sync"

	"github.com/ManuGH/camhls/internal/domain/stream/model"
)

// Registry maps camera IDs to sessions. Reads return copies; mutation goes
// through Insert, Update and the Remove variants so the lock is held briefly.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
}

func New() *Registry {
	return &Registry{sessions: make(map[string]*model.Session)}
}

// Get returns a copy of the session for id.
func (r *Registry) Get(id string) (model.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return model.Session{}, false
	}
	return *s, true
}

// Has reports whether a session exists for id.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[id]
	return ok
}

// List returns copies of all sessions ordered by camera ID.
func (r *Registry) List() []model.Session {
	r.mu.RLock()
	out := make([]model.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, *s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CameraID < out[j].CameraID })
	return out
}

// Insert stores s, replacing any existing entry for the same camera.
// Callers hold the camera lock and have already stopped the previous session.
func (r *Registry) Insert(s model.Session) {
	cp := s
	r.mu.Lock()
	r.sessions[s.CameraID] = &cp
	r.mu.Unlock()
}

// UpdateIf applies fn to the session for id if it still belongs to the
// handle generation runID.
func (r *Registry) UpdateIf(id, runID string, fn func(*model.Session)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.RunID != runID {
		return false
	}
	fn(s)
	return true
}

// Remove deletes and returns the session for id.
func (r *Registry) Remove(id string) (model.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return model.Session{}, false
	}
	delete(r.sessions, id)
	return *s, true
}

// RemoveIf deletes the session only while its RunID equals runID.
// Exactly one caller observes ok=true for a given generation.
func (r *Registry) RemoveIf(id, runID string) (model.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.RunID != runID {
		return model.Session{}, false
	}
	delete(r.sessions, id)
	return *s, true
}

// Current reports whether id is registered with handle generation runID.
func (r *Registry) Current(id, runID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return ok && s.RunID == runID
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CountByMode returns the number of sessions per mode.
func (r *Registry) CountByMode() map[model.Mode]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[model.Mode]int{
		model.ModeTranscode:        0,
		model.ModeSnapshotFallback: 0,
	}
	for _, s := range r.sessions {
		out[s.Mode]++
	}
	return out
}
