// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/camhls/internal/domain/stream/manager"
	"github.com/ManuGH/camhls/internal/domain/stream/model"
	"github.com/ManuGH/camhls/internal/log"
)

// decodeBody reads a JSON body into v. Unknown fields are rejected.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_json", "malformed request body")
		return false
	}
	return true
}

// cameraParam validates the {id} path parameter and binds it to the request
// context for downstream logging.
func cameraParam(w http.ResponseWriter, r *http.Request) (*http.Request, string, bool) {
	id := chi.URLParam(r, "id")
	if !model.IsSafeCameraID(id) {
		writeError(w, http.StatusBadRequest, "invalid_camera_id", manager.ErrInvalidCameraID.Error())
		return r, "", false
	}
	return r.WithContext(log.ContextWithCameraID(r.Context(), id)), id, true
}

func (s *Server) handleStartStream(w http.ResponseWriter, r *http.Request) {
	r, id, ok := cameraParam(w, r)
	if !ok {
		return
	}
	var body startRequest
	if !decodeBody(w, r, &body) {
		return
	}

	res, err := s.streams.Start(r.Context(), manager.StartRequest{
		CameraID: id,
		InputURL: body.InputURL,
		Quality:  body.Quality,
		Protocol: body.Protocol,
	})
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Warn().Err(err).Str(log.FieldEvent, "stream.start_rejected").Msg("start failed")
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, startResponse{
		CameraID: id,
		Success:  res.Success,
		HLSURL:   res.HLSURL,
		Mode:     string(res.Mode),
	})
}

func (s *Server) handleStopStream(w http.ResponseWriter, r *http.Request) {
	r, id, ok := cameraParam(w, r)
	if !ok {
		return
	}
	if err := s.streams.Stop(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stopResponse{CameraID: id, Success: true})
}

func (s *Server) handleGetStream(w http.ResponseWriter, r *http.Request) {
	r, id, ok := cameraParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toStreamStatus(s.streams.Status(r.Context(), id)))
}

func (s *Server) handleListStreams(w http.ResponseWriter, r *http.Request) {
	infos := s.streams.List(r.Context())
	out := listResponse{Streams: make([]streamStatus, 0, len(infos)), Count: len(infos)}
	for _, in := range infos {
		out.Streams = append(out.Streams, toStreamStatus(in))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleChangeQuality(w http.ResponseWriter, r *http.Request) {
	r, id, ok := cameraParam(w, r)
	if !ok {
		return
	}
	var body qualityRequest
	if !decodeBody(w, r, &body) {
		return
	}
	res, err := s.streams.ChangeQuality(r.Context(), id, body.Quality)
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Warn().Err(err).Str(log.FieldQuality, body.Quality).Msg("quality switch failed")
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, startResponse{
		CameraID: id,
		Success:  res.Success,
		HLSURL:   res.HLSURL,
		Mode:     string(res.Mode),
	})
}
