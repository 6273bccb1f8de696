// SPDX-License-Identifier: MIT

package api

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ManuGH/camhls/internal/log"
)

// hlsFileServer serves playlists and segments from the streams root. It refuses
// traversal, symlink escapes and directory listings.
func (s *Server) hlsFileServer() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.WithComponentFromContext(r.Context(), "api")

		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			recordFileRequest("method_not_allowed")
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		path := r.URL.Path
		if isPathTraversal(path) {
			logger.Warn().Str(log.FieldEvent, "hls_req.denied").Str(log.FieldPath, path).Str(log.FieldReason, "path_escape").Msg("detected traversal sequence")
			recordFileRequest("path_escape")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if path == "" || strings.HasSuffix(path, "/") {
			recordFileRequest("directory_listing")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		root, err := filepath.Abs(s.cfg.HLSRoot)
		if err == nil {
			root, err = filepath.EvalSymlinks(root)
		}
		if err != nil {
			logger.Error().Err(err).Str(log.FieldEvent, "hls_req.internal_error").Msg("resolve streams root")
			recordFileRequest("internal_error")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		realPath, err := filepath.EvalSymlinks(filepath.Join(root, filepath.FromSlash(path)))
		if err != nil {
			if os.IsNotExist(err) {
				recordFileRequest("not_found")
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			logger.Error().Err(err).Str(log.FieldEvent, "hls_req.internal_error").Str(log.FieldPath, path).Msg("evaluate symlinks")
			recordFileRequest("internal_error")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		rel, err := filepath.Rel(root, realPath)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
			logger.Warn().
				Str(log.FieldEvent, "hls_req.denied").
				Str(log.FieldPath, path).
				Str("resolved_path", realPath).
				Str(log.FieldReason, "path_escape").
				Msg("path escapes streams root")
			recordFileRequest("path_escape")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		// #nosec G304 -- realPath is validated to reside inside the streams root
		f, err := os.Open(realPath)
		if err != nil {
			recordFileRequest("not_found")
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		defer func() { _ = f.Close() }()

		info, err := f.Stat()
		if err != nil {
			recordFileRequest("internal_error")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if info.IsDir() {
			recordFileRequest("directory_listing")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		etag := fmt.Sprintf(`W/"%x-%x"`, info.ModTime().UnixNano(), info.Size())
		w.Header().Set("ETag", etag)

		switch strings.ToLower(filepath.Ext(info.Name())) {
		case ".m3u8":
			// Playlists are rewritten every segment.
			w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
			w.Header().Set("Cache-Control", "no-cache")
		case ".ts":
			w.Header().Set("Content-Type", "video/mp2t")
			w.Header().Set("Cache-Control", "public, max-age=60")
		case ".jpg", ".jpeg":
			w.Header().Set("Content-Type", "image/jpeg")
			w.Header().Set("Cache-Control", "no-cache")
		}

		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			recordFileRequest("not_modified")
			w.WriteHeader(http.StatusNotModified)
			return
		}

		recordFileRequest("served")
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	})
}

// isPathTraversal decodes p repeatedly to catch double encoding, applies
// Unicode normalization and looks for parent references and NUL bytes.
func isPathTraversal(p string) bool {
	decoded := p
	for i := 0; i < 3; i++ {
		prev := decoded
		if d, err := url.PathUnescape(decoded); err == nil {
			decoded = d
		} else if d2, err2 := url.QueryUnescape(decoded); err2 == nil {
			decoded = d2
		}
		if decoded == prev {
			break
		}
	}

	lower := strings.ToLower(decoded)
	for _, s := range []string{strings.ToLower(p), lower} {
		for _, pat := range []string{"..", "%00", "%c0%ae", "%e0%80%ae"} {
			if strings.Contains(s, pat) {
				return true
			}
		}
	}
	if strings.IndexByte(decoded, 0x00) >= 0 {
		return true
	}
	return strings.Contains(norm.NFC.String(lower), "..")
}
