// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ManuGH/camhls/internal/domain/stream/model"
	"github.com/ManuGH/camhls/internal/pipeline/profiles"
)

// InputSpec defines the camera feed.
type InputSpec struct {
	StreamURL      string
	Protocol       model.Protocol
	ConnectTimeout time.Duration // RTSP socket timeout
}

// OutputSpec defines the destination paths.
type OutputSpec struct {
	HLSPlaylist        string // Final playlist path (stream.m3u8)
	SegmentFilename    string // Segment pattern (segment%03d.ts)
	SegmentDuration    int    // Target duration in seconds
	PlaylistWindowSize int    // Number of segments in playlist
}

// BuildHLSArgs constructs the ffmpeg arguments for live HLS transcoding.
// No shell is involved; the URL is passed as a single argv element.
func BuildHLSArgs(in InputSpec, out OutputSpec, prof profiles.Profile) ([]string, error) {
	if in.StreamURL == "" {
		return nil, fmt.Errorf("missing stream URL")
	}
	if out.HLSPlaylist == "" || out.SegmentFilename == "" {
		return nil, fmt.Errorf("missing playlist path")
	}
	if out.SegmentDuration <= 0 {
		out.SegmentDuration = 2
	}
	if out.PlaylistWindowSize <= 0 {
		out.PlaylistWindowSize = 3
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-nostats",
		"-fflags", "+genpts",
	}
	args = append(args, inputArgs(in)...)

	gop := strconv.Itoa(prof.GOP(out.SegmentDuration))
	args = append(args,
		"-map", "0:v:0",
		"-c:v", "libx264",
		"-preset", prof.Preset,
		"-crf", strconv.Itoa(prof.CRF),
		"-vf", "scale="+prof.Resolution(),
		"-r", strconv.Itoa(prof.FPS),
		"-maxrate", fmt.Sprintf("%dk", prof.MaxrateKbps),
		"-bufsize", fmt.Sprintf("%dk", prof.BufsizeKbps),
		// Fixed GOP: keyframes on segment boundaries
		"-g", gop,
		"-keyint_min", gop,
		"-sc_threshold", "0",
		"-an",
		"-f", "hls",
		"-hls_time", strconv.Itoa(out.SegmentDuration),
		"-hls_list_size", strconv.Itoa(out.PlaylistWindowSize),
		"-hls_flags", "delete_segments",
		"-hls_segment_filename", out.SegmentFilename,
		out.HLSPlaylist,
	)
	return args, nil
}

// BuildCaptureArgs constructs the arguments for grabbing a single JPEG frame.
func BuildCaptureArgs(in InputSpec, dst string) ([]string, error) {
	if in.StreamURL == "" {
		return nil, fmt.Errorf("missing stream URL")
	}
	if dst == "" {
		return nil, fmt.Errorf("missing capture path")
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-nostats",
	}
	args = append(args, inputArgs(in)...)
	args = append(args,
		"-frames:v", "1",
		"-q:v", "2",
		"-y",
		dst,
	)
	return args, nil
}

func inputArgs(in InputSpec) []string {
	var args []string
	if in.Protocol == model.ProtocolRTSP {
		args = append(args, "-rtsp_transport", "tcp")
		if in.ConnectTimeout > 0 {
			// microseconds
			args = append(args, "-timeout", strconv.FormatInt(in.ConnectTimeout.Microseconds(), 10))
		}
	}
	return append(args, "-i", in.StreamURL)
}
